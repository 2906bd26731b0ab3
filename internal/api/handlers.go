package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gosplit/app"
	"gosplit/domain/core"
	"gosplit/domain/stats"
)

func (s *Server) handleCreateExperiment(c *gin.Context) {
	var req app.CreateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	exp, err := s.engine.CreateExperiment(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, exp)
}

func (s *Server) handleListExperiments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"experiments": s.engine.ListExperiments(c.Request.Context())})
}

func (s *Server) handleGetExperiment(c *gin.Context) {
	exp := s.engine.GetExperiment(c.Request.Context(), core.ExperimentID(c.Param("id")))
	if exp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "experiment not found"})
		return
	}
	c.JSON(http.StatusOK, exp)
}

// handleTransition adapts the engine's boolean lifecycle calls into a
// uniform success/conflict response.
func (s *Server) handleTransition(fn func(ctx context.Context, id core.ExperimentID) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := core.ExperimentID(c.Param("id"))
		if !fn(c.Request.Context(), id) {
			c.JSON(http.StatusConflict, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (s *Server) handleGetVariant(c *gin.Context) {
	id := core.ExperimentID(c.Param("id"))
	userID := core.UserID(c.Query("user_id"))
	if userID.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	variant := s.engine.GetVariant(c.Request.Context(), id, userID)
	if variant == nil {
		assignmentsDeclined.WithLabelValues(id.String()).Inc()
		c.JSON(http.StatusOK, gin.H{"variant": nil})
		return
	}
	assignmentsServed.WithLabelValues(id.String()).Inc()
	c.JSON(http.StatusOK, gin.H{"variant": variant})
}

type trackRequest struct {
	UserID string  `json:"user_id" binding:"required"`
	Metric string  `json:"metric" binding:"required"`
	Value  float64 `json:"value"`
}

func (s *Server) handleTrackMetric(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := core.ExperimentID(c.Param("id"))
	s.engine.TrackMetric(c.Request.Context(), id, core.UserID(req.UserID), req.Metric, req.Value)
	metricEventsIngested.WithLabelValues(id.String()).Inc()
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

func (s *Server) handleGetResults(c *gin.Context) {
	result := s.engine.GetResults(c.Request.Context(), core.ExperimentID(c.Param("id")))
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "experiment not found"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetReport(c *gin.Context) {
	id := core.ExperimentID(c.Param("id"))
	exp := s.engine.GetExperiment(c.Request.Context(), id)
	result := s.engine.GetResults(c.Request.Context(), id)
	if exp == nil || result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "experiment not found"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", app.HTMLReport(exp, result))
}

func (s *Server) handleRunExperiment(c *gin.Context) {
	var cfg app.RunConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := core.ExperimentID(c.Param("id"))
	// Monitoring outlives the request, so the watch goroutine is rooted
	// in the background context and keeps polling until it concludes.
	results, _ := s.runner.Watch(context.Background(), id, cfg)
	go func() {
		if result, ok := <-results; ok && result != nil {
			s.log.Info("experiment %s monitor finished (confidence %.4f)", id, result.Confidence)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"monitoring": true})
}

func (s *Server) handlePlan(c *gin.Context) {
	baseline, err1 := strconv.ParseFloat(c.DefaultQuery("baseline", "0.1"), 64)
	mde, err2 := strconv.ParseFloat(c.DefaultQuery("mde", "0.02"), 64)
	alpha, err3 := strconv.ParseFloat(c.DefaultQuery("alpha", "0.05"), 64)
	power, err4 := strconv.ParseFloat(c.DefaultQuery("power", "0.8"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "baseline, mde, alpha and power must be numeric"})
		return
	}
	plan, err := stats.RequiredSampleSize(baseline, mde, alpha, power)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, plan)
}
