package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gosplit/app"
	"gosplit/domain/core"
)

func (s *Server) handleCreateFlag(c *gin.Context) {
	var req app.CreateFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := s.flags.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (s *Server) handleListFlags(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"flags": s.flags.List(c.Request.Context())})
}

func (s *Server) handleToggleFlag(enable bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := core.FlagKey(c.Param("key"))
		var ok bool
		if enable {
			ok = s.flags.Enable(c.Request.Context(), key)
		} else {
			ok = s.flags.Disable(c.Request.Context(), key)
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (s *Server) handleEvaluateFlag(c *gin.Context) {
	key := core.FlagKey(c.Param("key"))
	userID := core.UserID(c.Query("user_id"))
	enabled := s.flags.IsEnabled(c.Request.Context(), key, userID)
	outcome := "disabled"
	if enabled {
		outcome = "enabled"
	}
	flagEvaluations.WithLabelValues(key.String(), outcome).Inc()

	resp := gin.H{"key": key, "enabled": enabled}
	if def, hasDefault := c.GetQuery("default"); hasDefault {
		resp["value"] = s.flags.Value(c.Request.Context(), key, def, userID)
	}
	c.JSON(http.StatusOK, resp)
}
