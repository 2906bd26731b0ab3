package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"gosplit/internal"
	"gosplit/internal/api"
	"gosplit/internal/config"
	"gosplit/internal/container"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger := internal.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("container: %v", err)
	}
	defer c.Close()

	server := api.NewServer(c.Engine, c.FlagService, c.Runner, logger)
	if err := server.Run(ctx, ":"+cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
