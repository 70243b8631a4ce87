package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/bookkeeper-server/internal/api"
	"github.com/rongwang/bookkeeper-server/internal/config"
	"github.com/rongwang/bookkeeper-server/internal/repository"
	"github.com/rongwang/bookkeeper-server/internal/service"
	"github.com/rongwang/bookkeeper-server/internal/utils"
)

func main() {
	log := utils.Logger()

	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up database")
	}
	defer db.Close()

	// Create repository. The DSN is kept for the change listener, which
	// opens its own connection.
	repo := repository.NewPostgresRepository(db, cfg.Database.GetDSN())

	// Create service
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret)
	defer svc.Close()

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.WithField("addr", serverAddr).Info("Starting server")
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}
