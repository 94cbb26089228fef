package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/anbuselvan/assetsync/internal/api"
	"github.com/anbuselvan/assetsync/internal/config"
	"github.com/anbuselvan/assetsync/internal/excel"
	"github.com/anbuselvan/assetsync/internal/repository"
	"github.com/anbuselvan/assetsync/internal/service"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// Set up the users database
	usersDB, err := config.OpenUsersDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up users database: %v", err)
	}
	defer usersDB.Close()

	// Create repository and seed the first-run admin account
	repo := repository.NewSQLiteUserRepository(usersDB)
	if err := repo.Bootstrap(context.Background()); err != nil {
		log.Fatalf("Failed to bootstrap users database: %v", err)
	}

	// Create the synchronizer; this runs the initial spreadsheet import
	syncer, err := excel.NewSynchronizer(cfg.Store.ExcelPath, cfg.Store.AssetsDBPath, cfg.Store.BackupDir)
	if err != nil {
		log.Fatalf("Failed to set up synchronizer: %v", err)
	}

	// Create service
	svc := service.NewDefaultService(repo, syncer, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	router := gin.Default()
	router.Use(api.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
