package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/controllers"
	"github.com/formlite/formlite-server/logger"
	"github.com/formlite/formlite-server/routes"
	"github.com/formlite/formlite-server/storage"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	logger.Init()
	defer logger.Sync()

	config.ConnectDB()

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	store, err := storage.NewLocalStore(uploadDir)
	if err != nil {
		logger.L.Fatal("failed to init upload staging", zap.Error(err))
	}

	// The cloud mirror is built once here and injected; nil means
	// local-only operation.
	mirror := storage.MirrorFromEnv(context.Background())
	if mirror != nil {
		logger.L.Info("cloud mirror enabled", zap.String("provider", mirror.Name()))
	}

	rc := controllers.NewResponseController(store, mirror)

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.L.Fatal("failed to set trusted proxies", zap.Error(err))
	}

	// Staged files are served statically by stored name.
	r.Static("/uploads", uploadDir)

	routes.SetupRoutes(r, rc)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.L.Info("server listening", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.L.Fatal("server exited", zap.Error(err))
	}
}
