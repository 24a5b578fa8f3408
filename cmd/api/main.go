package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/danou294/butter-gestion-sub000/internal/config"
	"github.com/danou294/butter-gestion-sub000/internal/geocode"
	"github.com/danou294/butter-gestion-sub000/internal/importer"
	"github.com/danou294/butter-gestion-sub000/internal/middleware"
	"github.com/danou294/butter-gestion-sub000/internal/storage"
	"github.com/danou294/butter-gestion-sub000/internal/store"
)

func main() {

	// ───────────────────────── CONFIG ─────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config: ", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	baseLog := logger.WithField("app", "butter-gestion")

	// ───────────────────────── STORE ─────────────────────────
	ctx := context.Background()
	conn, err := store.Connect(ctx, cfg, baseLog)
	if err != nil {
		log.Fatal("firestore: ", err)
	}
	defer conn.Close()

	// ───────────────────────── PIPELINE ─────────────────────────
	geocoder := geocode.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, baseLog)

	var offsite importer.Offsite
	if cfg.R2Enabled() {
		r2, err := storage.NewR2Client(ctx, cfg, baseLog)
		if err != nil {
			log.Fatal("r2 init failed: ", err)
		}
		offsite = r2
	}

	service := importer.NewService(cfg, conn, geocoder, offsite, baseLog)
	jobs := importer.NewJobManager(cfg.LogsDir)
	handler := importer.NewHandler(service, jobs, cfg.UploadsDir)

	// ───────────────────────── GIN ─────────────────────────
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// ───────────────────────── ADMIN ROUTES ─────────────────────────
	admin := r.Group("/admin")
	admin.Use(
		middleware.AuthMiddleware(cfg.JWTSecret),
		middleware.RequireRole("ADMIN"),
	)
	{
		admin.POST("/imports", handler.TriggerImport)
		admin.GET("/imports/:id", handler.JobStatus)
		admin.GET("/snapshots", handler.ListSnapshots)
		admin.POST("/restore", handler.TriggerRestore)
	}

	// ───────────────────────── HEALTH ─────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ───────────────────────── START ─────────────────────────
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Println("API running at http://localhost" + addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
