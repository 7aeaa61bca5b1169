package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"model-myself/backend/internal/adapter"
	"model-myself/backend/internal/analysis"
	"model-myself/backend/internal/graph"
	"model-myself/backend/internal/storage"
	"model-myself/backend/internal/training"
	"model-myself/backend/pkg/config"
	"model-myself/backend/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Open the knowledge graph store
	store, err := graph.Open(cfg.GraphPath)
	if err != nil {
		log.Fatal("Failed to open knowledge graph", zap.Error(err))
	}
	defer store.Close()

	// Open document storage and data files
	docs, err := storage.OpenDocumentStore(cfg.UploadDir, log.Named("storage"))
	if err != nil {
		log.Fatal("Failed to open document store", zap.Error(err))
	}
	answers, err := training.OpenAnswerLog(cfg.TrainingDataFile, log.Named("training"))
	if err != nil {
		log.Fatal("Failed to open training answer log", zap.Error(err))
	}
	records, err := analysis.OpenRecordStore(cfg.AnalysisDataFile, log.Named("analysis"))
	if err != nil {
		log.Fatal("Failed to open analysis records", zap.Error(err))
	}

	// Initialize dependencies
	llmAdapter := adapter.NewLLMAdapter(cfg.LiteLLMURL, cfg.OpenRouterAPIKey, cfg.ModelID)
	catalog := training.NewCatalog()
	trainingSyncer := graph.NewTrainingSyncer(store)
	documentSyncer := graph.NewDocumentSyncer(store)
	queries := graph.NewQueryService(store, catalog.TotalsByKey)
	runner := analysis.NewRunner(docs, records, documentSyncer, llmAdapter, log.Named("runner"))

	srv := &server{
		store:          store,
		docs:           docs,
		catalog:        catalog,
		answers:        answers,
		records:        records,
		runner:         runner,
		trainingSyncer: trainingSyncer,
		queries:        queries,
		logger:         log,
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	srv.registerRoutes(router)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// let in-flight background analyses finish writing their records
	runner.Wait()

	log.Info("Server exited")
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
