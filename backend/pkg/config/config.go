package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Knowledge graph
	GraphPath string

	// Document storage
	UploadDir string

	// Training
	TrainingDataFile string

	// Document analysis
	AnalysisDataFile string

	// AI (knowledge extraction)
	LiteLLMURL       string
	ModelID          string
	OpenRouterAPIKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8089"),
		Env:              getEnv("ENV", "development"),
		GraphPath:        getEnv("GRAPH_PATH", "data/knowledge_graph.json"),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		TrainingDataFile: getEnv("TRAINING_DATA_FILE", "data/training_data.json"),
		AnalysisDataFile: getEnv("ANALYSIS_DATA_FILE", "data/analysis_results.json"),
		LiteLLMURL:       getEnv("LITELLM_URL", "http://localhost:4000"),
		ModelID:          getEnv("MODEL_ID", "openrouter/anthropic/claude-3.5-sonnet"),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.GraphPath == "" {
		return fmt.Errorf("GRAPH_PATH is required")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if c.TrainingDataFile == "" {
		return fmt.Errorf("TRAINING_DATA_FILE is required")
	}
	if c.AnalysisDataFile == "" {
		return fmt.Errorf("ANALYSIS_DATA_FILE is required")
	}
	// LiteLLM settings are only needed when knowledge extraction runs;
	// the API key is optional for development.
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
