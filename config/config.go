package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "triage"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string

	// Cloud model (OpenAI-compatible)
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int
	LLMMaxRetries  int

	// Local model (OpenAI-compatible endpoint, e.g. Ollama)
	LocalLLMBaseURL    string
	LocalLLMModel      string
	LocalLLMMaxTokens  int
	LocalLLMTimeoutSec int

	// Triage
	PassLimit int

	// Worker
	WorkerID            string
	WorkerCount         int
	WorkerBatchSize     int
	WorkerChanSize      int
	WorkerJobTimeoutSec int
	WorkerMaxRetries    int

	// Scheduler
	SchedulerEnabled   bool
	PassSchedule       string
	ReclassifySchedule string
	AssignSchedule     string
	LearningSchedule   string
	SeedDefaultRules   bool
}

func Load() (*Config, error) {
	return &Config{
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// Cloud model
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 60),
		LLMMaxRetries:  getEnvInt("LLM_MAX_RETRIES", 2),

		// Local model
		LocalLLMBaseURL:    getEnv("LOCAL_LLM_BASE_URL", ""),
		LocalLLMModel:      getEnv("LOCAL_LLM_MODEL", "llama3.2:3b"),
		LocalLLMMaxTokens:  getEnvInt("LOCAL_LLM_MAX_TOKENS", 256),
		LocalLLMTimeoutSec: getEnvInt("LOCAL_LLM_TIMEOUT_SEC", 10),

		// Triage
		PassLimit: getEnvInt("TRIAGE_PASS_LIMIT", 200),

		// Worker
		WorkerID:            getEnv("WORKER_ID", generateWorkerID()),
		WorkerCount:         getEnvInt("WORKER_COUNT", 4),
		WorkerBatchSize:     getEnvInt("WORKER_BATCH_SIZE", 10),
		WorkerChanSize:      getEnvInt("WORKER_CHAN_SIZE", 100),
		WorkerJobTimeoutSec: getEnvInt("WORKER_JOB_TIMEOUT_SEC", 60),
		WorkerMaxRetries:    getEnvInt("WORKER_MAX_RETRIES", 3),

		// Scheduler
		SchedulerEnabled:   getEnvBool("SCHEDULER_ENABLED", true),
		PassSchedule:       getEnv("PASS_SCHEDULE", "*/5 * * * *"),
		ReclassifySchedule: getEnv("RECLASSIFY_SCHEDULE", "*/15 * * * *"),
		AssignSchedule:     getEnv("ASSIGN_SCHEDULE", "*/5 * * * *"),
		LearningSchedule:   getEnv("LEARNING_SCHEDULE", "0 5 * * *"),
		SeedDefaultRules:   getEnvBool("SEED_DEFAULT_RULES", true),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
