// Package bootstrap wires configuration, storage, model clients and the
// triage services into a runnable worker.
package bootstrap

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/adapter/out/llm"
	"github.com/markwilliams0n/aurelius-hq-sub001/adapter/out/memctx"
	"github.com/markwilliams0n/aurelius-hq-sub001/adapter/out/persistence"
	"github.com/markwilliams0n/aurelius-hq-sub001/config"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/port/out"
	"github.com/markwilliams0n/aurelius-hq-sub001/core/service/triage"
	"github.com/markwilliams0n/aurelius-hq-sub001/infra/database"
	"github.com/markwilliams0n/aurelius-hq-sub001/pkg/logger"
	"github.com/markwilliams0n/aurelius-hq-sub001/pkg/metrics"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	// Repositories
	ItemRepo     out.ItemRepository
	RuleRepo     out.RuleRepository
	CardRepo     out.CardRepository
	DecisionRepo out.DecisionRepository

	// Model clients
	Cloud out.CloudClassifier
	Local out.LocalClassifier

	// Memory context
	Memctx out.ContextProvider

	// Services
	RuleStore     *triage.RuleStore
	History       *triage.HistoryAggregator
	Pipeline      *triage.Pipeline
	Assigner      *triage.Assigner
	Resolver      *triage.Resolver
	Learning      *triage.LearningLoop
	TriageService *triage.Service
}

func NewDependencies(cfg *config.Config, zlog zerolog.Logger) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Database (pgxpool for health checks and migrations)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the persistence adapters)
	sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })
	metrics.RegisterPool("postgres", sqlDB.DB)

	// Redis backs the long-term memory context. The worker runs without
	// it; the cloud tier just loses the memory section of its prompt.
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed, continuing without memory context: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			deps.Memctx = memctx.NewRedisContextProvider(redisClient, zlog)
		}
	}

	// Repositories
	deps.ItemRepo = persistence.NewItemAdapter(sqlDB)
	deps.RuleRepo = persistence.NewRuleAdapter(sqlDB)
	deps.CardRepo = persistence.NewCardAdapter(sqlDB)
	deps.DecisionRepo = persistence.NewDecisionAdapter(sqlDB)

	// Model clients
	if cfg.OpenAIAPIKey != "" {
		deps.Cloud = llm.NewCloudClassifier(llm.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			Timeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
		}, zlog)
	} else {
		logger.Warn("OPENAI_API_KEY not set, cloud tier disabled")
	}
	if cfg.LocalLLMBaseURL != "" {
		deps.Local = llm.NewLocalClassifier(llm.ClientConfig{
			BaseURL:   cfg.LocalLLMBaseURL,
			Model:     cfg.LocalLLMModel,
			MaxTokens: cfg.LocalLLMMaxTokens,
			Timeout:   time.Duration(cfg.LocalLLMTimeoutSec) * time.Second,
		}, zlog)
	}

	// Services
	deps.RuleStore = triage.NewRuleStore(deps.RuleRepo, zlog)
	deps.History = triage.NewHistoryAggregator(deps.ItemRepo)
	deps.Pipeline = triage.NewPipeline(
		deps.RuleStore,
		deps.History,
		deps.Memctx,
		deps.Local,
		deps.Cloud,
		triage.DefaultPipelineConfig(),
		zlog,
	)
	deps.Assigner = triage.NewAssigner(deps.ItemRepo, deps.CardRepo, zlog)
	deps.Resolver = triage.NewResolver(deps.ItemRepo, deps.CardRepo, zlog)
	if deps.Cloud != nil {
		deps.Learning = triage.NewLearningLoop(deps.DecisionRepo, deps.RuleRepo, deps.Cloud, deps.CardRepo, zlog)
	}
	deps.TriageService = triage.NewService(
		deps.ItemRepo,
		deps.Pipeline,
		deps.RuleStore,
		deps.Assigner,
		deps.Resolver,
		deps.Learning,
		cfg.PassLimit,
		zlog,
	)

	if cfg.SeedDefaultRules {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := deps.RuleStore.SeedDefaults(ctx); err != nil {
			logger.Warn("Failed to seed default rules: %v", err)
		}
	}

	return deps, cleanup, nil
}
