package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	"github.com/warranty-agent-poc-v1/server/internal/core"
	logx "github.com/warranty-agent-poc-v1/server/pkg/logger"
	pkgredis "github.com/warranty-agent-poc-v1/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the agent, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis    pkgredis.Config
	BigQuery model.BigQueryConfig

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Agent        model.AgentModelConfig
	Prompt       model.AgentPromptConfig
	Conversation model.ConversationConfig
	Throttle     model.ThrottleConfig
}

// Env resolves the deployment environment, detecting Cloud Run when unset.
func (c *AppConfig) Env() core.Environment {
	return core.ResolveEnvironment(c.Environment)
}

// loadConfig reads envFile when present, binds the environment and
// initializes the logger for the resolved environment.
func loadConfig(envFile string) (*AppConfig, error) {
	envErr := godotenv.Load(envFile)

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	cfg.BigQuery = cfg.BigQuery.Resolve(cfg.Env().IsProduction())

	logx.Init(logx.LoggerOpts{Environment: cfg.Env(), Level: cfg.LogLevel})
	if envErr != nil {
		logx.Debug().Str("file", envFile).Err(envErr).Msg("No .env file loaded")
	}
	logx.Debug().
		Str("environment", cfg.Env().String()).
		Str("bigquery_project", cfg.BigQuery.Project).
		Bool("detect_project", cfg.BigQuery.DetectsProject()).
		Msg("Configuration loaded")
	return &cfg, nil
}
