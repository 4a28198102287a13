package main

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/warranty-agent-poc-v1/server/internal/agent/graph"
	"github.com/warranty-agent-poc-v1/server/internal/agent/graph/guards"
	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	"github.com/warranty-agent-poc-v1/server/internal/agent/repo"
	"github.com/warranty-agent-poc-v1/server/internal/agent/warranty"
	logx "github.com/warranty-agent-poc-v1/server/pkg/logger"
)

func userAgent() string {
	return "warranty-agent/" + version
}

// app holds the long-lived collaborators of one CLI invocation.
type app struct {
	gateway *warranty.Gateway
	runner  graph.Runner
	closers []func() error
}

type appOptions struct {
	withAgent bool
	sink      model.StatusSink
}

// appBuilder wires an app from configuration. Tests substitute fakes.
type appBuilder func(ctx context.Context, cfg *AppConfig, opts appOptions) (*app, error)

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn().Err(err).Msg("Error closing resource")
		}
	}
}

// buildApp connects to BigQuery and, for chat, builds the agent graph with
// Redis or in-memory conversation history.
func buildApp(ctx context.Context, cfg *AppConfig, opts appOptions) (*app, error) {
	a := &app{}

	bq, err := repo.NewBigQueryClient(ctx, cfg.BigQuery, option.WithUserAgent(userAgent()))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, bq.Close)

	predictions, err := repo.NewBigQueryPredictionRepository(bq, cfg.BigQuery)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.gateway = warranty.NewGateway(predictions, warranty.NewMemoryCache())

	if !opts.withAgent {
		return a, nil
	}

	if cfg.APIKey == "" {
		a.Close()
		return nil, fmt.Errorf("GEMINI_API_KEY is required for chat")
	}

	var conversations model.ConversationRepository
	maxMessages := cfg.Conversation.MaxTurns * 2
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		conversations = repo.NewRedisConversationRepository(rdb, cfg.Conversation.TTL, maxMessages)
		logx.Info().Msg("Conversation history stored in Redis")
	} else {
		conversations = repo.NewMemoryConversationRepository(maxMessages)
		logx.Info().Msg("Conversation history kept in memory")
	}

	a.runner, err = graph.BuildResponseGraph(ctx, graph.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		AgentModel:       cfg.Agent,
		AgentPrompt:      cfg.Prompt,
		Conversation:     cfg.Conversation,
		ConversationRepo: conversations,
		Predictor:        a.gateway,
		Guard:            guards.NewThrottleGuard(cfg.Throttle.Window, cfg.Throttle.GuardedTools),
		StatusSink:       opts.sink,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build agent graph: %w", err)
	}
	return a, nil
}
