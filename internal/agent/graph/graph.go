package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/warranty-agent-poc-v1/server/internal/agent/graph/conversations"
	"github.com/warranty-agent-poc-v1/server/internal/agent/graph/guards"
	"github.com/warranty-agent-poc-v1/server/internal/agent/graph/nodes"
	"github.com/warranty-agent-poc-v1/server/internal/agent/graph/observers"
	"github.com/warranty-agent-poc-v1/server/internal/agent/graph/parsers"
	"github.com/warranty-agent-poc-v1/server/internal/agent/graph/tools"
	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	logx "github.com/warranty-agent-poc-v1/server/pkg/logger"
)

// Runner executes one conversational turn and returns the normalized answer.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (string, error)
	// Reset forgets the stored turns of a conversation.
	Reset(ctx context.Context, conversationID string) error
}

// Config holds everything needed to compose the agent graph end-to-end.
// ChatModels may be supplied pre-built; otherwise a Gemini model is created
// from APIKey, BaseURL and AgentModel.
type Config struct {
	APIKey           string
	BaseURL          string
	AgentModel       model.AgentModelConfig
	AgentPrompt      model.AgentPromptConfig
	Conversation     model.ConversationConfig
	ConversationRepo model.ConversationRepository
	Predictor        tools.Predictor
	Guard            *guards.ThrottleGuard
	StatusSink       model.StatusSink
	ChatModels       *nodes.ChatModels
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels        *nodes.ChatModels
	MessagesManager   *conversations.MessagesManager
	AgentPromptConfig *model.AgentPromptConfig
	Tools             []tool.BaseTool
	Guard             *guards.ThrottleGuard
	ToolMaxCalls      int
}

// GraphBuilder handles the construction of the agent conversation graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
	mm       *conversations.MessagesManager
	sink     model.StatusSink
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	out, err := r.runnable.Invoke(ctx, model.QueryInput{
		ConversationID: in.ConversationID,
		Query:          in.Query,
	}, compose.WithCallbacks(observers.NewAllCallbacks(r.sink)))
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	if total, ok := out.Extra["usage_cost_total_usd"].(float64); ok {
		logx.Info().
			Str("conversation_id", in.ConversationID).
			Float64("total_cost_usd", total).
			Msg("Turn cost")
	}
	return parsers.NormalizeResponse(out.Content), nil
}

func (r *graphRunner) Reset(ctx context.Context, conversationID string) error {
	return r.mm.Reset(ctx, conversationID)
}

// BuildResponseGraph composes the chat model, tools, throttle guard and
// MessagesManager, builds the graph, and returns a Runner.
func BuildResponseGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.Predictor == nil {
		return nil, fmt.Errorf("predictor is nil")
	}

	cms := cfg.ChatModels
	if cms == nil {
		var err error
		cms, err = nodes.NewChatModels(ctx, nodes.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			AgentConfig: &cfg.AgentModel,
		})
		if err != nil {
			return nil, err
		}
	}

	guard := cfg.Guard
	if guard == nil {
		guard = guards.NewThrottleGuard(guards.DefaultWindow, []string{tools.ToolPredictWarrantyCost})
	}

	mm := conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:        cms,
		MessagesManager:   mm,
		AgentPromptConfig: &cfg.AgentPrompt,
		Tools:             tools.GetWarrantyTools(cfg.Predictor),
		Guard:             guard,
		ToolMaxCalls:      cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Agent graph built successfully")
	return &graphRunner{runnable: runnable, mm: mm, sink: cfg.StatusSink}, nil
}

// BuildGraph constructs and returns the compiled agent graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Agent == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.AgentPromptConfig == nil {
		return nil, fmt.Errorf("agent prompt config is nil")
	}
	if config.Guard == nil {
		return nil, fmt.Errorf("throttle guard is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools binds the warranty tools to the agent model and adds the
// ToolExecutor node. Every call passes through the throttle guard first.
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolInfos, err := tools.GetToolInfos(ctx, b.config.Tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindToolsToAgentModel(ctx, toolInfos); err != nil {
		return fmt.Errorf("failed to bind tools to agent model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               b.config.Tools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: b.config.Guard.ArgumentsHandler(),
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	return b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	if err := b.graph.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(b.config.MessagesManager, b.config.AgentPromptConfig),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
	); err != nil {
		return fmt.Errorf("add %s: %w", nodes.NodeInputConverter, err)
	}

	if err := b.graph.AddChatModelNode(nodes.NodeAgentChatModel,
		b.config.ChatModels.Agent,
		compose.WithStatePreHandler(nodes.NewAgentChatModelPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewAgentChatModelPostHandler(b.config.MessagesManager, b.config.ChatModels.AgentModelName)),
	); err != nil {
		return fmt.Errorf("add %s: %w", nodes.NodeAgentChatModel, err)
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeAgentChatModel},
		{nodes.NodeToolExecutor, nodes.NodeAgentChatModel},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches routes the agent's output to the tools or to the end.
func (b *GraphBuilder) addBranches() error {
	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeAgentChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Bound the model/tool loop even if the model ignores the limit notice.
	maxSteps := 10 + b.config.ToolMaxCalls*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
