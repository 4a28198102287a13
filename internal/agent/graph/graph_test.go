package graph

import (
	"context"
	"fmt"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warranty-agent-poc-v1/server/internal/agent/graph/guards"
	"github.com/warranty-agent-poc-v1/server/internal/agent/graph/nodes"
	"github.com/warranty-agent-poc-v1/server/internal/agent/graph/tools"
	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	"github.com/warranty-agent-poc-v1/server/internal/agent/repo"
)

const testVIN = "1HGCM82633A004352"

// scriptedModel replays canned replies, one per Generate call.
type scriptedModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	inputs  [][]*schema.Message
	tools   []*schema.ToolInfo
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("no scripted reply left")
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return next, nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	m.tools = tools
	return m, nil
}

type fakePredictor struct {
	mu        sync.Mutex
	claimVINs []string
}

func (f *fakePredictor) PredictClaim(_ context.Context, raw string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimVINs = append(f.claimVINs, raw)
	return "Risk Level: LOW RISK", nil
}

func (f *fakePredictor) PredictCost(_ context.Context, _ string) (string, error) {
	return "Total cost: $120.00 USD", nil
}

func toolCall(id, name, vin string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Function: schema.FunctionCall{Name: name, Arguments: fmt.Sprintf(`{"vin":%q}`, vin)},
	}})
}

type harness struct {
	runner    Runner
	model     *scriptedModel
	predictor *fakePredictor
	convs     *repo.MemoryConversationRepository

	mu     sync.Mutex
	events []model.StatusEvent
}

func newHarness(t *testing.T, replies ...*schema.Message) *harness {
	t.Helper()
	h := &harness{
		model:     &scriptedModel{replies: replies},
		predictor: &fakePredictor{},
		convs:     repo.NewMemoryConversationRepository(0),
	}
	cfg := Config{
		AgentPrompt:      model.AgentPromptConfig{Name: "root_agent", Description: "A specialist for vehicle warranty prediction."},
		Conversation:     model.ConversationConfig{MaxTurns: 20},
		ConversationRepo: h.convs,
		Predictor:        h.predictor,
		Guard:            guards.NewThrottleGuard(guards.DefaultWindow, []string{tools.ToolPredictWarrantyCost}),
		StatusSink: func(_ context.Context, ev model.StatusEvent) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, ev)
		},
		ChatModels: &nodes.ChatModels{Agent: h.model, AgentModelName: "gemini-2.5-flash"},
	}
	cfg.Conversation.Tools.MaxCalls = 6

	runner, err := BuildResponseGraph(context.Background(), cfg)
	require.NoError(t, err)
	h.runner = runner
	return h
}

func TestTurnCallsToolAndNormalizesAnswer(t *testing.T) {
	h := newHarness(t,
		toolCall("call_1", tools.ToolPredictWarrantyCost, " 1hgcm82633a004352 "),
		schema.AssistantMessage(`\boxed{"{\"result\": \"LOW RISK\"}"}`, nil),
	)
	ctx := context.Background()

	out, err := h.runner.Invoke(ctx, model.QueryInput{ConversationID: "c1", Query: "Predict for " + testVIN})
	require.NoError(t, err)
	assert.Equal(t, "LOW RISK", out)

	// The guard canonicalizes the VIN before the tool sees it.
	assert.Equal(t, []string{testVIN}, h.predictor.claimVINs)
	require.Len(t, h.model.tools, 2)

	// Second model call sees the tool result.
	require.Len(t, h.model.inputs, 2)
	last := h.model.inputs[1][len(h.model.inputs[1])-1]
	assert.Equal(t, schema.Tool, last.Role)
	assert.Equal(t, "Risk Level: LOW RISK", last.Content)

	hist, err := h.convs.LoadHistory(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "Predict for "+testVIN, hist.Messages[0].Content)
	assert.Equal(t, "LOW RISK", hist.Messages[1].Content)

	h.mu.Lock()
	defer h.mu.Unlock()
	var sawToolCall bool
	for _, ev := range h.events {
		if ev.Kind == model.StatusToolCall && ev.ToolName == tools.ToolPredictWarrantyCost {
			sawToolCall = true
		}
	}
	assert.True(t, sawToolCall)
}

func TestRepeatedGuardedCallEndsTurn(t *testing.T) {
	h := newHarness(t,
		toolCall("call_1", tools.ToolPredictWarrantyCost, testVIN),
		toolCall("call_2", tools.ToolPredictWarrantyCost, testVIN),
		schema.AssistantMessage("unreachable", nil),
	)

	_, err := h.runner.Invoke(context.Background(), model.QueryInput{ConversationID: "c1", Query: "again"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "STOP: Just called predict_warranty_cost for VIN "+testVIN)
	assert.Len(t, h.predictor.claimVINs, 1)
}

func TestCostToolIsNotGuardedByDefault(t *testing.T) {
	h := newHarness(t,
		toolCall("call_1", tools.ToolPredictWarrantyTotalCost, testVIN),
		toolCall("call_2", tools.ToolPredictWarrantyTotalCost, testVIN),
		schema.AssistantMessage("Total cost: $120.00 USD", nil),
	)

	out, err := h.runner.Invoke(context.Background(), model.QueryInput{ConversationID: "c1", Query: "cost"})
	require.NoError(t, err)
	assert.Equal(t, "Total cost: $120.00 USD", out)
}

func TestUnknownToolIsAnsweredNotFatal(t *testing.T) {
	h := newHarness(t,
		toolCall("call_1", "lookup_recalls", testVIN),
		schema.AssistantMessage("I can only predict claims and costs.", nil),
	)

	out, err := h.runner.Invoke(context.Background(), model.QueryInput{ConversationID: "c1", Query: "recalls?"})
	require.NoError(t, err)
	assert.Equal(t, "I can only predict claims and costs.", out)
	last := h.model.inputs[1][len(h.model.inputs[1])-1]
	assert.Contains(t, last.Content, "unknown_tool")
}

func TestResetClearsConversation(t *testing.T) {
	h := newHarness(t, schema.AssistantMessage("Hello", nil))
	ctx := context.Background()

	_, err := h.runner.Invoke(ctx, model.QueryInput{ConversationID: "c1", Query: "hi"})
	require.NoError(t, err)
	require.NoError(t, h.runner.Reset(ctx, "c1"))

	n, err := h.convs.GetMessageCount(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBuildResponseGraphRequiresCollaborators(t *testing.T) {
	_, err := BuildResponseGraph(context.Background(), Config{})
	assert.Error(t, err)

	_, err = BuildResponseGraph(context.Background(), Config{ConversationRepo: repo.NewMemoryConversationRepository(0)})
	assert.Error(t, err)
}
