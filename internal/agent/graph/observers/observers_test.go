package observers

import (
	"context"
	"errors"
	"testing"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
)

type recorder struct {
	events []model.StatusEvent
}

func (r *recorder) sink(_ context.Context, ev model.StatusEvent) {
	r.events = append(r.events, ev)
}

func TestToolHandlerEmitsStatusEvents(t *testing.T) {
	rec := &recorder{}
	h := newToolHandler(rec.sink)
	ctx := context.Background()
	info := &einocb.RunInfo{Name: "predict_warranty_cost"}

	h.OnStart(ctx, info, &tool.CallbackInput{ArgumentsInJSON: `{"vin":"1HGCM82633A004352"}`})
	h.OnEnd(ctx, info, &tool.CallbackOutput{Response: "Risk Level: LOW RISK"})
	h.OnError(ctx, info, errors.New("boom"))

	require.Len(t, rec.events, 3)
	assert.Equal(t, model.StatusEvent{
		Kind:      model.StatusToolCall,
		ToolName:  "predict_warranty_cost",
		Arguments: `{"vin":"1HGCM82633A004352"}`,
	}, rec.events[0])
	assert.Equal(t, model.StatusToolResult, rec.events[1].Kind)
	assert.Equal(t, "Risk Level: LOW RISK", rec.events[1].Detail)
	assert.Equal(t, model.StatusToolError, rec.events[2].Kind)
	assert.Equal(t, "boom", rec.events[2].Detail)
}

func TestToolHandlerToleratesNilInputs(t *testing.T) {
	rec := &recorder{}
	h := newToolHandler(rec.sink)

	h.OnStart(context.Background(), nil, nil)
	require.Len(t, rec.events, 1)
	assert.Empty(t, rec.events[0].ToolName)
}

func TestNewAllCallbacksAcceptsNilSink(t *testing.T) {
	assert.NotNil(t, NewAllCallbacks(nil))
}

func TestLastUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(" first "),
		nil,
		schema.AssistantMessage("reply", nil),
		schema.UserMessage(" second "),
		schema.AssistantMessage("", nil),
	}
	assert.Equal(t, "second", lastUserContent(msgs))
	assert.Empty(t, lastUserContent(nil))
}
