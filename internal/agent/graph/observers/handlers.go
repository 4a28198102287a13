package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
)

// NewAllCallbacks aggregates the prompt, model and tool observers into one
// callbacks.Handler. Status events go to sink when it is not nil.
func NewAllCallbacks(sink model.StatusSink) einocb.Handler {
	emit := func(ctx context.Context, ev model.StatusEvent) {
		if sink != nil {
			sink(ctx, ev)
		}
	}

	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler(emit)).
		ChatModel(newModelHandler(emit)).
		Prompt(newPromptHandler()).
		Handler()
}
