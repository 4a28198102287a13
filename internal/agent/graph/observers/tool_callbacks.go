package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	logx "github.com/warranty-agent-poc-v1/server/pkg/logger"
)

// newToolHandler reports every tool call, result and failure.
func newToolHandler(emit model.StatusSink) *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			var args string
			if input != nil {
				args = input.ArgumentsInJSON
			}
			logx.Info().Str("tool_name", runName(info)).Str("arguments", args).Msg("Tool start")
			emit(ctx, model.StatusEvent{Kind: model.StatusToolCall, ToolName: runName(info), Arguments: args})
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			var resp string
			if output != nil {
				resp = output.Response
			}
			logx.Debug().Str("tool_name", runName(info)).Str("response", resp).Msg("Tool end")
			emit(ctx, model.StatusEvent{Kind: model.StatusToolResult, ToolName: runName(info), Detail: resp})
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Str("tool_name", runName(info)).Err(err).Msg("Tool execution failed")
			emit(ctx, model.StatusEvent{Kind: model.StatusToolError, ToolName: runName(info), Detail: err.Error()})
			return ctx
		},
	}
}

func runName(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Name
}
