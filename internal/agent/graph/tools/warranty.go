package tools

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	errx "github.com/warranty-agent-poc-v1/server/internal/core/error"
	logx "github.com/warranty-agent-poc-v1/server/pkg/logger"
)

const (
	ToolPredictWarrantyCost      = "predict_warranty_cost"
	ToolPredictWarrantyTotalCost = "predict_warranty_total_cost"
)

// Predictor is the part of the prediction gateway the tools call into.
type Predictor interface {
	PredictClaim(ctx context.Context, raw string) (string, error)
	PredictCost(ctx context.Context, raw string) (string, error)
}

// vinTool is an invokable tool taking a single vin argument. It always
// answers with text: failures are rendered as their user message so the
// agent can relay them instead of aborting the turn.
type vinTool struct {
	info *schema.ToolInfo
	run  func(ctx context.Context, vin string) (string, error)
}

func (t *vinTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

func (t *vinTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var in model.VINInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &in); err != nil {
		logx.Warn().
			Str("tool_name", t.info.Name).
			Str("arguments", argumentsInJSON).
			Err(err).
			Msg("Malformed tool arguments")
	}

	out, err := t.run(ctx, in.VIN)
	if err != nil {
		logx.Warn().
			Str("tool_name", t.info.Name).
			Str("vin", in.VIN).
			Str("kind", string(errx.KindOf(err))).
			Err(err).
			Msg("Tool call failed")
		return errx.ClassifyGateway(err).UserMessage(), nil
	}
	return out, nil
}

var vinParams = schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
	"vin": {
		Type:     "string",
		Desc:     "The 17-character Vehicle Identification Number. Letters I, O and Q are not allowed.",
		Required: true,
	},
})

func newPredictWarrantyCostTool(p Predictor) tool.InvokableTool {
	return &vinTool{
		info: &schema.ToolInfo{
			Name:        ToolPredictWarrantyCost,
			Desc:        "Predict warranty claim probability for a specific vehicle VIN using the ML classification model. Returns the prediction, the probability of a claim, a risk level and a recommendation.",
			ParamsOneOf: vinParams,
		},
		run: p.PredictClaim,
	}
}

func newPredictWarrantyTotalCostTool(p Predictor) tool.InvokableTool {
	return &vinTool{
		info: &schema.ToolInfo{
			Name:        ToolPredictWarrantyTotalCost,
			Desc:        "Predict the total warranty claim cost in USD for a specific vehicle VIN using the ML regression model.",
			ParamsOneOf: vinParams,
		},
		run: p.PredictCost,
	}
}
