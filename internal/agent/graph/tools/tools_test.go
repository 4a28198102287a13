package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/warranty-agent-poc-v1/server/internal/core/error"
)

type fakePredictor struct {
	claimVINs []string
	costVINs  []string
	err       error
}

func (f *fakePredictor) PredictClaim(_ context.Context, raw string) (string, error) {
	f.claimVINs = append(f.claimVINs, raw)
	if f.err != nil {
		return "", f.err
	}
	return "claim:" + raw, nil
}

func (f *fakePredictor) PredictCost(_ context.Context, raw string) (string, error) {
	f.costVINs = append(f.costVINs, raw)
	if f.err != nil {
		return "", f.err
	}
	return "Total cost: $120.00 USD", nil
}

func invokable(t *testing.T, p Predictor, name string) tool.InvokableTool {
	t.Helper()
	for _, bt := range GetWarrantyTools(p) {
		info, err := bt.Info(context.Background())
		require.NoError(t, err)
		if info.Name == name {
			it, ok := bt.(tool.InvokableTool)
			require.True(t, ok)
			return it
		}
	}
	t.Fatalf("tool %s not registered", name)
	return nil
}

func TestToolInfos(t *testing.T) {
	infos, err := GetToolInfos(context.Background(), GetWarrantyTools(&fakePredictor{}))
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, ToolPredictWarrantyCost, infos[0].Name)
	assert.Equal(t, ToolPredictWarrantyTotalCost, infos[1].Name)
	assert.NotEmpty(t, infos[0].Desc)
}

func TestToolsRouteToGateway(t *testing.T) {
	p := &fakePredictor{}
	ctx := context.Background()

	out, err := invokable(t, p, ToolPredictWarrantyCost).InvokableRun(ctx, `{"vin":"1HGCM82633A004352"}`)
	require.NoError(t, err)
	assert.Equal(t, "claim:1HGCM82633A004352", out)

	out, err = invokable(t, p, ToolPredictWarrantyTotalCost).InvokableRun(ctx, `{"vin":"1HGCM82633A004352"}`)
	require.NoError(t, err)
	assert.Equal(t, "Total cost: $120.00 USD", out)

	assert.Equal(t, []string{"1HGCM82633A004352"}, p.claimVINs)
	assert.Equal(t, []string{"1HGCM82633A004352"}, p.costVINs)
}

func TestToolsRenderErrorsAsText(t *testing.T) {
	p := &fakePredictor{err: errx.NotFound("1HGCM82633A004352")}

	out, err := invokable(t, p, ToolPredictWarrantyCost).InvokableRun(context.Background(), `{"vin":"1HGCM82633A004352"}`)
	require.NoError(t, err)
	assert.Equal(t,
		"No data found for VIN: 1HGCM82633A004352. Please verify the VIN is correct and exists in our quality data system.",
		out)
}

func TestToolsClassifyPlainErrors(t *testing.T) {
	p := &fakePredictor{err: errors.New("googleapi: Error 403: Access Denied")}

	out, err := invokable(t, p, ToolPredictWarrantyTotalCost).InvokableRun(context.Background(), `{"vin":"1HGCM82633A004352"}`)
	require.NoError(t, err)
	assert.Equal(t, errx.PermissionErrorMessage, out)
}

func TestMalformedArgumentsReachGatewayAsEmptyVIN(t *testing.T) {
	p := &fakePredictor{}

	_, err := invokable(t, p, ToolPredictWarrantyCost).InvokableRun(context.Background(), `not json`)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, p.claimVINs)
}
