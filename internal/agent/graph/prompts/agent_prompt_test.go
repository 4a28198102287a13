package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
)

func TestRenderAgentSystem(t *testing.T) {
	out, err := RenderAgentSystem(context.Background(), model.AgentPromptConfig{
		Name:        "root_agent",
		Description: "A specialist for vehicle warranty prediction.",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "You are root_agent: A specialist for vehicle warranty prediction.")
	assert.Contains(t, out, "- predict_warranty_cost(vin):")
	assert.Contains(t, out, "- predict_warranty_total_cost(vin):")
	assert.Contains(t, out, "Call the tools ONLY ONCE per VIN")
	assert.Contains(t, out, "CRITICAL INSTRUCTION Override:")
	assert.Contains(t, out, `DO NOT write ["{\"name\": ...}"].`)
}

func TestRenderAgentSystemWithoutOverride(t *testing.T) {
	out, err := RenderAgentSystem(context.Background(), model.AgentPromptConfig{
		Name:                    "root_agent",
		DisableToolCallOverride: true,
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "CRITICAL INSTRUCTION Override")
}
