package model

import (
	"context"
	"time"
)

// VINInput is the argument object shared by both warranty tools.
type VINInput struct {
	VIN string `json:"vin"`
}

// ToolInvocationEvent is produced once per attempted tool call and consumed
// synchronously by the throttle guard before the call may run.
type ToolInvocationEvent struct {
	ToolName  string
	Arguments string
	Timestamp time.Time
}

// StatusKind tells the shell what an agent status update is about.
type StatusKind string

const (
	StatusThinking   StatusKind = "thinking"
	StatusToolCall   StatusKind = "tool_call"
	StatusToolResult StatusKind = "tool_result"
	StatusToolError  StatusKind = "tool_error"
)

// StatusEvent is a progress update emitted while a turn runs.
type StatusEvent struct {
	Kind      StatusKind
	ToolName  string
	Arguments string
	Detail    string
}

// StatusSink receives status events; it must not block.
type StatusSink func(ctx context.Context, ev StatusEvent)

// PredictionRepository runs the two ML.PREDICT queries for a single VIN.
type PredictionRepository interface {
	PredictClaim(ctx context.Context, vin VIN) ([]ClaimRow, error)
	PredictCost(ctx context.Context, vin VIN) ([]CostRow, error)
}
