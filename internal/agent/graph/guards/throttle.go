package guards

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	"github.com/warranty-agent-poc-v1/server/internal/agent/warranty"
	errx "github.com/warranty-agent-poc-v1/server/internal/core/error"
	logx "github.com/warranty-agent-poc-v1/server/pkg/logger"
)

// DefaultWindow is how long a guarded (tool, VIN) pair stays armed.
const DefaultWindow = 3 * time.Second

// throttleRecord is the single most recent guarded call. It is overwritten on
// every allowed call; a burst of different VINs is never throttled.
type throttleRecord struct {
	toolName string
	vin      string
	at       time.Time
}

// ThrottleGuard stops the agent from re-invoking the same guarded tool with
// the same VIN within the window. It is consulted synchronously right before
// each tool call and never blocks on I/O.
type ThrottleGuard struct {
	mu      sync.Mutex
	window  time.Duration
	guarded map[string]struct{}
	last    *throttleRecord
	now     func() time.Time
}

type Option func(*ThrottleGuard)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *ThrottleGuard) { g.now = now }
}

func NewThrottleGuard(window time.Duration, guardedTools []string, opts ...Option) *ThrottleGuard {
	if window <= 0 {
		window = DefaultWindow
	}
	g := &ThrottleGuard{
		window:  window,
		guarded: make(map[string]struct{}, len(guardedTools)),
		now:     time.Now,
	}
	for _, name := range guardedTools {
		if name = strings.TrimSpace(name); name != "" {
			g.guarded[name] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Guards reports whether calls to toolName are checked.
func (g *ThrottleGuard) Guards(toolName string) bool {
	_, ok := g.guarded[toolName]
	return ok
}

// Check admits or rejects one tool invocation. A rejection is a throttle
// AppError: the turn must stop and the agent should present the earlier
// result instead of retrying.
func (g *ThrottleGuard) Check(ev model.ToolInvocationEvent, vin string) error {
	if !g.Guards(ev.ToolName) {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.last != nil && g.last.toolName == ev.ToolName && g.last.vin == vin {
		if elapsed := ev.Timestamp.Sub(g.last.at); elapsed < g.window {
			logx.Warn().
				Str("tool_name", ev.ToolName).
				Str("vin", vin).
				Dur("elapsed", elapsed).
				Msg("Blocked repeated tool call")
			return errx.Throttle(ev.ToolName, vin, elapsed)
		}
	}

	g.last = &throttleRecord{toolName: ev.ToolName, vin: vin, at: ev.Timestamp}
	logx.Debug().Str("tool_name", ev.ToolName).Str("vin", vin).Msg("Allowing tool call")
	return nil
}

// ArgumentsHandler adapts the guard to the Eino ToolsNode arguments hook,
// which runs before every tool call. The vin argument is canonicalized
// before the guard compares it and before the tool sees it. Arguments that
// are not a JSON object are passed through untouched for the tool to reject.
func (g *ThrottleGuard) ArgumentsHandler() func(ctx context.Context, name, arguments string) (string, error) {
	return func(ctx context.Context, name, arguments string) (string, error) {
		ev := model.ToolInvocationEvent{ToolName: name, Arguments: arguments, Timestamp: g.now()}
		logx.Debug().Str("tool_name", name).Str("arguments", arguments).Msg("Agent is calling tool")

		var m map[string]any
		if err := json.Unmarshal([]byte(arguments), &m); err != nil {
			if err := g.Check(ev, ""); err != nil {
				return "", err
			}
			return arguments, nil
		}

		vin := ""
		if v, ok := m["vin"]; ok {
			switch vv := v.(type) {
			case string:
				vin = warranty.NormalizeVIN(vv)
			default:
				vin = warranty.NormalizeVIN(fmt.Sprint(v))
			}
			m["vin"] = vin
		}

		if err := g.Check(ev, vin); err != nil {
			return "", err
		}

		b, err := json.Marshal(m)
		if err != nil {
			return arguments, nil
		}
		return string(b), nil
	}
}
