package guards

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/warranty-agent-poc-v1/server/internal/core/error"
)

const (
	claimTool = "predict_warranty_cost"
	costTool  = "predict_warranty_total_cost"
	vinA      = "1HGCM82633A004352"
	vinB      = "WVWZZZ1JZXW000001"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newGuard(tools ...string) (*ThrottleGuard, *fakeClock, func(ctx context.Context, name, arguments string) (string, error)) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	g := NewThrottleGuard(3*time.Second, tools, WithClock(clock.Now))
	return g, clock, g.ArgumentsHandler()
}

func TestRepeatWithinWindowIsRejected(t *testing.T) {
	_, clock, hook := newGuard(claimTool)
	ctx := context.Background()

	_, err := hook(ctx, claimTool, `{"vin":"`+vinA+`"}`)
	require.NoError(t, err)

	clock.Advance(2900 * time.Millisecond)
	_, err = hook(ctx, claimTool, `{"vin":"`+vinA+`"}`)
	require.Error(t, err)
	assert.Equal(t, errx.KindThrottle, errx.KindOf(err))
	assert.Equal(t,
		"STOP: Just called predict_warranty_cost for VIN 1HGCM82633A004352 2.9s ago. Do not call again. Present the previous results.",
		errx.UserMessage(err))
}

func TestRepeatAfterWindowIsAllowed(t *testing.T) {
	_, clock, hook := newGuard(claimTool)
	ctx := context.Background()

	_, err := hook(ctx, claimTool, `{"vin":"`+vinA+`"}`)
	require.NoError(t, err)

	clock.Advance(3 * time.Second)
	_, err = hook(ctx, claimTool, `{"vin":"`+vinA+`"}`)
	assert.NoError(t, err)
}

func TestDifferentVINIsAllowedImmediately(t *testing.T) {
	_, _, hook := newGuard(claimTool)
	ctx := context.Background()

	_, err := hook(ctx, claimTool, `{"vin":"`+vinA+`"}`)
	require.NoError(t, err)
	_, err = hook(ctx, claimTool, `{"vin":"`+vinB+`"}`)
	assert.NoError(t, err)
}

func TestSingleSlotIsOverwritten(t *testing.T) {
	_, _, hook := newGuard(claimTool)
	ctx := context.Background()

	// A, B, A: only the most recent call is remembered, so the second A passes.
	for _, vin := range []string{vinA, vinB, vinA} {
		_, err := hook(ctx, claimTool, `{"vin":"`+vin+`"}`)
		assert.NoError(t, err, vin)
	}
}

func TestRejectedCallDoesNotRearm(t *testing.T) {
	_, clock, hook := newGuard(claimTool)
	ctx := context.Background()

	_, err := hook(ctx, claimTool, `{"vin":"`+vinA+`"}`)
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	_, err = hook(ctx, claimTool, `{"vin":"`+vinA+`"}`)
	require.Error(t, err)

	// Window is still measured from the first, allowed call.
	clock.Advance(1 * time.Second)
	_, err = hook(ctx, claimTool, `{"vin":"`+vinA+`"}`)
	assert.NoError(t, err)
}

func TestUnguardedToolsPassThrough(t *testing.T) {
	g, _, hook := newGuard(claimTool)
	ctx := context.Background()
	assert.False(t, g.Guards(costTool))

	for i := 0; i < 3; i++ {
		_, err := hook(ctx, costTool, `{"vin":"`+vinA+`"}`)
		assert.NoError(t, err)
	}
}

func TestVINIsCanonicalizedBeforeComparison(t *testing.T) {
	_, _, hook := newGuard(claimTool)
	ctx := context.Background()

	out, err := hook(ctx, claimTool, `{"vin":"  1hgcm82633a004352 "}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"vin":"1HGCM82633A004352"}`, out)

	_, err = hook(ctx, claimTool, `{"vin":"`+vinA+`"}`)
	assert.Error(t, err)
}

func TestNonJSONArgumentsPassThrough(t *testing.T) {
	_, _, hook := newGuard(claimTool)

	out, err := hook(context.Background(), claimTool, "not json")
	require.NoError(t, err)
	assert.Equal(t, "not json", out)
}

func TestDefaultWindow(t *testing.T) {
	g := NewThrottleGuard(0, []string{" " + claimTool + " ", ""})
	assert.Equal(t, DefaultWindow, g.window)
	assert.True(t, g.Guards(claimTool))
	assert.False(t, g.Guards(""))
}
