package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectsAndPings(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := Config{URL: "redis://" + srv.Addr(), ReadTimeout: 1, WriteTimeout: 1, DialTimeout: 1}
	require.True(t, cfg.Enabled())

	client, err := cfg.New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "PONG", client.Ping(context.Background()).Val())
}

func TestNewRejectsBadURL(t *testing.T) {
	cfg := Config{URL: "not-a-url"}
	_, err := cfg.New(context.Background())
	assert.Error(t, err)
}

func TestDisabledWithoutURL(t *testing.T) {
	var cfg Config
	assert.False(t, cfg.Enabled())
}
