package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuleStateCache_MarkEventSeenLocalFallback(t *testing.T) {
	state := NewRuleStateCache(nil)
	ctx := context.Background()

	first, err := state.MarkEventSeen(ctx, "rule-1", "ev-1")
	require.NoError(t, err)
	require.True(t, first)

	again, err := state.MarkEventSeen(ctx, "rule-1", "ev-1")
	require.NoError(t, err)
	require.False(t, again)

	// A different rule sees the same event independently.
	other, err := state.MarkEventSeen(ctx, "rule-2", "ev-1")
	require.NoError(t, err)
	require.True(t, other)
}

func TestRuleStateCache_MetricValuesLocalFallback(t *testing.T) {
	state := NewRuleStateCache(nil)
	ctx := context.Background()

	_, ok, err := state.LastMetricValue(ctx, "rule-1", "acct-a", "likes")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, state.SetMetricValue(ctx, "rule-1", "acct-a", "likes", 42))

	v, ok, err := state.LastMetricValue(ctx, "rule-1", "acct-a", "likes")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, float64(42), v)

	// Metrics are keyed per account.
	_, ok, err = state.LastMetricValue(ctx, "rule-1", "acct-b", "likes")
	require.NoError(t, err)
	require.False(t, ok)
}
