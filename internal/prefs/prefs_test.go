package prefs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_InMemoryFallback(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()

	p, err := svc.Load(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, p.Model)
	assert.False(t, p.WebSearch)

	require.NoError(t, svc.SetModel(ctx, 1, "qwen-plus"))
	require.NoError(t, svc.SetWebSearch(ctx, 1, true))

	p, err = svc.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "qwen-plus", p.Model)
	assert.True(t, p.WebSearch)

	// 用户之间互不影响
	other, err := svc.Load(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other.Model)
}
