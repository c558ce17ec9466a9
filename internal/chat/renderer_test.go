package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_RevealEndsWithFullText(t *testing.T) {
	r := NewRenderer(time.Microsecond)
	text := strings.Repeat("a", 500)

	var emitted []string
	r.Reveal(context.Background(), text, func(partial string) {
		emitted = append(emitted, partial)
	})

	require.NotEmpty(t, emitted)
	assert.Equal(t, text, emitted[len(emitted)-1])
}

func TestRenderer_PrefixesAreMonotonic(t *testing.T) {
	r := NewRenderer(time.Microsecond)
	text := strings.Repeat("ab", 300)

	var emitted []string
	r.Reveal(context.Background(), text, func(partial string) {
		emitted = append(emitted, partial)
	})

	for i := 1; i < len(emitted); i++ {
		assert.True(t, strings.HasPrefix(emitted[i], emitted[i-1]),
			"emit %d is not an extension of emit %d", i, i-1)
		assert.Greater(t, len(emitted[i]), len(emitted[i-1]))
	}
}

func TestRenderer_ShortTextSingleEmit(t *testing.T) {
	r := NewRenderer(time.Microsecond)

	var emitted []string
	r.Reveal(context.Background(), "hi", func(partial string) {
		emitted = append(emitted, partial)
	})

	// 文本短于步数时每步1个字符
	require.Len(t, emitted, 2)
	assert.Equal(t, "h", emitted[0])
	assert.Equal(t, "hi", emitted[1])
}

func TestRenderer_EmptyText(t *testing.T) {
	r := NewRenderer(time.Microsecond)

	var emitted []string
	r.Reveal(context.Background(), "", func(partial string) {
		emitted = append(emitted, partial)
	})

	require.Len(t, emitted, 1)
	assert.Equal(t, "", emitted[0])
}

func TestRenderer_CancelSkipsToFullText(t *testing.T) {
	r := NewRenderer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var emitted []string
	done := make(chan struct{})
	go func() {
		r.Reveal(ctx, strings.Repeat("x", 1000), func(partial string) {
			emitted = append(emitted, partial)
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reveal did not return after cancel")
	}

	require.NotEmpty(t, emitted)
	assert.Equal(t, strings.Repeat("x", 1000), emitted[len(emitted)-1])
}

func TestRenderer_MultibyteSafe(t *testing.T) {
	r := NewRenderer(time.Microsecond)
	text := strings.Repeat("好", 240)

	var emitted []string
	r.Reveal(context.Background(), text, func(partial string) {
		emitted = append(emitted, partial)
	})

	for _, e := range emitted {
		assert.True(t, strings.TrimRight(e, "好") == "", "partial contains broken rune: %q", e)
	}
}
