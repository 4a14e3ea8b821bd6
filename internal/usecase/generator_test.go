package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTruncateContext(t *testing.T) {
	exact := strings.Repeat("a", ContextLimit)
	long := strings.Repeat("b", ContextLimit) + "tail"
	accented := strings.Repeat("é", ContextLimit+5)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims whitespace", "  hello world \n", "hello world"},
		{"empty", "   ", ""},
		{"exactly at limit", exact, exact},
		{"over limit", long, strings.Repeat("b", ContextLimit) + Ellipsis},
		{"trim before counting", "  " + exact + "  ", exact},
		{"counts characters not bytes", accented, strings.Repeat("é", ContextLimit) + Ellipsis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateContext(tt.in))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("")
	assert.True(t, strings.HasSuffix(p, "Here is optional context from the post: (no extra context)"))
	assert.Contains(t, p, "Maximum 2 sentences.")
	assert.Contains(t, p, "'Image of'")

	p = BuildPrompt("  sunset at the beach  ")
	assert.True(t, strings.HasSuffix(p, ": sunset at the beach"))
}

func TestGenerate_Disabled(t *testing.T) {
	d := &fakeDescriber{text: "A cat."}
	g := NewAltTextGenerator(d, nil, GeneratorConfig{Enabled: false}, zaptest.NewLogger(t))

	assert.False(t, g.IsEnabled())
	desc, ok := g.Generate(context.Background(), "https://cdn/img.jpg", "text")
	assert.False(t, ok)
	assert.Empty(t, desc)
	assert.Zero(t, d.callCount())
}

func TestGenerate_NilDescriberDisables(t *testing.T) {
	g := NewAltTextGenerator(nil, nil, GeneratorConfig{Enabled: true}, zaptest.NewLogger(t))
	assert.False(t, g.IsEnabled())
}

func TestGenerate_PassesImageAndTruncatedContext(t *testing.T) {
	d := &fakeDescriber{text: "  A cat on a windowsill.  "}
	g := NewAltTextGenerator(d, nil, GeneratorConfig{Enabled: true}, zaptest.NewLogger(t))

	long := strings.Repeat("x", 300)
	desc, ok := g.Generate(context.Background(), "https://cdn/full.jpg", long)
	require.True(t, ok)
	assert.Equal(t, "A cat on a windowsill.", desc)

	require.Equal(t, 1, d.callCount())
	assert.Equal(t, "https://cdn/full.jpg", d.calls[0].imageURL)
	assert.True(t, strings.HasSuffix(d.calls[0].prompt, ": "+strings.Repeat("x", ContextLimit)+Ellipsis))
}

func TestGenerate_FailuresDegradeToNone(t *testing.T) {
	tests := []struct {
		name string
		d    *fakeDescriber
	}{
		{"describer error", &fakeDescriber{err: errBoom}},
		{"empty text", &fakeDescriber{text: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewAltTextGenerator(tt.d, nil, GeneratorConfig{Enabled: true}, zaptest.NewLogger(t))
			desc, ok := g.Generate(context.Background(), "https://cdn/img.jpg", "")
			assert.False(t, ok)
			assert.Empty(t, desc)
		})
	}
}

func TestGenerate_UsesCache(t *testing.T) {
	d := &fakeDescriber{text: "A dog."}
	cache := newFakeCache()
	g := NewAltTextGenerator(d, cache, GeneratorConfig{Enabled: true}, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		desc, ok := g.Generate(context.Background(), "https://cdn/dog.jpg", "walk")
		require.True(t, ok)
		assert.Equal(t, "A dog.", desc)
	}
	assert.Equal(t, 1, d.callCount())
	assert.Len(t, cache.entries, 1)

	// A different context is a different key.
	_, ok := g.Generate(context.Background(), "https://cdn/dog.jpg", "run")
	require.True(t, ok)
	assert.Equal(t, 2, d.callCount())
}

func TestGenerate_CacheErrorFallsThrough(t *testing.T) {
	d := &fakeDescriber{text: "A bird."}
	cache := newFakeCache()
	cache.getErr = errBoom
	g := NewAltTextGenerator(d, cache, GeneratorConfig{Enabled: true}, zaptest.NewLogger(t))

	desc, ok := g.Generate(context.Background(), "https://cdn/bird.jpg", "")
	require.True(t, ok)
	assert.Equal(t, "A bird.", desc)
	assert.Equal(t, 1, d.callCount())
}

// gatedDescriber blocks every call until release is closed.
type gatedDescriber struct {
	started   chan struct{}
	release   chan struct{}
	once      sync.Once
	calls     atomic.Int32
	cancelled atomic.Bool
}

func newGatedDescriber() *gatedDescriber {
	return &gatedDescriber{started: make(chan struct{}), release: make(chan struct{})}
}

func (d *gatedDescriber) Describe(ctx context.Context, imageURL, prompt string) (string, error) {
	d.calls.Add(1)
	d.once.Do(func() { close(d.started) })
	select {
	case <-d.release:
		return "A shared description.", nil
	case <-ctx.Done():
		d.cancelled.Store(true)
		return "", ctx.Err()
	}
}

func TestGenerate_CancelledCallerDoesNotFailSharedCall(t *testing.T) {
	d := newGatedDescriber()
	cache := newFakeCache()
	g := NewAltTextGenerator(d, cache, GeneratorConfig{Enabled: true, Timeout: 10 * time.Second}, zaptest.NewLogger(t))

	ctxA, cancelA := context.WithCancel(context.Background())
	aDone := make(chan bool)
	go func() {
		_, ok := g.Generate(ctxA, "https://cdn/shared.jpg", "post")
		aDone <- ok
	}()

	<-d.started
	cancelA()
	assert.False(t, <-aDone, "cancelled caller reports no description")

	type result struct {
		desc string
		ok   bool
	}
	bDone := make(chan result)
	go func() {
		desc, ok := g.Generate(context.Background(), "https://cdn/shared.jpg", "post")
		bDone <- result{desc, ok}
	}()
	close(d.release)

	b := <-bDone
	require.True(t, b.ok)
	assert.Equal(t, "A shared description.", b.desc)
	assert.False(t, d.cancelled.Load(), "shared describe saw the first caller's cancellation")
	assert.Len(t, cache.entries, 1)
}

func TestGenerate_TimeoutBoundsDetachedCall(t *testing.T) {
	d := newGatedDescriber()
	g := NewAltTextGenerator(d, nil, GeneratorConfig{Enabled: true, Timeout: 20 * time.Millisecond}, zaptest.NewLogger(t))

	desc, ok := g.Generate(context.Background(), "https://cdn/slow.jpg", "")
	assert.False(t, ok)
	assert.Empty(t, desc)
	assert.True(t, d.cancelled.Load())
}
