package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/user/alttext-service/internal/repository"
	"github.com/user/alttext-service/pkg/metrics"
	"github.com/user/alttext-service/pkg/utils"
)

const (
	// ContextLimit is the number of characters of post text passed to the describer.
	ContextLimit = 220
	// Ellipsis marks a truncated context.
	Ellipsis = "…"

	promptInstruction = "Write concise, objective alt-text for this image for a blind screen-reader user. " +
		"Maximum 2 sentences. Do not start with phrases like 'Image of' or 'Photo of'; " +
		"just describe the key visual content and any text in the image. "
	noContext = "(no extra context)"
)

var errEmptyDescription = errors.New("describer returned empty text")

// AltTextGenerator produces candidate alt-text for images lacking one.
type AltTextGenerator interface {
	// IsEnabled reports whether generation is configured.
	IsEnabled() bool
	// Generate returns a description and true, or false when disabled or on any failure.
	Generate(ctx context.Context, imageURL, contextText string) (string, bool)
}

// GeneratorConfig is fixed at construction.
type GeneratorConfig struct {
	Enabled       bool
	Timeout       time.Duration
	RatePerSecond float64
	CacheTTL      time.Duration
}

type altTextGenerator struct {
	describer repository.Describer
	cache     repository.DescriptionCache
	cfg       GeneratorConfig
	limiter   *rate.Limiter
	inflight  singleflight.Group
	logger    *zap.Logger
}

// NewAltTextGenerator wraps describer with gating, caching and rate limiting.
// cache may be nil. A nil describer disables generation.
func NewAltTextGenerator(
	describer repository.Describer,
	cache repository.DescriptionCache,
	cfg GeneratorConfig,
	logger *zap.Logger,
) AltTextGenerator {
	if describer == nil {
		cfg.Enabled = false
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &altTextGenerator{
		describer: describer,
		cache:     cache,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

func (g *altTextGenerator) IsEnabled() bool {
	return g.cfg.Enabled
}

func (g *altTextGenerator) Generate(ctx context.Context, imageURL, contextText string) (string, bool) {
	if !g.cfg.Enabled {
		return "", false
	}

	prompt := BuildPrompt(contextText)
	key := utils.HashKey(imageURL, prompt)

	if desc, ok := g.lookup(ctx, key); ok {
		metrics.AltGenerationsTotal.WithLabelValues("cached").Inc()
		return desc, true
	}

	// The shared call is detached from any one caller so a cancelled caller
	// does not fail the others waiting on the same key.
	shared := context.WithoutCancel(ctx)
	ch := g.inflight.DoChan(key, func() (any, error) {
		desc, err := g.describe(shared, imageURL, prompt)
		if err == nil {
			g.store(shared, key, desc)
		}
		return desc, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			g.fail(imageURL, res.Err)
			return "", false
		}
		metrics.AltGenerationsTotal.WithLabelValues("generated").Inc()
		return res.Val.(string), true
	case <-ctx.Done():
		g.fail(imageURL, ctx.Err())
		return "", false
	}
}

func (g *altTextGenerator) fail(imageURL string, err error) {
	metrics.AltGenerationsTotal.WithLabelValues("failed").Inc()
	g.logger.Warn("Alt-text generation failed", zap.String("image_url", imageURL), zap.Error(err))
}

// describe bounds the limiter wait and the describer call by the generator
// timeout, since ctx carries no caller deadline.
func (g *altTextGenerator) describe(ctx context.Context, imageURL, prompt string) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for rate limiter: %w", err)
	}

	text, err := g.describer.Describe(ctx, imageURL, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyDescription
	}
	return text, nil
}

func (g *altTextGenerator) lookup(ctx context.Context, key string) (string, bool) {
	if g.cache == nil {
		return "", false
	}
	desc, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Warn("Description cache read failed", zap.Error(err))
		return "", false
	}
	return desc, ok
}

func (g *altTextGenerator) store(ctx context.Context, key, desc string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Put(ctx, key, desc, g.cfg.CacheTTL); err != nil {
		g.logger.Warn("Description cache write failed", zap.Error(err))
	}
}

// TruncateContext trims text and cuts it to ContextLimit characters,
// appending Ellipsis when anything was cut.
func TruncateContext(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= ContextLimit {
		return text
	}
	return string([]rune(text)[:ContextLimit]) + Ellipsis
}

// BuildPrompt renders the fixed instruction with the post text as context.
func BuildPrompt(contextText string) string {
	snippet := TruncateContext(contextText)
	if snippet == "" {
		snippet = noContext
	}
	return promptInstruction + "Here is optional context from the post: " + snippet
}
