package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/alttext-service/internal/entity"
	"github.com/user/alttext-service/internal/repository"
	"github.com/user/alttext-service/pkg/metrics"
)

// ScanRequest asks for a scan of handle's own feed.
type ScanRequest struct {
	Handle     string
	Credential string
	// Generate requests candidate alt-text for images without one.
	Generate bool
}

// Scanner walks an author feed and records which images need alt-text.
type Scanner interface {
	Scan(ctx context.Context, req ScanRequest) (*entity.ScanResult, error)
}

type scannerUseCase struct {
	remote    repository.RemoteStore
	ledger    repository.LedgerRepository
	generator AltTextGenerator
	logger    *zap.Logger
}

// NewScanner creates a new instance of the scan use case.
func NewScanner(
	remote repository.RemoteStore,
	ledger repository.LedgerRepository,
	generator AltTextGenerator,
	logger *zap.Logger,
) Scanner {
	return &scannerUseCase{
		remote:    remote,
		ledger:    ledger,
		generator: generator,
		logger:    logger,
	}
}

// Scan pages through the whole feed, collects image-gallery posts in feed
// order and stores the snapshot in the ledger before returning it.
func (uc *scannerUseCase) Scan(ctx context.Context, req ScanRequest) (*entity.ScanResult, error) {
	if req.Handle == "" || req.Credential == "" {
		return nil, fmt.Errorf("%w: handle and credential are required", ErrInvalidRequest)
	}

	startTime := time.Now()
	logger := uc.logger.With(zap.String("handle", req.Handle))

	session, err := uc.remote.Authenticate(ctx, req.Handle, req.Credential)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("auth_failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	generationActive := req.Generate && uc.generator.IsEnabled()

	posts := []entity.ScannedPost{}
	cursor := ""
	for page := 1; ; page++ {
		feed, err := session.AuthorFeed(ctx, req.Handle, cursor)
		if err != nil {
			metrics.ScansTotal.WithLabelValues("feed_failed").Inc()
			return nil, fmt.Errorf("%w: page %d: %w", ErrFeedFetchFailed, page, err)
		}
		logger.Debug("Fetched feed page", zap.Int("page", page), zap.Int("items", len(feed.Items)))

		for _, item := range feed.Items {
			if item.Gallery == nil {
				continue
			}
			posts = append(posts, uc.scanPost(ctx, item, generationActive))
		}

		if feed.Cursor == "" {
			break
		}
		if feed.Cursor == cursor {
			metrics.ScansTotal.WithLabelValues("feed_failed").Inc()
			return nil, fmt.Errorf("%w: page %d: cursor did not advance", ErrFeedFetchFailed, page)
		}
		cursor = feed.Cursor
	}

	result := &entity.ScanResult{
		Handle:           req.Handle,
		TotalPosts:       len(posts),
		Posts:            posts,
		GenerationActive: generationActive,
	}
	for _, p := range posts {
		result.TotalImages += len(p.Images)
	}

	if err := uc.ledger.UpsertScan(ctx, req.Handle, posts); err != nil {
		metrics.ScansTotal.WithLabelValues("ledger_failed").Inc()
		return nil, fmt.Errorf("%w: save scan for %s: %w", ErrLedgerWrite, req.Handle, err)
	}

	metrics.ScansTotal.WithLabelValues("success").Inc()
	metrics.ScannedImagesTotal.Add(float64(result.TotalImages))
	logger.Info("Scan completed",
		zap.Int("posts", result.TotalPosts),
		zap.Int("images", result.TotalImages),
		zap.Bool("generation_active", generationActive),
		zap.Int64("duration_ms", time.Since(startTime).Milliseconds()),
	)
	return result, nil
}

func (uc *scannerUseCase) scanPost(ctx context.Context, item entity.FeedItem, generate bool) entity.ScannedPost {
	post := entity.ScannedPost{
		URI:       item.URI,
		CID:       item.CID,
		Text:      item.Text,
		CreatedAt: item.CreatedAt,
		Images:    make([]entity.ScannedImage, 0, len(item.Gallery.Images)),
	}

	for idx, img := range item.Gallery.Images {
		scanned := entity.ScannedImage{
			Index:       idx,
			ThumbURL:    img.ThumbURL,
			FullsizeURL: img.FullsizeURL,
			Alt:         img.Alt,
		}
		if generate && scanned.NeedsDescription() {
			if desc, ok := uc.generator.Generate(ctx, img.FullsizeURL, item.Text); ok {
				scanned.GeneratedAlt = &desc
			}
		} else if generate {
			metrics.AltGenerationsTotal.WithLabelValues("skipped").Inc()
		}
		post.Images = append(post.Images, scanned)
	}
	return post
}
