package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/alttext-service/internal/entity"
	"github.com/user/alttext-service/internal/repository"
	"github.com/user/alttext-service/pkg/aturi"
	"github.com/user/alttext-service/pkg/metrics"
)

// ApplyRequest carries accepted edits for records owned by Handle.
type ApplyRequest struct {
	Handle     string
	Credential string
	Edits      []entity.AltEdit
}

// Applier writes accepted alt-text edits back to remote records.
type Applier interface {
	// Apply returns one result per distinct URI, in first-seen order. A failing
	// record never affects the others. The error is non-nil only when
	// authentication fails or an outcome could not be written to the ledger;
	// in the latter case the results are still returned.
	Apply(ctx context.Context, req ApplyRequest) ([]entity.ApplyResult, error)
}

type applyUseCase struct {
	remote      repository.RemoteStore
	ledger      repository.LedgerRepository
	concurrency int
	logger      *zap.Logger
}

// NewApplier creates a new instance of the apply use case. Up to concurrency
// records are processed at once.
func NewApplier(
	remote repository.RemoteStore,
	ledger repository.LedgerRepository,
	concurrency int,
	logger *zap.Logger,
) Applier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &applyUseCase{
		remote:      remote,
		ledger:      ledger,
		concurrency: concurrency,
		logger:      logger,
	}
}

type editGroup struct {
	uri   string
	edits []entity.AltEdit
}

// groupEdits buckets edits by URI keeping first-seen URI order and input order within a bucket.
func groupEdits(edits []entity.AltEdit) []editGroup {
	var groups []editGroup
	pos := make(map[string]int)
	for _, e := range edits {
		i, ok := pos[e.URI]
		if !ok {
			i = len(groups)
			pos[e.URI] = i
			groups = append(groups, editGroup{uri: e.URI})
		}
		groups[i].edits = append(groups[i].edits, e)
	}
	return groups
}

func (uc *applyUseCase) Apply(ctx context.Context, req ApplyRequest) ([]entity.ApplyResult, error) {
	if len(req.Edits) == 0 {
		return []entity.ApplyResult{}, nil
	}
	if req.Handle == "" || req.Credential == "" {
		return nil, fmt.Errorf("%w: handle and credential are required", ErrInvalidRequest)
	}

	session, err := uc.remote.Authenticate(ctx, req.Handle, req.Credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	groups := groupEdits(req.Edits)
	results := make([]entity.ApplyResult, len(groups))
	ledgerErrs := make([]error, len(groups))

	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for i, grp := range groups {
		g.Go(func() error {
			results[i], ledgerErrs[i] = uc.applyGroup(ctx, session, req.Handle, grp)
			return nil // group failures are reported in results
		})
	}
	_ = g.Wait()

	if err := errors.Join(ledgerErrs...); err != nil {
		return results, fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}
	return results, nil
}

// applyGroup writes one record and records every edit of the group in the
// ledger with the group's outcome.
func (uc *applyUseCase) applyGroup(ctx context.Context, session repository.RemoteSession, handle string, grp editGroup) (entity.ApplyResult, error) {
	result := entity.ApplyResult{URI: grp.uri, Success: true}
	status := entity.StatusApplied

	if err := uc.writeRecord(ctx, session, grp); err != nil {
		uc.logger.Warn("Failed to apply alt-text",
			zap.String("handle", handle),
			zap.String("uri", grp.uri),
			zap.Int("edits", len(grp.edits)),
			zap.Error(err),
		)
		result = entity.ApplyResult{URI: grp.uri, Error: err.Error()}
		status = entity.StatusFailed
		metrics.ApplyGroupsTotal.WithLabelValues("failure").Inc()
	} else {
		metrics.ApplyGroupsTotal.WithLabelValues("success").Inc()
	}

	// The outcome is recorded even if the caller has gone away.
	return result, uc.recordGroup(context.WithoutCancel(ctx), handle, grp, status)
}

func (uc *applyUseCase) writeRecord(ctx context.Context, session repository.RemoteSession, grp editGroup) error {
	loc, err := aturi.Parse(grp.uri)
	if err != nil {
		return err
	}

	rec, err := session.GetRecord(ctx, loc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRecordUnreadable, err)
	}
	if rec == nil {
		return fmt.Errorf("%w: empty record value", ErrRecordUnreadable)
	}

	gallery, err := galleryOf(rec)
	if err != nil {
		return err
	}

	for _, e := range grp.edits {
		// The index may be stale if the record's images changed since the scan.
		if e.ImageIndex < 0 || e.ImageIndex >= len(gallery.Images) {
			uc.logger.Debug("Skipping out of range image index",
				zap.String("uri", grp.uri),
				zap.Int("index", e.ImageIndex),
				zap.Int("images", len(gallery.Images)),
			)
			continue
		}
		gallery.Images[e.ImageIndex].SetAlt(e.NewAlt)
	}

	if err := session.PutRecord(ctx, loc, rec); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func (uc *applyUseCase) recordGroup(ctx context.Context, handle string, grp editGroup, status entity.ImageStatus) error {
	var errs []error
	for _, e := range grp.edits {
		if err := uc.ledger.RecordEdit(ctx, handle, grp.uri, e.ImageIndex, e.NewAlt, status); err != nil {
			uc.logger.Error("Failed to record edit in ledger",
				zap.String("uri", grp.uri),
				zap.Int("index", e.ImageIndex),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("record %s[%d]: %w", grp.uri, e.ImageIndex, err))
		}
	}
	return errors.Join(errs...)
}

func galleryOf(rec *entity.PostRecord) (*entity.ImageGallery, error) {
	switch embed := rec.Embed.(type) {
	case nil:
		return nil, ErrEmbedMissing
	case *entity.ImageGallery:
		return embed, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrEmbedTypeMismatch, embed.EmbedType())
	}
}
