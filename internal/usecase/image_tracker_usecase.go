package usecase

import (
	"context"
	"fmt"

	"github.com/user/alttext-service/internal/entity"
	"github.com/user/alttext-service/internal/repository"
)

// ImageTracker reads the ledger so reviewers can see what was scanned,
// applied or failed.
type ImageTracker interface {
	// ListImages returns handle's tracked images, optionally filtered by status ("" for all).
	ListImages(ctx context.Context, handle string, status entity.ImageStatus) ([]entity.TrackedImage, error)
}

type imageTrackerUseCase struct {
	ledger repository.LedgerRepository
}

func NewImageTracker(ledger repository.LedgerRepository) ImageTracker {
	return &imageTrackerUseCase{ledger: ledger}
}

func (uc *imageTrackerUseCase) ListImages(ctx context.Context, handle string, status entity.ImageStatus) ([]entity.TrackedImage, error) {
	if handle == "" {
		return nil, fmt.Errorf("%w: handle is required", ErrInvalidRequest)
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}

	images, err := uc.ledger.ListImages(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("list images for %s: %w", handle, err)
	}
	if status == "" {
		return images, nil
	}

	filtered := make([]entity.TrackedImage, 0, len(images))
	for _, img := range images {
		if img.LastStatus == status {
			filtered = append(filtered, img)
		}
	}
	return filtered, nil
}
