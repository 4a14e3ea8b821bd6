package usecase

import (
	"errors"

	"github.com/user/alttext-service/internal/entity"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrFeedFetchFailed      = errors.New("error fetching author feed")
	ErrRecordUnreadable     = errors.New("record unreadable")
	ErrEmbedMissing         = errors.New("record has no embed")
	ErrEmbedTypeMismatch    = errors.New("embed type is not " + entity.ImagesEmbedType)
	ErrWriteFailed          = errors.New("record write failed")
	ErrLedgerWrite          = errors.New("ledger write failed")
)
