package repository

import (
	"context"

	"github.com/user/alttext-service/internal/entity"
	"github.com/user/alttext-service/pkg/aturi"
)

// RemoteStore opens authenticated sessions against the remote record store.
type RemoteStore interface {
	Authenticate(ctx context.Context, handle, credential string) (RemoteSession, error)
}

// RemoteSession is an authenticated client handle scoped to one scan or apply call.
type RemoteSession interface {
	// AuthorFeed returns the page of actor's feed following cursor ("" for the first page).
	AuthorFeed(ctx context.Context, actor, cursor string) (*entity.FeedPage, error)
	// GetRecord fetches the current value of a record. It returns ErrRecordNotFound if absent.
	GetRecord(ctx context.Context, loc aturi.Locator) (*entity.PostRecord, error)
	// PutRecord replaces the record value.
	PutRecord(ctx context.Context, loc aturi.Locator, rec *entity.PostRecord) error
}
