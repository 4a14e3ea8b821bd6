package bsky

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bluesky-social/indigo/xrpc"
	"go.uber.org/zap"

	"github.com/user/alttext-service/internal/entity"
	"github.com/user/alttext-service/internal/repository"
	"github.com/user/alttext-service/pkg/aturi"
)

// Session is an authenticated handle on the XRPC service.
type Session struct {
	client *Client
	xrpc   *xrpc.Client
}

var _ repository.RemoteSession = (*Session)(nil)

// DID returns the account DID the session was created for.
func (s *Session) DID() string { return s.xrpc.Auth.Did }

func (s *Session) AuthorFeed(ctx context.Context, actor, cursor string) (*entity.FeedPage, error) {
	done := observe("app.bsky.feed.getAuthorFeed")
	out, err := appbsky.FeedGetAuthorFeed(ctx, s.xrpc, actor, cursor, "", false, int64(s.client.pageSize))
	done()
	if err != nil {
		return nil, fmt.Errorf("getAuthorFeed: %w", err)
	}

	page := &entity.FeedPage{Items: make([]entity.FeedItem, 0, len(out.Feed))}
	if out.Cursor != nil {
		page.Cursor = *out.Cursor
	}
	for _, f := range out.Feed {
		if f == nil || f.Post == nil {
			continue
		}
		page.Items = append(page.Items, s.feedItem(f.Post))
	}
	return page, nil
}

func (s *Session) feedItem(pv *appbsky.FeedDefs_PostView) entity.FeedItem {
	item := entity.FeedItem{URI: pv.Uri, CID: pv.Cid}
	if pv.Record != nil {
		if post, ok := pv.Record.Val.(*appbsky.FeedPost); ok {
			item.Text = post.Text
			item.CreatedAt = s.parseTime(pv.Uri, post.CreatedAt)
		}
	}
	if pv.Embed == nil || pv.Embed.EmbedImages_View == nil {
		return item
	}

	views := pv.Embed.EmbedImages_View.Images
	gallery := &entity.FeedGallery{Images: make([]entity.FeedImage, 0, len(views))}
	for _, img := range views {
		if img == nil {
			continue
		}
		alt := img.Alt
		gallery.Images = append(gallery.Images, entity.FeedImage{
			Alt:         &alt,
			ThumbURL:    img.Thumb,
			FullsizeURL: img.Fullsize,
		})
	}
	item.Gallery = gallery
	return item
}

// parseTime reads a record datetime. Unparseable values are logged and dropped.
func (s *Session) parseTime(uri, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	dt, err := syntax.ParseDatetimeLenient(raw)
	if err != nil {
		s.client.logger.Debug("Unparseable createdAt",
			zap.String("uri", uri),
			zap.String("created_at", raw),
			zap.Error(err),
		)
		return nil
	}
	t := dt.Time()
	return &t
}

// getRecordOutput keeps the value raw so fields unknown to this service survive
// the read-modify-write cycle.
type getRecordOutput struct {
	URI   string          `json:"uri"`
	CID   string          `json:"cid"`
	Value json.RawMessage `json:"value"`
}

func (s *Session) GetRecord(ctx context.Context, loc aturi.Locator) (*entity.PostRecord, error) {
	params := map[string]interface{}{
		"repo":       loc.Authority,
		"collection": loc.Collection,
		"rkey":       loc.RKey,
	}

	var out getRecordOutput
	done := observe("com.atproto.repo.getRecord")
	err := s.xrpc.Do(ctx, xrpc.Query, "", "com.atproto.repo.getRecord", params, nil, &out)
	done()
	if err != nil {
		if status, name := xrpcFailure(err); status == http.StatusNotFound || name == "RecordNotFound" {
			return nil, fmt.Errorf("%w: %s", repository.ErrRecordNotFound, loc)
		}
		return nil, fmt.Errorf("getRecord %s: %w", loc, err)
	}
	if len(out.Value) == 0 {
		return nil, fmt.Errorf("getRecord %s: response has no value", loc)
	}

	var rec entity.PostRecord
	if err := json.Unmarshal(out.Value, &rec); err != nil {
		return nil, fmt.Errorf("getRecord %s: %w", loc, err)
	}
	rec.CID = out.CID
	return &rec, nil
}

type putRecordInput struct {
	Repo       string             `json:"repo"`
	Collection string             `json:"collection"`
	RKey       string             `json:"rkey"`
	Record     *entity.PostRecord `json:"record"`
	SwapRecord string             `json:"swapRecord,omitempty"`
}

// PutRecord writes rec back. When rec carries the CID it was read at, the
// service rejects the write if the record has changed since.
func (s *Session) PutRecord(ctx context.Context, loc aturi.Locator, rec *entity.PostRecord) error {
	input := putRecordInput{
		Repo:       loc.Authority,
		Collection: loc.Collection,
		RKey:       loc.RKey,
		Record:     rec,
		SwapRecord: rec.CID,
	}

	done := observe("com.atproto.repo.putRecord")
	err := s.xrpc.Do(ctx, xrpc.Procedure, "application/json", "com.atproto.repo.putRecord", nil, input, nil)
	done()
	if err != nil {
		if _, name := xrpcFailure(err); name == "InvalidSwap" {
			return fmt.Errorf("%w: %w", repository.ErrSwapConflict, err)
		}
		return fmt.Errorf("putRecord %s: %w", loc, err)
	}
	return nil
}
