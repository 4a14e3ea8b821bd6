package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/alttext-service/internal/delivery/http/response"
	"github.com/user/alttext-service/internal/entity"
	"github.com/user/alttext-service/internal/usecase"
)

type fakeScanner struct {
	got    usecase.ScanRequest
	result *entity.ScanResult
	err    error
}

func (f *fakeScanner) Scan(ctx context.Context, req usecase.ScanRequest) (*entity.ScanResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeApplier struct {
	got     usecase.ApplyRequest
	results []entity.ApplyResult
	err     error
}

func (f *fakeApplier) Apply(ctx context.Context, req usecase.ApplyRequest) ([]entity.ApplyResult, error) {
	f.got = req
	return f.results, f.err
}

type fakeTracker struct {
	gotStatus entity.ImageStatus
	images    []entity.TrackedImage
	err       error
}

func (f *fakeTracker) ListImages(ctx context.Context, handle string, status entity.ImageStatus) ([]entity.TrackedImage, error) {
	f.gotStatus = status
	return f.images, f.err
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestHandler(t *testing.T, s *fakeScanner, a *fakeApplier, tr *fakeTracker, checks map[string]Pinger) *Handler {
	return NewHandler(s, a, tr, checks, zaptest.NewLogger(t))
}

func post(t *testing.T, fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestHandleScan(t *testing.T) {
	scanner := &fakeScanner{result: &entity.ScanResult{Handle: "alice.test", TotalPosts: 1, TotalImages: 2, Posts: []entity.ScannedPost{}}}
	h := newTestHandler(t, scanner, &fakeApplier{}, &fakeTracker{}, nil)

	rec := post(t, h.HandleScan, `{"handle":"alice.test","app_password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, scanner.got.Generate, "generate_alt defaults to true")
	assert.Equal(t, "pw", scanner.got.Credential)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body["total_images"])
	assert.Contains(t, body, "alt_generation_enabled")

	rec = post(t, h.HandleScan, `{"handle":"alice.test","app_password":"pw","generate_alt":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, scanner.got.Generate)
}

func TestHandleScan_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"malformed json", `{"handle":`, nil, http.StatusBadRequest},
		{"missing password", `{"handle":"alice.test"}`, nil, http.StatusBadRequest},
		{"auth", `{"handle":"alice.test","app_password":"pw"}`, fmt.Errorf("%w: bad password", usecase.ErrAuthenticationFailed), http.StatusUnauthorized},
		{"feed", `{"handle":"alice.test","app_password":"pw"}`, fmt.Errorf("%w: page 2: boom", usecase.ErrFeedFetchFailed), http.StatusInternalServerError},
		{"ledger", `{"handle":"alice.test","app_password":"pw"}`, fmt.Errorf("%w: disk full", usecase.ErrLedgerWrite), http.StatusInternalServerError},
		{"unexpected", `{"handle":"alice.test","app_password":"pw"}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeScanner{err: tt.err}, &fakeApplier{}, &fakeTracker{}, nil)
			rec := post(t, h.HandleScan, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)

			var body response.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestHandleScan_FeedErrorCarriesDetail(t *testing.T) {
	h := newTestHandler(t, &fakeScanner{err: fmt.Errorf("%w: page 2: boom", usecase.ErrFeedFetchFailed)}, &fakeApplier{}, &fakeTracker{}, nil)
	rec := post(t, h.HandleScan, `{"handle":"alice.test","app_password":"pw"}`)
	assert.Contains(t, rec.Body.String(), "error fetching author feed")
}

func TestHandleApply(t *testing.T) {
	applier := &fakeApplier{results: []entity.ApplyResult{
		{URI: "at://did:plc:abc/app.bsky.feed.post/xyz", Success: true},
		{URI: "at://did:plc:abc/app.bsky.feed.post/gone", Success: false, Error: "record not found"},
	}}
	h := newTestHandler(t, &fakeScanner{}, applier, &fakeTracker{}, nil)

	rec := post(t, h.HandleApply, `{"handle":"alice.test","app_password":"pw","updates":[
		{"uri":"at://did:plc:abc/app.bsky.feed.post/xyz","image_index":0,"new_alt":"A cat on a windowsill."},
		{"uri":"at://did:plc:abc/app.bsky.feed.post/gone","image_index":1,"new_alt":"A dog."}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, applier.got.Edits, 2)
	assert.Equal(t, 1, applier.got.Edits[1].ImageIndex)
	assert.Equal(t, "A cat on a windowsill.", applier.got.Edits[0].NewAlt)

	var body response.ApplyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Updated, 2)
	assert.True(t, body.Updated[0].Success)
	assert.Equal(t, "record not found", body.Updated[1].Error)
	assert.Empty(t, body.Error)
}

func TestHandleApply_EmptyUpdates(t *testing.T) {
	h := newTestHandler(t, &fakeScanner{}, &fakeApplier{results: []entity.ApplyResult{}}, &fakeTracker{}, nil)
	rec := post(t, h.HandleApply, `{"handle":"alice.test","app_password":"pw","updates":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":[]}`, rec.Body.String())
}

func TestHandleApply_EmptyUpdatesNeedNoCredentials(t *testing.T) {
	applier := &fakeApplier{err: usecase.ErrAuthenticationFailed}
	h := newTestHandler(t, &fakeScanner{}, applier, &fakeTracker{}, nil)

	for _, body := range []string{
		`{"handle":"alice.test","app_password":"","updates":[]}`,
		`{"updates":[]}`,
		`{}`,
	} {
		rec := post(t, h.HandleApply, body)
		require.Equal(t, http.StatusOK, rec.Code, body)
		assert.JSONEq(t, `{"updated":[]}`, rec.Body.String())
	}
}

func TestHandleApply_LedgerFailureKeepsResults(t *testing.T) {
	applier := &fakeApplier{
		results: []entity.ApplyResult{{URI: "at://did:plc:abc/app.bsky.feed.post/xyz", Success: true}},
		err:     fmt.Errorf("%w: disk full", usecase.ErrLedgerWrite),
	}
	h := newTestHandler(t, &fakeScanner{}, applier, &fakeTracker{}, nil)

	rec := post(t, h.HandleApply, `{"handle":"alice.test","app_password":"pw","updates":[{"uri":"at://did:plc:abc/app.bsky.feed.post/xyz","image_index":0,"new_alt":"x"}]}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body response.ApplyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Updated, 1)
	assert.True(t, body.Updated[0].Success)
	assert.Contains(t, body.Error, "ledger write failed")
}

func TestHandleApply_AuthFailure(t *testing.T) {
	h := newTestHandler(t, &fakeScanner{}, &fakeApplier{err: usecase.ErrAuthenticationFailed}, &fakeTracker{}, nil)
	rec := post(t, h.HandleApply, `{"handle":"alice.test","app_password":"pw","updates":[{"uri":"at://a/b/c","image_index":0,"new_alt":"x"}]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleListImages(t *testing.T) {
	tracker := &fakeTracker{images: []entity.TrackedImage{
		{Handle: "alice.test", PostURI: "at://did:plc:abc/app.bsky.feed.post/xyz", LastStatus: entity.StatusFailed},
	}}
	h := newTestHandler(t, &fakeScanner{}, &fakeApplier{}, tracker, nil)

	rec := httptest.NewRecorder()
	h.HandleListImages(rec, httptest.NewRequest(http.MethodGet, "/api/images?handle=alice.test&status=failed", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.StatusFailed, tracker.gotStatus)

	var body response.ImagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, entity.StatusFailed, body.Images[0].LastStatus)

	rec = httptest.NewRecorder()
	h.HandleListImages(rec, httptest.NewRequest(http.MethodGet, "/api/images", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tracker.err = fmt.Errorf("%w: unknown status", usecase.ErrInvalidRequest)
	rec = httptest.NewRecorder()
	h.HandleListImages(rec, httptest.NewRequest(http.MethodGet, "/api/images?handle=alice.test&status=pending", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthCheck(t *testing.T) {
	healthy := pingerFunc(func(ctx context.Context) error { return nil })
	down := pingerFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	h := newTestHandler(t, &fakeScanner{}, &fakeApplier{}, &fakeTracker{}, map[string]Pinger{"ledger": healthy})
	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"ledger":"healthy"}}`, rec.Body.String())

	h = newTestHandler(t, &fakeScanner{}, &fakeApplier{}, &fakeTracker{}, map[string]Pinger{"ledger": healthy, "redis": down})
	rec = httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"ledger":"healthy","redis":"unhealthy"}}`, rec.Body.String())
}
