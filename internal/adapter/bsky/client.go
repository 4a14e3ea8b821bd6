// Package bsky implements the remote record store on the indigo XRPC client
// (createSession, getAuthorFeed, getRecord, putRecord).
package bsky

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/xrpc"
	"go.uber.org/zap"

	"github.com/user/alttext-service/internal/repository"
	"github.com/user/alttext-service/pkg/metrics"
)

// Client opens sessions against one XRPC service (a PDS or entryway).
type Client struct {
	host       string
	httpClient *http.Client
	pageSize   int
	logger     *zap.Logger
}

// NewClient creates a client for serviceURL. Every call is bounded by timeout.
func NewClient(serviceURL string, timeout time.Duration, pageSize int, logger *zap.Logger) *Client {
	return &Client{
		host:       strings.TrimRight(serviceURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		pageSize:   pageSize,
		logger:     logger,
	}
}

var _ repository.RemoteStore = (*Client)(nil)

func (c *Client) xrpcClient(auth *xrpc.AuthInfo) *xrpc.Client {
	return &xrpc.Client{Client: c.httpClient, Host: c.host, Auth: auth}
}

// Authenticate logs in with an app password and returns a session bound to the access token.
func (c *Client) Authenticate(ctx context.Context, handle, credential string) (repository.RemoteSession, error) {
	done := observe("com.atproto.server.createSession")
	out, err := comatproto.ServerCreateSession(ctx, c.xrpcClient(nil), &comatproto.ServerCreateSession_Input{
		Identifier: handle,
		Password:   credential,
	})
	done()
	if err != nil {
		if status, _ := xrpcFailure(err); status == http.StatusUnauthorized || status == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %w", repository.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("createSession: %w", err)
	}
	if out.AccessJwt == "" {
		return nil, errors.New("createSession returned no access token")
	}

	c.logger.Debug("Session created", zap.String("handle", out.Handle), zap.String("did", out.Did))
	return &Session{
		client: c,
		xrpc: c.xrpcClient(&xrpc.AuthInfo{
			AccessJwt:  out.AccessJwt,
			RefreshJwt: out.RefreshJwt,
			Handle:     out.Handle,
			Did:        out.Did,
		}),
	}, nil
}

// observe starts a remote call timer; the returned func records it.
func observe(nsid string) func() {
	start := time.Now()
	return func() {
		metrics.RemoteCallDuration.WithLabelValues(nsid).Observe(time.Since(start).Seconds())
	}
}

// xrpcFailure extracts the HTTP status and the XRPC error name from err.
// Either is zero when the failure happened before a response was read.
func xrpcFailure(err error) (int, string) {
	var status int
	var xe *xrpc.Error
	if errors.As(err, &xe) {
		status = xe.StatusCode
	}
	var body *xrpc.XRPCError
	if errors.As(err, &body) {
		return status, body.ErrStr
	}
	return status, ""
}
