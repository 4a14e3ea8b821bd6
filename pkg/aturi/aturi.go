// Package aturi parses record identifiers of the form
// at://<authority>/<collection>/<rkey>.
package aturi

import (
	"errors"
	"fmt"
	"strings"
)

// Scheme is the fixed prefix of every record identifier.
const Scheme = "at://"

var ErrMalformedIdentifier = errors.New("malformed record identifier")

// Locator addresses a single record in a remote repository.
type Locator struct {
	Authority  string // DID or handle of the repo owner
	Collection string // NSID, e.g. app.bsky.feed.post
	RKey       string
}

// Parse splits uri into its authority, collection and record key.
func Parse(uri string) (Locator, error) {
	if !strings.HasPrefix(uri, Scheme) {
		return Locator{}, fmt.Errorf("%w: not an %s URI: %q", ErrMalformedIdentifier, Scheme, uri)
	}
	parts := strings.Split(strings.TrimPrefix(uri, Scheme), "/")
	if len(parts) != 3 {
		return Locator{}, fmt.Errorf("%w: expected authority/collection/rkey: %q", ErrMalformedIdentifier, uri)
	}
	for _, p := range parts {
		if p == "" {
			return Locator{}, fmt.Errorf("%w: empty segment: %q", ErrMalformedIdentifier, uri)
		}
	}
	return Locator{Authority: parts[0], Collection: parts[1], RKey: parts[2]}, nil
}

// String renders the locator back into its at:// form.
func (l Locator) String() string {
	return Scheme + l.Authority + "/" + l.Collection + "/" + l.RKey
}
