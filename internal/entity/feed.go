package entity

import "time"

// FeedItem is a post as returned by an author feed page.
type FeedItem struct {
	URI       string
	CID       string
	Text      string
	CreatedAt *time.Time
	// Gallery is nil unless the post embeds an image gallery.
	Gallery *FeedGallery
}

// FeedGallery is the view form of an image gallery embed.
type FeedGallery struct {
	Images []FeedImage
}

type FeedImage struct {
	Alt         *string
	ThumbURL    string
	FullsizeURL string
}

// FeedPage is one page of an author feed. An empty Cursor ends pagination.
type FeedPage struct {
	Items  []FeedItem
	Cursor string
}
