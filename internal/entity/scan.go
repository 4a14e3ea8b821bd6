package entity

import (
	"strings"
	"time"
)

// ScannedImage is one slot of a post's image gallery as observed during a scan.
type ScannedImage struct {
	Index        int     `json:"index"`
	ThumbURL     string  `json:"thumb_url"`
	FullsizeURL  string  `json:"fullsize_url"`
	Alt          *string `json:"alt"`
	GeneratedAlt *string `json:"generated_alt"`
}

// NeedsDescription reports whether the image has no usable alt-text.
func (i ScannedImage) NeedsDescription() bool {
	return IsBlank(i.Alt)
}

// ScannedPost is an image-bearing post from the author feed.
type ScannedPost struct {
	URI       string         `json:"uri"`
	CID       string         `json:"cid"`
	Text      string         `json:"text"`
	CreatedAt *time.Time     `json:"created_at"`
	Images    []ScannedImage `json:"images"`
}

// ScanResult is the aggregated output of one scan.
type ScanResult struct {
	Handle           string        `json:"handle"`
	TotalPosts       int           `json:"total_posts"`
	TotalImages      int           `json:"total_images"`
	Posts            []ScannedPost `json:"posts"`
	GenerationActive bool          `json:"alt_generation_enabled"`
}

// IsBlank reports whether s is nil or only whitespace.
func IsBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
