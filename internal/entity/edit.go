package entity

import "time"

// AltEdit is an accepted alt-text change for one image slot of a record.
type AltEdit struct {
	URI        string `json:"uri"`
	ImageIndex int    `json:"image_index"`
	NewAlt     string `json:"new_alt"`
}

// ApplyResult reports the outcome of writing one record.
type ApplyResult struct {
	URI     string `json:"uri"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TrackedImage mirrors a row of the images table in the ledger.
type TrackedImage struct {
	Handle         string      `json:"handle"`
	PostURI        string      `json:"post_uri"`
	ImageIndex     int         `json:"image_index"`
	ThumbURL       *string     `json:"thumb_url"`
	FullsizeURL    *string     `json:"fullsize_url"`
	CurrentAlt     *string     `json:"current_alt"`
	GeneratedAlt   *string     `json:"generated_alt"`
	LastAppliedAlt *string     `json:"last_applied_alt"`
	LastStatus     ImageStatus `json:"last_status"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
