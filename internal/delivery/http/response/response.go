package response

import "github.com/user/alttext-service/internal/entity"

type ErrorResponse struct {
	Error string `json:"error"`
}

// ApplyResponse lists one result per record. Error is set when the outcomes
// could not all be written to the ledger.
type ApplyResponse struct {
	Updated []entity.ApplyResult `json:"updated"`
	Error   string               `json:"error,omitempty"`
}

type ImagesResponse struct {
	Handle string                `json:"handle"`
	Count  int                   `json:"count"`
	Images []entity.TrackedImage `json:"images"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
