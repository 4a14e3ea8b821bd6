package request

import "github.com/user/alttext-service/internal/entity"

type ScanRequest struct {
	Handle      string `json:"handle"`
	AppPassword string `json:"app_password"`
	// GenerateAlt defaults to true when omitted.
	GenerateAlt *bool `json:"generate_alt"`
}

func (r ScanRequest) Generate() bool {
	return r.GenerateAlt == nil || *r.GenerateAlt
}

type ApplyRequest struct {
	Handle      string           `json:"handle"`
	AppPassword string           `json:"app_password"`
	Updates     []entity.AltEdit `json:"updates"`
}
