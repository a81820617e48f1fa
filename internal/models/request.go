package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CopyRequest carries everything one migration run needs. Field names match
// the web form payload.
type CopyRequest struct {
	MasterSegmentID       string `json:"masterSegmentId"`
	APIKey                string `json:"apiKey"`
	Instance              string `json:"instance"`
	OutputMasterSegmentID string `json:"outputMasterSegmentId"`
	MasterSegmentName     string `json:"masterSegmentName"`
	APIKeyOutput          string `json:"apiKeyOutput"`
	CopyAssets            bool   `json:"copyAssets"`
	CopyDataAssets        bool   `json:"copyDataAssets"`
}

// Validate checks required fields. The instance selector is deliberately not
// restricted: unknown regions fall back to US downstream.
func (r CopyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MasterSegmentID, validation.Required),
		validation.Field(&r.APIKey, validation.Required),
		validation.Field(&r.OutputMasterSegmentID, validation.Required),
		validation.Field(&r.MasterSegmentName, validation.Required),
		validation.Field(&r.APIKeyOutput, validation.Required),
	)
}
