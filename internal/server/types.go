package server

import (
	"github.com/rezonia/nfe-auditor/internal/model"
)

// ValidateRequest is the request body for the validate endpoint.
type ValidateRequest struct {
	Items []model.Item `json:"items" binding:"required"`
}

// ValidateResponse is the response for the validate endpoint.
type ValidateResponse struct {
	Findings []model.Finding `json:"findings"`
	Errors   int             `json:"errors"`
	Warnings int             `json:"warnings"`
}

// InfoResponse is the response for the info endpoint.
type InfoResponse struct {
	Format   string `json:"format"`
	Size     int    `json:"size"`
	Payloads int    `json:"payloads"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
