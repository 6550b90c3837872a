package server

import (
	"github.com/rezonia/pohoda-xml/internal/settings"
)

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error     string   `json:"error"`
	Details   string   `json:"details,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// SettingsResponse is the response of GET /api/v1/settings
type SettingsResponse struct {
	Settings []settings.Setting `json:"settings"`
}

// UpdateSettingsResponse is the response of PUT /api/v1/settings
type UpdateSettingsResponse struct {
	Updated []string `json:"updated"`
}
