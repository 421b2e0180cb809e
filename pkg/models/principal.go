// Package models contains shared data models used across the gateway codebase.
package models

// Principal is the authenticated identity derived from a verified token.
// It is rebuilt fresh on every request and never persisted.
type Principal struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tenant_id"`
}
