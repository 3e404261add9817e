// Package api provides HTTP handlers and route registration.
package api

// ErrorResponse represents an error in API responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DeleteResponse represents a successful delete operation
type DeleteResponse struct {
	Message string `json:"message"`
}
