package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrNotInitialized indicates a signed request was attempted before the
	// signature keys were set. Recoverable by initializing keys and retrying.
	ErrNotInitialized = errors.New("signature keys not initialized")

	// ErrNetwork indicates a transport-level failure talking to the platform
	ErrNetwork = errors.New("network request failed")

	// ErrLoginRequired indicates no valid credential cookie is configured
	ErrLoginRequired = errors.New("login required")

	// ErrQRExpired indicates the login QR code has expired
	ErrQRExpired = errors.New("login QR code has expired")

	// ErrItemNotFound indicates the requested video does not exist
	ErrItemNotFound = errors.New("media item not found")
)

// UpstreamError is returned when the platform responded at the transport
// level but with a non-zero application status code.
type UpstreamError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("upstream error %d", e.Code)
}

// IsSignatureRejected reports whether the upstream rejected the request
// signature, which is the cue to refresh the WBI keys and retry once.
func (e *UpstreamError) IsSignatureRejected() bool {
	return e.Code == -403
}
