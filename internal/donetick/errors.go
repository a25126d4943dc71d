package donetick

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/chorebridge/internal/model"
)

// ErrNotConfigured is returned when the client has neither a password nor
// an API token.
var ErrNotConfigured = errors.New("donetick: no credentials configured")

// AuthenticationError means the server rejected the credentials. It is
// never retried.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authentication failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("authentication failed: status %d: %s", e.StatusCode, e.Message)
}

// TransientRequestError is returned after the retry budget is spent on
// network errors, timeouts or 5xx responses.
type TransientRequestError struct {
	Method   string
	Path     string
	Attempts int
	Err      error
}

func (e *TransientRequestError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempts: %v", e.Method, e.Path, e.Attempts, e.Err)
}

func (e *TransientRequestError) Unwrap() error { return e.Err }

// NotFoundError is returned when a mutation targets a chore that does not
// exist. Reads report absence with a nil result instead.
type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// FeatureRestrictedError means the server refused the operation for the
// current plan. Callers may skip it and continue.
type FeatureRestrictedError struct {
	StatusCode int
	Message    string
}

func (e *FeatureRestrictedError) Error() string {
	return fmt.Sprintf("feature restricted (status %d): %s", e.StatusCode, e.Message)
}

// StatusError is any other non-success response.
type StatusError struct {
	StatusCode int
	Body       model.APIError
}

func (e *StatusError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body.Error)
}

var restrictedWords = []string{"premium", "plus", "subscription", "plan"}

func mentionsPlan(msg string) bool {
	msg = strings.ToLower(msg)
	for _, w := range restrictedWords {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

// IsFeatureRestricted reports whether err is a *FeatureRestrictedError.
func IsFeatureRestricted(err error) bool {
	var fe *FeatureRestrictedError
	return errors.As(err, &fe)
}

// IsNotFound reports whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuthentication reports whether err is an *AuthenticationError.
func IsAuthentication(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
