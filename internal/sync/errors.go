package sync

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/anonimouzmkt/calendar-server/internal/client/calendar"
)

// Class splits remote failures into the two behaviors the retry and
// reconciliation layers care about: stop now, or try again.
type Class int

const (
	ClassTransient Class = iota
	ClassTerminal
)

// AuthError marks a credential failure on an integration. It is terminal:
// the integration is parked in status=error until reconnected externally.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// StoreError marks a persistence failure surfaced during a sync phase.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

var terminalMarkers = []string{
	"401",
	"403",
	"404",
	"410",
	"invalid_grant",
	"invalid grant",
	"token_revoked",
	"token revoked",
	"unauthorized",
	"forbidden",
}

// Classify decides whether an error is worth retrying. Status codes are
// used when the error carries them; everything else falls back to content
// inspection. Unknown errors count as transient so a flaky provider never
// parks an integration permanently on the first hiccup.
func Classify(err error) Class {
	if err == nil {
		return ClassTransient
	}
	if IsAuthError(err) {
		return ClassTerminal
	}

	var apiErr *calendar.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 401, 403, 404, 410:
			return ClassTerminal
		}
		return ClassTransient
	}

	var oauthErr *oauth2.RetrieveError
	if errors.As(err, &oauthErr) {
		if oauthErr.ErrorCode == "invalid_grant" {
			return ClassTerminal
		}
		if oauthErr.Response != nil {
			switch oauthErr.Response.StatusCode {
			case 400, 401, 403:
				return ClassTerminal
			}
		}
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range terminalMarkers {
		if strings.Contains(msg, marker) {
			return ClassTerminal
		}
	}
	return ClassTransient
}

// IsNotFound reports whether the remote said the resource is gone for good
// (404 or 410). Only these responses may cancel a local record during the
// orphan sweep; any other failure is skipped.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *calendar.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == 404 || apiErr.Status == 410
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") || strings.Contains(msg, "410")
}

// storeOnly reports whether the error tree contains nothing but
// persistence failures. Store failures never park an integration in
// status=error; the next cycle simply retries it.
func storeOnly(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !storeOnly(e) {
				return false
			}
		}
		return true
	}
	var se *StoreError
	return errors.As(err, &se)
}

func errorCategory(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAuthError(err):
		return "auth"
	default:
		var se *StoreError
		if errors.As(err, &se) {
			return "store"
		}
		if Classify(err) == ClassTerminal {
			return "terminal"
		}
		return "transient"
	}
}
