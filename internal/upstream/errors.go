package upstream

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an upstream failure. Classification happens once,
// where the HTTP response is read, so callers branch on the kind
// instead of matching error strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth         // invalid or missing API key; fatal, no fallback
	KindQuota        // account quota exhausted
	KindRateLimited  // upstream 429
	KindUnavailable  // 5xx, connection failure
	KindTimeout      // attempt deadline elapsed
	KindEmpty        // 200 with no usable content
)

// Error is the typed failure produced by the completion client.
type Error struct {
	Kind   Kind
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.Status, e.Detail)
}

// Fatal reports whether the error should abort the fallback loop.
func (e *Error) Fatal() bool {
	return e.Kind == KindAuth
}

// KindOf extracts the classification from err, defaulting to
// KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindUnknown
}

// classify maps an upstream HTTP status and error body to a Kind. The
// substring checks preserve the classification outcomes of the
// original service: API-key problems are fatal, everything else is
// transient.
func classify(status int, detail string) Kind {
	lower := strings.ToLower(detail)

	switch {
	case status == 401 || status == 403,
		strings.Contains(lower, "api key"),
		strings.Contains(lower, "invalid_api_key"),
		strings.Contains(lower, "unauthorized"):
		return KindAuth
	case strings.Contains(lower, "insufficient_quota"),
		strings.Contains(lower, "quota"),
		strings.Contains(lower, "billing"):
		return KindQuota
	case status == 429,
		strings.Contains(lower, "rate limit"):
		return KindRateLimited
	case status >= 500,
		strings.Contains(lower, "502"),
		strings.Contains(lower, "503"),
		strings.Contains(lower, "overloaded"),
		strings.Contains(lower, "unavailable"):
		return KindUnavailable
	default:
		return KindUnknown
	}
}
