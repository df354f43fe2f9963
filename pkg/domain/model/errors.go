package model

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures so that callers can decide how to react
// without matching on error strings.
var (
	// TagAuth marks credential failures: malformed token or missing scopes.
	// The only class that fails Initialize.
	TagAuth = goerr.NewTag("auth")

	// TagPermission marks channel access failures. The affected channel is
	// skipped, other channels proceed.
	TagPermission = goerr.NewTag("permission")

	// TagTransient marks retryable upstream failures (network, timeout).
	TagTransient = goerr.NewTag("transient")

	// TagRateLimit marks upstream rate limiting. A subset of transient,
	// kept distinct so the worker can honor Retry-After hints.
	TagRateLimit = goerr.NewTag("rate_limit")

	// TagPersistence marks sync state store write failures.
	TagPersistence = goerr.NewTag("persistence")
)

// IsTransient reports whether the error is retryable (network or rate limit)
func IsTransient(err error) bool {
	return goerr.HasTag(err, TagTransient) || goerr.HasTag(err, TagRateLimit)
}
