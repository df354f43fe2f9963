package slack

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Slack API error codes that indicate the credential itself is broken
var authErrorCodes = []string{
	"invalid_auth",
	"not_authed",
	"token_revoked",
	"token_expired",
	"account_inactive",
}

// Slack API error codes that indicate the channel is inaccessible to the
// credential but the credential itself is fine
var permissionErrorCodes = []string{
	"channel_not_found",
	"not_in_channel",
	"missing_scope",
	"access_denied",
	"restricted_action",
}

// classify wraps a slack-go error with the tag the sync engine needs to
// decide between fail, skip and retry. Anything unrecognized is treated as
// transient so the worker's bounded backoff gets a chance.
func classify(err error, msg string, options ...goerr.Option) error {
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		options = append(options,
			goerr.V("retry_after", rateLimited.RetryAfter),
			goerr.T(model.TagRateLimit))
		return goerr.Wrap(err, msg, options...)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return goerr.Wrap(err, msg, options...)
	}

	text := err.Error()
	for _, code := range authErrorCodes {
		if strings.Contains(text, code) {
			options = append(options, goerr.T(model.TagAuth))
			return goerr.Wrap(err, msg, options...)
		}
	}
	for _, code := range permissionErrorCodes {
		if strings.Contains(text, code) {
			options = append(options, goerr.T(model.TagPermission))
			return goerr.Wrap(err, msg, options...)
		}
	}

	options = append(options, goerr.T(model.TagTransient))
	return goerr.Wrap(err, msg, options...)
}

// RetryAfter extracts the upstream Retry-After hint from a rate limit error.
// Returns zero when the error carries no hint.
func RetryAfter(err error) time.Duration {
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return rateLimited.RetryAfter
	}
	return 0
}
