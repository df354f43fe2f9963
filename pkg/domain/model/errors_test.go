package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/briareus/pkg/domain/model"
)

func TestIsTransient(t *testing.T) {
	t.Run("transient tag", func(t *testing.T) {
		err := goerr.New("connection reset", goerr.T(model.TagTransient))
		gt.Bool(t, model.IsTransient(err)).True()
	})

	t.Run("rate limit counts as transient", func(t *testing.T) {
		err := goerr.New("rate limited", goerr.T(model.TagRateLimit))
		gt.Bool(t, model.IsTransient(err)).True()
	})

	t.Run("auth errors are not retryable", func(t *testing.T) {
		err := goerr.New("token revoked", goerr.T(model.TagAuth))
		gt.Bool(t, model.IsTransient(err)).False()
	})

	t.Run("tag survives wrapping", func(t *testing.T) {
		inner := goerr.New("timeout", goerr.T(model.TagTransient))
		err := goerr.Wrap(inner, "history fetch failed")
		gt.Bool(t, model.IsTransient(err)).True()
	})

	t.Run("plain errors are not transient", func(t *testing.T) {
		gt.Bool(t, model.IsTransient(errors.New("boom"))).False()
	})
}
