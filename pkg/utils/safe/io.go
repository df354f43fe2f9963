package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/secmon-lab/briareus/pkg/utils/logging"
)

// Close closes the closer and logs the error instead of returning it.
// Nil closers are ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("failed to close", slog.Any("error", err))
	}
}

// Copy copies src to dst and logs the error instead of returning it.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) {
	if _, err := io.Copy(dst, src); err != nil {
		logging.From(ctx).Error("failed to copy", slog.Any("error", err))
	}
}
