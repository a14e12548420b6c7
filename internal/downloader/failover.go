package downloader

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-media-bot/internal/platform/observability"
)

// Attempt is one execution context for a logical download: a proxy route,
// a cookie account, a direct connection.
type Attempt struct {
	Name string
	Run  func(ctx context.Context) (Result, error)
}

// runFailover tries attempts strictly in declared order, stopping at the
// first success or too-large outcome. On exhaustion it returns the LAST
// attempt's classified error: the most recent failure best reflects the
// current backend condition. Every attempt's code is still logged so the
// first error is not lost diagnostically.
func runFailover(ctx context.Context, logger *zerolog.Logger, service string, attempts []Attempt) (Result, error) {
	var lastErr error

	for _, attempt := range attempts {
		res, err := attempt.Run(ctx)
		if err == nil {
			return res, nil
		}

		code := CodeUnknown
		if mediaErr, ok := err.(*MediaError); ok {
			code = mediaErr.Code
		}

		observability.FailoverAttempts.WithLabelValues(service, attempt.Name, string(code)).Inc()
		logger.Warn().
			Str("service", service).
			Str("attempt", attempt.Name).
			Str("code", string(code)).
			Err(err).
			Msg("download attempt failed, trying next route")

		lastErr = err
	}

	return Result{}, lastErr
}
