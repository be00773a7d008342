package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/dmvasilenko/blog-parser-telegram-bot/pkg/logger"
)

// ErrAttemptsExhausted is returned once every attempt has failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
}

// DefaultConfig matches the Google Sheets quota behavior: the API throttles
// aggressively, so delays grow as base * 4^attempt plus up to a second of
// uniform jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxJitter:   time.Second,
	}
}

func Do(ctx context.Context, log logger.Logger, operationName string, operation func() error, cfg Config) error {
	_, err := DoValue(ctx, log, operationName, func() (struct{}, error) {
		return struct{}{}, operation()
	}, cfg)
	return err
}

// DoValue runs operation until it succeeds or cfg.MaxAttempts is reached.
// Delay before attempt n+1 is BaseDelay * 4^n plus uniform jitter in [0, MaxJitter).
func DoValue[T any](ctx context.Context, log logger.Logger, operationName string, operation func() (T, error), cfg Config) (T, error) {
	var (
		result  T
		lastErr error
	)

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, lastErr = operation()
		if lastErr == nil {
			return result, nil
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := time.Duration(math.Pow(4, float64(attempt)))*cfg.BaseDelay +
			time.Duration(rand.Float64()*float64(cfg.MaxJitter))

		log.Warn(
			"Operation failed, retrying...",
			"operation", operationName,
			"attempt", attempt+1,
			"error", lastErr,
			"next_attempt_in", delay.Round(time.Millisecond).String(),
		)

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(delay):
		}
	}

	return result, fmt.Errorf("%w after %d attempts: %s: %w", ErrAttemptsExhausted, cfg.MaxAttempts, operationName, lastErr)
}
