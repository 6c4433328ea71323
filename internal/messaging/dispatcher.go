package messaging

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/weclinic/appointment-notifier/pkg/logging"
)

var dispatchTracer = otel.Tracer("notifier.internal.messaging.dispatch")

// Dispatcher wraps any Channel with retry and outcome classification. It
// keeps no state between calls: the caller records success in the ledger,
// the dispatcher only answers "did this message get accepted".
type Dispatcher struct {
	channel     Channel
	logger      *logging.Logger
	maxAttempts int
	retryDelay  time.Duration
	sleep       func(time.Duration)
}

// NewDispatcher creates a dispatcher over the given channel.
func NewDispatcher(channel Channel, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		channel:     channel,
		logger:      logger,
		maxAttempts: 3,
		retryDelay:  2 * time.Second,
		sleep:       time.Sleep,
	}
}

func (d *Dispatcher) WithMaxAttempts(n int) *Dispatcher {
	if n > 0 {
		d.maxAttempts = n
	}
	return d
}

func (d *Dispatcher) WithRetryDelay(delay time.Duration) *Dispatcher {
	if delay > 0 {
		d.retryDelay = delay
	}
	return d
}

// withSleep overrides the retry sleep. Tests only.
func (d *Dispatcher) withSleep(sleep func(time.Duration)) *Dispatcher {
	d.sleep = sleep
	return d
}

// Dispatch delivers one message, retrying transient failures up to the
// attempt limit with a fixed delay. Returns nil on acceptance; a malformed
// request (non-429 4xx) fails on the first attempt because retrying cannot
// fix a bad payload.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("messaging: destination required")
	}
	if msg.Body == "" {
		return errors.New("messaging: body required")
	}

	ctx, span := dispatchTracer.Start(ctx, "messaging.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("notifier.to", msg.To),
	)

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.channel.Send(ctx, msg)
		if err == nil {
			if attempt > 1 {
				d.logger.Info("message sent after retry", "to", msg.To, "attempt", attempt)
			}
			span.SetAttributes(attribute.Int("notifier.attempts", attempt))
			return nil
		}
		lastErr = err

		if !retryable(err) {
			d.logger.Warn("message rejected, not retrying", "to", msg.To, "error", err)
			span.RecordError(lastErr)
			return lastErr
		}
		if attempt < d.maxAttempts {
			if ctx.Err() != nil {
				span.RecordError(lastErr)
				return lastErr
			}
			d.logger.Warn("transient send failure, retrying",
				"to", msg.To, "attempt", attempt, "error", err)
			d.sleep(d.retryDelay)
		}
	}

	d.logger.Error("message failed after retries", "to", msg.To, "attempts", d.maxAttempts, "error", lastErr)
	span.RecordError(lastErr)
	return lastErr
}

// retryable classifies a send failure. Rate limits, server-side errors and
// transport failures are transient; other provider responses are not. A
// cancelled or expired context is never worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == 429 {
			return true
		}
		return statusErr.StatusCode >= 500
	}
	// Timeouts and connection failures surface as transport errors.
	return true
}
