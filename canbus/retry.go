package canbus

import (
	"context"
	"errors"
	"time"

	"github.com/FabianPetersen/canopen/v2"
	"github.com/avast/retry-go"
)

// NewRetryingInterface wraps inner so that a failed send is attempted up to
// attempts times, delay apart. A message that fails to encode is returned
// before the first attempt. Closed transports and cancelled contexts are not
// retried.
func NewRetryingInterface(inner Interface, attempts uint, delay time.Duration) Interface {
	if attempts == 0 {
		attempts = 1
	}
	return &retryingInterface{
		inner:    inner,
		attempts: attempts,
		delay:    delay,
	}
}

type retryingInterface struct {
	inner    Interface
	attempts uint
	delay    time.Duration
}

func (r *retryingInterface) SendFrame(ctx context.Context, msg canopen.Message) error {
	// A message that does not encode fails the same way on every attempt
	if _, err := Encode(msg); err != nil {
		return err
	}

	return retry.Do(
		func() error {
			return r.inner.SendFrame(ctx, msg)
		},
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && !errors.Is(err, ErrClosed)
		}),
	)
}

func (r *retryingInterface) WaitForFrame(ctx context.Context) (canopen.Message, error) {
	return r.inner.WaitForFrame(ctx)
}

func (r *retryingInterface) Close() error {
	return r.inner.Close()
}
