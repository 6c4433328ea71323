package messaging

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptChannel returns one scripted error per attempt.
type scriptChannel struct {
	errs     []error
	attempts int
}

func (c *scriptChannel) Send(_ context.Context, _ Message) error {
	i := c.attempts
	c.attempts++
	if i < len(c.errs) {
		return c.errs[i]
	}
	return nil
}

func noSleep(d *Dispatcher) *Dispatcher {
	return d.withSleep(func(time.Duration) {})
}

func TestDispatchSuccessFirstAttempt(t *testing.T) {
	ch := &scriptChannel{}
	d := noSleep(NewDispatcher(ch, nil))

	err := d.Dispatch(context.Background(), Message{To: "11999990001", Body: "oi"})
	require.NoError(t, err)
	assert.Equal(t, 1, ch.attempts)
}

func TestDispatchRetriesServerError(t *testing.T) {
	ch := &scriptChannel{errs: []error{
		&StatusError{StatusCode: 500},
		&StatusError{StatusCode: 503},
	}}
	d := noSleep(NewDispatcher(ch, nil)).WithMaxAttempts(3)

	err := d.Dispatch(context.Background(), Message{To: "11999990001", Body: "oi"})
	require.NoError(t, err)
	assert.Equal(t, 3, ch.attempts)
}

func TestDispatchRetriesRateLimit(t *testing.T) {
	ch := &scriptChannel{errs: []error{&StatusError{StatusCode: 429}}}
	d := noSleep(NewDispatcher(ch, nil))

	err := d.Dispatch(context.Background(), Message{To: "11999990001", Body: "oi"})
	require.NoError(t, err)
	assert.Equal(t, 2, ch.attempts)
}

func TestDispatchRetriesTransportError(t *testing.T) {
	ch := &scriptChannel{errs: []error{errors.New("dial tcp: connection refused")}}
	d := noSleep(NewDispatcher(ch, nil))

	err := d.Dispatch(context.Background(), Message{To: "11999990001", Body: "oi"})
	require.NoError(t, err)
	assert.Equal(t, 2, ch.attempts)
}

func TestDispatchExhaustsAttempts(t *testing.T) {
	ch := &scriptChannel{errs: []error{
		&StatusError{StatusCode: 500},
		&StatusError{StatusCode: 500},
		&StatusError{StatusCode: 500},
	}}
	d := noSleep(NewDispatcher(ch, nil)).WithMaxAttempts(3)

	err := d.Dispatch(context.Background(), Message{To: "11999990001", Body: "oi"})
	require.Error(t, err)
	assert.Equal(t, 3, ch.attempts)
}

func TestDispatchMalformedRequestNoRetry(t *testing.T) {
	for _, status := range []int{400, 404, 422} {
		ch := &scriptChannel{errs: []error{&StatusError{StatusCode: status}}}
		d := noSleep(NewDispatcher(ch, nil)).WithMaxAttempts(5)

		err := d.Dispatch(context.Background(), Message{To: "11999990001", Body: "oi"})
		require.Error(t, err, "status %d", status)
		assert.Equal(t, 1, ch.attempts, "status %d should not be retried", status)
	}
}

func TestDispatchStopsOnContextCancel(t *testing.T) {
	// A shutdown mid-send must not burn retries against a dead context.
	ch := &scriptChannel{errs: []error{
		context.Canceled,
		fmt.Errorf("messaging: send: %w", context.DeadlineExceeded),
	}}
	d := noSleep(NewDispatcher(ch, nil)).WithMaxAttempts(5)

	err := d.Dispatch(context.Background(), Message{To: "11999990001", Body: "oi"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ch.attempts)

	ch = &scriptChannel{errs: []error{
		fmt.Errorf("messaging: send: %w", context.DeadlineExceeded),
	}}
	d = noSleep(NewDispatcher(ch, nil)).WithMaxAttempts(5)

	err = d.Dispatch(context.Background(), Message{To: "11999990001", Body: "oi"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, ch.attempts)
}

func TestDispatchCancelledContextNoSleepRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slept := false
	ch := &scriptChannel{errs: []error{
		&StatusError{StatusCode: 500},
		&StatusError{StatusCode: 500},
	}}
	d := NewDispatcher(ch, nil).WithMaxAttempts(3).
		withSleep(func(time.Duration) { slept = true })

	err := d.Dispatch(ctx, Message{To: "11999990001", Body: "oi"})
	require.Error(t, err)
	assert.Equal(t, 1, ch.attempts)
	assert.False(t, slept, "should not sleep once the context is gone")
}

func TestDispatchValidatesInput(t *testing.T) {
	ch := &scriptChannel{}
	d := noSleep(NewDispatcher(ch, nil))

	assert.Error(t, d.Dispatch(context.Background(), Message{Body: "oi"}))
	assert.Error(t, d.Dispatch(context.Background(), Message{To: "11999990001"}))
	assert.Equal(t, 0, ch.attempts)
}
