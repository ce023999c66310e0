package retry

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// recordSleeps replaces sleep for the duration of the test.
func recordSleeps(t *testing.T) *[]time.Duration {
	var slept []time.Duration
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = time.Sleep })
	return &slept
}

func TestRetry_SucceedsEventually(t *testing.T) {
	var calls int
	attempts, err := Retry(func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.EqualValues(t, 3, attempts)
}

func TestRetry_StopsAtFirstRefusal(t *testing.T) {
	slept := recordSleeps(t)
	retriable := errors.New("retriable")

	attempts, err := Retry(
		func() error { return errors.New("fatal") },
		RetriableErrors(retriable),
		Backoff(constantDelay(time.Second), time.Second),
	)
	assert.EqualError(t, err, "fatal")
	assert.EqualValues(t, 1, attempts)
	assert.Empty(t, *slept)
}

func TestRetrier(t *testing.T) {
	retriable := errors.New("retriable")
	r := NewRetrier(RetriableErrors(retriable), Limit(4))

	attempts, err := r.Retry(func() error { return nil })
	assert.NoError(t, err)
	assert.EqualValues(t, 1, attempts)

	attempts, err = r.Retry(func() error { return errors.Wrap(retriable, "rpc") })
	assert.ErrorIs(t, err, retriable)
	assert.EqualValues(t, 4, attempts)
}

func constantDelay(d time.Duration) func(uint) time.Duration {
	return func(uint) time.Duration { return d }
}
