package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	waits []time.Duration
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func TestDo(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("succeeds first time", func(t *testing.T) {
		rec := &recorder{}
		calls := 0
		err := Do(context.Background(), Config{MaxRetries: Unlimited, Wait: time.Second, Sleep: rec.sleep}, func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, rec.waits)
	})

	t.Run("retries until success with fixed wait", func(t *testing.T) {
		rec := &recorder{}
		calls := 0
		var retried []int
		err := Do(context.Background(), Config{
			MaxRetries: Unlimited,
			Wait:       30 * time.Second,
			Sleep:      rec.sleep,
			OnRetry:    func(attempt int, err error) { retried = append(retried, attempt) },
		}, func() error {
			calls++
			if calls < 4 {
				return errBoom
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 4, calls)
		assert.Equal(t, []int{1, 2, 3}, retried)
		assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second, 30 * time.Second}, rec.waits)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		rec := &recorder{}
		calls := 0
		err := Do(context.Background(), Config{MaxRetries: 2, Wait: time.Millisecond, Sleep: rec.sleep}, func() error {
			calls++
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 3, calls)
		assert.Len(t, rec.waits, 2)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		rec := &recorder{}
		calls := 0
		err := Do(context.Background(), Config{MaxRetries: Unlimited, Sleep: rec.sleep}, func() error {
			calls++
			return Permanent(errBoom)
		})
		assert.ErrorIs(t, err, errBoom)
		assert.True(t, IsPermanent(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := Do(ctx, Config{MaxRetries: Unlimited, Wait: time.Hour}, func() error {
			calls++
			cancel()
			return errBoom
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("plain")))

	wrapped := Permanent(errors.New("rejected"))
	assert.EqualError(t, wrapped, "rejected")
	assert.True(t, IsPermanent(errors.Join(errors.New("outer"), wrapped)))
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
