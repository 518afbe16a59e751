package timeout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoRetriesOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), time.Second, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoStopsAfterSecondFailure(t *testing.T) {
	calls := 0
	wantErr := errors.New("down")
	err := Do(context.Background(), time.Second, func(ctx context.Context) error {
		calls++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 2, calls)
}

func TestDoSkipsRetryWhenParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, time.Second, func(ctx context.Context) error {
		calls++
		cancel()
		return context.Canceled
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoAppliesDeadline(t *testing.T) {
	err := Do(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
