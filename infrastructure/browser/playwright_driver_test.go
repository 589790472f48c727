package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedTimeoutFollowsContextDeadline(t *testing.T) {
	ms, err := boundedTimeout(context.Background(), defaultActionTimeout)
	require.NoError(t, err)
	assert.Equal(t, float64(defaultActionTimeout.Milliseconds()), ms)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	ms, err = boundedTimeout(ctx, defaultActionTimeout)
	require.NoError(t, err)
	assert.LessOrEqual(t, ms, float64(200))
	assert.Greater(t, ms, float64(0))

	done, cancelDone := context.WithCancel(context.Background())
	cancelDone()
	_, err = boundedTimeout(done, time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	_, err = boundedTimeout(expired, time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
