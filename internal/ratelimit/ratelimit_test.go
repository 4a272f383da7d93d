package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(l *Limiter, t time.Time) *time.Time {
	now := t
	l.now = func() time.Time { return now }
	return &now
}

func TestDefaults(t *testing.T) {
	l := New(Config{})
	assert.Equal(t, DefaultConfig(), l.Config())

	l = New(Config{Requests: 5, Duration: time.Minute})
	assert.Equal(t, 5, l.Config().Burst)
	assert.Equal(t, time.Hour, l.Config().ExpiresIn)
}

func TestAllowBurstThenDeny(t *testing.T) {
	l := New(Config{Requests: 1, Burst: 3, Duration: time.Second, ExpiresIn: time.Minute})
	clock := fixedClock(l, time.Unix(1000, 0))

	for i := 0; i < 3; i++ {
		ok, wait := l.Allow("10.0.0.1")
		assert.True(t, ok, "request %d", i+1)
		assert.Zero(t, wait)
	}

	ok, wait := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, time.Second)

	// a denied request does not consume a token
	*clock = clock.Add(time.Second)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
}

func TestSeparateVisitors(t *testing.T) {
	l := New(Config{Requests: 1, Burst: 1, Duration: time.Second, ExpiresIn: time.Minute})
	fixedClock(l, time.Unix(1000, 0))

	ok, _ := l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok)
	ok, _ = l.Allow("b")
	assert.True(t, ok)
	assert.Equal(t, 2, l.Len())
}

func TestCleanup(t *testing.T) {
	l := New(Config{Requests: 10, Duration: time.Second, ExpiresIn: time.Minute})
	clock := fixedClock(l, time.Unix(1000, 0))

	l.Allow("old")
	*clock = clock.Add(45 * time.Second)
	l.Allow("fresh")
	*clock = clock.Add(30 * time.Second)

	assert.Equal(t, 1, l.Cleanup())
	assert.Equal(t, 1, l.Len())
}

func TestRunStopsWithContext(t *testing.T) {
	l := New(Config{Requests: 10, Duration: time.Second, ExpiresIn: 20 * time.Millisecond})
	l.Allow("x")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return l.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
