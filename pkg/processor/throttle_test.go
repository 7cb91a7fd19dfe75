package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInstanceLimiter(t *testing.T) {
	clock := time.Unix(0, 0)
	l := newInstanceLimiter(1, 2)
	l.now = func() time.Time { return clock }

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))

	clock = clock.Add(time.Second)
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
}

func TestInstanceLimiterSweepsIdleBuckets(t *testing.T) {
	clock := time.Unix(0, 0)
	l := newInstanceLimiter(1, 1)
	l.now = func() time.Time { return clock }

	l.allow("a")
	l.allow("b")
	assert.Equal(t, 2, l.size())

	clock = clock.Add(idleAfter + time.Second)
	l.allow("c")
	assert.Equal(t, 1, l.size())
}

func TestInstanceLimiterMinimumBurst(t *testing.T) {
	l := newInstanceLimiter(1, 0)
	assert.Equal(t, 1, l.burst)
}
