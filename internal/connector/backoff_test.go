package connector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectBackoff_DoublesUntilCapped(t *testing.T) {
	b := newReconnectBackoff(time.Second)

	assert.Equal(t, time.Second, b.next())
	assert.Equal(t, 2*time.Second, b.next())
	assert.Equal(t, 4*time.Second, b.next())

	for i := 0; i < 10; i++ {
		b.next()
	}
	assert.Equal(t, time.Minute, b.next())
}

func TestReconnectBackoff_ResetReturnsToFloor(t *testing.T) {
	b := newReconnectBackoff(5 * time.Second)
	b.next()
	b.next()

	b.reset()

	assert.Equal(t, 5*time.Second, b.next())
}

func TestReconnectBackoff_NonPositivePollTickFallsBackToOneSecond(t *testing.T) {
	b := newReconnectBackoff(0)
	assert.Equal(t, time.Second, b.next())
}
