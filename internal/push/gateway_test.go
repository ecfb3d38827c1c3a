package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedTopic_AcceptsPublishedSubjects(t *testing.T) {
	assert.True(t, allowedTopic.MatchString("market.raw.binance.BTCUSDT"))
	assert.True(t, allowedTopic.MatchString("market.kline.1m.BTCUSDT"))
	assert.True(t, allowedTopic.MatchString("sim.9c3f1b2a.progress"))
}

func TestAllowedTopic_RejectsUnknownSubjects(t *testing.T) {
	assert.False(t, allowedTopic.MatchString("market.raw.binance"))
	assert.False(t, allowedTopic.MatchString("internal.admin.users"))
	assert.False(t, allowedTopic.MatchString(">"))
	assert.False(t, allowedTopic.MatchString("market.raw.*.*"))
}
