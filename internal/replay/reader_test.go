package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/univocity/trader-replay/internal/candle"
)

func TestBuildReaders_SortsAndDropsUnsubscribed(t *testing.T) {
	loaded := map[string]candle.CandleSource{
		"ETHUSDT": candle.NewSliceSource(nil),
		"BTCUSDT": candle.NewSliceSource(nil),
		"XRPUSDT": candle.NewSliceSource(nil), // no engines subscribed
	}
	handlers := map[string][]Engine{
		"ETHUSDT": {&recordingEngine{symbol: "ETHUSDT", calls: &[]call{}}},
		"BTCUSDT": {&recordingEngine{symbol: "BTCUSDT", calls: &[]call{}}},
	}

	readers := BuildReaders(loaded, handlers)
	assert.Len(t, readers, 2)
	assert.Equal(t, "BTCUSDT", readers[0].Symbol)
	assert.Equal(t, "ETHUSDT", readers[1].Symbol)
}
