package events

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToSubscribersOfType(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got []*Event
	bus.Subscribe(LedgerChanged, func(e *Event) { got = append(got, e) })
	bus.Subscribe(StaleDataUsed, func(e *Event) { t.Fatal("wrong type delivered") })

	bus.Emit("ledger", &LedgerChangedData{PortfolioID: "portfolio", Ticker: "BBCA.JK", Action: "add", Positions: 1})

	require.Len(t, got, 1)
	assert.Equal(t, LedgerChanged, got[0].Type)
	assert.Equal(t, "ledger", got[0].Module)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	unsubscribe := bus.Subscribe(MarketDataRefreshed, func(*Event) { calls++ })
	bus.Emit("marketdata", &MarketDataRefreshedData{Ticker: "TLKM.JK", Bars: 250})
	unsubscribe()
	bus.Emit("marketdata", &MarketDataRefreshedData{Ticker: "TLKM.JK", Bars: 250})

	assert.Equal(t, 1, calls)
}

func TestEvent_JSONShape(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var raw []byte
	bus.Subscribe(StaleDataUsed, func(e *Event) {
		var err error
		raw, err = json.Marshal(e)
		require.NoError(t, err)
	})
	bus.Emit("marketdata", &StaleDataUsedData{Ticker: "ASII.JK", Reason: "timeout", FetchedAt: "2024-05-01T10:00:00Z"})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "STALE_DATA_USED", decoded["type"])
	data := decoded["data"].(map[string]any)
	assert.Equal(t, "timeout", data["reason"])
}

func TestEventData_Types(t *testing.T) {
	assert.Equal(t, AnalysisCompleted, (&AnalysisCompletedData{}).EventType())
	assert.Equal(t, MarketDataRefreshed, (&MarketDataRefreshedData{}).EventType())
	assert.Len(t, AllTypes, 4)
}
