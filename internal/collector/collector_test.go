package collector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taho/analytics/internal/engine"
	"github.com/taho/analytics/internal/store"
	"github.com/taho/analytics/pkg/config"
	"github.com/taho/analytics/pkg/httputil"
	"github.com/taho/analytics/pkg/logger"
)

// fakeStore records upserted batches in memory
type fakeStore struct {
	records []store.Record
	latest  time.Time
}

func (f *fakeStore) UpsertRecords(_ context.Context, records []store.Record) (int, error) {
	f.records = append(f.records, records...)
	return len(records), nil
}

func (f *fakeStore) LatestRecordTime(_ context.Context) (time.Time, error) {
	return f.latest, nil
}

func TestCollect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/userTrades":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{
					"id": 1, "symbol": r.URL.Query().Get("symbol"), "side": "BUY",
					"price": "100", "qty": "1", "realizedPnl": "5",
					"commission": "0.1", "time": 1719825600000,
				},
			})
		case "/fapi/v1/income":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{
					"symbol": "BTCUSDT", "incomeType": "FUNDING_FEE",
					"income": "0.25", "time": 1719825700000, "tranId": 42,
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	log := logger.NewForTest(io.Discard)
	client := NewClient(config.BinanceConfig{
		APIKey:            "k",
		APISecret:         "s",
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
	}, httputil.New(log).DisableRetry(), log)

	st := &fakeStore{}
	c := New(client, st, []string{"BTCUSDT", "ETHUSDT"}, log)

	result, err := c.Collect(context.Background(),
		time.UnixMilli(1719820000000), time.UnixMilli(1719830000000))
	require.NoError(t, err)

	// One fill per symbol plus one funding record
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 3, result.NewRecords)
	require.Len(t, st.records, 3)

	assert.Equal(t, "trade-BTCUSDT-1", st.records[0].ID)
	assert.Equal(t, engine.KindTrade, st.records[0].Kind)
	assert.Equal(t, "trade-ETHUSDT-1", st.records[1].ID)

	fundingRec := st.records[2]
	assert.Equal(t, "funding-BTCUSDT-42", fundingRec.ID)
	assert.Equal(t, engine.KindFunding, fundingRec.Kind)
	// Income 0.25 received becomes funding -0.25 (negative = received)
	assert.Equal(t, -0.25, fundingRec.Funding)
}

func TestTradeToRecord(t *testing.T) {
	rec := tradeToRecord(UserTrade{
		ID: 7, Symbol: "SOLUSDT", Side: "SELL",
		Price: 150.5, Quantity: 2, RealizedPnL: -3.2, Commission: 0.05,
		Time: 1719825600000,
	})

	assert.Equal(t, "trade-SOLUSDT-7", rec.ID)
	assert.Equal(t, engine.SideSell, rec.Side)
	assert.Equal(t, -3.2, rec.RealizedPnL)
	assert.Equal(t, 0.05, rec.Fee)
	assert.Equal(t, time.UnixMilli(1719825600000).UTC(), rec.Timestamp)
}

func TestFillToRecord(t *testing.T) {
	var event orderTradeUpdate
	payload := `{
		"e": "ORDER_TRADE_UPDATE",
		"E": 1719825600100,
		"o": {
			"s": "BTCUSDT", "S": "BUY", "x": "TRADE",
			"t": 99, "T": 1719825600000,
			"l": "0.5", "L": "64000", "rp": "12.5", "n": "0.02"
		}
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &event))

	rec, err := fillToRecord(event)
	require.NoError(t, err)

	assert.Equal(t, "trade-BTCUSDT-99", rec.ID)
	assert.Equal(t, engine.SideBuy, rec.Side)
	assert.Equal(t, 0.5, rec.Quantity)
	assert.Equal(t, 64000.0, rec.Price)
	assert.Equal(t, 12.5, rec.RealizedPnL)
	assert.Equal(t, 0.02, rec.Fee)
}

func TestFillToRecordBadNumber(t *testing.T) {
	var event orderTradeUpdate
	event.Order.LastFilledQty = "not-a-number"

	_, err := fillToRecord(event)
	assert.Error(t, err)
}
