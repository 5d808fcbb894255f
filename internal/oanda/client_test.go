package oanda

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oreliousw/lambda-oanda-bridge/models"
)

const candlesBody = `{
	"candles": [
		{"complete": true, "time": "2024-03-04T10:00:00.000000000Z", "volume": 1200,
		 "mid": {"o": "1.08500", "h": "1.08620", "l": "1.08480", "c": "1.08590"}},
		{"complete": true, "time": "2024-03-04T10:15:00.000000000Z", "volume": 950,
		 "mid": {"o": "1.08590", "h": "1.08640", "l": "1.08550", "c": "1.08610"}},
		{"complete": false, "time": "2024-03-04T10:30:00.000000000Z", "volume": 140,
		 "mid": {"o": "1.08610", "h": "1.08630", "l": "1.08600", "c": "1.08620"}}
	]
}`

func newTestClient(url string) *Client {
	return NewClient(url, "test-key", "acct-001", 5*time.Second, zerolog.Nop())
}

func TestGetCandles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/instruments/EUR_USD/candles", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "M15", r.URL.Query().Get("granularity"))
		assert.Equal(t, "500", r.URL.Query().Get("count"))
		assert.Equal(t, "M", r.URL.Query().Get("price"))
		w.Write([]byte(candlesBody))
	}))
	defer server.Close()

	candles, err := newTestClient(server.URL).GetCandles(context.Background(), "EUR_USD", "M15", 500)
	require.NoError(t, err)

	// The incomplete third candle is dropped.
	require.Len(t, candles, 2)
	assert.Equal(t, 1.08500, candles[0].Open)
	assert.Equal(t, 1.08590, candles[0].Close)
	assert.Equal(t, int64(1200), candles[0].Volume)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 15, 0, 0, time.UTC), candles[1].Time)
}

func TestGetCandlesEmptyResponseIsDataUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candles": []}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetCandles(context.Background(), "EUR_USD", "M15", 500)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
}

func TestGetCandlesOnlyIncompleteIsDataUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The single candle is still forming, so nothing usable comes back.
		w.Write([]byte(`{
			"candles": [
				{"complete": false, "time": "2024-03-04T10:30:00.000000000Z", "volume": 140,
				 "mid": {"o": "1.08610", "h": "1.08630", "l": "1.08600", "c": "1.08620"}}
			]
		}`))
	}))
	defer server.Close()

	candles, err := newTestClient(server.URL).GetCandles(context.Background(), "EUR_USD", "M15", 500)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
	assert.Empty(t, candles)
}

func TestGetCandlesRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(candlesBody))
	}))
	defer server.Close()

	candles, err := newTestClient(server.URL).GetCandles(context.Background(), "EUR_USD", "M15", 500)
	require.NoError(t, err)
	assert.Len(t, candles, 2)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGetCandlesClientErrorIsPermanent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetCandles(context.Background(), "EUR_USD", "M15", 500)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
	// 4xx must not be retried.
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetAccountEquityNAV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/accounts/acct-001/summary", r.URL.Path)
		w.Write([]byte(`{"account": {"NAV": "2543.18", "balance": "2500.00"}}`))
	}))
	defer server.Close()

	equity, err := newTestClient(server.URL).GetAccountEquity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2543.18, equity)
}

func TestGetAccountEquityFallsBackToBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"account": {"balance": "2500.00"}}`))
	}))
	defer server.Close()

	equity, err := newTestClient(server.URL).GetAccountEquity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2500.00, equity)
}

func TestGetOpenPositions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/accounts/acct-001/openPositions", r.URL.Path)
		w.Write([]byte(`{"positions": [{"instrument": "EUR_USD"}, {"instrument": "USD_JPY"}]}`))
	}))
	defer server.Close()

	count, held, err := newTestClient(server.URL).GetOpenPositions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, held["EUR_USD"])
	assert.True(t, held["USD_JPY"])
	assert.False(t, held["GBP_USD"])
}
