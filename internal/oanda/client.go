// Package oanda is the REST boundary to the OANDA v20 API: completed
// candles, account equity and open positions. All requests share one rate
// limiter and retry transient failures with exponential backoff.
package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/oreliousw/lambda-oanda-bridge/models"
)

const maxRetries = 3

// Client talks to one OANDA account. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	accountID  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient builds a client for the given REST host and account.
func NewClient(baseURL, apiKey, accountID string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		accountID:  accountID,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		logger:     logger.With().Str("component", "oanda_client").Logger(),
	}
}

// Wire shapes. OANDA serializes every price as a decimal string.
type candlesResponse struct {
	Candles []struct {
		Complete bool   `json:"complete"`
		Time     string `json:"time"`
		Volume   int64  `json:"volume"`
		Mid      struct {
			O string `json:"o"`
			H string `json:"h"`
			L string `json:"l"`
			C string `json:"c"`
		} `json:"mid"`
	} `json:"candles"`
}

type summaryResponse struct {
	Account struct {
		NAV     string `json:"NAV"`
		Balance string `json:"balance"`
	} `json:"account"`
}

type openPositionsResponse struct {
	Positions []struct {
		Instrument string `json:"instrument"`
	} `json:"positions"`
}

// GetCandles returns the most recent `count` completed midpoint candles.
// Incomplete (still-forming) candles are dropped so the engine only ever
// evaluates closed bars.
func (c *Client) GetCandles(ctx context.Context, instrument, granularity string, count int) ([]models.Candle, error) {
	endpoint := fmt.Sprintf("%s/v3/instruments/%s/candles", c.baseURL, url.PathEscape(instrument))
	params := url.Values{}
	params.Set("granularity", granularity)
	params.Set("count", strconv.Itoa(count))
	params.Set("price", "M")

	var resp candlesResponse
	if err := c.getJSON(ctx, endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("%w: candles %s %s: %v", models.ErrDataUnavailable, instrument, granularity, err)
	}

	candles := make([]models.Candle, 0, len(resp.Candles))
	for _, raw := range resp.Candles {
		if !raw.Complete {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, raw.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: bad candle timestamp %q: %v", models.ErrDataUnavailable, raw.Time, err)
		}
		o, err1 := strconv.ParseFloat(raw.Mid.O, 64)
		h, err2 := strconv.ParseFloat(raw.Mid.H, 64)
		l, err3 := strconv.ParseFloat(raw.Mid.L, 64)
		cl, err4 := strconv.ParseFloat(raw.Mid.C, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, fmt.Errorf("%w: bad candle prices for %s at %s", models.ErrDataUnavailable, instrument, raw.Time)
		}
		candles = append(candles, models.Candle{
			Time:   t,
			Open:   o,
			High:   h,
			Low:    l,
			Close:  cl,
			Volume: raw.Volume,
		})
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: no completed candles returned for %s %s",
			models.ErrDataUnavailable, instrument, granularity)
	}

	c.logger.Debug().
		Str("instrument", instrument).
		Str("granularity", granularity).
		Int("candles", len(candles)).
		Msg("candles fetched")
	return candles, nil
}

// GetAccountEquity returns the account NAV, falling back to balance when NAV
// is absent from the summary.
func (c *Client) GetAccountEquity(ctx context.Context) (float64, error) {
	endpoint := fmt.Sprintf("%s/v3/accounts/%s/summary", c.baseURL, url.PathEscape(c.accountID))

	var resp summaryResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return 0, fmt.Errorf("%w: account summary: %v", models.ErrDataUnavailable, err)
	}

	raw := resp.Account.NAV
	if raw == "" {
		raw = resp.Account.Balance
	}
	equity, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad equity value %q: %v", models.ErrDataUnavailable, raw, err)
	}
	return equity, nil
}

// GetOpenPositions returns the number of open positions and the set of
// instruments holding them.
func (c *Client) GetOpenPositions(ctx context.Context) (int, map[string]bool, error) {
	endpoint := fmt.Sprintf("%s/v3/accounts/%s/openPositions", c.baseURL, url.PathEscape(c.accountID))

	var resp openPositionsResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return 0, nil, fmt.Errorf("%w: open positions: %v", models.ErrDataUnavailable, err)
	}

	held := make(map[string]bool, len(resp.Positions))
	for _, p := range resp.Positions {
		held[p.Instrument] = true
	}
	return len(resp.Positions), held, nil
}

// getJSON performs a rate-limited GET with retries and decodes the body.
// 4xx responses are permanent; 5xx and transport errors are retried.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", endpoint).Msg("request failed, will retry")
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d: %s", resp.StatusCode, body)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body))
		}
		return json.Unmarshal(body, out)
	}

	return backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
}
