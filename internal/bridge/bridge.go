// Package bridge posts actionable signals to the order-execution webhook.
// Dispatch is deliberately not retried: a duplicate market order is worse
// than a missed one.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/oreliousw/lambda-oanda-bridge/models"
)

// Dispatcher sends signals to the bridge endpoint.
type Dispatcher struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewDispatcher points a dispatcher at the bridge URL.
func NewDispatcher(url string, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "bridge").Logger(),
	}
}

// Dispatch posts one actionable signal. A non-2xx response comes back as
// models.ErrDispatchRejected with the body attached.
func (d *Dispatcher) Dispatch(ctx context.Context, sig *models.Signal) error {
	if !sig.Actionable() {
		return fmt.Errorf("%w: signal for %s is not actionable", models.ErrDispatchRejected, sig.Instrument)
	}

	payload := map[string]interface{}{
		"message":    sig.Side,
		"instrument": sig.Instrument,
		"price":      sig.EntryPrice,
		"sl":         sig.SLPrice,
		"tp":         sig.TPPrice,
		"qty":        sig.Units,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding bridge payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building bridge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrDispatchRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", models.ErrDispatchRejected, resp.StatusCode, respBody)
	}

	d.logger.Info().
		Str("instrument", sig.Instrument).
		Str("side", sig.Side).
		Int("units", sig.Units).
		Msg("signal dispatched")
	return nil
}
