package stork

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"stork_verifier/faults"
	"stork_verifier/models"
	"stork_verifier/monitoring"
	"stork_verifier/parser"
)

type signedPricesResponse struct {
	Data map[string]signedPricePayload `json:"data"`
}

type signedPricePayload struct {
	Price                json.RawMessage `json:"price"`
	TimestampedSignature struct {
		MsgHash   string          `json:"msg_hash"`
		Timestamp json.RawMessage `json:"timestamp"`
	} `json:"timestamped_signature"`
}

// FetchSignedPrices performs one GET against the signed-prices endpoint
// and returns the entries that parse cleanly. Malformed entries are
// skipped with a warning; they never fail the fetch.
func (c *Client) FetchSignedPrices(ctx context.Context, token string) ([]models.PriceObservation, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pricesPath, token, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClientFor(c.NextProxy()).Do(req)
	monitoring.RequestDuration.WithLabelValues("signed_prices").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: fetching signed prices: %v", faults.ErrConnection, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: signed prices returned 401", faults.ErrAuth)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("signed prices returned %d: %s", resp.StatusCode, drainBody(resp.Body))
	}

	var payload signedPricesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding signed prices: %v", faults.ErrData, err)
	}
	if payload.Data == nil {
		return nil, fmt.Errorf("%w: signed prices response missing data object", faults.ErrData)
	}

	observations := make([]models.PriceObservation, 0, len(payload.Data))
	for asset, entry := range payload.Data {
		obs, err := parseObservation(asset, entry)
		if err != nil {
			c.log.Warnw("Skipping unusable price entry", "asset", asset, "error", err)
			continue
		}
		observations = append(observations, obs)
	}

	c.log.Infow("Fetched signed prices", "assets", len(payload.Data), "usable", len(observations))
	return observations, nil
}

func parseObservation(asset string, entry signedPricePayload) (models.PriceObservation, error) {
	msgHash := entry.TimestampedSignature.MsgHash
	if msgHash == "" {
		return models.PriceObservation{}, fmt.Errorf("missing msg_hash")
	}

	rawPrice := rawString(entry.Price)
	if rawPrice == "" {
		return models.PriceObservation{}, fmt.Errorf("missing price")
	}

	rawTS := rawString(entry.TimestampedSignature.Timestamp)
	if rawTS == "" {
		return models.PriceObservation{}, fmt.Errorf("missing timestamp")
	}
	observedAt, err := parser.NormalizeTimestamp(rawTS)
	if err != nil {
		return models.PriceObservation{}, fmt.Errorf("bad timestamp: %w", err)
	}

	return models.PriceObservation{
		Asset:      asset,
		MsgHash:    msgHash,
		Price:      parser.NormalizePrice(rawPrice),
		RawPrice:   rawPrice,
		ObservedAt: observedAt,
	}, nil
}

// rawString renders a JSON value that may arrive as a string or a bare
// number into its textual form.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
