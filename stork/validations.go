package stork

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"stork_verifier/faults"
	"stork_verifier/monitoring"
	"stork_verifier/utils"
)

type validationRequest struct {
	MsgHash string `json:"msg_hash"`
	Valid   bool   `json:"valid"`
}

// SubmitValidation posts one verdict. Up to three attempts with doubling
// backoff: throttling and transport failures retry, a 401 fails
// immediately as an auth error, any other HTTP error is fatal. The
// endpoint tolerates duplicate submissions, so network-level retries are
// safe.
func (c *Client) SubmitValidation(ctx context.Context, token, msgHash string, isValid bool, proxy string) error {
	body, err := json.Marshal(validationRequest{MsgHash: msgHash, Valid: isValid})
	if err != nil {
		return fmt.Errorf("encoding validation: %w", err)
	}
	httpClient := c.httpClientFor(proxy)

	op := func() error {
		req, err := c.newRequest(ctx, http.MethodPost, validationsPath, token, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}

		start := time.Now()
		resp, err := httpClient.Do(req)
		monitoring.RequestDuration.WithLabelValues("submit_validation").Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("%w: submitting validation: %v", faults.ErrConnection, err)
		}
		defer resp.Body.Close()

		var reqErr error
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusUnauthorized:
			reqErr = fmt.Errorf("%w: validation rejected with 401", faults.ErrAuth)
		case resp.StatusCode == http.StatusTooManyRequests:
			reqErr = fmt.Errorf("%w: validation throttled", faults.ErrRateLimited)
		default:
			reqErr = fmt.Errorf("validation returned %d: %s",
				resp.StatusCode, drainBody(resp.Body))
		}
		if faults.Retryable(reqErr) {
			return reqErr
		}
		return backoff.Permanent(reqErr)
	}

	if err := utils.Retry(ctx, utils.NewSubmitBackoff(), utils.SubmitAttempts, op); err != nil {
		return fmt.Errorf("submit validation %s: %w", msgHash, err)
	}
	return nil
}
