// Package captcha verifies bot-detection tokens against the reCAPTCHA v3
// siteverify endpoint. Network failures and timeouts are reported as errors;
// callers are expected to fail closed.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// Verifier checks captcha tokens against a siteverify-compatible endpoint.
type Verifier struct {
	SecretKey string
	Threshold float64 // minimum acceptable score, e.g. 0.5
	Endpoint  string  // defaults to the Google endpoint
	Client    *http.Client
}

// New returns a Verifier with a bounded-timeout HTTP client.
func New(secretKey string, threshold float64) *Verifier {
	return &Verifier{
		SecretKey: secretKey,
		Threshold: threshold,
		Endpoint:  defaultEndpoint,
		Client:    &http.Client{Timeout: 5 * time.Second},
	}
}

type verifyResponse struct {
	Success bool    `json:"success"`
	Score   float64 `json:"score"`
}

// Verify checks the token and returns whether it passed along with the
// reported score. An empty token never passes. A non-nil error means the
// verdict could not be obtained at all.
func (v *Verifier) Verify(ctx context.Context, token string) (bool, float64, error) {
	if strings.TrimSpace(token) == "" {
		return false, 0, nil
	}

	endpoint := v.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	form := url.Values{
		"secret":   {v.SecretKey},
		"response": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := v.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, 0, fmt.Errorf("captcha verify request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return false, 0, fmt.Errorf("captcha verify read: %w", err)
	}

	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return false, 0, fmt.Errorf("captcha verify decode: %w", err)
	}

	return result.Success && result.Score >= v.Threshold, result.Score, nil
}
