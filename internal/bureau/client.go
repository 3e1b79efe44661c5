// file: internal/bureau/client.go

package bureau

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2/clientcredentials"

	"credit-agent/config"
	"credit-agent/internal/logger"
	"credit-agent/internal/metrics"
	"credit-agent/internal/security"
)

const (
	// MaxResponseSize is the maximum size of a response body to read (1MB).
	MaxResponseSize = 1024 * 1024

	headerAPIKey    = "x-api-key"
	headerSignature = "x-signature"
)

// Client is the authenticated bureau HTTP client. Every outbound body is
// canonicalized and signed; every inbound signature, when present, is
// verified against the exact body bytes. All failures are converted to
// CallResult values — Send never returns an error.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	security   *security.Context
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a bureau client from configuration. With auth type
// "oauth2" the underlying transport injects a client-credentials bearer
// token in addition to the API key header.
func NewClient(cfg *config.BureauConfig, sec *security.Context, log *logger.Logger, m *metrics.Metrics) *Client {
	var httpClient *http.Client
	if cfg.Auth.Type == "oauth2" {
		ccfg := &clientcredentials.Config{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			TokenURL:     cfg.Auth.TokenURL,
			Scopes:       cfg.Auth.Scopes,
		}
		httpClient = ccfg.Client(context.Background())
		httpClient.Timeout = cfg.Timeout
		log.Info("bureau client using oauth2 client-credentials auth", "tokenUrl", cfg.Auth.TokenURL)
	} else {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		security:   sec,
		logger:     log,
		metrics:    m,
	}
}

// Send performs one signed request against the bureau. A non-nil payload is
// canonicalized, signed, and transmitted as the exact canonical bytes that
// were signed.
func (c *Client) Send(ctx context.Context, method, endpoint string, payload map[string]interface{}) CallResult {
	start := time.Now()
	result := c.send(ctx, method, endpoint, payload)

	duration := time.Since(start).Seconds()
	if c.metrics != nil {
		c.metrics.IncBureauRequestsTotal(endpoint, string(result.Outcome))
		c.metrics.ObserveBureauRequestDuration(endpoint, duration)
	}

	switch result.Outcome {
	case OutcomeFailure:
		c.logger.Warn("bureau request failed",
			"method", method,
			"endpoint", endpoint,
			"statusCode", result.StatusCode,
			"reason", result.Reason)
	case OutcomeUnverified:
		c.logger.Warn("bureau response signature could not be verified",
			"endpoint", endpoint,
			"statusCode", result.StatusCode)
	default:
		c.logger.Debug("bureau request succeeded",
			"method", method,
			"endpoint", endpoint,
			"statusCode", result.StatusCode,
			"duration", duration)
	}

	return result
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload map[string]interface{}) CallResult {
	url := c.baseURL + endpoint

	var body io.Reader
	var signature string
	if payload != nil {
		canonical, sig, err := c.security.SignPayload(payload)
		if err != nil {
			return Failure(fmt.Sprintf("failed to sign request: %v", err), 0)
		}
		body = bytes.NewReader(canonical)
		signature = sig
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Failure(fmt.Sprintf("failed to create request: %v", err), 0)
	}

	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(headerSignature, signature)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection errors land here.
		return Failure(fmt.Sprintf("transport error: %v", err), 0)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return Failure(fmt.Sprintf("failed to read response body: %v", err), resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Failure(fmt.Sprintf("bureau returned status %d", resp.StatusCode), resp.StatusCode)
	}

	var data map[string]interface{}
	if len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, &data); err != nil {
			return Failure(fmt.Sprintf("malformed response body: %v", err), resp.StatusCode)
		}
	}

	// Verify the response signature when present. Absence is not an error;
	// a failing signature is a soft-fail surfaced as OutcomeUnverified.
	if sigHeader := resp.Header.Get(headerSignature); sigHeader != "" {
		verifyStart := time.Now()
		valid := c.security.VerifyResponse(responseBody, sigHeader)
		if c.metrics != nil {
			c.metrics.ObserveSignatureVerificationDuration(time.Since(verifyStart).Seconds())
			c.metrics.IncSignatureVerifications(signatureResult(valid, c.security.CounterpartyKeyAvailable()))
		}

		if !valid {
			return Unverified(data, resp.StatusCode, "response signature could not be verified")
		}

		result := Success(data, resp.StatusCode)
		result.SignatureVerified = true
		return result
	}

	return Success(data, resp.StatusCode)
}

func signatureResult(valid, counterpartyAvailable bool) string {
	switch {
	case !counterpartyAvailable:
		return "skipped"
	case valid:
		return "valid"
	default:
		return "invalid"
	}
}
