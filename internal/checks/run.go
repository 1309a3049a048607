package checks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ReasonOK           = "OK"
	ReasonContentError = "Page content suggests error"

	defaultUserAgent = "sitewatch/1.0"
)

// errorMarkers are matched case-insensitively against the response body.
// Legitimate pages mentioning these words will be reported as failing.
var errorMarkers = []string{"error", "exception", "unavailable", "not found"}

// Checker issues a single HTTP probe against a URL.
type Checker struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewChecker creates a checker whose requests are bounded by timeout.
func NewChecker(timeout time.Duration, client *http.Client) *Checker {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Checker{
		client:    client,
		timeout:   timeout,
		userAgent: defaultUserAgent,
	}
}

// Check sends one GET request to url and classifies the response. It never
// retries and never returns an error: transport problems are reported as a
// failing Result.
func (c *Checker) Check(ctx context.Context, url string) Result {
	res := Result{
		URL:       url,
		StartedAt: time.Now(),
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return transportFailure(res, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return transportFailure(res, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(res, fmt.Errorf("read response: %w", err))
	}

	res.CompletedAt = time.Now()
	res.Latency = res.CompletedAt.Sub(res.StartedAt)
	res.StatusCode = resp.StatusCode
	res.Kind, res.Reason = classify(resp.StatusCode, string(body))
	res.Success = res.Kind == FailureNone
	return res
}

func classify(status int, body string) (FailureKind, string) {
	if status != http.StatusOK {
		return FailureStatus, fmt.Sprintf("HTTP %d", status)
	}
	lower := strings.ToLower(body)
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return FailureContent, ReasonContentError
		}
	}
	return FailureNone, ReasonOK
}

func transportFailure(res Result, err error) Result {
	res.CompletedAt = time.Now()
	res.Latency = res.CompletedAt.Sub(res.StartedAt)
	res.Success = false
	res.Kind = FailureTransport
	res.Error = err
	res.Reason = fmt.Sprintf("Request failed: %v", err)
	return res
}
