// Package aoaranks provides a client for the automated opportunity
// allocation (AOA) ranking service.
package aoaranks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the AOA ranking operations.
type Client interface {
	// RequestRanks posts the consultant performance matrices and returns
	// the ranked consultant IDs. Hooks run after the call completes,
	// regardless of outcome.
	RequestRanks(ctx context.Context, req *RankRequest, hooks ...Hook) (*RankResult, error)
}

// ConsultantMatrix is one consultant's conversion matrix as sent to the
// ranking service.
type ConsultantMatrix struct {
	ConsultantID      int64                    `json:"consultant_id"`
	PerformanceMatrix map[int]map[int]*float64 `json:"performance_matrix"`
}

// RankRequest is the ranking request payload.
type RankRequest struct {
	CategoryIdent string             `json:"category_ident"`
	Consultants   []ConsultantMatrix `json:"consultants"`
}

// RankResult is the outcome of a ranking call. RequestUUID is taken from
// the X-Request-Id response header and is only present when the service
// actually processed the request (HTTP 201), even if the body carried an
// application-level error.
type RankResult struct {
	StatusCode  int
	AoaRanks    []int64
	RequestUUID string
	Errors      []string
}

// Successful reports whether the service returned 201 with an
// error-free body.
func (r *RankResult) Successful() bool {
	return r.StatusCode == http.StatusCreated && len(r.Errors) == 0
}

// Hook is a post-call observer, typically a logging callback.
type Hook func(*RankResult)

// Option configures the AOA client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative
// leaves the client unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an AOA ranking client for the given endpoint.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rankResponse covers both the success and the error body shape.
type rankResponse struct {
	AllocatedConsultants []int64 `json:"allocated_consultants"`
	Code                 int     `json:"code"`
	Description          string  `json:"description"`
	Name                 string  `json:"name"`
}

func (c *httpClient) RequestRanks(ctx context.Context, req *RankRequest, hooks ...Hook) (result *RankResult, err error) {
	result = &RankResult{}
	defer func() {
		for _, hook := range hooks {
			hook(result)
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return result, eris.Wrap(err, "aoaranks: rate limit wait")
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return result, eris.Wrap(err, "aoaranks: marshal request")
	}

	body, statusCode, header, err := c.retryDo(ctx, payload)
	if err != nil {
		return result, eris.Wrap(err, "aoaranks: request failed")
	}
	result.StatusCode = statusCode

	if statusCode != http.StatusCreated {
		result.Errors = append(result.Errors, fmt.Sprintf("unexpected status %d", statusCode))
		return result, nil
	}
	result.RequestUUID = header.Get("X-Request-Id")

	var parsed rankResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		result.Errors = append(result.Errors, "malformed response body")
		return result, nil
	}
	if parsed.Code != 0 || parsed.Name != "" {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", parsed.Name, parsed.Description))
		return result, nil
	}

	result.AoaRanks = parsed.AllocatedConsultants
	return result, nil
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo posts the payload with exponential backoff retries on
// transient failures (429, 500, 502, 503).
func (c *httpClient) retryDo(ctx context.Context, payload []byte) ([]byte, int, http.Header, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, nil, eris.Wrap(err, "aoaranks: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, nil, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, nil, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, resp.Header, eris.Wrap(readErr, "aoaranks: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("aoaranks: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, resp.Header, nil
	}

	return nil, 0, nil, lastErr
}
