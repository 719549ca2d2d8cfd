package service

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"dashgg/internal/metrics"
)

var (
	ErrNoCredentials = errors.New("no shortener API key configured")
	ErrShortenFailed = errors.New("shortener rejected the request")
)

// shortenResponse is the AdLinkFly-style reply of linkpays.in and similar services.
type shortenResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ShortenedURL string `json:"shortenedUrl"`
}

// ShortenerHTTPClient shortens redeem links through a monetized shortener API.
type ShortenerHTTPClient struct {
	ServiceURL string
	Pool       *CredentialPool
	HTTPClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewShortenerHTTPClient(serviceURL string, pool *CredentialPool) *ShortenerHTTPClient {
	client := &ShortenerHTTPClient{
		ServiceURL: serviceURL,
		Pool:       pool,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	client.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "shortener-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejected link is the caller's problem, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrShortenFailed)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker '%s' changed from %s to %s", name, from, to)
		},
	})

	return client
}

// Shorten returns the shortened URL for link, published under alias.
func (c *ShortenerHTTPClient) Shorten(ctx context.Context, link, alias string) (string, error) {
	key, ok := c.Pool.Next()
	if !ok {
		return "", ErrNoCredentials
	}

	q := url.Values{}
	q.Set("api", key)
	q.Set("url", link)
	q.Set("alias", alias)
	reqURL := c.ServiceURL + "?" + q.Encode()

	result, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "request failed")
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read response")
		}

		if resp.StatusCode >= 500 {
			return nil, errors.Errorf("shortener unavailable: status %d", resp.StatusCode)
		}

		var data shortenResponse
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, errors.Wrapf(err, "failed to parse response (status %d)", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, errors.Wrapf(ErrShortenFailed, "status %d: %s", resp.StatusCode, data.Message)
		}
		if data.Status == "error" || data.ShortenedURL == "" {
			return nil, errors.Wrapf(ErrShortenFailed, "%s", data.Message)
		}
		return data.ShortenedURL, nil
	})

	metrics.ShortenerRequestsTotal.WithLabelValues(statusLabel(err)).Inc()

	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	default:
		return "error"
	}
}

// Ready reports whether at least one API key is configured.
func (c *ShortenerHTTPClient) Ready() bool {
	return c.Pool.Len() > 0
}

// GetCircuitBreaker exposes the breaker for health reporting.
func (c *ShortenerHTTPClient) GetCircuitBreaker() *gobreaker.CircuitBreaker {
	return c.cb
}

// Describe is used in startup logs; it never prints the keys.
func (c *ShortenerHTTPClient) Describe() string {
	return c.ServiceURL + " with " + strconv.Itoa(c.Pool.Len()) + " key(s)"
}
