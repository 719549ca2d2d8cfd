package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"dashgg/internal/metrics"
	"dashgg/internal/pterodactyl/entity"
)

const maxResponseBody = 8 << 20

var (
	ErrUnexpectedContentType = errors.New("unexpected content type")
	ErrNotFound              = errors.New("panel resource not found")
)

// PanelHTTPClient talks to the Pterodactyl application API with an
// application key. Requests are never retried.
type PanelHTTPClient struct {
	Domain     string
	APIKey     string
	PageSize   int
	HTTPClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

type apiResponse struct {
	status      int
	contentType string
	body        []byte
}

func (r *apiResponse) ok() bool {
	return r.status >= 200 && r.status < 300
}

func NewPanelHTTPClient(domain, apiKey string, pageSize int) *PanelHTTPClient {
	if pageSize <= 0 {
		pageSize = 100
	}
	client := &PanelHTTPClient{
		Domain:     strings.TrimRight(domain, "/"),
		APIKey:     apiKey,
		PageSize:   pageSize,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	client.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pterodactyl-api",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker '%s' changed from %s to %s", name, from, to)
		},
	})

	return client
}

// do performs one request. Transport errors and 5xx responses count against the breaker;
// other statuses are returned to the caller to interpret.
func (c *PanelHTTPClient) do(ctx context.Context, endpoint, method, path string) (*apiResponse, error) {
	start := time.Now()

	result, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.Domain+path, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "request failed")
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read response")
		}

		r := &apiResponse{
			status:      resp.StatusCode,
			contentType: resp.Header.Get("Content-Type"),
			body:        body,
		}
		if resp.StatusCode >= 500 {
			return r, errors.Errorf("panel returned status %d", resp.StatusCode)
		}
		return r, nil
	})

	metrics.PanelAPIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	var resp *apiResponse
	if result != nil {
		resp = result.(*apiResponse)
	}
	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.status)
	}
	metrics.PanelAPIRequestsTotal.WithLabelValues(endpoint, status).Inc()

	return resp, err
}

// Suspend reports whether the panel accepted the suspension.
func (c *PanelHTTPClient) Suspend(ctx context.Context, serverID int64) bool {
	return c.post(ctx, "suspend", serverID)
}

// Unsuspend reports whether the panel accepted the unsuspension.
func (c *PanelHTTPClient) Unsuspend(ctx context.Context, serverID int64) bool {
	return c.post(ctx, "unsuspend", serverID)
}

func (c *PanelHTTPClient) post(ctx context.Context, action string, serverID int64) bool {
	path := fmt.Sprintf("/api/application/servers/%d/%s", serverID, action)
	resp, err := c.do(ctx, action, http.MethodPost, path)
	if err != nil {
		log.Printf("PanelClient: %s server %d failed: %v", action, serverID, err)
		return false
	}
	if !resp.ok() {
		log.Printf("PanelClient: %s server %d returned status %d", action, serverID, resp.status)
		return false
	}
	return true
}

// ListServers fetches every server on the panel, page by page. Any failure is
// logged and yields an empty list together with the error.
func (c *PanelHTTPClient) ListServers(ctx context.Context) ([]entity.Server, error) {
	var servers []entity.Server

	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(c.PageSize))
		q.Set("page", strconv.Itoa(page))

		var list entity.ServerList
		if err := c.getJSON(ctx, "list_servers", "/api/application/servers?"+q.Encode(), &list); err != nil {
			log.Printf("PanelClient: failed to fetch servers: %v", err)
			return []entity.Server{}, err
		}

		servers = append(servers, list.Servers()...)

		if len(list.Data) == 0 || page >= list.Meta.Pagination.TotalPages {
			break
		}
	}

	if servers == nil {
		servers = []entity.Server{}
	}
	return servers, nil
}

// UserServers returns the servers owned by a panel user.
func (c *PanelHTTPClient) UserServers(ctx context.Context, panelUserID int64) ([]entity.Server, error) {
	var user entity.UserObject
	path := fmt.Sprintf("/api/application/users/%d?include=servers", panelUserID)
	if err := c.getJSON(ctx, "user_servers", path, &user); err != nil {
		log.Printf("PanelClient: failed to fetch servers of user %d: %v", panelUserID, err)
		return []entity.Server{}, err
	}
	return user.Attributes.Relationships.Servers.Servers(), nil
}

func (c *PanelHTTPClient) getJSON(ctx context.Context, endpoint, path string, out interface{}) error {
	resp, err := c.do(ctx, endpoint, http.MethodGet, path)
	if err != nil {
		return err
	}
	if resp.status == http.StatusNotFound {
		return ErrNotFound
	}
	if !resp.ok() {
		return errors.Errorf("unexpected status code %d", resp.status)
	}
	if !strings.Contains(resp.contentType, "application/json") {
		return errors.Wrapf(ErrUnexpectedContentType, "got %q", resp.contentType)
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

// UserEmail returns the email of a panel user; ok is false when the panel
// has no such user.
func (c *PanelHTTPClient) UserEmail(ctx context.Context, panelUserID int64) (string, bool, error) {
	var u entity.UserObject
	path := fmt.Sprintf("/api/application/users/%d", panelUserID)
	if err := c.getJSON(ctx, "user", path, &u); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		log.Printf("PanelClient: failed to fetch user %d: %v", panelUserID, err)
		return "", false, err
	}
	return u.Attributes.Email, true, nil
}

// GetCircuitBreaker exposes the breaker for health reporting.
func (c *PanelHTTPClient) GetCircuitBreaker() *gobreaker.CircuitBreaker {
	return c.cb
}
