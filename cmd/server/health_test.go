package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker"
)

func TestHealthReportsBreakers(t *testing.T) {
	panel := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pterodactyl-api",
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	shortener := gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "shortener-api"})
	h := healthHandler(panel, shortener)

	get := func() healthResponse {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp healthResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp
	}

	resp := get()
	if resp.Status != "ok" || resp.Breakers["pterodactyl-api"] != "closed" || resp.Breakers["shortener-api"] != "closed" {
		t.Errorf("unexpected health %+v", resp)
	}

	panel.Execute(func() (interface{}, error) { return nil, errors.New("down") })

	resp = get()
	if resp.Status != "degraded" || resp.Breakers["pterodactyl-api"] != "open" {
		t.Errorf("expected degraded with open panel breaker, got %+v", resp)
	}
}
