package main

import (
	"encoding/json"
	"net/http"

	"github.com/sony/gobreaker"
)

type healthResponse struct {
	Status   string            `json:"status"`
	Breakers map[string]string `json:"breakers"`
}

// healthHandler always answers 200. An open breaker only turns the status to
// "degraded".
func healthHandler(breakers ...*gobreaker.CircuitBreaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Breakers: make(map[string]string, len(breakers))}
		for _, cb := range breakers {
			state := cb.State()
			resp.Breakers[cb.Name()] = state.String()
			if state == gobreaker.StateOpen {
				resp.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
