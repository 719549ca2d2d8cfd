package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"dashgg/internal/renewal"
	"dashgg/internal/renewal/service"
	"dashgg/pkg/middleware"
)

type Handler struct {
	RenewalService *service.Service
}

func NewRenewalHandler(rs *service.Service) *Handler {
	return &Handler{RenewalService: rs}
}

func owner(r *http.Request) (renewal.Owner, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		return renewal.Owner{}, false
	}
	panelUserID, _ := middleware.PanelUserID(r.Context())
	return renewal.Owner{UserID: userID, PanelUserID: panelUserID}, true
}

// Status serves GET /api/renewalstatus?id=.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	o, ok := owner(r)
	if !ok {
		json.NewEncoder(w).Encode(map[string]bool{"error": true})
		return
	}

	status, err := h.RenewalService.Status(r.Context(), o, r.URL.Query().Get("id"))
	if err != nil {
		if !isGuard(err) {
			log.Printf("RenewalHandler: status for user %d failed: %v", o.UserID, err)
		}
		json.NewEncoder(w).Encode(map[string]bool{"error": true})
		return
	}
	json.NewEncoder(w).Encode(status)
}

// Renew serves GET /renew?id= as a browser navigation.
func (h *Handler) Renew(w http.ResponseWriter, r *http.Request) {
	o, ok := owner(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	err := h.RenewalService.Renew(r.Context(), o, r.URL.Query().Get("id"))
	switch {
	case err == nil:
		http.Redirect(w, r, "/dashboard?success=RENEWED", http.StatusFound)
	case errors.Is(err, service.ErrDisabled):
		plain(w, "Renewals are currently disabled.")
	case errors.Is(err, service.ErrMissingID):
		plain(w, "Missing ID.")
	case errors.Is(err, service.ErrNotOwned):
		plain(w, "No server with that ID was found!")
	case errors.Is(err, service.ErrCannotAfford):
		http.Redirect(w, r, "/dashboard?err=CANNOTAFFORDRENEWAL", http.StatusFound)
	case errors.Is(err, service.ErrUnsuspendFailed):
		http.Redirect(w, r, "/dashboard?err=UNSUSPEND_FAILED", http.StatusFound)
	default:
		log.Printf("RenewalHandler: renew for user %d failed: %v", o.UserID, err)
		http.Redirect(w, r, "/dashboard?err=RENEWAL_FAILED", http.StatusFound)
	}
}

func isGuard(err error) bool {
	return errors.Is(err, service.ErrDisabled) ||
		errors.Is(err, service.ErrMissingID) ||
		errors.Is(err, service.ErrNotOwned)
}

func plain(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(msg))
}
