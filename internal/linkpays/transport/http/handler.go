package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dashgg/internal/linkpays"
	"dashgg/internal/linkpays/service"
	"dashgg/pkg/middleware"
)

type Handler struct {
	LinkpaysService *service.Service
	SupportURL      string
}

func NewLinkpaysHandler(ls *service.Service, supportURL string) *Handler {
	return &Handler{LinkpaysService: ls, SupportURL: supportURL}
}

// Generate serves GET /linkpays/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	link, err := h.LinkpaysService.Generate(r.Context(), userID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"link": link})
	case errors.Is(err, service.ErrCooldown):
		http.Redirect(w, r, "/linkpays", http.StatusFound)
	case errors.Is(err, service.ErrDailyLimit):
		http.Redirect(w, r, "/linkpays?err=REACHEDDAILYLIMIT", http.StatusFound)
	case errors.Is(err, service.ErrNoCredentials):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "API_KEY_UNDEFINED"})
	default:
		if !errors.Is(err, service.ErrShortener) {
			log.Printf("LinkpaysHandler: generate for user %d failed: %v", userID, err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "linkpaysERROR"})
	}
}

// Redeem serves GET /linkpays/redeem/{code}.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	err := h.LinkpaysService.Redeem(r.Context(), userID, chi.URLParam(r, "code"))
	switch {
	case err == nil:
		http.Redirect(w, r, "/linkpays?err=SUCCESSlinkpays", http.StatusFound)
	case errors.Is(err, service.ErrMissingCode):
		h.errorPage(w, linkpays.ErrorPageMissingCode)
	case errors.Is(err, service.ErrTooEarly):
		h.errorPage(w, linkpays.ErrorPageTooEarly)
	case errors.Is(err, service.ErrCooldown), errors.Is(err, service.ErrInvalidCode):
		http.Redirect(w, r, "/linkpays", http.StatusFound)
	default:
		log.Printf("LinkpaysHandler: redeem for user %d failed: %v", userID, err)
		http.Error(w, "failed to redeem", http.StatusInternalServerError)
	}
}

const errorPageTmpl = `<body style="background-color: #1b1c1d;"><center>` +
	`<h1 style="color: white">Error Code: %s</h1><br>` +
	`<h2 style="color: white">You can get more information about this code on our ` +
	`<a style="color: white" href="%s">support</a> server!</h2></center>`

func (h *Handler) errorPage(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, errorPageTmpl, code, html.EscapeString(h.SupportURL))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
