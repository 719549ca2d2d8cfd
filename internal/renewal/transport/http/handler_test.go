package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"dashgg/internal/kv"
	"dashgg/internal/kv/repository"
	"dashgg/internal/pterodactyl/entity"
	"dashgg/internal/renewal/service"
	"dashgg/pkg/middleware"
)

type stubPanel struct {
	unsuspendOK bool
	unsuspends  int
}

func (p *stubPanel) Suspend(context.Context, int64) bool { return true }

func (p *stubPanel) Unsuspend(context.Context, int64) bool {
	p.unsuspends++
	return p.unsuspendOK
}

func (p *stubPanel) ListServers(context.Context) ([]entity.Server, error) {
	return []entity.Server{}, nil
}

func (p *stubPanel) UserServers(_ context.Context, panelUserID int64) ([]entity.Server, error) {
	return []entity.Server{{ID: 5, User: panelUserID}}, nil
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// withSession stands in for the JWT middleware.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, int64(1))
		ctx = context.WithValue(ctx, middleware.PanelUserIDKey, int64(40))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRouter(t *testing.T, enabled bool, panel *stubPanel) (http.Handler, kv.Store) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := service.NewService(store, kv.NewLocks(), panel, service.Settings{Enabled: enabled, DelayDays: 7, Cost: 100}).
		WithClock(func() time.Time { return now })
	h := NewRenewalHandler(svc)

	r := chi.NewRouter()
	r.Use(withSession)
	r.Get("/api/renewalstatus", h.Status)
	r.Get("/renew", h.Renew)
	return r, store
}

func TestRenewOutcomes(t *testing.T) {
	cases := []struct {
		name     string
		enabled  bool
		coins    int64
		unsusp   bool
		query    string
		wantCode int
		wantLoc  string
		wantBody string
	}{
		{"disabled", false, 500, true, "?id=5", http.StatusOK, "", "Renewals are currently disabled."},
		{"missing id", true, 500, true, "", http.StatusOK, "", "Missing ID."},
		{"not owned", true, 500, true, "?id=9", http.StatusOK, "", "No server with that ID was found!"},
		{"cannot afford", true, 50, true, "?id=5", http.StatusFound, "/dashboard?err=CANNOTAFFORDRENEWAL", ""},
		{"unsuspend failed", true, 500, false, "?id=5", http.StatusFound, "/dashboard?err=UNSUSPEND_FAILED", ""},
		{"renewed", true, 500, true, "?id=5", http.StatusFound, "/dashboard?success=RENEWED", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, store := newRouter(t, tc.enabled, &stubPanel{unsuspendOK: tc.unsusp})
			kv.SetInt64(context.Background(), store, kv.CoinsKey(1), tc.coins)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/renew"+tc.query, nil))

			if rec.Code != tc.wantCode {
				t.Fatalf("expected status %d, got %d", tc.wantCode, rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != tc.wantLoc {
				t.Errorf("expected location %q, got %q", tc.wantLoc, loc)
			}
			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRenewWithoutSessionRedirectsToLogin(t *testing.T) {
	svc := service.NewService(repository.NewMemoryStore(), kv.NewLocks(), &stubPanel{}, service.Settings{Enabled: true, DelayDays: 7})
	h := NewRenewalHandler(svc)

	rec := httptest.NewRecorder()
	h.Renew(rec, httptest.NewRequest(http.MethodGet, "/renew?id=5", nil))

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestStatusJSON(t *testing.T) {
	router, store := newRouter(t, true, &stubPanel{})
	kv.SetBool(context.Background(), store, kv.SuspendedKey(5), true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/renewalstatus?id=5", nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["suspended"] != true || body["text"] != "Server is suspended. Click on renew to unsuspend." {
		t.Errorf("unexpected body %v", body)
	}
}

func TestStatusErrorShape(t *testing.T) {
	router, _ := newRouter(t, true, &stubPanel{})

	for _, q := range []string{"", "?id=9"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/renewalstatus"+q, nil))
		if got := rec.Body.String(); got != "{\"error\":true}\n" {
			t.Errorf("query %q: expected error body, got %q", q, got)
		}
	}
}
