package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"dashgg/internal/kv"
	"dashgg/internal/kv/repository"
	"dashgg/internal/linkpays/service"
	"dashgg/pkg/middleware"
)

type stubShortener struct {
	ready   bool
	err     error
	lastURL string
}

func (s *stubShortener) Ready() bool { return s.ready }

func (s *stubShortener) Shorten(_ context.Context, link, alias string) (string, error) {
	s.lastURL = link
	if s.err != nil {
		return "", s.err
	}
	return "https://lp.example/" + alias, nil
}

func withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, int64(7))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type fixture struct {
	router http.Handler
	sh     *stubShortener
	store  kv.Store
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sh:    &stubShortener{ready: true},
		store: repository.NewMemoryStore(),
		now:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	svc := service.NewService(f.store, kv.NewLocks(), f.sh, service.Settings{
		PublicURL:         "https://dash.example",
		AliasPrefix:       "dashgg",
		DailyLimit:        3,
		Cooldown:          10 * time.Minute,
		MinTimeToComplete: 30 * time.Second,
		Coins:             10,
		CacheSize:         10,
	}).WithClock(func() time.Time { return f.now })
	h := NewLinkpaysHandler(svc, "https://discord.gg/dashgg")

	r := chi.NewRouter()
	r.Use(withUser)
	r.Get("/linkpays/generate", h.Generate)
	r.Get("/linkpays/redeem/", h.Redeem)
	r.Get("/linkpays/redeem/{code}", h.Redeem)
	f.router = r
	return f
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGenerateReturnsLink(t *testing.T) {
	f := newFixture(t)
	rec := f.get("/linkpays/generate")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if !strings.HasPrefix(body["link"], "https://lp.example/dashgg") {
		t.Errorf("unexpected body %v", body)
	}
}

func TestGenerateErrorBodies(t *testing.T) {
	f := newFixture(t)
	f.sh.ready = false
	rec := f.get("/linkpays/generate")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), `"API_KEY_UNDEFINED"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	f = newFixture(t)
	f.sh.err = errors.New("boom")
	rec = f.get("/linkpays/generate")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), `"linkpaysERROR"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateDailyLimitRedirect(t *testing.T) {
	f := newFixture(t)
	kv.SetDaily(context.Background(), f.store, kv.DailyLinkpaysKey(7), 3, f.now, time.UTC)

	rec := f.get("/linkpays/generate")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/linkpays?err=REACHEDDAILYLIMIT" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRedeemFlow(t *testing.T) {
	f := newFixture(t)
	f.get("/linkpays/generate")
	code := f.sh.lastURL[strings.LastIndex(f.sh.lastURL, "/")+1:]

	f.now = f.now.Add(10 * time.Second)
	rec := f.get("/linkpays/redeem/" + code)
	if !strings.Contains(rec.Body.String(), "Error Code: HCLP002") {
		t.Fatalf("expected HCLP002 page, got %d %s", rec.Code, rec.Body.String())
	}

	f.get("/linkpays/generate")
	code = f.sh.lastURL[strings.LastIndex(f.sh.lastURL, "/")+1:]
	f.now = f.now.Add(time.Minute)

	rec = f.get("/linkpays/redeem/" + code)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/linkpays?err=SUCCESSlinkpays" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
	coins, _, _ := kv.GetInt64(context.Background(), f.store, kv.CoinsKey(7))
	if coins != 10 {
		t.Errorf("expected 10 coins, got %d", coins)
	}

	rec = f.get("/linkpays/redeem/" + code)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/linkpays" {
		t.Errorf("expected cooldown redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRedeemMissingCodePage(t *testing.T) {
	f := newFixture(t)
	rec := f.get("/linkpays/redeem/")

	body := rec.Body.String()
	if !strings.Contains(body, "Error Code: HCLP001") || !strings.Contains(body, `href="https://discord.gg/dashgg"`) {
		t.Errorf("unexpected page %s", body)
	}
}

func TestRedeemInvalidCodeRedirects(t *testing.T) {
	f := newFixture(t)
	rec := f.get("/linkpays/redeem/nope")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/linkpays" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
}
