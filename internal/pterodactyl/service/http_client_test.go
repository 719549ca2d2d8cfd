package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*PanelHTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewPanelHTTPClient(srv.URL+"/", "ptla_test", 2), srv
}

func TestSuspendSendsBearerPost(t *testing.T) {
	var gotPath, gotAuth, gotMethod string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth, gotMethod = r.URL.Path, r.Header.Get("Authorization"), r.Method
		w.WriteHeader(http.StatusNoContent)
	})

	if !c.Suspend(context.Background(), 17) {
		t.Fatal("expected suspend to succeed")
	}
	if gotMethod != http.MethodPost || gotPath != "/api/application/servers/17/suspend" {
		t.Errorf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer ptla_test" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
}

func TestUnsuspendFailureStatuses(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusInternalServerError} {
		t.Run(strconv.Itoa(status), func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})
			if c.Unsuspend(context.Background(), 1) {
				t.Errorf("expected failure for status %d", status)
			}
		})
	}
}

func TestUnsuspendTransportError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	if c.Unsuspend(context.Background(), 1) {
		t.Error("expected failure when panel is unreachable")
	}
}

func TestListServersFollowsPages(t *testing.T) {
	var pages []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/application/servers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("per_page") != "2" {
			t.Errorf("expected per_page=2, got %s", r.URL.RawQuery)
		}
		page := r.URL.Query().Get("page")
		pages = append(pages, page)

		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "1":
			fmt.Fprint(w, `{"object":"list","data":[
				{"object":"server","attributes":{"id":1,"name":"a"}},
				{"object":"server","attributes":{"id":2,"name":"b"}}],
				"meta":{"pagination":{"total":3,"per_page":2,"current_page":1,"total_pages":2}}}`)
		default:
			fmt.Fprint(w, `{"object":"list","data":[
				{"object":"server","attributes":{"id":3,"name":"c","suspended":true}}],
				"meta":{"pagination":{"total":3,"per_page":2,"current_page":2,"total_pages":2}}}`)
		}
	})

	servers, err := c.ListServers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(servers) != 3 || servers[2].ID != 3 || !servers[2].Suspended {
		t.Errorf("unexpected servers: %+v", servers)
	}
	if len(pages) != 2 {
		t.Errorf("expected 2 page requests, got %v", pages)
	}
}

func TestListServersEmptyOnFailure(t *testing.T) {
	cases := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}},
		{"content type", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html>maintenance</html>")
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data": "nope"`)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, tc.h)
			servers, err := c.ListServers(context.Background())
			if err == nil {
				t.Error("expected error")
			}
			if servers == nil || len(servers) != 0 {
				t.Errorf("expected empty non-nil list, got %#v", servers)
			}
		})
	}
}

func TestListServersContentTypeError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
	})
	_, err := c.ListServers(context.Background())
	if !errors.Is(err, ErrUnexpectedContentType) {
		t.Errorf("expected ErrUnexpectedContentType, got %v", err)
	}
}

func TestUserServers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/application/users/42" || r.URL.Query().Get("include") != "servers" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		fmt.Fprint(w, `{"object":"user","attributes":{"id":42,"username":"steve",
			"relationships":{"servers":{"object":"list","data":[
				{"object":"server","attributes":{"id":7,"user":42}},
				{"object":"server","attributes":{"id":9,"user":42}}]}}}}`)
	})

	servers, err := c.UserServers(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(servers) != 2 || servers[0].ID != 7 || servers[1].ID != 9 {
		t.Errorf("unexpected servers: %+v", servers)
	}
}

func TestUserEmail(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/application/users/42":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"object":"user","attributes":{"id":42,"username":"steve","email":"steve@example.com"}}`)
		case "/api/application/users/43":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	ctx := context.Background()

	email, ok, err := c.UserEmail(ctx, 42)
	if err != nil || !ok || email != "steve@example.com" {
		t.Errorf("expected steve@example.com, got %q ok=%v err=%v", email, ok, err)
	}
	if _, ok, err := c.UserEmail(ctx, 43); err != nil || ok {
		t.Errorf("expected unknown user, got ok=%v err=%v", ok, err)
	}
	if _, _, err := c.UserEmail(ctx, 44); err == nil {
		t.Error("expected error on 5xx")
	}
}
