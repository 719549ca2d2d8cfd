package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
)

type attr map[string]string

// fakeDynamo answers GetItem, PutItem and DeleteItem for a table keyed by "key".
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]attr
}

func (f *fakeDynamo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableName string
		Key       map[string]attr
		Item      map[string]attr
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")

	switch op := strings.TrimPrefix(r.Header.Get("X-Amz-Target"), "DynamoDB_20120810."); op {
	case "PutItem":
		f.items[req.Item["key"]["S"]] = req.Item
		w.Write([]byte(`{}`))
	case "GetItem":
		item, ok := f.items[req.Key["key"]["S"]]
		if !ok {
			w.Write([]byte(`{}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"Item": item})
	case "DeleteItem":
		delete(f.items, req.Key["key"]["S"])
		w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected operation "+op, http.StatusBadRequest)
	}
}

func TestDynamoStoreCRUD(t *testing.T) {
	fake := &fakeDynamo{items: map[string]map[string]attr{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewDynamoStoreWithConfig(&aws.Config{
		Region:      aws.String("us-east-1"),
		Endpoint:    aws.String(srv.URL),
		Credentials: credentials.NewStaticCredentials("id", "secret", ""),
		MaxRetries:  aws.Int(0),
	}, "kv")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "coins-1"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "coins-1", "150"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := s.Get(ctx, "coins-1")
	if err != nil || !ok || v != "150" {
		t.Errorf("expected 150, got %q ok=%v err=%v", v, ok, err)
	}
	if _, ok := fake.items["coins-1"]["updated_at"]; !ok {
		t.Error("expected updated_at attribute")
	}

	if err := s.Delete(ctx, "coins-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "coins-1"); ok {
		t.Error("expected key deleted")
	}
}
