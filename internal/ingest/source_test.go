package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchNormalizesFieldVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/replies/MINT123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "25" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "a1", "text": "go up", "username": "alice", "created_at": "2024-03-01T12:00:00Z"},
			{"id": 42, "content": "move down please", "user": {"username": "bob"}, "timestamp": 1709294400000},
			{"text": "left!", "timestamp": "2024-03-01T13:00:00Z"},
			{"id": "empty", "username": "carol"}
		]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "MINT123")
	got, err := src.Fetch(context.Background(), 25)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d replies, want 3 (empty-text reply skipped)", len(got))
	}

	if got[0].ID != "a1" || got[0].Username != "alice" || got[0].Text != "go up" {
		t.Errorf("reply 0 = %+v", got[0])
	}
	if !got[0].CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("reply 0 created_at = %v", got[0].CreatedAt)
	}

	if got[1].ID != "42" {
		t.Errorf("numeric id = %q, want \"42\"", got[1].ID)
	}
	if got[1].Username != "bob" || got[1].Text != "move down please" {
		t.Errorf("reply 1 = %+v", got[1])
	}
	if got[1].CreatedAt.Unix() != 1709294400 {
		t.Errorf("reply 1 unix-millis timestamp = %v", got[1].CreatedAt)
	}

	if got[2].ID == "" {
		t.Error("missing id was not synthesized")
	}
	if got[2].Username != "" || got[2].Text != "left!" {
		t.Errorf("reply 2 = %+v", got[2])
	}
}

func TestFetchNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream hiccup", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "m")
	if _, err := src.Fetch(context.Background(), 10); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestFetchMalformedBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"not": "an array"`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "m")
	if _, err := src.Fetch(context.Background(), 10); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSyntheticIDStable(t *testing.T) {
	a := syntheticID("alice", "go up")
	b := syntheticID("alice", "go up")
	c := syntheticID("alice", "go down")
	if a != b {
		t.Error("same contents produced different ids")
	}
	if a == c {
		t.Error("different contents produced the same id")
	}
}
