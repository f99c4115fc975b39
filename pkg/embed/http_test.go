package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/schedflow/schedflow/internal/model"
)

func TestEmbedSendsTitleAndNotes(t *testing.T) {
	var gotInput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}
		gotInput = req.Input
		json.NewEncoder(w).Encode(embedResponse{Vector: []float32{0.1, 0.2}}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: time.Second})
	vec, err := c.Embed(context.Background(), model.Event{Title: "Standup", Notes: "daily sync"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 {
		t.Fatalf("vector = %v", vec)
	}
	if gotInput != "Standup:daily sync" {
		t.Fatalf("input = %q", gotInput)
	}
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Vector: []float32{0.5}}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: time.Second, Retries: 2})
	if _, err := c.Embed(context.Background(), model.Event{Title: "x"}); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestEmbedDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: time.Second, Retries: 3})
	if _, err := c.Embed(context.Background(), model.Event{Title: "x"}); err == nil {
		t.Fatal("expected an error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on 400)", calls.Load())
	}
}

func TestEmbedRejectsEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: time.Second})
	if _, err := c.Embed(context.Background(), model.Event{Title: "x"}); err == nil {
		t.Fatal("expected an error for an empty vector")
	}
}
