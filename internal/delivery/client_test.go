package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fakewire/fakewire/internal/domain"
)

func testPeople(n int) []domain.Person {
	people := make([]domain.Person, n)
	for i := range people {
		people[i] = domain.Person{
			ID:        "PER-000001",
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     "jane.doe@example.com",
			Phone:     "+12025550123",
		}
	}
	return people
}

func newTestClient(t *testing.T, serverURL string, attempts int) *Client {
	t.Helper()
	client, err := NewClient(Options{
		WebhookURL:     serverURL,
		RequestTimeout: 2 * time.Second,
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClientPostsJSONArray(t *testing.T) {
	var gotContentType, gotAccept string
	var gotBody []domain.Person

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 1)
	if err := client.SendPeople(context.Background(), testPeople(3)); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if gotContentType != "application/json" {
		t.Fatalf("expected application/json content type, got %q", gotContentType)
	}
	if gotAccept != "application/json" {
		t.Fatalf("expected application/json accept header, got %q", gotAccept)
	}
	if len(gotBody) != 3 {
		t.Fatalf("expected 3 records in payload, got %d", len(gotBody))
	}
	if gotBody[0].Email != "jane.doe@example.com" {
		t.Fatalf("unexpected first record %+v", gotBody[0])
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 5)
	if err := client.SendPeople(context.Background(), testPeople(1)); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 5)
	err := client.SendPeople(context.Background(), testPeople(1))
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", statusErr.StatusCode)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)
	err := client.SendPeople(context.Background(), testPeople(1))
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestNewClientRejectsBadURLs(t *testing.T) {
	for _, raw := range []string{"", "not-a-url", "ftp://example.com/hook", "/relative/path"} {
		if _, err := NewClient(Options{WebhookURL: raw}); !errors.Is(err, ErrInvalidWebhookURL) {
			t.Fatalf("expected ErrInvalidWebhookURL for %q, got %v", raw, err)
		}
	}
}
