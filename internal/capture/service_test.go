package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func newTestService(store Store, opts Options) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)), opts)
}

func TestServiceCreateInboxIssuesUniqueTokens(t *testing.T) {
	svc := newTestService(NewMemoryStore(), Options{})

	first, err := svc.CreateInbox(context.Background())
	if err != nil {
		t.Fatalf("create first inbox: %v", err)
	}
	second, err := svc.CreateInbox(context.Background())
	if err != nil {
		t.Fatalf("create second inbox: %v", err)
	}
	if first.Token == "" || first.Token == second.Token {
		t.Fatalf("expected distinct tokens, got %q and %q", first.Token, second.Token)
	}
}

func TestServiceRecordStoresRequest(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, Options{AutoCreateInbox: true})

	req, err := svc.Record(context.Background(), RecordInput{
		Token:       "tok",
		Method:      "POST",
		Path:        "/hook/tok",
		Query:       "source=test",
		Headers:     map[string][]string{"Content-Type": {"application/json"}},
		ContentType: "application/json",
		Body:        []byte(`[{"firstName":"Jane"}]`),
		RemoteAddr:  "127.0.0.1:9999",
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if req.ID == "" {
		t.Fatal("expected generated request ID")
	}
	if req.ReceivedAt.IsZero() {
		t.Fatal("expected ReceivedAt to be set")
	}

	stored, err := svc.Request(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !bytes.Equal(stored.Body, []byte(`[{"firstName":"Jane"}]`)) {
		t.Fatalf("unexpected stored body %q", stored.Body)
	}
	if stored.BodyTruncated {
		t.Fatal("body should not be truncated")
	}
}

func TestServiceRecordTruncatesOversizedBody(t *testing.T) {
	svc := newTestService(NewMemoryStore(), Options{AutoCreateInbox: true, MaxBodyBytes: 8})

	req, err := svc.Record(context.Background(), RecordInput{
		Token: "tok",
		Body:  []byte("0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if !req.BodyTruncated {
		t.Fatal("expected body to be marked truncated")
	}
	if string(req.Body) != "01234567" {
		t.Fatalf("unexpected truncated body %q", req.Body)
	}
}

func TestServiceRecordUnknownTokenWithoutAutoCreate(t *testing.T) {
	svc := newTestService(NewMemoryStore(), Options{AutoCreateInbox: false})

	if _, err := svc.Record(context.Background(), RecordInput{Token: "missing"}); !errors.Is(err, ErrInboxNotFound) {
		t.Fatalf("expected ErrInboxNotFound, got %v", err)
	}
}

func TestServiceRecordEmptyTokenRejected(t *testing.T) {
	svc := newTestService(NewMemoryStore(), Options{AutoCreateInbox: true})

	if _, err := svc.Record(context.Background(), RecordInput{}); !errors.Is(err, ErrInboxNotFound) {
		t.Fatalf("expected ErrInboxNotFound for empty token, got %v", err)
	}
}

func TestServiceRecordEnforcesRetentionCap(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, Options{AutoCreateInbox: true, MaxRequestsPerInbox: 3})

	for i := 0; i < 5; i++ {
		if _, err := svc.Record(context.Background(), RecordInput{Token: "tok", Method: "POST"}); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	page, err := svc.Requests(context.Background(), "tok", 10, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected retention cap of 3, got %d stored", page.Total)
	}
}

func TestServiceClear(t *testing.T) {
	svc := newTestService(NewMemoryStore(), Options{AutoCreateInbox: true})

	for i := 0; i < 4; i++ {
		if _, err := svc.Record(context.Background(), RecordInput{Token: "tok"}); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	removed, err := svc.Clear(context.Background(), "tok")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if removed != 4 {
		t.Fatalf("expected 4 removed, got %d", removed)
	}
}

func TestServiceRequestsClampsLimit(t *testing.T) {
	svc := newTestService(NewMemoryStore(), Options{AutoCreateInbox: true})

	for i := 0; i < 60; i++ {
		if _, err := svc.Record(context.Background(), RecordInput{Token: "tok"}); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	page, err := svc.Requests(context.Background(), "tok", 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Items) != 50 {
		t.Fatalf("expected default limit of 50, got %d", len(page.Items))
	}
}

func TestServiceProbeSurfacesStoreErrors(t *testing.T) {
	pingErr := errors.New("store down")
	svc := newTestService(NewMemoryStore().WithPingError(pingErr), Options{})

	if err := svc.Probe(context.Background()); !errors.Is(err, pingErr) {
		t.Fatalf("expected ping error, got %v", err)
	}
}
