package capture

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fakewire/fakewire/internal/domain"
)

func seedRequests(t *testing.T, store *MemoryStore, token string, n int) {
	t.Helper()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if _, err := store.CreateInbox(context.Background(), token, base); err != nil {
		t.Fatalf("create inbox: %v", err)
	}
	for i := 0; i < n; i++ {
		req := domain.CapturedRequest{
			ID:         fmt.Sprintf("req-%03d", i+1),
			Token:      token,
			Method:     "POST",
			Path:       "/hook/" + token,
			ReceivedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.SaveRequest(context.Background(), req); err != nil {
			t.Fatalf("save request %d: %v", i, err)
		}
	}
}

func TestMemoryStoreCreateInboxRejectsDuplicates(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UTC()

	if _, err := store.CreateInbox(context.Background(), "tok", now); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := store.CreateInbox(context.Background(), "tok", now); err != ErrInboxExists {
		t.Fatalf("expected ErrInboxExists, got %v", err)
	}
}

func TestMemoryStoreListRequestsNewestFirstWithPaging(t *testing.T) {
	store := NewMemoryStore()
	seedRequests(t, store, "tok", 5)

	page, err := store.ListRequests(context.Background(), "tok", 2, 0)
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Total)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if page.Items[0].ID != "req-005" || page.Items[1].ID != "req-004" {
		t.Fatalf("expected newest first, got %s then %s", page.Items[0].ID, page.Items[1].ID)
	}

	page, err = store.ListRequests(context.Background(), "tok", 2, 4)
	if err != nil {
		t.Fatalf("list last page: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "req-001" {
		t.Fatalf("unexpected last page %+v", page.Items)
	}
}

func TestMemoryStoreListRequestsUnknownToken(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.ListRequests(context.Background(), "missing", 10, 0); err != ErrInboxNotFound {
		t.Fatalf("expected ErrInboxNotFound, got %v", err)
	}
}

func TestMemoryStoreTrimKeepsNewest(t *testing.T) {
	store := NewMemoryStore()
	seedRequests(t, store, "tok", 6)

	dropped, err := store.TrimRequests(context.Background(), "tok", 4)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if dropped != 2 {
		t.Fatalf("expected 2 dropped, got %d", dropped)
	}

	page, err := store.ListRequests(context.Background(), "tok", 10, 0)
	if err != nil {
		t.Fatalf("list after trim: %v", err)
	}
	if page.Total != 4 {
		t.Fatalf("expected 4 remaining, got %d", page.Total)
	}
	if page.Items[len(page.Items)-1].ID != "req-003" {
		t.Fatalf("expected oldest remaining to be req-003, got %s", page.Items[len(page.Items)-1].ID)
	}

	// The trimmed requests are gone from ID lookup as well.
	if _, err := store.GetRequest(context.Background(), "req-001"); err != ErrRequestNotFound {
		t.Fatalf("expected ErrRequestNotFound for trimmed request, got %v", err)
	}
}

func TestMemoryStoreDeleteRequests(t *testing.T) {
	store := NewMemoryStore()
	seedRequests(t, store, "tok", 3)

	removed, err := store.DeleteRequests(context.Background(), "tok")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	inbox, err := store.GetInbox(context.Background(), "tok")
	if err != nil {
		t.Fatalf("get inbox: %v", err)
	}
	if inbox.RequestCount != 0 {
		t.Fatalf("expected empty inbox, got %d requests", inbox.RequestCount)
	}
}

func TestMemoryStoreListInboxesNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, token := range []string{"older", "newer"} {
		if _, err := store.CreateInbox(context.Background(), token, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("create %s: %v", token, err)
		}
	}

	inboxes, err := store.ListInboxes(context.Background())
	if err != nil {
		t.Fatalf("list inboxes: %v", err)
	}
	if len(inboxes) != 2 || inboxes[0].Token != "newer" || inboxes[1].Token != "older" {
		t.Fatalf("unexpected order %+v", inboxes)
	}
}
