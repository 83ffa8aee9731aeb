package capture

import (
	"context"
	"errors"
	"time"

	"github.com/fakewire/fakewire/internal/domain"
)

// Store defines the contract the capture service needs from its persistence
// backend. Requests are listed newest first.
type Store interface {
	CreateInbox(ctx context.Context, token string, createdAt time.Time) (domain.Inbox, error)
	GetInbox(ctx context.Context, token string) (domain.Inbox, error)
	ListInboxes(ctx context.Context) ([]domain.Inbox, error)
	SaveRequest(ctx context.Context, req domain.CapturedRequest) error
	ListRequests(ctx context.Context, token string, limit, offset int) (domain.RequestPage, error)
	GetRequest(ctx context.Context, id string) (domain.CapturedRequest, error)
	DeleteRequests(ctx context.Context, token string) (int, error)
	TrimRequests(ctx context.Context, token string, keep int) (int, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	// ErrInboxNotFound indicates no inbox exists for the given token.
	ErrInboxNotFound = errors.New("inbox not found")
	// ErrInboxExists indicates an inbox with the token already exists.
	ErrInboxExists = errors.New("inbox already exists")
	// ErrRequestNotFound indicates no captured request has the given ID.
	ErrRequestNotFound = errors.New("captured request not found")
)
