package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fakewire/fakewire/internal/domain"
)

// Options tunes capture behaviour.
type Options struct {
	// MaxBodyBytes caps how much of a request body is stored; larger bodies
	// are truncated, never rejected.
	MaxBodyBytes int
	// MaxRequestsPerInbox caps retained requests per inbox; the oldest are
	// trimmed when the cap is exceeded. Zero disables trimming.
	MaxRequestsPerInbox int
	// AutoCreateInbox makes the first request to an unknown token create the
	// inbox instead of failing.
	AutoCreateInbox bool
}

// Service implements the capture operations on top of a Store.
type Service struct {
	store  Store
	logger *slog.Logger
	opts   Options
}

// NewService constructs a capture Service.
func NewService(store Store, logger *slog.Logger, opts Options) *Service {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 * 1024
	}
	return &Service{
		store:  store,
		logger: logger,
		opts:   opts,
	}
}

// MaxBodyBytes reports the configured body storage cap, so transports can
// bound how much they read before handing the body over.
func (s *Service) MaxBodyBytes() int {
	return s.opts.MaxBodyBytes
}

// RecordInput carries the raw material of an inbound hook request.
type RecordInput struct {
	Token       string
	Method      string
	Path        string
	Query       string
	Headers     map[string][]string
	ContentType string
	Body        []byte
	RemoteAddr  string
}

// CreateInbox issues a fresh inbox token.
func (s *Service) CreateInbox(ctx context.Context) (domain.Inbox, error) {
	inbox, err := s.store.CreateInbox(ctx, uuid.NewString(), time.Now().UTC())
	if err != nil {
		return domain.Inbox{}, fmt.Errorf("create inbox: %w", err)
	}
	s.logger.Info("inbox created", "token", inbox.Token)
	return inbox, nil
}

// Inbox returns a single inbox by token.
func (s *Service) Inbox(ctx context.Context, token string) (domain.Inbox, error) {
	return s.store.GetInbox(ctx, token)
}

// Inboxes lists all known inboxes.
func (s *Service) Inboxes(ctx context.Context) ([]domain.Inbox, error) {
	return s.store.ListInboxes(ctx)
}

// Record stores an inbound request against its inbox, truncating oversized
// bodies and trimming the inbox to the retention cap.
func (s *Service) Record(ctx context.Context, in RecordInput) (domain.CapturedRequest, error) {
	if in.Token == "" {
		return domain.CapturedRequest{}, ErrInboxNotFound
	}

	if _, err := s.store.GetInbox(ctx, in.Token); err != nil {
		if !errors.Is(err, ErrInboxNotFound) || !s.opts.AutoCreateInbox {
			return domain.CapturedRequest{}, err
		}
		if _, err := s.store.CreateInbox(ctx, in.Token, time.Now().UTC()); err != nil && !errors.Is(err, ErrInboxExists) {
			return domain.CapturedRequest{}, fmt.Errorf("auto-create inbox: %w", err)
		}
		s.logger.Info("inbox auto-created", "token", in.Token)
	}

	body := in.Body
	truncated := false
	if len(body) > s.opts.MaxBodyBytes {
		body = body[:s.opts.MaxBodyBytes]
		truncated = true
	}

	req := domain.CapturedRequest{
		ID:            uuid.NewString(),
		Token:         in.Token,
		Method:        in.Method,
		Path:          in.Path,
		Query:         in.Query,
		Headers:       in.Headers,
		ContentType:   in.ContentType,
		Body:          body,
		BodyTruncated: truncated,
		RemoteAddr:    in.RemoteAddr,
		ReceivedAt:    time.Now().UTC(),
	}

	if err := s.store.SaveRequest(ctx, req); err != nil {
		return domain.CapturedRequest{}, fmt.Errorf("save captured request: %w", err)
	}

	if s.opts.MaxRequestsPerInbox > 0 {
		dropped, err := s.store.TrimRequests(ctx, in.Token, s.opts.MaxRequestsPerInbox)
		if err != nil {
			// The request itself is stored; retention failure is not fatal.
			s.logger.Warn("trimming inbox failed", "error", err, "token", in.Token)
		} else if dropped > 0 {
			s.logger.Debug("trimmed inbox", "token", in.Token, "dropped", dropped)
		}
	}

	return req, nil
}

// Requests pages through an inbox, newest first.
func (s *Service) Requests(ctx context.Context, token string, limit, offset int) (domain.RequestPage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListRequests(ctx, token, limit, offset)
}

// Request returns a single captured request by ID.
func (s *Service) Request(ctx context.Context, id string) (domain.CapturedRequest, error) {
	return s.store.GetRequest(ctx, id)
}

// Clear removes all captured requests for the token and reports how many
// were deleted.
func (s *Service) Clear(ctx context.Context, token string) (int, error) {
	return s.store.DeleteRequests(ctx, token)
}

// Probe verifies the backing store is reachable.
func (s *Service) Probe(ctx context.Context) error {
	return s.store.Ping(ctx)
}
