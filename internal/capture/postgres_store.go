package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fakewire/fakewire/internal/domain"
)

// PostgresStore persists inboxes and captured requests in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS inboxes (
	token      TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS captured_requests (
	id             TEXT PRIMARY KEY,
	token          TEXT NOT NULL REFERENCES inboxes(token) ON DELETE CASCADE,
	method         TEXT NOT NULL,
	path           TEXT NOT NULL,
	query          TEXT NOT NULL DEFAULT '',
	headers        JSONB NOT NULL DEFAULT '{}',
	content_type   TEXT NOT NULL DEFAULT '',
	body           BYTEA,
	body_truncated BOOLEAN NOT NULL DEFAULT FALSE,
	remote_addr    TEXT NOT NULL DEFAULT '',
	received_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS captured_requests_token_received_idx
	ON captured_requests (token, received_at DESC);
`

// NewPostgresStore connects to Postgres, verifies connectivity and ensures
// the capture schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure capture schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// CreateInbox registers a new inbox for the token.
func (s *PostgresStore) CreateInbox(ctx context.Context, token string, createdAt time.Time) (domain.Inbox, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO inboxes (token, created_at) VALUES ($1, $2) ON CONFLICT (token) DO NOTHING`,
		token, createdAt,
	)
	if err != nil {
		return domain.Inbox{}, fmt.Errorf("insert inbox: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Inbox{}, ErrInboxExists
	}
	return domain.Inbox{Token: token, CreatedAt: createdAt}, nil
}

// GetInbox returns the inbox for the token including its request count.
func (s *PostgresStore) GetInbox(ctx context.Context, token string) (domain.Inbox, error) {
	var inbox domain.Inbox
	err := s.pool.QueryRow(ctx, `
		SELECT i.token, i.created_at,
			(SELECT COUNT(*) FROM captured_requests r WHERE r.token = i.token)
		FROM inboxes i
		WHERE i.token = $1`,
		token,
	).Scan(&inbox.Token, &inbox.CreatedAt, &inbox.RequestCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Inbox{}, ErrInboxNotFound
	}
	if err != nil {
		return domain.Inbox{}, fmt.Errorf("get inbox: %w", err)
	}
	return inbox, nil
}

// ListInboxes returns all inboxes, newest first.
func (s *PostgresStore) ListInboxes(ctx context.Context) ([]domain.Inbox, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.token, i.created_at,
			(SELECT COUNT(*) FROM captured_requests r WHERE r.token = i.token)
		FROM inboxes i
		ORDER BY i.created_at DESC, i.token`)
	if err != nil {
		return nil, fmt.Errorf("list inboxes: %w", err)
	}
	defer rows.Close()

	inboxes := make([]domain.Inbox, 0)
	for rows.Next() {
		var inbox domain.Inbox
		if err := rows.Scan(&inbox.Token, &inbox.CreatedAt, &inbox.RequestCount); err != nil {
			return nil, fmt.Errorf("scan inbox: %w", err)
		}
		inboxes = append(inboxes, inbox)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inboxes: %w", err)
	}
	return inboxes, nil
}

// SaveRequest appends a captured request to its inbox.
func (s *PostgresStore) SaveRequest(ctx context.Context, req domain.CapturedRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO captured_requests
			(id, token, method, path, query, headers, content_type, body, body_truncated, remote_addr, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.Token, req.Method, req.Path, req.Query, req.Headers,
		req.ContentType, req.Body, req.BodyTruncated, req.RemoteAddr, req.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert captured request: %w", err)
	}
	return nil
}

// ListRequests pages through an inbox, newest first.
func (s *PostgresStore) ListRequests(ctx context.Context, token string, limit, offset int) (domain.RequestPage, error) {
	if _, err := s.GetInbox(ctx, token); err != nil {
		return domain.RequestPage{}, err
	}

	page := domain.RequestPage{Items: []domain.CapturedRequest{}}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM captured_requests WHERE token = $1`, token,
	).Scan(&page.Total)
	if err != nil {
		return domain.RequestPage{}, fmt.Errorf("count captured requests: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, token, method, path, query, headers, content_type, body, body_truncated, remote_addr, received_at
		FROM captured_requests
		WHERE token = $1
		ORDER BY received_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		token, limit, offset,
	)
	if err != nil {
		return domain.RequestPage{}, fmt.Errorf("list captured requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return domain.RequestPage{}, err
		}
		page.Items = append(page.Items, req)
	}
	if err := rows.Err(); err != nil {
		return domain.RequestPage{}, fmt.Errorf("iterate captured requests: %w", err)
	}
	return page, nil
}

// GetRequest looks up a single captured request by ID.
func (s *PostgresStore) GetRequest(ctx context.Context, id string) (domain.CapturedRequest, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, token, method, path, query, headers, content_type, body, body_truncated, remote_addr, received_at
		FROM captured_requests
		WHERE id = $1`,
		id,
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CapturedRequest{}, ErrRequestNotFound
	}
	if err != nil {
		return domain.CapturedRequest{}, err
	}
	return req, nil
}

// DeleteRequests removes all captured requests for the token.
func (s *PostgresStore) DeleteRequests(ctx context.Context, token string) (int, error) {
	if _, err := s.GetInbox(ctx, token); err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM captured_requests WHERE token = $1`, token)
	if err != nil {
		return 0, fmt.Errorf("delete captured requests: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// TrimRequests drops the oldest requests so at most keep remain.
func (s *PostgresStore) TrimRequests(ctx context.Context, token string, keep int) (int, error) {
	if keep < 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM captured_requests
		WHERE token = $1 AND id NOT IN (
			SELECT id FROM captured_requests
			WHERE token = $1
			ORDER BY received_at DESC, id DESC
			LIMIT $2
		)`,
		token, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("trim captured requests: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

func scanRequest(row pgx.Row) (domain.CapturedRequest, error) {
	var req domain.CapturedRequest
	err := row.Scan(
		&req.ID, &req.Token, &req.Method, &req.Path, &req.Query, &req.Headers,
		&req.ContentType, &req.Body, &req.BodyTruncated, &req.RemoteAddr, &req.ReceivedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CapturedRequest{}, err
		}
		return domain.CapturedRequest{}, fmt.Errorf("scan captured request: %w", err)
	}
	return req, nil
}
