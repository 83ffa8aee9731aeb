package domain

import "time"

// Inbox represents a capture endpoint identified by its token. Any request
// sent to /hook/{token} is recorded against the inbox.
type Inbox struct {
	Token        string
	CreatedAt    time.Time
	RequestCount int
}

// CapturedRequest stores everything the capture server saw for a single
// inbound HTTP request.
type CapturedRequest struct {
	ID            string
	Token         string
	Method        string
	Path          string
	Query         string
	Headers       map[string][]string
	ContentType   string
	Body          []byte
	BodyTruncated bool
	RemoteAddr    string
	ReceivedAt    time.Time
}

// RequestPage is a slice of captured requests plus the total count for the
// inbox, newest first.
type RequestPage struct {
	Items []CapturedRequest
	Total int
}
