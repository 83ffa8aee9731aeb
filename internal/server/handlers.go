package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fakewire/fakewire/internal/capture"
	"github.com/fakewire/fakewire/internal/domain"
)

// APIHandlers exposes the capture and inspection HTTP handlers.
type APIHandlers struct {
	logger  *slog.Logger
	service *capture.Service
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *capture.Service) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

type inboxResponse struct {
	Token        string `json:"token"`
	HookPath     string `json:"hookPath"`
	CreatedAt    string `json:"createdAt"`
	RequestCount int    `json:"requestCount"`
}

type requestSummary struct {
	ID            string `json:"id"`
	Method        string `json:"method"`
	Path          string `json:"path"`
	Query         string `json:"query,omitempty"`
	ContentType   string `json:"contentType,omitempty"`
	BodySize      int    `json:"bodySize"`
	BodyTruncated bool   `json:"bodyTruncated"`
	RemoteAddr    string `json:"remoteAddr,omitempty"`
	ReceivedAt    string `json:"receivedAt"`
}

type requestDetail struct {
	requestSummary
	Headers map[string][]string `json:"headers"`
	Body    string              `json:"body"`
}

type requestListResponse struct {
	Token string           `json:"token"`
	Total int              `json:"total"`
	Items []requestSummary `json:"items"`
}

type captureAck struct {
	Status    string `json:"status"`
	RequestID string `json:"requestId"`
}

type clearResponse struct {
	Token   string `json:"token"`
	Removed int    `json:"removed"`
}

// handleHook records any request sent to /hook/{token}[/...].
func (h *APIHandlers) handleHook(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/hook/")
	token, _, _ := strings.Cut(rest, "/")
	token = strings.TrimSpace(token)
	if token == "" {
		writeError(w, http.StatusNotFound, "inbox token is required")
		return
	}

	limit := int64(h.service.MaxBodyBytes()) + 1
	body, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	captured, err := h.service.Record(r.Context(), capture.RecordInput{
		Token:       token,
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		Headers:     r.Header,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
		RemoteAddr:  r.RemoteAddr,
	})
	if err != nil {
		if errors.Is(err, capture.ErrInboxNotFound) {
			writeError(w, http.StatusNotFound, "unknown inbox token")
			return
		}
		h.logger.Error("failed to record request", "error", err, "token", token)
		writeError(w, http.StatusInternalServerError, "failed to record request")
		return
	}

	respondJSON(w, http.StatusOK, captureAck{Status: "captured", RequestID: captured.ID})
}

func (h *APIHandlers) handleInboxes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createInbox(w, r)
	case http.MethodGet:
		h.listInboxes(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) createInbox(w http.ResponseWriter, r *http.Request) {
	inbox, err := h.service.CreateInbox(r.Context())
	if err != nil {
		h.logger.Error("failed to create inbox", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create inbox")
		return
	}
	respondJSON(w, http.StatusCreated, toInboxResponse(inbox))
}

func (h *APIHandlers) listInboxes(w http.ResponseWriter, r *http.Request) {
	inboxes, err := h.service.Inboxes(r.Context())
	if err != nil {
		h.logger.Error("failed to list inboxes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list inboxes")
		return
	}
	resp := make([]inboxResponse, 0, len(inboxes))
	for _, inbox := range inboxes {
		resp = append(resp, toInboxResponse(inbox))
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleInboxSubtree dispatches /api/inboxes/{token} and
// /api/inboxes/{token}/requests.
func (h *APIHandlers) handleInboxSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/inboxes/"), "/")
	token, sub, _ := strings.Cut(rest, "/")
	if token == "" {
		writeError(w, http.StatusBadRequest, "inbox token is required")
		return
	}

	switch sub {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.getInbox(w, r, token)
	case "requests":
		switch r.Method {
		case http.MethodGet:
			h.listRequests(w, r, token)
		case http.MethodDelete:
			h.clearRequests(w, r, token)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodDelete)
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *APIHandlers) getInbox(w http.ResponseWriter, r *http.Request, token string) {
	inbox, err := h.service.Inbox(r.Context(), token)
	if err != nil {
		if errors.Is(err, capture.ErrInboxNotFound) {
			writeError(w, http.StatusNotFound, "unknown inbox token")
			return
		}
		h.logger.Error("failed to fetch inbox", "error", err, "token", token)
		writeError(w, http.StatusInternalServerError, "failed to fetch inbox")
		return
	}
	respondJSON(w, http.StatusOK, toInboxResponse(inbox))
}

func (h *APIHandlers) listRequests(w http.ResponseWriter, r *http.Request, token string) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 50)
	offset := parseInt(query.Get("offset"), 0)

	page, err := h.service.Requests(r.Context(), token, limit, offset)
	if err != nil {
		if errors.Is(err, capture.ErrInboxNotFound) {
			writeError(w, http.StatusNotFound, "unknown inbox token")
			return
		}
		h.logger.Error("failed to list requests", "error", err, "token", token)
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}

	resp := requestListResponse{
		Token: token,
		Total: page.Total,
		Items: []requestSummary{},
	}
	for _, req := range page.Items {
		resp.Items = append(resp.Items, toRequestSummary(req))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) clearRequests(w http.ResponseWriter, r *http.Request, token string) {
	removed, err := h.service.Clear(r.Context(), token)
	if err != nil {
		if errors.Is(err, capture.ErrInboxNotFound) {
			writeError(w, http.StatusNotFound, "unknown inbox token")
			return
		}
		h.logger.Error("failed to clear inbox", "error", err, "token", token)
		writeError(w, http.StatusInternalServerError, "failed to clear inbox")
		return
	}
	respondJSON(w, http.StatusOK, clearResponse{Token: token, Removed: removed})
}

func (h *APIHandlers) handleRequestByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/requests/"), "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "request ID is required")
		return
	}

	req, err := h.service.Request(r.Context(), id)
	if err != nil {
		if errors.Is(err, capture.ErrRequestNotFound) {
			writeError(w, http.StatusNotFound, "unknown request ID")
			return
		}
		h.logger.Error("failed to fetch request", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to fetch request")
		return
	}

	respondJSON(w, http.StatusOK, requestDetail{
		requestSummary: toRequestSummary(req),
		Headers:        req.Headers,
		Body:           string(req.Body),
	})
}

func toInboxResponse(inbox domain.Inbox) inboxResponse {
	return inboxResponse{
		Token:        inbox.Token,
		HookPath:     "/hook/" + inbox.Token,
		CreatedAt:    formatTime(inbox.CreatedAt),
		RequestCount: inbox.RequestCount,
	}
}

func toRequestSummary(req domain.CapturedRequest) requestSummary {
	return requestSummary{
		ID:            req.ID,
		Method:        req.Method,
		Path:          req.Path,
		Query:         req.Query,
		ContentType:   req.ContentType,
		BodySize:      len(req.Body),
		BodyTruncated: req.BodyTruncated,
		RemoteAddr:    req.RemoteAddr,
		ReceivedAt:    formatTime(req.ReceivedAt),
	}
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
