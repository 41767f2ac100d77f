package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/knoguchi/freightquote/internal/quote"
	"github.com/knoguchi/freightquote/internal/service"
)

// QuoteService is the retrieval API the handlers expose.
type QuoteService interface {
	Search(ctx context.Context, req service.SearchRequest) (*service.SearchResponse, error)
	Get(ctx context.Context, documentID string) (*quote.Quote, error)
	Ready(ctx context.Context) error
}

var _ QuoteService = (*service.QuoteService)(nil)

type handlers struct {
	service QuoteService
	logger  *slog.Logger
}

// searchBody accepts searchText as an alias of queryText.
type searchBody struct {
	QueryText  *string `json:"queryText"`
	SearchText *string `json:"searchText"`
	Limit      int     `json:"limit"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

const maxBodyBytes = 1 << 20

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	var body searchBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, "Invalid request body", quote.ErrInvalidRequest, err)
		return
	}

	req := service.SearchRequest{Limit: body.Limit}
	switch {
	case body.QueryText != nil:
		req.QueryText = *body.QueryText
	case body.SearchText != nil:
		req.QueryText = *body.SearchText
	}

	resp, err := h.service.Search(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Search failed", err, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) listQuotes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, "Invalid request parameters", quote.ErrInvalidRequest, err)
			return
		}
		limit = n
	}

	resp, err := h.service.Search(r.Context(), service.SearchRequest{QueryText: r.URL.Query().Get("q"), Limit: limit})
	if err != nil {
		h.fail(w, r, "Failed to fetch quotes", err, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) getQuote(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentId")

	q, err := h.service.Get(r.Context(), documentID)
	if err != nil {
		msg := "Failed to fetch quote"
		if errors.Is(err, quote.ErrQuoteNotFound) {
			msg = "Quote not found"
		}
		h.fail(w, r, msg, err, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// fail responds with the status for class and the cause as details.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, msg string, class, cause error) {
	status := statusFor(class)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed",
			"path", r.URL.Path,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
			"error", cause)
	}
	writeJSON(w, status, errorBody{Error: msg, Details: cause.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, quote.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, quote.ErrQuoteNotFound), errors.Is(err, quote.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, quote.ErrStoreUnavailable), errors.Is(err, quote.ErrSearchUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
