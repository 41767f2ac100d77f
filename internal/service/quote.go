package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/freightquote/internal/collection"
	"github.com/knoguchi/freightquote/internal/docstore"
	"github.com/knoguchi/freightquote/internal/embedder"
	"github.com/knoguchi/freightquote/internal/metrics"
	"github.com/knoguchi/freightquote/internal/normalize"
	"github.com/knoguchi/freightquote/internal/quote"
	"github.com/knoguchi/freightquote/internal/ranker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultLimit applies when a request names no limit.
	DefaultLimit = 50
	// DefaultMaxLimit caps any requested limit.
	DefaultMaxLimit = 1000
)

// Search paths, used for logging and metrics.
const (
	pathAll      = "all"
	pathSemantic = "semantic"
	pathKeyword  = "keyword"
)

// SearchRequest is an inbound search.
type SearchRequest struct {
	// QueryText may be empty, which returns records unfiltered.
	QueryText string
	// Limit is the maximum number of results; 0 selects the default.
	Limit int
}

// SearchResponse is the result of a search.
type SearchResponse struct {
	Results          []quote.Quote `json:"results"`
	Count            int           `json:"count"`
	RelevanceApplied bool          `json:"relevanceApplied"`
	Query            string        `json:"query,omitempty"`
	Collection       string        `json:"collection"`
}

// QuoteService is the retrieval entry point: it routes a query between
// semantic and keyword search and returns normalized quotes. It holds no
// per-request state and is safe for concurrent use.
type QuoteService struct {
	store      docstore.Store
	selector   *collection.Selector
	embedder   embedder.Embedder
	ranker     ranker.Ranker
	normalizer *normalize.Normalizer

	rules           KeywordRules
	defaultLimit    int
	maxLimit        int
	keywordFallback bool

	logger *slog.Logger
	tracer trace.Tracer
}

// QuoteServiceOption is a functional option for configuring QuoteService.
type QuoteServiceOption func(*QuoteService)

// WithKeywordRules replaces the default keyword rules.
func WithKeywordRules(rules KeywordRules) QuoteServiceOption {
	return func(s *QuoteService) {
		s.rules = rules
	}
}

// WithLimits sets the default and maximum result limits.
func WithLimits(defaultLimit, maxLimit int) QuoteServiceOption {
	return func(s *QuoteService) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

// WithKeywordFallback controls whether a failed embedding degrades to
// keyword search. When disabled the search fails with ErrSearchUnavailable.
func WithKeywordFallback(enabled bool) QuoteServiceOption {
	return func(s *QuoteService) {
		s.keywordFallback = enabled
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) QuoteServiceOption {
	return func(s *QuoteService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(
	store docstore.Store,
	selector *collection.Selector,
	emb embedder.Embedder,
	rnk ranker.Ranker,
	normalizer *normalize.Normalizer,
	opts ...QuoteServiceOption,
) *QuoteService {
	s := &QuoteService{
		store:           store,
		selector:        selector,
		embedder:        emb,
		ranker:          rnk,
		normalizer:      normalizer,
		rules:           DefaultKeywordRules(),
		defaultLimit:    DefaultLimit,
		maxLimit:        DefaultMaxLimit,
		keywordFallback: true,
		logger:          slog.Default(),
		tracer:          otel.Tracer("freightquote/service"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}

	return s
}

// Search runs one retrieval request.
//
// Empty or catch-all queries fetch records unfiltered. Otherwise the current
// collection is searched semantically and the legacy collection by keyword;
// a failed embedding degrades to keyword search. Store failures are returned
// with no partial results.
func (s *QuoteService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	limit, err := s.resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "quote.search")
	defer span.End()

	logger := s.logger.With("retrieval_id", uuid.NewString())

	sel := s.selectCollection(ctx)
	span.SetAttributes(
		attribute.String("collection", sel.Name),
		attribute.String("schema", sel.Schema.String()),
		attribute.Int("limit", limit),
	)

	resp := &SearchResponse{Query: req.QueryText, Collection: sel.Name}
	path, err := s.route(ctx, logger, sel, req.QueryText, limit, resp)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordError("search", errorType(err))
		logger.Error("search failed", "path", path, "collection", sel.Name, "error", err)
	}
	metrics.RecordSearch(path, sel.Schema.String(), status, resp.Count, time.Since(startTime).Seconds())
	if err != nil {
		return nil, err
	}

	logger.Info("search completed",
		"path", path,
		"collection", sel.Name,
		"results", resp.Count,
		"relevance_applied", resp.RelevanceApplied,
		"duration", time.Since(startTime))

	return resp, nil
}

// route walks the per-request state machine and fills resp. It returns the
// path taken.
func (s *QuoteService) route(ctx context.Context, logger *slog.Logger, sel collection.Selection, queryText string, limit int, resp *SearchResponse) (string, error) {
	target, bypass := s.rules.Plan(queryText)
	if bypass {
		records, err := s.fetchByFilter(ctx, sel, nil, limit)
		if err != nil {
			return pathAll, err
		}
		return pathAll, s.finish(ctx, resp, s.normalizeAll(ctx, records, sel.Schema), false)
	}

	if sel.Schema == quote.SchemaCurrent {
		vector, err := s.embed(ctx, queryText)
		if err == nil {
			quotes, err := s.semantic(ctx, sel, vector, limit)
			if err != nil {
				return pathSemantic, err
			}
			return pathSemantic, s.finish(ctx, resp, quotes, true)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return pathSemantic, fmt.Errorf("search aborted: %w", ctxErr)
		}
		if !s.keywordFallback {
			return pathSemantic, fmt.Errorf("%w: %w", quote.ErrSearchUnavailable, err)
		}
		logger.Warn("embedding failed, falling back to keyword search",
			"class", "embedding_unavailable",
			"error", err)
		metrics.RecordFallback("keyword")
	}

	filter := docstore.ContainsAny(target, normalize.SearchFields(sel.Schema)...)
	records, err := s.fetchByFilter(ctx, sel, filter, limit)
	if err != nil {
		return pathKeyword, err
	}
	return pathKeyword, s.finish(ctx, resp, s.normalizeAll(ctx, records, sel.Schema), false)
}

func (s *QuoteService) finish(ctx context.Context, resp *SearchResponse, quotes []quote.Quote, relevance bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("search aborted: %w", err)
	}
	resp.Results = quotes
	resp.Count = len(quotes)
	resp.RelevanceApplied = relevance
	return nil
}

func (s *QuoteService) selectCollection(ctx context.Context) collection.Selection {
	ctx, span := s.tracer.Start(ctx, "collection.select")
	defer span.End()

	sel := s.selector.Select(ctx)
	if sel.Schema == quote.SchemaLegacy {
		metrics.RecordFallback("legacy_collection")
	}
	span.SetAttributes(attribute.String("collection", sel.Name))
	return sel
}

func (s *QuoteService) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "embed")
	defer span.End()

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("model", s.embedder.ModelName()), attribute.Int("dimensions", len(vector)))
	return vector, nil
}

func (s *QuoteService) semantic(ctx context.Context, sel collection.Selection, vector []float32, limit int) ([]quote.Quote, error) {
	searchCtx, span := s.tracer.Start(ctx, "store.fetch_by_vector")
	results, err := s.store.FetchByVector(searchCtx, sel.Name, vector, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	span.SetAttributes(attribute.Int("candidates", len(results)))
	span.End()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search aborted: %w", err)
	}

	ranked := s.ranker.Rank(results, limit)

	quotes := make([]quote.Quote, 0, len(ranked))
	for _, r := range ranked {
		q := s.normalizer.Normalize(normalize.Tag(r.Record, sel.Schema))
		distance := r.Distance
		q.Relevance = &distance
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (s *QuoteService) fetchByFilter(ctx context.Context, sel collection.Selection, filter *docstore.Filter, limit int) ([]docstore.Record, error) {
	ctx, span := s.tracer.Start(ctx, "store.fetch_by_filter")
	defer span.End()

	records, err := s.store.FetchByFilter(ctx, sel.Name, filter, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	span.SetAttributes(attribute.Int("records", len(records)), attribute.Bool("filtered", filter != nil))
	return records, nil
}

func (s *QuoteService) normalizeAll(ctx context.Context, records []docstore.Record, schema quote.SchemaVersion) []quote.Quote {
	if ctx.Err() != nil {
		return nil
	}
	_, span := s.tracer.Start(ctx, "normalize")
	defer span.End()
	return s.normalizer.NormalizeAll(records, schema)
}

func (s *QuoteService) resolveLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, fmt.Errorf("%w: limit must be positive, got %d", quote.ErrInvalidRequest, limit)
	case limit == 0:
		return s.defaultLimit, nil
	case limit > s.maxLimit:
		return s.maxLimit, nil
	default:
		return limit, nil
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, quote.ErrCollectionNotFound):
		return "collection_not_found"
	case errors.Is(err, quote.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, quote.ErrSearchUnavailable):
		return "search_unavailable"
	case errors.Is(err, quote.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
