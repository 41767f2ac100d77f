package docstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/freightquote/internal/quote"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultTimeout bounds a single store call when none is configured.
const DefaultTimeout = 10 * time.Second

// pointsAPI is the subset of qdrant.PointsClient the store uses.
type pointsAPI interface {
	Scroll(ctx context.Context, in *qdrant.ScrollPoints, opts ...grpc.CallOption) (*qdrant.ScrollResponse, error)
	Query(ctx context.Context, in *qdrant.QueryPoints, opts ...grpc.CallOption) (*qdrant.QueryResponse, error)
}

// collectionsAPI is the subset of qdrant.CollectionsClient the store uses.
type collectionsAPI interface {
	CollectionExists(ctx context.Context, in *qdrant.CollectionExistsRequest, opts ...grpc.CallOption) (*qdrant.CollectionExistsResponse, error)
}

// QdrantConfig holds connection settings for Qdrant.
type QdrantConfig struct {
	// URL in "host:port" form (e.g. "localhost:6334").
	URL    string
	APIKey string
	UseTLS bool
	// Timeout bounds each store call (default: 10s).
	Timeout time.Duration
}

// QdrantStore implements Store using Qdrant
type QdrantStore struct {
	client      *qdrant.Client
	points      pointsAPI
	collections collectionsAPI
	timeout     time.Duration
}

// NewQdrantStore creates a new Qdrant document store client.
// A missing endpoint, or TLS without an API key, is a configuration error
// reported as quote.ErrStoreUnavailable.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant endpoint not configured", quote.ErrStoreUnavailable)
	}
	if cfg.UseTLS && cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: qdrant credentials not configured", quote.ErrStoreUnavailable)
	}

	host, portStr, err := net.SplitHostPort(cfg.URL)
	if err != nil {
		// If no port specified, assume default
		host = cfg.URL
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid port in qdrant url: %w", quote.ErrStoreUnavailable, err)
	}

	// The connection is lazy; skip the version probe so startup never dials.
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   host,
		Port:                   port,
		APIKey:                 cfg.APIKey,
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create qdrant client: %w", quote.ErrStoreUnavailable, err)
	}

	s := newQdrantStore(client.GetPointsClient(), client.GetCollectionsClient(), cfg.Timeout)
	s.client = client
	return s, nil
}

func newQdrantStore(points pointsAPI, collections collectionsAPI, timeout time.Duration) *QdrantStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &QdrantStore{points: points, collections: collections, timeout: timeout}
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// CollectionExists checks if a collection exists
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.collections.CollectionExists(ctx, &qdrant.CollectionExistsRequest{CollectionName: collection})
	if err != nil {
		return false, classify(ctx, collection, "check collection existence", err)
	}
	return resp.GetResult().GetExists(), nil
}

// FetchByFilter scrolls through a collection returning records matching filter.
func (s *QdrantStore) FetchByFilter(ctx context.Context, collection string, filter *Filter, limit int) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         toQdrantFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if limit > 0 {
		req.Limit = qdrant.PtrOf(uint32(limit))
	}

	resp, err := s.points.Scroll(ctx, req)
	if err != nil {
		return nil, classify(ctx, collection, "scroll", err)
	}

	records := make([]Record, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		records = append(records, Record{
			ID:     pointID(point.GetId()),
			Fields: payloadToMap(point.GetPayload()),
		})
	}
	return records, nil
}

// FetchByVector performs nearest-neighbour search. Qdrant reports cosine
// similarity, which is converted to a distance of 1 - similarity.
func (s *QdrantStore) FetchByVector(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if limit > 0 {
		req.Limit = qdrant.PtrOf(uint64(limit))
	}

	resp, err := s.points.Query(ctx, req)
	if err != nil {
		return nil, classify(ctx, collection, "query", err)
	}

	results := make([]ScoredRecord, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		distance := 1 - float64(point.GetScore())
		if distance < 0 {
			distance = 0
		}
		results = append(results, ScoredRecord{
			Record: Record{
				ID:     pointID(point.GetId()),
				Fields: payloadToMap(point.GetPayload()),
			},
			Distance: distance,
		})
	}
	return results, nil
}

// classify maps a Qdrant failure onto the pipeline's error taxonomy.
func classify(ctx context.Context, collection, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s %s: %w", quote.ErrStoreUnavailable, op, collection, errors.Join(ctxErr, err))
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s: %w", quote.ErrCollectionNotFound, collection, err)
	}
	return fmt.Errorf("%w: %s %s: %w", quote.ErrStoreUnavailable, op, collection, err)
}

// toQdrantFilter ORs the conditions. MatchEqual becomes a keyword match.
// MatchContains becomes a full-text match, which relies on a text payload
// index on each searched field (customer_name, quote_reference, origin_port,
// destination_port). With a word tokenizer and lowercase enabled it matches
// whole tokens case-insensitively; a prefix tokenizer also matches word
// prefixes. Without an index Qdrant falls back to a case-sensitive substring
// scan.
func toQdrantFilter(filter *Filter) *qdrant.Filter {
	if filter == nil || len(filter.Any) == 0 {
		return nil
	}

	should := make([]*qdrant.Condition, 0, len(filter.Any))
	for _, c := range filter.Any {
		match := &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: c.Value}}
		if c.Match == MatchContains {
			match = &qdrant.Match{MatchValue: &qdrant.Match_Text{Text: c.Value}}
		}
		should = append(should, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{Key: c.Field, Match: match},
			},
		})
	}
	return &qdrant.Filter{Should: should}
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		if parsed, err := uuid.Parse(u); err == nil {
			return parsed.String()
		}
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		return payloadToMap(kind.StructValue.GetFields())
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, len(values))
		for i, item := range values {
			list[i] = valueToAny(item)
		}
		return list
	default:
		return nil
	}
}

// Ensure QdrantStore implements Store
var _ Store = (*QdrantStore)(nil)
