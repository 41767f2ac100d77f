package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/knoguchi/freightquote/internal/docstore"
	"github.com/knoguchi/freightquote/internal/quote"
	"github.com/pgvector/pgvector-go"
)

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// Querier is the subset of *pgxpool.Pool used by Store.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements docstore.Store on PostgreSQL.
type Store struct {
	db      Querier
	timeout time.Duration
	logger  *slog.Logger
}

// NewStore creates a Store. A non-positive timeout uses docstore.DefaultTimeout.
func NewStore(db Querier, timeout time.Duration, logger *slog.Logger) *Store {
	if timeout <= 0 {
		timeout = docstore.DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, timeout: timeout, logger: logger}
}

// CollectionExists reports whether the collection's table exists.
func (s *Store) CollectionExists(ctx context.Context, collection string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var exists bool
	err := s.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table(collection)).Scan(&exists)
	if err != nil {
		return false, classify(collection, "check collection existence", err)
	}
	return exists, nil
}

// FetchByFilter returns records whose payload matches any filter condition.
func (s *Store) FetchByFilter(ctx context.Context, collection string, filter *docstore.Filter, limit int) ([]docstore.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query, args := buildFilterQuery(collection, filter, limit)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(collection, "fetch", err)
	}
	defer rows.Close()

	records := []docstore.Record{}
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, classify(collection, "scan", err)
		}
		records = append(records, docstore.Record{ID: id, Fields: s.fields(collection, id, payload)})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(collection, "fetch", err)
	}
	return records, nil
}

// FetchByVector returns the nearest neighbours by cosine distance.
func (s *Store) FetchByVector(ctx context.Context, collection string, vector []float32, limit int) ([]docstore.ScoredRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `SELECT id, payload, embedding <=> $1 AS distance FROM ` + table(collection) +
		` WHERE embedding IS NOT NULL ORDER BY distance LIMIT $2`
	rows, err := s.db.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, classify(collection, "vector search", err)
	}
	defer rows.Close()

	results := []docstore.ScoredRecord{}
	for rows.Next() {
		var id string
		var payload []byte
		var distance float64
		if err := rows.Scan(&id, &payload, &distance); err != nil {
			return nil, classify(collection, "scan", err)
		}
		results = append(results, docstore.ScoredRecord{
			Record:   docstore.Record{ID: id, Fields: s.fields(collection, id, payload)},
			Distance: distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(collection, "vector search", err)
	}
	return results, nil
}

func table(collection string) string {
	return pgx.Identifier{collection}.Sanitize()
}

func buildFilterQuery(collection string, filter *docstore.Filter, limit int) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, payload FROM `)
	b.WriteString(table(collection))

	var args []any
	if filter != nil && len(filter.Any) > 0 {
		clauses := make([]string, 0, len(filter.Any))
		for _, c := range filter.Any {
			args = append(args, c.Field)
			field := "$" + strconv.Itoa(len(args))
			switch c.Match {
			case docstore.MatchContains:
				args = append(args, "%"+escapeLike(c.Value)+"%")
				clauses = append(clauses, "payload->>"+field+" ILIKE $"+strconv.Itoa(len(args)))
			default:
				args = append(args, c.Value)
				clauses = append(clauses, "payload->>"+field+" = $"+strconv.Itoa(len(args)))
			}
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " OR "))
	}

	b.WriteString(" ORDER BY id")
	if limit > 0 {
		args = append(args, limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// fields decodes a row payload. A payload that is not a JSON object yields an
// empty field set so the record still reaches the normalizer.
func (s *Store) fields(collection, id string, payload []byte) map[string]any {
	fields, err := decodePayload(payload)
	if err != nil {
		s.logger.Warn("undecodable record payload",
			"class", "malformed_record",
			"collection", collection,
			"id", id,
			"error", err)
		return map[string]any{}
	}
	return fields
}

func decodePayload(payload []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(payload) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", quote.ErrMalformedRecord, err)
	}
	if fields == nil {
		// JSON null
		fields = map[string]any{}
	}
	return fields, nil
}

func classify(collection, op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s: %w", quote.ErrCollectionNotFound, collection, err)
	}
	return fmt.Errorf("%w: %s %s: %w", quote.ErrStoreUnavailable, op, collection, err)
}

var _ docstore.Store = (*Store)(nil)
