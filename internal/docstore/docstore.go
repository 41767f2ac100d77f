// Package docstore provides the document store boundary of the retrieval
// pipeline: exact-match and nearest-neighbour queries against named
// collections, returning raw, uninterpreted records.
package docstore

import (
	"context"
)

// Record is a raw store record. Fields hold the untyped payload exactly as
// stored; the store performs no interpretation of field semantics.
type Record struct {
	ID     string
	Fields map[string]any
}

// ScoredRecord is a record returned by a vector query together with its
// distance from the query vector. Lower is more similar.
type ScoredRecord struct {
	Record
	Distance float64
}

// MatchKind selects how a condition compares a field with its value.
type MatchKind int

const (
	// MatchEqual requires the field to equal the value exactly.
	MatchEqual MatchKind = iota
	// MatchContains requires the field to contain the value, case-insensitively.
	// On Qdrant this is a full-text match and needs a text index on the field.
	MatchContains
)

func (k MatchKind) String() string {
	if k == MatchContains {
		return "contains"
	}
	return "equal"
}

// Condition is a single field predicate.
type Condition struct {
	Field string
	Match MatchKind
	Value string
}

// Filter is a logical OR over its conditions. A nil *Filter matches every record.
type Filter struct {
	Any []Condition
}

// Equal builds a single-condition exact-match filter.
func Equal(field, value string) *Filter {
	return &Filter{Any: []Condition{{Field: field, Match: MatchEqual, Value: value}}}
}

// ContainsAny builds a filter matching records where any of fields contains value.
func ContainsAny(value string, fields ...string) *Filter {
	f := &Filter{Any: make([]Condition, 0, len(fields))}
	for _, field := range fields {
		f.Any = append(f.Any, Condition{Field: field, Match: MatchContains, Value: value})
	}
	return f
}

// Store defines the document store operations used by the pipeline.
//
// Implementations report connectivity, timeout and configuration failures as
// quote.ErrStoreUnavailable and missing collections as quote.ErrCollectionNotFound.
type Store interface {
	// CollectionExists is a lightweight existence probe for a collection.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// FetchByFilter returns up to limit records matching filter, in store order.
	// A nil filter fetches records by simple existence.
	FetchByFilter(ctx context.Context, collection string, filter *Filter, limit int) ([]Record, error)

	// FetchByVector returns up to limit nearest neighbours of vector with their distances.
	FetchByVector(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredRecord, error)
}
