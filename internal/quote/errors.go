package quote

import "errors"

// Error taxonomy of the retrieval pipeline. Adapters wrap their underlying
// causes with one of these so callers can classify with errors.Is.
var (
	// ErrEmbeddingUnavailable means the embedding provider could not produce a
	// vector. Recoverable: the orchestrator degrades to keyword search.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrStoreUnavailable covers connectivity, timeout and configuration
	// failures of the document store. Fatal to the request.
	ErrStoreUnavailable = errors.New("document store unavailable")

	// ErrCollectionNotFound means a named collection does not exist. Fatal to a
	// request, except during collection selection where it selects the legacy
	// collection instead.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrMalformedRecord is scoped to a single record and absorbed by the
	// normalizer's line-item fallback chain.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrSearchUnavailable is reported when semantic search failed and keyword
	// search cannot be used instead.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrInvalidRequest rejects a malformed inbound request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrQuoteNotFound is returned by lookups that match nothing in any collection.
	ErrQuoteNotFound = errors.New("quote not found")
)
