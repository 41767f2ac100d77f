// Package collection decides which store collection, and therefore which
// record schema, a request reads from.
package collection

import (
	"context"
	"errors"
	"log/slog"

	"github.com/knoguchi/freightquote/internal/quote"
)

// Prober checks whether a collection exists.
type Prober interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// Selection is the collection chosen for one request.
type Selection struct {
	Name   string
	Schema quote.SchemaVersion
}

// Selector resolves the collection per request. Results are never cached:
// availability can change between deployments.
type Selector struct {
	prober  Prober
	current string
	legacy  string
	logger  *slog.Logger
}

// NewSelector creates a selector over the current (vectorized) and legacy collections.
func NewSelector(prober Prober, current, legacy string, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		prober:  prober,
		current: current,
		legacy:  legacy,
		logger:  logger,
	}
}

// Select probes the current collection and falls back to the legacy one on
// any failure. It never returns an error.
func (s *Selector) Select(ctx context.Context) Selection {
	exists, err := s.prober.CollectionExists(ctx, s.current)
	switch {
	case err != nil:
		s.logger.Warn("collection probe failed, using legacy collection",
			"class", "collection_probe_failed",
			"collection", s.current,
			"fallback", s.legacy,
			"not_found", errors.Is(err, quote.ErrCollectionNotFound),
			"error", err)
		return s.Legacy()
	case !exists:
		s.logger.Warn("current collection absent, using legacy collection",
			"class", "collection_probe_failed",
			"collection", s.current,
			"fallback", s.legacy)
		return s.Legacy()
	}
	return s.Current()
}

// Current returns the current collection without probing.
func (s *Selector) Current() Selection {
	return Selection{Name: s.current, Schema: quote.SchemaCurrent}
}

// Legacy returns the legacy collection without probing.
func (s *Selector) Legacy() Selection {
	return Selection{Name: s.legacy, Schema: quote.SchemaLegacy}
}
