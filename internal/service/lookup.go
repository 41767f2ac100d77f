package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/knoguchi/freightquote/internal/collection"
	"github.com/knoguchi/freightquote/internal/docstore"
	"github.com/knoguchi/freightquote/internal/normalize"
	"github.com/knoguchi/freightquote/internal/quote"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Get returns the quote for a document id, looking in the current collection
// first and then the legacy one. A collection that does not exist is skipped.
func (s *QuoteService) Get(ctx context.Context, documentID string) (*quote.Quote, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", quote.ErrInvalidRequest)
	}

	ctx, span := s.tracer.Start(ctx, "quote.get")
	defer span.End()
	span.SetAttributes(attribute.String("document_id", documentID))

	for _, sel := range []collection.Selection{s.selector.Current(), s.selector.Legacy()} {
		filter := docstore.Equal(normalize.DocumentIDField(sel.Schema), documentID)
		records, err := s.store.FetchByFilter(ctx, sel.Name, filter, 1)
		if errors.Is(err, quote.ErrCollectionNotFound) {
			s.logger.Debug("collection missing during lookup", "collection", sel.Name)
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to look up quote %s: %w", documentID, err)
		}
		if len(records) > 0 {
			q := s.normalizer.Normalize(normalize.Tag(records[0], sel.Schema))
			return &q, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", quote.ErrQuoteNotFound, documentID)
}

// Ready reports whether the document store is reachable. A missing current
// collection is not a readiness failure: searches fall back to the legacy one.
func (s *QuoteService) Ready(ctx context.Context) error {
	_, err := s.store.CollectionExists(ctx, s.selector.Current().Name)
	if err != nil && !errors.Is(err, quote.ErrCollectionNotFound) {
		return err
	}
	return nil
}
