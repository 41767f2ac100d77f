// Package normalize maps raw store records of either schema version onto the
// canonical quote.Quote.
//
// Line items are recovered by an ordered list of strategies, stopping at the
// first that yields at least one item:
//
//  1. the record's structured line-item field (current schema only)
//  2. lineItems nested in an extraction bundle (both schemas)
//  3. a synthetic breakdown of the quote total (both schemas)
//
// A strategy that fails to parse its input is skipped; normalization of the
// record as a whole never fails.
package normalize

import (
	"errors"
	"log/slog"

	"github.com/knoguchi/freightquote/internal/docstore"
	"github.com/knoguchi/freightquote/internal/quote"
)

// Options configures a Normalizer.
type Options struct {
	// Breakdown is the synthetic split (default: DefaultBreakdown()).
	Breakdown []Share
	// DefaultCurrency applies when a record names no currency (default: USD).
	DefaultCurrency string
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Breakdown:       DefaultBreakdown(),
		DefaultCurrency: quote.DefaultCurrency,
	}
}

// Normalizer converts tagged raw records to quotes. It holds no mutable
// state and is safe for concurrent use.
type Normalizer struct {
	currency string
	current  []Strategy
	legacy   []Strategy
	logger   *slog.Logger
}

// New creates a Normalizer.
func New(opts Options, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Breakdown == nil {
		opts.Breakdown = DefaultBreakdown()
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = quote.DefaultCurrency
	}

	synthetic := SyntheticBreakdown(opts.Breakdown)
	return &Normalizer{
		currency: opts.DefaultCurrency,
		current:  []Strategy{StructuredLineItems, ExtractionBundle, synthetic},
		legacy:   []Strategy{ExtractionBundle, synthetic},
		logger:   logger,
	}
}

// Normalize builds the canonical quote for rec. The result is a pure
// function of the record: normalizing the same record twice yields equal quotes.
func (n *Normalizer) Normalize(rec RawRecord) quote.Quote {
	switch r := rec.(type) {
	case CurrentSchemaRecord:
		return n.normalize(r.Record, &currentFields, n.current)
	case LegacySchemaRecord:
		return n.normalize(r.Record, &legacyFields, n.legacy)
	default:
		return quote.Quote{LineItems: []quote.LineItem{}}
	}
}

// NormalizeAll normalizes records tagged with schema, preserving order.
func (n *Normalizer) NormalizeAll(records []docstore.Record, schema quote.SchemaVersion) []quote.Quote {
	out := make([]quote.Quote, 0, len(records))
	for _, rec := range records {
		out = append(out, n.Normalize(Tag(rec, schema)))
	}
	return out
}

func (n *Normalizer) normalize(rec docstore.Record, spec *fieldSpec, chain []Strategy) quote.Quote {
	fields := rec.Fields
	if fields == nil {
		fields = map[string]any{}
	}

	bundle, bundleErr := loadBundle(fields, spec.bundles)
	data := bundleData(bundle)

	q := quote.Quote{
		ID:              rec.ID,
		DocumentID:      firstString(fields, spec.documentID...),
		FileName:        firstString(fields, spec.fileName...),
		QuoteReference:  firstString(fields, spec.quoteReference...),
		CustomerName:    firstString(fields, spec.customerName...),
		SupplierName:    firstString(fields, spec.supplierName...),
		OriginPort:      firstString(fields, spec.originPort...),
		DestinationPort: firstString(fields, spec.destinationPort...),
		DateIssued:      firstString(fields, spec.dateIssued...),
		ValidUntil:      firstString(fields, spec.validUntil...),
		ModelUsed:       firstString(fields, spec.model...),
		Shipment: quote.ShipmentAttributes{
			WeightKG:              firstFloat(fields, spec.weight...),
			VolumeCBM:             firstFloat(fields, spec.volume...),
			ContainerCount:        firstInt(fields, spec.containers...),
			TransitTimeDays:       firstString(fields, spec.transit...),
			TemperatureRange:      firstString(fields, spec.temperature...),
			ShipmentMode:          firstString(fields, spec.shipmentMode...),
			Hazardous:             firstBool(fields, spec.hazardous...),
			Refrigerated:          firstBool(fields, spec.refrigerated...),
			TemperatureControlled: firstBool(fields, spec.temperatureControlled...),
			Frozen:                firstBool(fields, spec.frozen...),
			Oversized:             firstBool(fields, spec.oversized...),
			TimeSensitive:         firstBool(fields, spec.timeSensitive...),
			HighValue:             firstBool(fields, spec.highValue...),
		},
		MarginPercentage: firstFloat(fields, spec.margin...),
	}
	if q.ID == "" {
		q.ID = q.DocumentID
	}
	if v, ok := fields[spec.confidence[0]]; ok && v != nil {
		c := toString(v)
		q.ExtractionConfidence = &c
	}

	metrics := digMap(bundle, "financialMetrics")
	if metrics == nil {
		metrics = digMap(data, "financialMetrics")
	}
	fillFromBundle(&q, data, metrics)

	currency := firstString(fields, spec.currency...)
	if currency == "" {
		currency = digString(metrics, "totalSellPrice", "currency")
	}
	if currency == "" {
		currency = n.currency
	}
	total, ok := firstDecimal(fields, spec.total...)
	if !ok {
		total, _ = firstDecimal(digMap(metrics, "totalSellPrice"), "amount")
	}
	q.TotalAmount = quote.NewMoney(total, currency)

	in := Input{
		Fields:          fields,
		spec:            spec,
		Bundle:          bundle,
		BundleErr:       bundleErr,
		Currency:        currency,
		Total:           total,
		OriginPort:      q.OriginPort,
		DestinationPort: q.DestinationPort,
	}
	q.LineItems = n.lineItems(rec.ID, in, chain)
	q.LineItemCount = len(q.LineItems)
	return q
}

func (n *Normalizer) lineItems(id string, in Input, chain []Strategy) []quote.LineItem {
	for _, s := range chain {
		items, err := s.Extract(in)
		if err != nil {
			n.logger.Debug("line item strategy skipped",
				"class", "malformed_record",
				"record_id", id,
				"strategy", s.Name,
				"error", err)
		}
		if len(items) > 0 {
			return items
		}
	}
	return []quote.LineItem{}
}

// loadBundle decodes the first extraction bundle field holding an object.
func loadBundle(fields map[string]any, keys []string) (map[string]any, error) {
	var errs []error
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok || raw == nil {
			continue
		}
		decoded, err := decodeJSON(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if obj, ok := decoded.(map[string]any); ok {
			return obj, errors.Join(errs...)
		}
	}
	return nil, errors.Join(errs...)
}

// bundleData returns the envelope holding extracted header fields.
func bundleData(bundle map[string]any) map[string]any {
	if bundle == nil {
		return nil
	}
	for _, path := range [][]string{{"extracted_data"}, {"extraction_results", "extracted_data"}, {"extraction_results"}} {
		if data := digMap(bundle, path...); data != nil {
			return data
		}
	}
	return bundle
}

// fillFromBundle fills header fields the record itself left empty.
func fillFromBundle(q *quote.Quote, data, metrics map[string]any) {
	if data == nil {
		return
	}
	setIfEmpty(&q.FileName, digString(data, "fileName"))
	setIfEmpty(&q.QuoteReference, digString(data, "quoteReference"))
	setIfEmpty(&q.CustomerName, digString(data, "customer", "name"))
	setIfEmpty(&q.SupplierName, digString(data, "supplier", "name"))
	setIfEmpty(&q.OriginPort, digString(data, "shipment", "originPort"))
	setIfEmpty(&q.DestinationPort, digString(data, "shipment", "destinationPort"))
	setIfEmpty(&q.Shipment.ShipmentMode, digString(data, "shipment", "shipmentMode"))
	setIfEmpty(&q.Shipment.TransitTimeDays, digString(data, "shipment", "transitTime"))
	setIfEmpty(&q.DateIssued, digString(data, "dateIssued"))
	setIfEmpty(&q.ValidUntil, digString(data, "validUntil"))

	if q.MarginPercentage == 0 {
		q.MarginPercentage = firstFloat(metrics, "marginPercentage")
	}
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
