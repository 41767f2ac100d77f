package normalize

import (
	"github.com/knoguchi/freightquote/internal/docstore"
	"github.com/knoguchi/freightquote/internal/quote"
)

// RawRecord is a store record tagged with the schema it was written under.
// The set of variants is closed: CurrentSchemaRecord and LegacySchemaRecord.
type RawRecord interface {
	record() docstore.Record
	Schema() quote.SchemaVersion
}

// CurrentSchemaRecord is a record from the vectorized collection.
type CurrentSchemaRecord struct {
	docstore.Record
}

func (r CurrentSchemaRecord) record() docstore.Record { return r.Record }

// Schema returns quote.SchemaCurrent.
func (CurrentSchemaRecord) Schema() quote.SchemaVersion { return quote.SchemaCurrent }

// LegacySchemaRecord is a record from the legacy collection.
type LegacySchemaRecord struct {
	docstore.Record
}

func (r LegacySchemaRecord) record() docstore.Record { return r.Record }

// Schema returns quote.SchemaLegacy.
func (LegacySchemaRecord) Schema() quote.SchemaVersion { return quote.SchemaLegacy }

// Tag wraps a raw record in the variant for schema. Unknown versions are
// treated as legacy, the more lenient layout.
func Tag(rec docstore.Record, schema quote.SchemaVersion) RawRecord {
	if schema == quote.SchemaCurrent {
		return CurrentSchemaRecord{Record: rec}
	}
	return LegacySchemaRecord{Record: rec}
}

// fieldSpec lists, per canonical field, the raw field names to try in order.
type fieldSpec struct {
	documentID      []string
	fileName        []string
	quoteReference  []string
	customerName    []string
	supplierName    []string
	originPort      []string
	destinationPort []string
	dateIssued      []string
	validUntil      []string
	shipmentMode    []string
	total           []string
	currency        []string
	margin          []string
	confidence      []string
	model           []string

	weight      []string
	volume      []string
	containers  []string
	transit     []string
	temperature []string

	hazardous             []string
	refrigerated          []string
	temperatureControlled []string
	frozen                []string
	oversized             []string
	timeSensitive         []string
	highValue             []string

	// lineItems holds structured line items; empty for schemas without them.
	lineItems []string
	// bundles hold JSON-encoded extraction output.
	bundles []string
	// searchable are the fields keyword search matches against.
	searchable []string
}

var searchableFields = []string{"customer_name", "quote_reference", "origin_port", "destination_port"}

var currentFields = fieldSpec{
	documentID:      []string{"document_id"},
	fileName:        []string{"file_name"},
	quoteReference:  []string{"quote_reference"},
	customerName:    []string{"customer_name"},
	supplierName:    []string{"supplier_name"},
	originPort:      []string{"origin_port"},
	destinationPort: []string{"destination_port"},
	dateIssued:      []string{"date_issued"},
	validUntil:      []string{"valid_until"},
	shipmentMode:    []string{"shipment_mode"},
	total:           []string{"total_amount", "total_value", "total_sell_price"},
	currency:        []string{"currency"},
	margin:          []string{"margin_percentage"},
	confidence:      []string{"extraction_confidence"},
	model:           []string{"model_used", "extraction_model"},

	weight:      []string{"total_weight_kg", "weight_kg"},
	volume:      []string{"total_volume_cbm", "volume_cbm"},
	containers:  []string{"container_count"},
	transit:     []string{"transit_time_days", "transit_time"},
	temperature: []string{"temperature_range"},

	hazardous:             []string{"hazardous"},
	refrigerated:          []string{"refrigerated", "refrigerated_2_8"},
	temperatureControlled: []string{"temperature_controlled"},
	frozen:                []string{"frozen", "refrigerated_minus20_minus10"},
	oversized:             []string{"oversized"},
	timeSensitive:         []string{"time_sensitive"},
	highValue:             []string{"high_value"},

	lineItems:  []string{"line_items", "line_items_array"},
	bundles:    []string{"extraction_data", "full_extraction"},
	searchable: searchableFields,
}

var legacyFields = fieldSpec{
	documentID:      []string{"document_id"},
	fileName:        []string{"file_name"},
	quoteReference:  []string{"quote_reference"},
	customerName:    []string{"customer_name"},
	supplierName:    []string{"supplier_name"},
	originPort:      []string{"origin_port"},
	destinationPort: []string{"destination_port"},
	dateIssued:      []string{"date_issued"},
	validUntil:      []string{"valid_until"},
	shipmentMode:    []string{"shipment_mode"},
	total:           []string{"total_value"},
	currency:        []string{"currency"},
	margin:          []string{"margin_percentage"},
	confidence:      []string{"extraction_confidence"},
	model:           []string{"model_used"},

	bundles:    []string{"full_extraction", "extraction_data"},
	searchable: searchableFields,
}

func specFor(schema quote.SchemaVersion) *fieldSpec {
	if schema == quote.SchemaCurrent {
		return &currentFields
	}
	return &legacyFields
}

// SearchFields returns the raw field names keyword search matches against
// for records of schema.
func SearchFields(schema quote.SchemaVersion) []string {
	fields := specFor(schema).searchable
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// DocumentIDField is the raw field holding a quote's document id.
func DocumentIDField(schema quote.SchemaVersion) string {
	return specFor(schema).documentID[0]
}
