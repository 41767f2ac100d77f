// Package quote defines the canonical freight quote model returned to clients,
// the schema versions raw store records can follow, and the error taxonomy
// shared by the retrieval pipeline.
package quote

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when neither a quote nor its line items name one.
const DefaultCurrency = "USD"

// SchemaVersion identifies which physical record layout a raw record follows.
type SchemaVersion int

const (
	// SchemaCurrent is the vectorized layout written by the newer extraction pipeline.
	SchemaCurrent SchemaVersion = iota + 1
	// SchemaLegacy is the layout of the older, non-vectorized collection.
	SchemaLegacy
)

func (v SchemaVersion) String() string {
	switch v {
	case SchemaCurrent:
		return "current"
	case SchemaLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Money is an amount tagged with an ISO-4217 currency code.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney builds a Money value, defaulting the currency when empty.
func NewMoney(amount decimal.Decimal, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

// MarshalJSON renders the amount as a JSON number rather than a quoted string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
	}{
		Amount:   json.Number(m.Amount.String()),
		Currency: m.Currency,
	})
}

// UnmarshalJSON accepts both numeric and quoted amounts.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Amount = raw.Amount
	m.Currency = raw.Currency
	return nil
}

// ShipmentAttributes describes the physical cargo a quote covers.
type ShipmentAttributes struct {
	WeightKG         float64 `json:"weightKg,omitempty"`
	VolumeCBM        float64 `json:"volumeCbm,omitempty"`
	ContainerCount   int     `json:"containerCount,omitempty"`
	TransitTimeDays  string  `json:"transitTimeDays,omitempty"` // may be a range such as "25-30"
	TemperatureRange string  `json:"temperatureRange,omitempty"`
	ShipmentMode     string  `json:"shipmentMode,omitempty"`

	Hazardous             bool `json:"hazardous"`
	Refrigerated          bool `json:"refrigerated"`
	TemperatureControlled bool `json:"temperatureControlled"`
	Frozen                bool `json:"frozen"`
	Oversized             bool `json:"oversized"`
	TimeSensitive         bool `json:"timeSensitive"`
	HighValue             bool `json:"highValue"`
}

// LineItem is one entry of a quote's cost breakdown.
type LineItem struct {
	LineNumber  int    `json:"lineNumber,omitempty"`
	Description string `json:"description"`
	// Category is an open set; unrecognised values pass through verbatim.
	Category   string `json:"category"`
	SellAmount Money  `json:"sellAmount"`
	CostAmount *Money `json:"costAmount,omitempty"`
	Quantity   int    `json:"quantity"`
	Unit       string `json:"unit"`
	Supplier   string `json:"supplier,omitempty"`
	// Synthetic marks items fabricated from the quote total rather than extracted.
	Synthetic bool `json:"synthetic"`
}

// Quote is the canonical, schema-independent view of a freight quote.
type Quote struct {
	ID             string `json:"id"`
	DocumentID     string `json:"documentId"`
	FileName       string `json:"fileName"`
	QuoteReference string `json:"quoteReference"`

	CustomerName    string `json:"customerName"`
	SupplierName    string `json:"supplierName,omitempty"`
	OriginPort      string `json:"originPort"`
	DestinationPort string `json:"destinationPort"`

	DateIssued string `json:"dateIssued,omitempty"`
	ValidUntil string `json:"validUntil,omitempty"`

	TotalAmount      Money              `json:"totalAmount"`
	MarginPercentage float64            `json:"marginPercentage"`
	Shipment         ShipmentAttributes `json:"shipmentAttributes"`

	ExtractionConfidence *string `json:"extractionConfidence,omitempty"`
	ModelUsed            string  `json:"modelUsed,omitempty"`

	LineItems     []LineItem `json:"lineItems"`
	LineItemCount int        `json:"lineItemCount"`

	// Relevance is the vector distance of a semantic match; lower is closer.
	Relevance *float64 `json:"relevance,omitempty"`
}
