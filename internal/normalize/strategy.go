package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knoguchi/freightquote/internal/quote"
	"github.com/shopspring/decimal"
)

// Input is what a line-item strategy sees of one record.
type Input struct {
	Fields map[string]any
	spec   *fieldSpec

	// Bundle is the decoded extraction bundle, nil when none decoded.
	Bundle map[string]any
	// BundleErr records bundle fields that failed to decode.
	BundleErr error

	Currency        string
	Total           decimal.Decimal
	OriginPort      string
	DestinationPort string
}

// Strategy recovers line items from a record. A strategy returns no items
// when it has nothing to offer, and quote.ErrMalformedRecord when the data it
// relies on cannot be parsed. Either way the next strategy is tried.
type Strategy struct {
	Name    string
	Extract func(in Input) ([]quote.LineItem, error)
}

// StructuredLineItems reads the record's own line-item field, either an
// already-decoded array or a JSON-encoded string.
var StructuredLineItems = Strategy{
	Name: "structured",
	Extract: func(in Input) ([]quote.LineItem, error) {
		if in.spec == nil {
			return nil, nil
		}
		var errs []error
		for _, key := range in.spec.lineItems {
			raw, ok := in.Fields[key]
			if !ok || raw == nil {
				continue
			}
			decoded, err := decodeJSON(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			if items := mapItems(decoded, in.Currency); len(items) > 0 {
				return items, nil
			}
		}
		return nil, errors.Join(errs...)
	},
}

// bundleEnvelopes are the paths under which extraction output nests its lineItems.
var bundleEnvelopes = [][]string{
	{"extracted_data"},
	{"extraction_results"},
	{"extraction_results", "extracted_data"},
	{},
}

// ExtractionBundle reads lineItems nested in an extraction bundle.
var ExtractionBundle = Strategy{
	Name: "extraction_bundle",
	Extract: func(in Input) ([]quote.LineItem, error) {
		if in.Bundle == nil {
			return nil, in.BundleErr
		}
		errs := []error{in.BundleErr}
		for _, path := range bundleEnvelopes {
			envelope := in.Bundle
			if len(path) > 0 {
				envelope = digMap(in.Bundle, path...)
			}
			if envelope == nil {
				continue
			}
			raw, ok := envelope["lineItems"]
			if !ok {
				raw = envelope["line_items"]
			}
			decoded, err := decodeJSON(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", strings.Join(append(path[:len(path):len(path)], "lineItems"), "."), err))
				continue
			}
			if items := mapItems(decoded, in.Currency); len(items) > 0 {
				return items, nil
			}
		}
		return nil, errors.Join(errs...)
	},
}

// Share is one category of a synthetic cost breakdown.
type Share struct {
	Description string
	Category    string
	Percent     decimal.Decimal
}

// DefaultBreakdown is the synthetic split applied when a quote has no
// recoverable line items.
func DefaultBreakdown() []Share {
	return []Share{
		{Description: "Ocean Freight", Category: "Freight", Percent: decimal.NewFromInt(40)},
		{Description: "Port Charges", Category: "Port Charges", Percent: decimal.NewFromInt(15)},
		{Description: "Documentation", Category: "Documentation", Percent: decimal.NewFromInt(5)},
		{Description: "Customs Clearance", Category: "Customs", Percent: decimal.NewFromInt(10)},
		{Description: "Inland Transport", Category: "Transport", Percent: decimal.NewFromInt(15)},
		{Description: "Insurance", Category: "Insurance", Percent: decimal.NewFromInt(5)},
		{Description: "Other", Category: "Other", Percent: decimal.NewFromInt(10)},
	}
}

var hundred = decimal.NewFromInt(100)

// SyntheticBreakdown splits the quote total across shares. Each amount is
// rounded to cents and the last share absorbs the rounding remainder, so the
// items always sum to the total. Quotes without a positive total get no items.
func SyntheticBreakdown(shares []Share) Strategy {
	return Strategy{
		Name: "synthetic",
		Extract: func(in Input) ([]quote.LineItem, error) {
			if len(shares) == 0 || !in.Total.IsPositive() {
				return nil, nil
			}

			route := fmt.Sprintf("%s → %s", orUnknown(in.OriginPort), orUnknown(in.DestinationPort))
			items := make([]quote.LineItem, 0, len(shares))
			allocated := decimal.Zero
			for i, share := range shares {
				amount := in.Total.Mul(share.Percent).Div(hundred).Round(2)
				if i == len(shares)-1 {
					amount = in.Total.Sub(allocated)
				}
				allocated = allocated.Add(amount)

				items = append(items, quote.LineItem{
					LineNumber:  i + 1,
					Description: fmt.Sprintf("%s (%s)", share.Description, route),
					Category:    share.Category,
					SellAmount:  quote.NewMoney(amount, in.Currency),
					Quantity:    1,
					Unit:        "shipment",
					Synthetic:   true,
				})
			}
			return items, nil
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// mapItems converts a decoded array of line-item objects. Entries that are
// not objects are skipped.
func mapItems(decoded any, currency string) []quote.LineItem {
	list, ok := decoded.([]any)
	if !ok {
		return nil
	}
	items := make([]quote.LineItem, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, mapItem(obj, currency))
	}
	return items
}

func mapItem(obj map[string]any, currency string) quote.LineItem {
	sell := digMap(obj, "sellPrice")
	if sell == nil {
		sell = digMap(obj, "sell_price")
	}

	amount, _ := firstDecimal(sell, "totalPrice", "amount")
	if amount.IsZero() {
		amount, _ = firstDecimal(obj, "amount", "totalPrice", "total_price", "sell_amount")
	}

	itemCurrency := firstString(sell, "currency")
	if itemCurrency == "" {
		itemCurrency = firstString(obj, "currency")
	}
	if itemCurrency == "" {
		itemCurrency = currency
	}

	quantity := firstInt(obj, "quantity")
	if quantity < 1 {
		quantity = 1
	}

	unit := firstString(obj, "unit")
	if unit == "" {
		unit = "unit"
	}

	category := firstString(obj, "category")
	if category == "" {
		category = "Other"
	}

	item := quote.LineItem{
		LineNumber:  firstInt(obj, "lineNumber", "line_number"),
		Description: firstString(obj, "description"),
		Category:    category,
		SellAmount:  quote.NewMoney(amount, itemCurrency),
		Quantity:    quantity,
		Unit:        unit,
		Supplier:    supplierName(obj["supplier"]),
	}

	cost := digMap(obj, "costPrice")
	if cost == nil {
		cost = digMap(obj, "cost_price")
	}
	if costAmount, ok := firstDecimal(cost, "totalPrice", "amount"); ok {
		costCurrency := firstString(cost, "currency")
		if costCurrency == "" {
			costCurrency = itemCurrency
		}
		m := quote.NewMoney(costAmount, costCurrency)
		item.CostAmount = &m
	} else if costAmount, ok := firstDecimal(obj, "cost", "cost_amount"); ok {
		m := quote.NewMoney(costAmount, itemCurrency)
		item.CostAmount = &m
	}

	return item
}

// supplierName accepts either a plain name or an object with a name.
func supplierName(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return firstString(obj, "name")
	}
	return strings.TrimSpace(toString(v))
}
