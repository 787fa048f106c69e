package snapshot

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joshuxchn/qloo/internal/domain"
)

// WireProduct is the catalog and display form of a product snapshot.
// Prices are JSON numbers; a quoted number is also accepted on input.
type WireProduct struct {
	Name            string       `json:"name"`
	Price           *json.Number `json:"price"`
	PromoPrice      *json.Number `json:"promo_price"`
	FulfillmentType string       `json:"fulfillment_type,omitempty"`
	Brand           string       `json:"brand,omitempty"`
	Inventory       string       `json:"inventory,omitempty"`
	Size            string       `json:"size,omitempty"`
	LastUpdated     string       `json:"last_updated,omitempty"`
	LocationID      string       `json:"location_id,omitempty"`
	UPC             string       `json:"upc,omitempty"`
	Category        string       `json:"category,omitempty"`
}

// WireItem is a product snapshot with a quantity, as shown on a list.
type WireItem struct {
	ID int64 `json:"list_item_id,omitempty"`
	WireProduct
	Quantity int `json:"quantity,omitempty"`
}

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
// Fractional seconds are accepted after the seconds field by every layout.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// DecodeProduct validates a wire product and converts it to the domain form.
// A missing price becomes 0.00; a missing promo price stays null.
func DecodeProduct(w WireProduct) (domain.Product, error) {
	var p domain.Product

	p.Name = strings.TrimSpace(w.Name)
	if p.Name == "" {
		return domain.Product{}, fieldError("name", "", errRequired)
	}

	price, err := parsePrice("price", w.Price)
	if err != nil {
		return domain.Product{}, err
	}
	p.Price = price.Decimal

	p.PromoPrice, err = parsePrice("promo_price", w.PromoPrice)
	if err != nil {
		return domain.Product{}, err
	}

	p.Fulfillment = domain.ParseFulfillmentType(w.FulfillmentType)

	p.Inventory, err = ParseStockLevel(w.Inventory)
	if err != nil {
		return domain.Product{}, err
	}

	p.LastUpdated, err = ParseTimestamp(w.LastUpdated)
	if err != nil {
		return domain.Product{}, err
	}

	p.Brand = strings.TrimSpace(w.Brand)
	p.Size = strings.TrimSpace(w.Size)
	p.LocationID = strings.TrimSpace(w.LocationID)
	p.UPC = strings.TrimSpace(w.UPC)
	p.Category = strings.TrimSpace(w.Category)

	p.Normalize()
	return p, nil
}

// EncodeProduct converts a domain product to the display form. Prices carry
// two decimals and the timestamp is RFC 3339 in UTC.
func EncodeProduct(p domain.Product) WireProduct {
	p.Normalize()

	price := json.Number(p.Price.StringFixed(2))
	w := WireProduct{
		Name:            p.Name,
		Price:           &price,
		FulfillmentType: string(p.Fulfillment),
		Brand:           p.Brand,
		Inventory:       string(p.Inventory),
		Size:            p.Size,
		LastUpdated:     FormatTimestamp(p.LastUpdated),
		LocationID:      p.LocationID,
		UPC:             p.UPC,
		Category:        p.Category,
	}
	if p.PromoPrice.Valid {
		promo := json.Number(p.PromoPrice.Decimal.StringFixed(2))
		w.PromoPrice = &promo
	}
	return w
}

// DecodeItem decodes the product and defaults an absent quantity to 1.
func DecodeItem(w WireItem) (domain.GroceryListItem, error) {
	if w.Quantity < 0 {
		return domain.GroceryListItem{}, fieldError("quantity", "", errNegative)
	}

	p, err := DecodeProduct(w.WireProduct)
	if err != nil {
		return domain.GroceryListItem{}, err
	}

	item := domain.NewItem(p, w.Quantity)
	item.ID = w.ID
	item.Normalize()
	return item, nil
}

// EncodeItem converts an item to the display form.
func EncodeItem(item domain.GroceryListItem) WireItem {
	return WireItem{
		ID:          item.ID,
		WireProduct: EncodeProduct(item.Product),
		Quantity:    item.Quantity,
	}
}

// ParseTimestamp parses an ISO-8601 instant. An empty string is the zero
// time. The result is UTC, truncated to microseconds.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, fieldError("last_updated", raw, errUnknownVal)
}

// FormatTimestamp formats t as RFC 3339 in UTC with fractional seconds when
// present. The zero time formats as the empty string.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parsePrice(field string, n *json.Number) (decimal.NullDecimal, error) {
	if n == nil || strings.TrimSpace(n.String()) == "" {
		if field == "price" {
			return decimal.NewNullDecimal(decimal.Zero), nil
		}
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(n.String()))
	if err != nil {
		return decimal.NullDecimal{}, fieldError(field, n.String(), err)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fieldError(field, n.String(), errNegative)
	}
	return decimal.NewNullDecimal(d.Round(2)), nil
}
