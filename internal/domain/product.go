package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned to snapshots that arrive without a category.
const DefaultCategory = "Uncategorized"

// MaxPrice is the exclusive upper bound on prices; they are stored as
// NUMERIC(10,2).
var MaxPrice = decimal.New(1, 8)

// StockLevel is the semantic availability of a product at a store.
type StockLevel string

// Stock levels reported by the catalog.
const (
	StockHigh       StockLevel = "HIGH"
	StockMedium     StockLevel = "MEDIUM"
	StockLow        StockLevel = "LOW"
	StockOutOfStock StockLevel = "OUT_OF_STOCK"
	StockUnknown    StockLevel = "UNKNOWN"
)

// Valid reports whether l is one of the known stock levels.
func (l StockLevel) Valid() bool {
	switch l {
	case StockHigh, StockMedium, StockLow, StockOutOfStock, StockUnknown:
		return true
	}
	return false
}

// FulfillmentType is the channel a snapshot was priced for.
type FulfillmentType string

// Fulfillment channels.
const (
	FulfillmentInStore  FulfillmentType = "INSTORE"
	FulfillmentDelivery FulfillmentType = "DELIVERY"
	FulfillmentPickup   FulfillmentType = "PICKUP"
	FulfillmentShip     FulfillmentType = "SHIP"
	FulfillmentUnknown  FulfillmentType = "UNKNOWN"
)

// Valid reports whether f is one of the known channels.
func (f FulfillmentType) Valid() bool {
	switch f {
	case FulfillmentInStore, FulfillmentDelivery, FulfillmentPickup, FulfillmentShip, FulfillmentUnknown:
		return true
	}
	return false
}

// ParseFulfillmentType maps the catalog's spellings ("inStore", "curbside",
// "shipToHome", ...) onto a FulfillmentType. Unrecognized values map to
// FulfillmentUnknown.
func ParseFulfillmentType(raw string) FulfillmentType {
	key := strings.ToLower(raw)
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(key))
	switch key {
	case "instore":
		return FulfillmentInStore
	case "delivery":
		return FulfillmentDelivery
	case "pickup", "curbside":
		return FulfillmentPickup
	case "ship", "shiptohome":
		return FulfillmentShip
	default:
		return FulfillmentUnknown
	}
}

// Product is a snapshot of a catalog product taken at LastUpdated. It is not
// linked to any live catalog record.
type Product struct {
	Name        string
	Price       decimal.Decimal
	PromoPrice  decimal.NullDecimal
	Fulfillment FulfillmentType
	Brand       string
	Inventory   StockLevel
	Size        string
	LastUpdated time.Time
	LocationID  string
	UPC         string
	Category    string
}

// Normalize applies the documented defaults: two-decimal prices, UNKNOWN for
// missing enums, UTC microsecond timestamps and the default category.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Price = p.Price.Round(2)
	if p.PromoPrice.Valid {
		p.PromoPrice.Decimal = p.PromoPrice.Decimal.Round(2)
	}
	if p.Fulfillment == "" {
		p.Fulfillment = FulfillmentUnknown
	}
	if p.Inventory == "" {
		p.Inventory = StockUnknown
	}
	if !p.LastUpdated.IsZero() {
		p.LastUpdated = p.LastUpdated.UTC().Truncate(time.Microsecond)
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = DefaultCategory
	}
}

// Validate checks the snapshot's fields.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "is required", ErrValidation)
	}
	if err := validatePrice("price", p.Price); err != nil {
		return err
	}
	if p.PromoPrice.Valid {
		if err := validatePrice("promo_price", p.PromoPrice.Decimal); err != nil {
			return err
		}
	}
	for _, f := range []struct{ name, value string }{
		{"name", p.Name},
		{"brand", p.Brand},
		{"size", p.Size},
		{"location_id", p.LocationID},
		{"upc", p.UPC},
		{"category", p.Category},
	} {
		if err := ValidateText(f.name, f.value); err != nil {
			return err
		}
	}
	if p.Fulfillment != "" && !p.Fulfillment.Valid() {
		return NewValidationError("fulfillment_type", "is not a known channel", ErrValidation)
	}
	if p.Inventory != "" && !p.Inventory.Valid() {
		return NewValidationError("inventory", "is not a known stock level", ErrValidation)
	}
	return nil
}

func validatePrice(field string, price decimal.Decimal) error {
	if price.IsNegative() {
		return NewValidationError(field, "cannot be negative", ErrValidation)
	}
	if price.Round(2).GreaterThanOrEqual(MaxPrice) {
		return NewValidationError(field, "must be less than "+MaxPrice.String(), ErrValidation)
	}
	return nil
}

// ValidateText rejects strings Postgres cannot store in a TEXT column:
// invalid UTF-8 and NUL bytes.
func ValidateText(field, value string) error {
	if !utf8.ValidString(value) {
		return NewValidationError(field, "is not valid UTF-8", ErrValidation)
	}
	if strings.IndexByte(value, 0) >= 0 {
		return NewValidationError(field, "cannot contain NUL bytes", ErrValidation)
	}
	return nil
}

// EffectivePrice is the promo price when one is set, otherwise the price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.PromoPrice.Valid {
		return p.PromoPrice.Decimal
	}
	return p.Price
}
