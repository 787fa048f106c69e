package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultListName is used when a list is saved without a name.
const DefaultListName = "My Grocery List"

// GroceryList is a named collection of item snapshots owned by one user.
type GroceryList struct {
	ID        string
	UserID    string
	Name      string
	Timestamp time.Time
	// Revision increases by one on every update. A caller that sets it before
	// an update asks the store to reject the update if the list changed since.
	Revision int64
	Items    []GroceryListItem
}

// GroceryListItem is one line on a list: a product snapshot and a quantity.
type GroceryListItem struct {
	ID     int64
	ListID string
	Product
	Quantity int
}

// NewItem returns an item for p with the given quantity.
func NewItem(p Product, quantity int) GroceryListItem {
	return GroceryListItem{Product: p, Quantity: quantity}
}

// Normalize fills the list defaults: name and timestamp.
func (l *GroceryList) Normalize(now time.Time) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		l.Name = DefaultListName
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = now
	}
	l.Timestamp = l.Timestamp.UTC().Truncate(time.Microsecond)
}

// Validate checks the list metadata. Items are validated separately.
func (l *GroceryList) Validate() error {
	if l == nil {
		return NewValidationError("list", "is required", ErrValidation)
	}
	if strings.TrimSpace(l.ID) == "" {
		return NewValidationError("list_id", "is required", ErrValidation)
	}
	if strings.TrimSpace(l.UserID) == "" {
		return NewValidationError("user_id", "is required", ErrValidation)
	}
	if l.Revision < 0 {
		return NewValidationError("revision", "cannot be negative", ErrValidation)
	}
	for _, f := range []struct{ name, value string }{
		{"list_id", l.ID},
		{"user_id", l.UserID},
		{"name", l.Name},
	} {
		if err := ValidateText(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// Total is the sum of effective price times quantity over all items.
func (l *GroceryList) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range l.Items {
		total = total.Add(item.EffectivePrice().Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Normalize defaults the quantity to 1 and normalizes the snapshot.
func (i *GroceryListItem) Normalize() {
	if i.Quantity == 0 {
		i.Quantity = 1
	}
	i.Product.Normalize()
}

// Validate checks the snapshot and the quantity.
func (i *GroceryListItem) Validate() error {
	if err := i.Product.Validate(); err != nil {
		return err
	}
	if i.Quantity <= 0 {
		return NewValidationError("quantity", "must be positive", ErrValidation)
	}
	if i.Quantity > math.MaxInt32 {
		return NewValidationError("quantity", "must be at most 2147483647", ErrValidation)
	}
	return nil
}
