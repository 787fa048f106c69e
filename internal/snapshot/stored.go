package snapshot

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joshuxchn/qloo/internal/domain"
)

// StoredItem is the row form of a list item. The db tags match the
// grocery_list_items columns so rows can be scanned with sqlx.
type StoredItem struct {
	ID          int64               `db:"list_item_id"`
	ListID      string              `db:"list_id"`
	Name        string              `db:"name"`
	Price       decimal.Decimal     `db:"price"`
	PromoPrice  decimal.NullDecimal `db:"promo_price"`
	Fulfillment string              `db:"fulfillment_type"`
	Brand       sql.NullString      `db:"brand"`
	Inventory   sql.NullInt64       `db:"inventory"`
	Size        sql.NullString      `db:"size"`
	LastUpdated sql.NullTime        `db:"last_updated"`
	LocationID  sql.NullString      `db:"location_id"`
	UPC         sql.NullString      `db:"upc"`
	Quantity    int                 `db:"quantity"`
	Category    string              `db:"category"`
}

// ToStored normalizes and validates item and converts it to the row form.
func ToStored(item domain.GroceryListItem) (StoredItem, error) {
	item.Normalize()
	if err := item.Validate(); err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return StoredItem{}, fieldError(vErr.Field, "", err)
		}
		return StoredItem{}, fieldError("item", "", err)
	}

	inventory, known := InventoryCount(item.Inventory)
	row := StoredItem{
		ID:          item.ID,
		ListID:      item.ListID,
		Name:        item.Name,
		Price:       item.Price,
		PromoPrice:  item.PromoPrice,
		Fulfillment: string(item.Fulfillment),
		Brand:       nullString(item.Brand),
		Inventory:   sql.NullInt64{Int64: inventory, Valid: known},
		Size:        nullString(item.Size),
		LastUpdated: sql.NullTime{Time: item.LastUpdated, Valid: !item.LastUpdated.IsZero()},
		LocationID:  nullString(item.LocationID),
		UPC:         nullString(item.UPC),
		Quantity:    item.Quantity,
		Category:    item.Category,
	}
	return row, nil
}

// FromStored converts a row back to a domain item. Rows written by other
// tools are checked: an empty name, an unknown fulfillment channel or a
// non-positive quantity is a serialization error.
func FromStored(row StoredItem) (domain.GroceryListItem, error) {
	if strings.TrimSpace(row.Name) == "" {
		return domain.GroceryListItem{}, fieldError("name", "", errRequired)
	}
	if row.Quantity <= 0 {
		return domain.GroceryListItem{}, fieldError("quantity", strconv.Itoa(row.Quantity), errUnknownVal)
	}

	fulfillment := domain.FulfillmentType(row.Fulfillment)
	if row.Fulfillment == "" {
		fulfillment = domain.FulfillmentUnknown
	}
	if !fulfillment.Valid() {
		return domain.GroceryListItem{}, fieldError("fulfillment_type", row.Fulfillment, errUnknownVal)
	}

	item := domain.GroceryListItem{
		ID:     row.ID,
		ListID: row.ListID,
		Product: domain.Product{
			Name:        row.Name,
			Price:       row.Price,
			PromoPrice:  row.PromoPrice,
			Fulfillment: fulfillment,
			Brand:       row.Brand.String,
			Inventory:   LevelFromCount(row.Inventory),
			Size:        row.Size.String,
			LocationID:  row.LocationID.String,
			UPC:         row.UPC.String,
			Category:    row.Category,
		},
		Quantity: row.Quantity,
	}
	if row.LastUpdated.Valid {
		item.LastUpdated = row.LastUpdated.Time
	}
	item.Normalize()
	return item, nil
}

// Args returns the values for the insert columns in InsertColumns order.
func (r StoredItem) Args() []any {
	return []any{
		r.ListID,
		r.Name,
		r.Price,
		r.PromoPrice,
		r.Fulfillment,
		r.Brand,
		r.Inventory,
		r.Size,
		r.LastUpdated,
		r.LocationID,
		r.UPC,
		r.Quantity,
		r.Category,
	}
}

// InsertColumns lists the columns written when an item is inserted, in the
// order of StoredItem.Args.
var InsertColumns = []string{
	"list_id",
	"name",
	"price",
	"promo_price",
	"fulfillment_type",
	"brand",
	"inventory",
	"size",
	"last_updated",
	"location_id",
	"upc",
	"quantity",
	"category",
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
