package snapshot

import (
	"database/sql"
	"strings"

	"github.com/joshuxchn/qloo/internal/domain"
)

// Representative counts stored for each stock level. They are display
// approximations; HIGH means "plenty", not exactly 100 units.
const (
	countHigh       int64 = 100
	countMedium     int64 = 50
	countLow        int64 = 10
	countOutOfStock int64 = 0
)

// InventoryCount returns the integer stored for level. The second result is
// false for StockUnknown (and anything unrecognized), which is stored as NULL.
func InventoryCount(level domain.StockLevel) (int64, bool) {
	switch level {
	case domain.StockHigh:
		return countHigh, true
	case domain.StockMedium:
		return countMedium, true
	case domain.StockLow:
		return countLow, true
	case domain.StockOutOfStock:
		return countOutOfStock, true
	default:
		return 0, false
	}
}

// LevelFromCount maps a stored count back to a level. Thresholds rather than
// exact matches are used so any count decodes: >=100 HIGH, >=50 MEDIUM,
// >=1 LOW, 0 OUT_OF_STOCK, NULL or negative UNKNOWN.
func LevelFromCount(count sql.NullInt64) domain.StockLevel {
	if !count.Valid {
		return domain.StockUnknown
	}
	switch c := count.Int64; {
	case c >= countHigh:
		return domain.StockHigh
	case c >= countMedium:
		return domain.StockMedium
	case c >= 1:
		return domain.StockLow
	case c == countOutOfStock:
		return domain.StockOutOfStock
	default:
		return domain.StockUnknown
	}
}

// ParseStockLevel maps a catalog stock string onto a level. Matching is
// case-insensitive and the catalog's TEMPORARILY_OUT_OF_STOCK is accepted.
// An empty string is StockUnknown.
func ParseStockLevel(raw string) (domain.StockLevel, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "":
		return domain.StockUnknown, nil
	case "TEMPORARILY_OUT_OF_STOCK":
		return domain.StockOutOfStock, nil
	}
	level := domain.StockLevel(key)
	if !level.Valid() {
		return "", fieldError("inventory", raw, errUnknownVal)
	}
	return level, nil
}
