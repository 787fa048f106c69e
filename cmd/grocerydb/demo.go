package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joshuxchn/qloo/internal/config"
	"github.com/joshuxchn/qloo/internal/domain"
	"github.com/joshuxchn/qloo/internal/platform/logger"
	"github.com/joshuxchn/qloo/internal/platform/postgres"
	"github.com/joshuxchn/qloo/internal/service"
	"github.com/joshuxchn/qloo/internal/snapshot"
	"github.com/joshuxchn/qloo/internal/store"
)

// demoCatalog stands in for the retail catalog: product snapshots in the
// wire form it returns.
const demoCatalog = `[
	{"name": "Milk", "price": 3.49, "fulfillment_type": "inStore", "brand": "Darigold",
	 "inventory": "HIGH", "size": "1 gal", "last_updated": "2025-03-01T09:00:00Z",
	 "location_id": "70100070", "upc": "0002620000601", "category": "Dairy", "quantity": 1},
	{"name": "Bread", "price": "2.99", "promo_price": "2.50", "fulfillment_type": "curbside",
	 "inventory": "low", "size": "24 oz", "last_updated": "2025-03-01 09:00:00",
	 "location_id": "70100070", "upc": "0007225000101", "category": "Bakery", "quantity": 2},
	{"name": "Eggs", "price": 4.25, "fulfillment_type": "DELIVERY",
	 "inventory": "TEMPORARILY_OUT_OF_STOCK", "size": "12 ct", "last_updated": "2025-03-01",
	 "location_id": "70100070", "upc": "0001111060903", "quantity": 1}
]`

// demoServices are the services the demo drives.
type demoServices struct {
	accounts *service.AccountService
	lists    *service.ListService
}

func newDemoServices(db *sql.DB, auth config.AuthConfig, log *slog.Logger) demoServices {
	return demoServices{
		accounts: service.NewAccountService(postgres.NewPostgresUserStore(db, log), nil, auth, log),
		lists:    service.NewListService(postgres.NewPostgresListStore(db, log), log),
	}
}

// demoReport is printed as JSON when the demo completes.
type demoReport struct {
	UserID   string              `json:"user_id"`
	Email    string              `json:"email"`
	ListID   string              `json:"list_id"`
	ListName string              `json:"list_name"`
	Revision int64               `json:"revision"`
	Items    []snapshot.WireItem `json:"items"`
	Total    string              `json:"total"`
	// AfterDelete is the error reading the list returned once the account
	// was deleted.
	AfterDelete string `json:"after_delete"`
}

func loadCatalog() (map[string]domain.GroceryListItem, error) {
	var wire []snapshot.WireItem
	if err := json.Unmarshal([]byte(demoCatalog), &wire); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	catalog := make(map[string]domain.GroceryListItem, len(wire))
	for _, w := range wire {
		item, err := snapshot.DecodeItem(w)
		if err != nil {
			return nil, fmt.Errorf("failed to decode catalog product %q: %w", w.Name, err)
		}
		catalog[item.Name] = item
	}
	return catalog, nil
}

// runDemo signs up a throwaway account, saves a list with Milk and Bread,
// adds Eggs, reads the list back, and deletes the account, checking that
// the list went with it.
func runDemo(ctx context.Context, svc demoServices) (*demoReport, error) {
	log := logger.FromContext(ctx)

	catalog, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	email := fmt.Sprintf("demo+%s@example.com", uuid.NewString()[:8])
	user, err := svc.accounts.SignUp(ctx, email, uuid.NewString())
	if err != nil {
		return nil, err
	}
	log.Info("demo user created", slog.String("user_id", user.ID))

	list, err := svc.lists.CreateList(ctx, user.ID, "Weekly groceries",
		[]domain.GroceryListItem{catalog["Milk"], catalog["Bread"]})
	if err != nil {
		return nil, err
	}

	if _, err := svc.lists.AddItems(ctx, list.ID, user.ID,
		[]domain.GroceryListItem{catalog["Eggs"]}); err != nil {
		return nil, err
	}

	list, err = svc.lists.GetList(ctx, list.ID, user.ID)
	if err != nil {
		return nil, err
	}

	report := &demoReport{
		UserID:   user.ID,
		Email:    user.Email,
		ListID:   list.ID,
		ListName: list.Name,
		Revision: list.Revision,
		Items:    make([]snapshot.WireItem, 0, len(list.Items)),
		Total:    list.Total().StringFixed(2),
	}
	for _, item := range list.Items {
		report.Items = append(report.Items, snapshot.EncodeItem(item))
	}

	if err := svc.accounts.DeleteAccount(ctx, user.ID); err != nil {
		return nil, err
	}
	_, err = svc.lists.GetList(ctx, list.ID, user.ID)
	if !errors.Is(err, store.ErrListNotFound) {
		return nil, fmt.Errorf("list survived account deletion: %v", err)
	}
	report.AfterDelete = err.Error()

	return report, nil
}

func writeReport(w io.Writer, report *demoReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
