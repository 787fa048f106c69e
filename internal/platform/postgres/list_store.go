package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joshuxchn/qloo/internal/domain"
	"github.com/joshuxchn/qloo/internal/platform/logger"
	"github.com/joshuxchn/qloo/internal/redact"
	"github.com/joshuxchn/qloo/internal/snapshot"
	"github.com/joshuxchn/qloo/internal/store"
)

const listColumns = `list_id, user_id, name, timestamp, revision`

const itemColumns = `list_item_id, list_id, name, price, promo_price, fulfillment_type,
		brand, inventory, size, last_updated, location_id, upc, quantity, category`

var insertItemQuery = buildInsertItemQuery()

func buildInsertItemQuery() string {
	placeholders := make([]string, len(snapshot.InsertColumns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO grocery_list_items (%s) VALUES (%s) RETURNING list_item_id",
		strings.Join(snapshot.InsertColumns, ", "),
		strings.Join(placeholders, ", "),
	)
}

// readOptions gives multi-statement reads one consistent snapshot.
var readOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// PostgresListStore implements the store.ListStore interface
// using a PostgreSQL database as the storage backend.
type PostgresListStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresListStore creates a new PostgreSQL implementation of the ListStore interface.
// It accepts a database connection or transaction. When given a *sql.DB each
// operation runs in its own transaction; when given a *sql.Tx operations join it.
// If logger is nil, a default logger will be used.
func NewPostgresListStore(db store.DBTX, logger *slog.Logger) *PostgresListStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresListStore{
		db:     db,
		logger: logger.With(slog.String("component", "list_store")),
		now:    time.Now,
	}
}

// Ensure PostgresListStore implements store.ListStore interface
var _ store.ListStore = (*PostgresListStore)(nil)

// WithTx implements store.ListStore.WithTx
func (s *PostgresListStore) WithTx(tx *sql.Tx) store.ListStore {
	return &PostgresListStore{
		db:     tx,
		logger: s.logger,
		now:    s.now,
	}
}

// Create implements store.ListStore.Create
// The list row and every item row are inserted in one transaction.
func (s *PostgresListStore) Create(
	ctx context.Context,
	list *domain.GroceryList,
	items []domain.GroceryListItem,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if list == nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, (*domain.GroceryList)(nil).Validate())
	}
	meta := *list
	meta.Normalize(s.now())
	meta.Revision = 1
	if err := meta.Validate(); err != nil {
		log.Warn("list validation failed during create", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	rows, err := encodeItems(meta.ID, items)
	if err != nil {
		log.Warn("item validation failed during create",
			slog.String("list_id", meta.ID),
			slog.String("error", err.Error()))
		return err
	}

	err = store.WithConnection(ctx, s.db, nil, func(ctx context.Context, conn store.DBTX) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO grocery_lists (`+listColumns+`)
			VALUES ($1, $2, $3, $4, $5)
		`, meta.ID, meta.UserID, meta.Name, meta.Timestamp, meta.Revision)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: user %s does not exist: %w", store.ErrInvalidEntity, meta.UserID, err)
			}
			return MapError(err)
		}
		if err := insertItems(ctx, conn, rows); err != nil {
			return err
		}
		decoded, err := decodeItems(rows)
		if err != nil {
			return err
		}
		meta.Items = decoded
		return nil
	})
	if err != nil {
		err = MapError(err)
		log.Error("failed to create list",
			slog.String("error", redact.Error(err)),
			slog.String("list_id", meta.ID),
			slog.String("user_id", meta.UserID))
		return err
	}

	*list = meta

	log.Info("list created successfully",
		slog.String("list_id", meta.ID),
		slog.String("user_id", meta.UserID),
		slog.Int("item_count", len(meta.Items)))
	return nil
}

// GetByID implements store.ListStore.GetByID
func (s *PostgresListStore) GetByID(ctx context.Context, listID string) (*domain.GroceryList, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Debug("retrieving list by ID", slog.String("list_id", listID))

	var list *domain.GroceryList
	err := store.WithConnection(ctx, s.db, readOptions, func(ctx context.Context, conn store.DBTX) error {
		row := conn.QueryRowContext(ctx,
			`SELECT `+listColumns+` FROM grocery_lists WHERE list_id = $1`, listID)

		var err error
		list, err = scanList(row)
		if err != nil {
			if isNoRows(err) {
				return store.ErrListNotFound
			}
			return MapError(err)
		}

		stored, err := queryItems(ctx, conn,
			`SELECT `+itemColumns+` FROM grocery_list_items WHERE list_id = $1 ORDER BY list_item_id`,
			listID)
		if err != nil {
			return err
		}
		list.Items, err = decodeItems(stored)
		return err
	})
	if err != nil {
		err = MapError(err)
		if store.IsNotFoundError(err) {
			log.Debug("list not found", slog.String("list_id", listID))
		} else {
			log.Error("failed to get list",
				slog.String("error", redact.Error(err)),
				slog.String("list_id", listID))
		}
		return nil, err
	}

	return list, nil
}

// GetAllForUser implements store.ListStore.GetAllForUser
// Lists come back newest first; ties on timestamp are ordered by list ID.
func (s *PostgresListStore) GetAllForUser(ctx context.Context, userID string) ([]*domain.GroceryList, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Debug("retrieving lists for user", slog.String("user_id", userID))

	lists := []*domain.GroceryList{}
	err := store.WithConnection(ctx, s.db, readOptions, func(ctx context.Context, conn store.DBTX) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT `+listColumns+`
			FROM grocery_lists
			WHERE user_id = $1
			ORDER BY timestamp DESC, list_id
		`, userID)
		if err != nil {
			return MapError(err)
		}
		defer func() {
			if err := rows.Close(); err != nil {
				log.Error("failed to close rows", slog.String("error", err.Error()))
			}
		}()

		byID := make(map[string]*domain.GroceryList)
		for rows.Next() {
			list, err := scanList(rows)
			if err != nil {
				return MapError(err)
			}
			list.Items = []domain.GroceryListItem{}
			lists = append(lists, list)
			byID[list.ID] = list
		}
		if err := rows.Err(); err != nil {
			return MapError(err)
		}
		if len(lists) == 0 {
			return nil
		}

		stored, err := queryItems(ctx, conn, `
			SELECT `+qualify("i", itemColumns)+`
			FROM grocery_list_items i
			JOIN grocery_lists l ON l.list_id = i.list_id
			WHERE l.user_id = $1
			ORDER BY i.list_id, i.list_item_id
		`, userID)
		if err != nil {
			return err
		}
		items, err := decodeItems(stored)
		if err != nil {
			return err
		}
		for _, item := range items {
			if list, ok := byID[item.ListID]; ok {
				list.Items = append(list.Items, item)
			}
		}
		return nil
	})
	if err != nil {
		err = MapError(err)
		log.Error("failed to get lists for user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID))
		return nil, err
	}

	log.Debug("found lists for user",
		slog.String("user_id", userID),
		slog.Int("count", len(lists)))
	return lists, nil
}

// Update implements store.ListStore.Update
// The ownership check, metadata update, item delete and item insert run in
// one transaction, so a failure at any step leaves the list as it was.
func (s *PostgresListStore) Update(
	ctx context.Context,
	list *domain.GroceryList,
	items []domain.GroceryListItem,
	requestingUserID string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if list == nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, (*domain.GroceryList)(nil).Validate())
	}
	meta := *list
	meta.UserID = requestingUserID
	meta.Normalize(s.now())
	if err := meta.Validate(); err != nil {
		log.Warn("list validation failed during update", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	rows, err := encodeItems(meta.ID, items)
	if err != nil {
		log.Warn("item validation failed during update",
			slog.String("list_id", meta.ID),
			slog.String("error", err.Error()))
		return err
	}

	err = store.WithConnection(ctx, s.db, nil, func(ctx context.Context, conn store.DBTX) error {
		var owner string
		var current int64
		err := conn.QueryRowContext(ctx,
			`SELECT user_id, revision FROM grocery_lists WHERE list_id = $1 FOR UPDATE`,
			meta.ID,
		).Scan(&owner, &current)
		if err != nil {
			if isNoRows(err) {
				log.Debug("list not found for update", slog.String("list_id", meta.ID))
				return store.ErrListNotFound
			}
			return MapError(err)
		}
		if owner != requestingUserID {
			log.Warn("list update rejected, requester does not own list",
				slog.String("list_id", meta.ID),
				slog.String("requesting_user_id", requestingUserID))
			return store.ErrListNotFound
		}
		if meta.Revision > 0 && meta.Revision != current {
			return fmt.Errorf("%w: list %s is at revision %d, update was based on %d",
				store.ErrConflict, meta.ID, current, meta.Revision)
		}

		err = conn.QueryRowContext(ctx, `
			UPDATE grocery_lists
			SET name = $2, timestamp = $3, revision = revision + 1
			WHERE list_id = $1
			RETURNING revision
		`, meta.ID, meta.Name, meta.Timestamp).Scan(&meta.Revision)
		if err != nil {
			return MapError(err)
		}

		if _, err := conn.ExecContext(ctx,
			`DELETE FROM grocery_list_items WHERE list_id = $1`, meta.ID); err != nil {
			return MapError(err)
		}

		if err := insertItems(ctx, conn, rows); err != nil {
			return err
		}
		decoded, err := decodeItems(rows)
		if err != nil {
			return err
		}
		meta.Items = decoded
		return nil
	})
	if err != nil {
		err = MapError(err)
		if store.IsNotFoundError(err) {
			return err
		}
		log.Error("failed to update list",
			slog.String("error", redact.Error(err)),
			slog.String("list_id", meta.ID))
		return err
	}

	*list = meta

	log.Info("list updated successfully",
		slog.String("list_id", meta.ID),
		slog.Int64("revision", meta.Revision),
		slog.Int("item_count", len(meta.Items)))
	return nil
}

// Delete implements store.ListStore.Delete
// Items are removed by the ON DELETE CASCADE foreign key.
func (s *PostgresListStore) Delete(ctx context.Context, listID, requestingUserID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM grocery_lists WHERE list_id = $1 AND user_id = $2`,
		listID, requestingUserID)
	if err != nil {
		err = MapError(err)
		log.Error("failed to delete list",
			slog.String("error", redact.Error(err)),
			slog.String("list_id", listID))
		return err
	}

	if err := CheckRowsAffected(result, store.ErrListNotFound); err != nil {
		log.Debug("list not found or not owned for delete",
			slog.String("list_id", listID),
			slog.String("requesting_user_id", requestingUserID))
		return err
	}

	log.Info("list deleted successfully", slog.String("list_id", listID))
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanList(row rowScanner) (*domain.GroceryList, error) {
	var list domain.GroceryList
	if err := row.Scan(&list.ID, &list.UserID, &list.Name, &list.Timestamp, &list.Revision); err != nil {
		return nil, err
	}
	list.Timestamp = list.Timestamp.UTC()
	return &list, nil
}

func queryItems(ctx context.Context, conn store.DBTX, query string, arg string) ([]snapshot.StoredItem, error) {
	rows, err := conn.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var stored []snapshot.StoredItem
	if err := sqlx.StructScan(rows, &stored); err != nil {
		return nil, MapError(err)
	}
	return stored, nil
}

func decodeItems(stored []snapshot.StoredItem) ([]domain.GroceryListItem, error) {
	items := make([]domain.GroceryListItem, 0, len(stored))
	for _, row := range stored {
		item, err := snapshot.FromStored(row)
		if err != nil {
			return nil, store.NewStoreError("grocery_list_item", "decode",
				fmt.Sprintf("item %d", row.ID), err)
		}
		items = append(items, item)
	}
	return items, nil
}

// encodeItems validates every item before any statement is issued.
func encodeItems(listID string, items []domain.GroceryListItem) ([]snapshot.StoredItem, error) {
	rows := make([]snapshot.StoredItem, 0, len(items))
	for i, item := range items {
		item.ListID = listID
		item.ID = 0
		row, err := snapshot.ToStored(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// insertItems inserts rows in order and records the assigned IDs.
func insertItems(ctx context.Context, conn store.DBTX, rows []snapshot.StoredItem) error {
	for i := range rows {
		err := conn.QueryRowContext(ctx, insertItemQuery, rows[i].Args()...).Scan(&rows[i].ID)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: list %s does not exist: %w", store.ErrInvalidEntity, rows[i].ListID, err)
			}
			return MapError(err)
		}
	}
	return nil
}

// qualify prefixes each column in a comma-separated list with alias.
func qualify(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
