package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joshuxchn/qloo/internal/domain"
	"github.com/joshuxchn/qloo/internal/platform/logger"
	"github.com/joshuxchn/qloo/internal/redact"
	"github.com/joshuxchn/qloo/internal/store"
)

// ListService provides grocery list operations scoped to the requesting user.
type ListService struct {
	lists  store.ListStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewListService creates a ListService. A nil logger uses the default logger.
func NewListService(lists store.ListStore, logger *slog.Logger) *ListService {
	if lists == nil {
		panic("lists cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListService{
		lists:  lists,
		logger: logger.With(slog.String("component", "list_service")),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// CreateList creates a list for userID. An empty name gets the default name.
func (s *ListService) CreateList(
	ctx context.Context,
	userID, name string,
	items []domain.GroceryListItem,
) (*domain.GroceryList, error) {
	list := &domain.GroceryList{
		ID:        s.newID(),
		UserID:    userID,
		Name:      name,
		Timestamp: s.now(),
	}
	if err := s.lists.Create(ctx, list, items); err != nil {
		s.logFailure(ctx, "failed to create list", list.ID, err)
		return nil, fmt.Errorf("failed to create list: %w", err)
	}
	return list, nil
}

// GetList returns a list owned by userID. A list owned by someone else is
// reported as store.ErrListNotFound.
func (s *ListService) GetList(ctx context.Context, listID, userID string) (*domain.GroceryList, error) {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		s.logFailure(ctx, "failed to get list", listID, err)
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	if list.UserID != userID {
		logger.FromContextOrDefault(ctx, s.logger).Warn("list read rejected, requester does not own list",
			slog.String("list_id", listID),
			slog.String("requesting_user_id", userID))
		return nil, fmt.Errorf("failed to get list: %w", store.ErrListNotFound)
	}
	return list, nil
}

// ListsForUser returns every list owned by userID, newest first.
func (s *ListService) ListsForUser(ctx context.Context, userID string) ([]*domain.GroceryList, error) {
	lists, err := s.lists.GetAllForUser(ctx, userID)
	if err != nil {
		s.logFailure(ctx, "failed to get lists", "", err)
		return nil, fmt.Errorf("failed to get lists: %w", err)
	}
	return lists, nil
}

// GetOrCreateDefaultList returns the user's newest list, creating an empty
// list with the default name if the user has none.
func (s *ListService) GetOrCreateDefaultList(ctx context.Context, userID string) (*domain.GroceryList, error) {
	lists, err := s.ListsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lists) > 0 {
		return lists[0], nil
	}
	return s.CreateList(ctx, userID, "", nil)
}

// AddItems adds items to a list. An item whose UPC is already on the list
// increases that line's quantity; other items are appended.
func (s *ListService) AddItems(
	ctx context.Context,
	listID, userID string,
	items []domain.GroceryListItem,
) (*domain.GroceryList, error) {
	return s.edit(ctx, listID, userID, func(current []domain.GroceryListItem) ([]domain.GroceryListItem, error) {
		return MergeItems(current, items), nil
	})
}

// RemoveItem removes the line with the given UPC.
// Returns ErrItemNotFound if no line has that UPC.
func (s *ListService) RemoveItem(ctx context.Context, listID, userID, upc string) (*domain.GroceryList, error) {
	return s.SetQuantity(ctx, listID, userID, upc, 0)
}

// SetQuantity sets the quantity of the line with the given UPC. A quantity of
// zero or less removes the line.
// Returns ErrItemNotFound if no line has that UPC.
func (s *ListService) SetQuantity(
	ctx context.Context,
	listID, userID, upc string,
	quantity int,
) (*domain.GroceryList, error) {
	return s.edit(ctx, listID, userID, func(current []domain.GroceryListItem) ([]domain.GroceryListItem, error) {
		out := make([]domain.GroceryListItem, 0, len(current))
		found := false
		for _, item := range current {
			if upc != "" && item.UPC == upc {
				found = true
				if quantity <= 0 {
					continue
				}
				item.Quantity = quantity
			}
			out = append(out, item)
		}
		if !found {
			return nil, fmt.Errorf("%w: upc %s", ErrItemNotFound, upc)
		}
		return out, nil
	})
}

// RenameList changes a list's name and bumps its timestamp.
func (s *ListService) RenameList(ctx context.Context, listID, userID, name string) (*domain.GroceryList, error) {
	list, err := s.GetList(ctx, listID, userID)
	if err != nil {
		return nil, err
	}
	list.Name = name
	list.Timestamp = s.now()
	if err := s.lists.Update(ctx, list, list.Items, userID); err != nil {
		s.logFailure(ctx, "failed to rename list", listID, err)
		return nil, fmt.Errorf("failed to rename list: %w", err)
	}
	return list, nil
}

// DeleteList removes a list owned by userID.
func (s *ListService) DeleteList(ctx context.Context, listID, userID string) error {
	if err := s.lists.Delete(ctx, listID, userID); err != nil {
		s.logFailure(ctx, "failed to delete list", listID, err)
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

// edit reads the list, applies change to its items and writes the result
// back with the revision that was read.
func (s *ListService) edit(
	ctx context.Context,
	listID, userID string,
	change func([]domain.GroceryListItem) ([]domain.GroceryListItem, error),
) (*domain.GroceryList, error) {
	list, err := s.GetList(ctx, listID, userID)
	if err != nil {
		return nil, err
	}

	items, err := change(list.Items)
	if err != nil {
		return nil, err
	}

	list.Timestamp = s.now()
	if err := s.lists.Update(ctx, list, items, userID); err != nil {
		s.logFailure(ctx, "failed to update list items", listID, err)
		return nil, fmt.Errorf("failed to update list items: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("list items updated",
		slog.String("list_id", listID),
		slog.Int64("revision", list.Revision),
		slog.Int("item_count", len(list.Items)))
	return list, nil
}

// MergeItems returns current with added merged in. Added items sharing a UPC
// with an existing line increase its quantity and keep the existing
// snapshot; items without a UPC are always appended. Neither input is
// modified.
func MergeItems(current, added []domain.GroceryListItem) []domain.GroceryListItem {
	out := make([]domain.GroceryListItem, len(current), len(current)+len(added))
	copy(out, current)

	byUPC := make(map[string]int, len(out))
	for i, item := range out {
		if item.UPC != "" {
			if _, ok := byUPC[item.UPC]; !ok {
				byUPC[item.UPC] = i
			}
		}
	}

	for _, item := range added {
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		if i, ok := byUPC[item.UPC]; ok && item.UPC != "" {
			out[i].Quantity += item.Quantity
			continue
		}
		out = append(out, item)
		if item.UPC != "" {
			byUPC[item.UPC] = len(out) - 1
		}
	}
	return out
}

func (s *ListService) logFailure(ctx context.Context, msg, listID string, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if store.IsNotFoundError(err) || store.IsRetryable(err) {
		log.Warn(msg, slog.String("list_id", listID), slog.String("error", err.Error()))
		return
	}
	log.Error(msg, slog.String("list_id", listID), slog.String("error", redact.Error(err)))
}
