package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joshuxchn/qloo/internal/domain"
	"github.com/joshuxchn/qloo/internal/store"
)

var serviceNow = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

func newListService(t *testing.T) (*ListService, *MockListStore) {
	t.Helper()
	lists := &MockListStore{}
	svc := NewListService(lists, nil)
	svc.now = func() time.Time { return serviceNow }
	svc.newID = func() string { return "list-new" }
	t.Cleanup(func() { lists.AssertExpectations(t) })
	return svc, lists
}

func line(name, upc string, qty int) domain.GroceryListItem {
	return domain.NewItem(domain.Product{
		Name:  name,
		Price: decimal.RequireFromString("1.00"),
		UPC:   upc,
	}, qty)
}

func ownedList(items ...domain.GroceryListItem) *domain.GroceryList {
	return &domain.GroceryList{
		ID:       "list-1",
		UserID:   "user-1",
		Name:     "Weekly",
		Revision: 3,
		Items:    items,
	}
}

// applyUpdate mimics a successful store update on the list passed in.
func applyUpdate(args mock.Arguments) {
	list := args.Get(1).(*domain.GroceryList)
	list.Items = args.Get(2).([]domain.GroceryListItem)
	list.Revision++
}

func TestNewListService(t *testing.T) {
	assert.Panics(t, func() { NewListService(nil, nil) })
}

func TestListService_CreateList(t *testing.T) {
	svc, lists := newListService(t)

	items := []domain.GroceryListItem{line("Milk", "1", 1)}
	lists.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.GroceryList) bool {
		return l.ID == "list-new" && l.UserID == "user-1" && l.Name == "Party" && l.Timestamp.Equal(serviceNow)
	}), items).Return(nil)

	list, err := svc.CreateList(context.Background(), "user-1", "Party", items)
	require.NoError(t, err)
	assert.Equal(t, "list-new", list.ID)
}

func TestListService_GetList(t *testing.T) {
	ctx := context.Background()

	t.Run("owner", func(t *testing.T) {
		svc, lists := newListService(t)
		lists.On("GetByID", mock.Anything, "list-1").Return(ownedList(), nil)

		list, err := svc.GetList(ctx, "list-1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Weekly", list.Name)
	})

	t.Run("someone else's list looks missing", func(t *testing.T) {
		svc, lists := newListService(t)
		lists.On("GetByID", mock.Anything, "list-1").Return(ownedList(), nil)

		list, err := svc.GetList(ctx, "list-1", "intruder")
		assert.Nil(t, list)
		assert.ErrorIs(t, err, store.ErrListNotFound)
	})

	t.Run("missing", func(t *testing.T) {
		svc, lists := newListService(t)
		lists.On("GetByID", mock.Anything, "list-9").Return(nil, store.ErrListNotFound)

		_, err := svc.GetList(ctx, "list-9", "user-1")
		assert.ErrorIs(t, err, store.ErrListNotFound)
	})
}

func TestListService_GetOrCreateDefaultList(t *testing.T) {
	ctx := context.Background()

	t.Run("returns newest list", func(t *testing.T) {
		svc, lists := newListService(t)

		newest := ownedList()
		lists.On("GetAllForUser", mock.Anything, "user-1").
			Return([]*domain.GroceryList{newest, {ID: "list-0", UserID: "user-1"}}, nil)

		list, err := svc.GetOrCreateDefaultList(ctx, "user-1")
		require.NoError(t, err)
		assert.Same(t, newest, list)
	})

	t.Run("creates one when the user has none", func(t *testing.T) {
		svc, lists := newListService(t)

		lists.On("GetAllForUser", mock.Anything, "user-1").Return([]*domain.GroceryList{}, nil)
		lists.On("Create", mock.Anything, mock.AnythingOfType("*domain.GroceryList"),
			[]domain.GroceryListItem(nil)).Return(nil)

		list, err := svc.GetOrCreateDefaultList(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "list-new", list.ID)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, lists := newListService(t)

		lists.On("GetAllForUser", mock.Anything, "user-1").Return(nil, store.ErrConnection)

		_, err := svc.GetOrCreateDefaultList(ctx, "user-1")
		assert.ErrorIs(t, err, store.ErrConnection)
	})
}

func TestListService_AddItems(t *testing.T) {
	ctx := context.Background()

	t.Run("merges by UPC and keeps the read revision", func(t *testing.T) {
		svc, lists := newListService(t)

		lists.On("GetByID", mock.Anything, "list-1").
			Return(ownedList(line("Milk", "111", 1), line("Bread", "222", 1)), nil)
		lists.On("Update", mock.Anything,
			mock.MatchedBy(func(l *domain.GroceryList) bool { return l.Revision == 3 && l.Timestamp.Equal(serviceNow) }),
			mock.MatchedBy(func(items []domain.GroceryListItem) bool {
				return len(items) == 3 &&
					items[0].Name == "Milk" && items[0].Quantity == 3 &&
					items[1].Name == "Bread" && items[1].Quantity == 1 &&
					items[2].Name == "Eggs" && items[2].Quantity == 12
			}),
			"user-1",
		).Run(applyUpdate).Return(nil)

		list, err := svc.AddItems(ctx, "list-1", "user-1", []domain.GroceryListItem{
			line("Milk", "111", 2),
			line("Eggs", "333", 12),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), list.Revision)
		assert.Len(t, list.Items, 3)
	})

	t.Run("concurrent edit", func(t *testing.T) {
		svc, lists := newListService(t)

		lists.On("GetByID", mock.Anything, "list-1").Return(ownedList(), nil)
		lists.On("Update", mock.Anything, mock.Anything, mock.Anything, "user-1").
			Return(store.ErrConflict)

		_, err := svc.AddItems(ctx, "list-1", "user-1", []domain.GroceryListItem{line("Milk", "111", 1)})
		assert.ErrorIs(t, err, store.ErrConflict)
		assert.True(t, store.IsRetryable(err))
	})

	t.Run("not owner", func(t *testing.T) {
		svc, lists := newListService(t)

		lists.On("GetByID", mock.Anything, "list-1").Return(ownedList(), nil)

		_, err := svc.AddItems(ctx, "list-1", "intruder", []domain.GroceryListItem{line("Milk", "111", 1)})
		assert.ErrorIs(t, err, store.ErrListNotFound)
		lists.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListService_SetQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("sets quantity", func(t *testing.T) {
		svc, lists := newListService(t)

		lists.On("GetByID", mock.Anything, "list-1").
			Return(ownedList(line("Milk", "111", 1), line("Bread", "222", 1)), nil)
		lists.On("Update", mock.Anything, mock.Anything,
			mock.MatchedBy(func(items []domain.GroceryListItem) bool {
				return len(items) == 2 && items[1].Quantity == 5
			}), "user-1").Run(applyUpdate).Return(nil)

		list, err := svc.SetQuantity(ctx, "list-1", "user-1", "222", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, list.Items[1].Quantity)
	})

	t.Run("zero removes", func(t *testing.T) {
		svc, lists := newListService(t)

		lists.On("GetByID", mock.Anything, "list-1").
			Return(ownedList(line("Milk", "111", 1), line("Bread", "222", 1)), nil)
		lists.On("Update", mock.Anything, mock.Anything,
			mock.MatchedBy(func(items []domain.GroceryListItem) bool {
				return len(items) == 1 && items[0].UPC == "222"
			}), "user-1").Run(applyUpdate).Return(nil)

		list, err := svc.SetQuantity(ctx, "list-1", "user-1", "111", 0)
		require.NoError(t, err)
		assert.Len(t, list.Items, 1)
	})

	t.Run("unknown UPC", func(t *testing.T) {
		svc, lists := newListService(t)

		lists.On("GetByID", mock.Anything, "list-1").Return(ownedList(line("Milk", "111", 1)), nil)

		_, err := svc.SetQuantity(ctx, "list-1", "user-1", "999", 2)
		assert.ErrorIs(t, err, ErrItemNotFound)
		lists.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListService_RemoveItem(t *testing.T) {
	svc, lists := newListService(t)

	lists.On("GetByID", mock.Anything, "list-1").
		Return(ownedList(line("Milk", "111", 1), line("Eggs", "333", 12)), nil)
	lists.On("Update", mock.Anything, mock.Anything,
		mock.MatchedBy(func(items []domain.GroceryListItem) bool {
			return len(items) == 1 && items[0].Name == "Milk"
		}), "user-1").Run(applyUpdate).Return(nil)

	list, err := svc.RemoveItem(context.Background(), "list-1", "user-1", "333")
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Milk", list.Items[0].Name)
}

func TestListService_RenameList(t *testing.T) {
	svc, lists := newListService(t)

	items := []domain.GroceryListItem{line("Milk", "111", 1)}
	lists.On("GetByID", mock.Anything, "list-1").Return(ownedList(items...), nil)
	lists.On("Update", mock.Anything,
		mock.MatchedBy(func(l *domain.GroceryList) bool { return l.Name == "Camping" }),
		items, "user-1").Run(applyUpdate).Return(nil)

	list, err := svc.RenameList(context.Background(), "list-1", "user-1", "Camping")
	require.NoError(t, err)
	assert.Equal(t, "Camping", list.Name)
}

func TestListService_DeleteList(t *testing.T) {
	svc, lists := newListService(t)

	lists.On("Delete", mock.Anything, "list-1", "user-1").Return(nil)
	lists.On("Delete", mock.Anything, "list-1", "intruder").Return(store.ErrListNotFound)

	require.NoError(t, svc.DeleteList(context.Background(), "list-1", "user-1"))
	assert.ErrorIs(t, svc.DeleteList(context.Background(), "list-1", "intruder"), store.ErrListNotFound)
}

func TestMergeItems(t *testing.T) {
	current := []domain.GroceryListItem{line("Milk", "111", 1), line("Loose apples", "", 3)}

	tests := []struct {
		name  string
		added []domain.GroceryListItem
		want  map[string]int
		count int
	}{
		{
			name:  "nothing added",
			added: nil,
			want:  map[string]int{"Milk": 1, "Loose apples": 3},
			count: 2,
		},
		{
			name:  "same UPC sums quantities",
			added: []domain.GroceryListItem{line("Milk 2%", "111", 2)},
			want:  map[string]int{"Milk": 3, "Loose apples": 3},
			count: 2,
		},
		{
			name:  "missing UPC appends",
			added: []domain.GroceryListItem{line("Loose apples", "", 2)},
			want:  map[string]int{"Milk": 1},
			count: 3,
		},
		{
			name:  "zero quantity counts as one",
			added: []domain.GroceryListItem{line("Milk", "111", 0)},
			want:  map[string]int{"Milk": 2},
			count: 2,
		},
		{
			name:  "repeated new UPC merges with itself",
			added: []domain.GroceryListItem{line("Eggs", "333", 6), line("Eggs", "333", 6)},
			want:  map[string]int{"Eggs": 12},
			count: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeItems(current, tt.added)
			assert.Len(t, got, tt.count)
			byName := map[string]int{}
			for _, item := range got {
				byName[item.Name] = item.Quantity
			}
			for name, qty := range tt.want {
				assert.Equal(t, qty, byName[name], name)
			}
		})
	}

	assert.Equal(t, 1, current[0].Quantity, "input is not modified")
}
