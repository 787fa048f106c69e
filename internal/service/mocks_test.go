package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/joshuxchn/qloo/internal/domain"
	"github.com/joshuxchn/qloo/internal/store"
)

// MockUserStore mocks the store.UserStore interface
type MockUserStore struct {
	mock.Mock
}

var _ store.UserStore = (*MockUserStore)(nil)

func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) UpdateTokens(ctx context.Context, id string, tokens *domain.OAuthTokens) error {
	args := m.Called(ctx, id, tokens)
	return args.Error(0)
}

func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

// MockListStore mocks the store.ListStore interface
type MockListStore struct {
	mock.Mock
}

var _ store.ListStore = (*MockListStore)(nil)

func (m *MockListStore) Create(ctx context.Context, list *domain.GroceryList, items []domain.GroceryListItem) error {
	args := m.Called(ctx, list, items)
	return args.Error(0)
}

func (m *MockListStore) GetByID(ctx context.Context, listID string) (*domain.GroceryList, error) {
	args := m.Called(ctx, listID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GroceryList), args.Error(1)
}

func (m *MockListStore) GetAllForUser(ctx context.Context, userID string) ([]*domain.GroceryList, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.GroceryList), args.Error(1)
}

func (m *MockListStore) Update(
	ctx context.Context,
	list *domain.GroceryList,
	items []domain.GroceryListItem,
	requestingUserID string,
) error {
	args := m.Called(ctx, list, items, requestingUserID)
	return args.Error(0)
}

func (m *MockListStore) Delete(ctx context.Context, listID, requestingUserID string) error {
	args := m.Called(ctx, listID, requestingUserID)
	return args.Error(0)
}

func (m *MockListStore) WithTx(tx *sql.Tx) store.ListStore {
	return m
}

// fakeHasher stores passwords with a visible prefix so tests can build
// stored users without paying for bcrypt.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Compare(hashedPassword, password string) error {
	if !strings.HasPrefix(hashedPassword, "hashed:") || hashedPassword[len("hashed:"):] != password {
		return errors.New("mismatch")
	}
	return nil
}
