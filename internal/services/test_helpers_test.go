package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/pkg/auth"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository implements UserRepository and CredentialStore for testing
type MockUserRepository struct {
	GetByUIDFunc           func(ctx context.Context, uid string) (*models.User, error)
	GetByUsernameFunc      func(ctx context.Context, username string) (*models.User, error)
	UsernameExistsFunc     func(ctx context.Context, username string) (bool, error)
	ListFunc               func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CountFunc              func(ctx context.Context) (int, error)
	CreateFunc             func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc             func(ctx context.Context, uid string, user *models.User) (*models.User, error)
	UpdatePasswordHashFunc func(ctx context.Context, uid, passwordHash string) error
	SwapPasswordHashFunc   func(ctx context.Context, uid, current, passwordHash string) error
	DeleteFunc             func(ctx context.Context, uid string) error
}

func (m *MockUserRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	if m.GetByUIDFunc != nil {
		return m.GetByUIDFunc(ctx, uid)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.UsernameExistsFunc != nil {
		return m.UsernameExistsFunc(ctx, username)
	}
	return false, nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, uid string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, uid, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, uid, passwordHash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, uid, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) SwapPasswordHash(ctx context.Context, uid, current, passwordHash string) error {
	if m.SwapPasswordHashFunc != nil {
		return m.SwapPasswordHashFunc(ctx, uid, current, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, uid string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, uid)
	}
	return nil
}

// memoryUsers backs a MockUserRepository with a map so scenarios can run
// end to end. Records are copied in and out.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User
	order []string
}

// NewMemoryUserRepository returns a MockUserRepository whose functions operate
// on an in-memory user table. Individual funcs can be overridden afterwards.
func NewMemoryUserRepository(users ...*models.User) *MockUserRepository {
	mem := &memoryUsers{users: make(map[string]models.User)}
	for _, u := range users {
		mem.put(*u)
	}

	return &MockUserRepository{
		GetByUIDFunc: func(_ context.Context, uid string) (*models.User, error) {
			mem.mu.Lock()
			defer mem.mu.Unlock()
			u, ok := mem.users[uid]
			if !ok {
				return nil, models.ErrNotFound
			}
			return &u, nil
		},
		GetByUsernameFunc: func(_ context.Context, username string) (*models.User, error) {
			mem.mu.Lock()
			defer mem.mu.Unlock()
			u, ok := mem.byUsername(username)
			if !ok {
				return nil, models.ErrNotFound
			}
			return &u, nil
		},
		UsernameExistsFunc: func(_ context.Context, username string) (bool, error) {
			mem.mu.Lock()
			defer mem.mu.Unlock()
			_, ok := mem.byUsername(username)
			return ok, nil
		},
		ListFunc: func(_ context.Context, limit, offset int) ([]*models.User, error) {
			mem.mu.Lock()
			defer mem.mu.Unlock()
			out := []*models.User{}
			for i := offset; i < len(mem.order) && len(out) < limit; i++ {
				u := mem.users[mem.order[i]]
				out = append(out, &u)
			}
			return out, nil
		},
		CountFunc: func(_ context.Context) (int, error) {
			mem.mu.Lock()
			defer mem.mu.Unlock()
			return len(mem.users), nil
		},
		CreateFunc: func(_ context.Context, user *models.User) (*models.User, error) {
			mem.mu.Lock()
			defer mem.mu.Unlock()
			if _, ok := mem.byUsername(user.Username); ok {
				return nil, models.ErrConflict
			}
			if user.UID == "" {
				user.UID = uuid.NewString()
			}
			mem.put(*user)
			u := mem.users[user.UID]
			return &u, nil
		},
		UpdateFunc: func(_ context.Context, uid string, user *models.User) (*models.User, error) {
			mem.mu.Lock()
			defer mem.mu.Unlock()
			existing, ok := mem.users[uid]
			if !ok {
				return nil, models.ErrNotFound
			}
			updated := *user
			updated.UID = uid
			updated.PasswordHash = existing.PasswordHash
			updated.LegacyHash = existing.LegacyHash
			mem.users[uid] = updated
			return &updated, nil
		},
		UpdatePasswordHashFunc: func(_ context.Context, uid, passwordHash string) error {
			mem.mu.Lock()
			defer mem.mu.Unlock()
			u, ok := mem.users[uid]
			if !ok {
				return models.ErrNotFound
			}
			u.PasswordHash = passwordHash
			u.LegacyHash = ""
			mem.users[uid] = u
			return nil
		},
		SwapPasswordHashFunc: func(_ context.Context, uid, current, passwordHash string) error {
			mem.mu.Lock()
			defer mem.mu.Unlock()
			u, ok := mem.users[uid]
			if !ok || u.PasswordHash != current {
				return models.ErrConflict
			}
			u.PasswordHash = passwordHash
			u.LegacyHash = ""
			mem.users[uid] = u
			return nil
		},
		DeleteFunc: func(_ context.Context, uid string) error {
			mem.mu.Lock()
			defer mem.mu.Unlock()
			if _, ok := mem.users[uid]; !ok {
				return models.ErrNotFound
			}
			delete(mem.users, uid)
			for i, id := range mem.order {
				if id == uid {
					mem.order = append(mem.order[:i], mem.order[i+1:]...)
					break
				}
			}
			return nil
		},
	}
}

func (m *memoryUsers) put(u models.User) {
	if _, ok := m.users[u.UID]; !ok {
		m.order = append(m.order, u.UID)
	}
	m.users[u.UID] = u
}

func (m *memoryUsers) byUsername(username string) (models.User, bool) {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return models.User{}, false
}

// MockSearchIndex implements SearchIndex for testing
type MockSearchIndex struct {
	AddFunc    func(ctx context.Context, record models.IndexRecord) error
	UpdateFunc func(ctx context.Context, record models.IndexRecord) error
	RemoveFunc func(ctx context.Context, uid string) error
	SizeFunc   func(ctx context.Context) (int, error)
	SearchFunc func(ctx context.Context, query string, limit int) ([]models.IndexRecord, error)
}

func (m *MockSearchIndex) Add(ctx context.Context, record models.IndexRecord) error {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, record)
	}
	return nil
}

func (m *MockSearchIndex) Update(ctx context.Context, record models.IndexRecord) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, record)
	}
	return nil
}

func (m *MockSearchIndex) Remove(ctx context.Context, uid string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, uid)
	}
	return nil
}

func (m *MockSearchIndex) Size(ctx context.Context) (int, error) {
	if m.SizeFunc != nil {
		return m.SizeFunc(ctx)
	}
	return 0, nil
}

func (m *MockSearchIndex) Search(ctx context.Context, query string, limit int) ([]models.IndexRecord, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, limit)
	}
	return []models.IndexRecord{}, nil
}

// MockReindexer counts triggers
type MockReindexer struct {
	mu       sync.Mutex
	triggers int
	busy     bool
}

func (m *MockReindexer) Trigger() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers++
	return !m.busy
}

func (m *MockReindexer) Triggers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.triggers
}

// NewTestUser creates a test user without a credential
func NewTestUser(uid, username, email string) *models.User {
	return &models.User{
		UID:       uid,
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testPepper = "test-pepper-that-is-at-least-32-characters"

// newTestHasher returns a hasher at the minimum bcrypt cost to keep tests fast
func newTestHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()
	h, err := auth.NewPasswordHasher(testPepper, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to create hasher: %v", err)
	}
	return h
}

func mustHash(t *testing.T, h *auth.PasswordHasher, password string) string {
	t.Helper()
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return hash
}
