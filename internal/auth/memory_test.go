package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/odyssey-erp/erp-api/internal/auth"
	"github.com/odyssey-erp/erp-api/internal/shared"
)

type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*auth.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]*auth.User)}
}

func (m *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, shared.NotFound("User not found")
}

func (m *memoryUserRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, shared.NotFound("User not found")
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUserRepo) Create(ctx context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return shared.Conflict("User already exists")
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memoryUserRepo) UpdateProfile(ctx context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return shared.NotFound("User not found")
	}
	user.UpdatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memoryUserRepo) setActive(id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].IsActive = active
}
