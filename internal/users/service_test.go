package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-api/internal/auth"
	"github.com/odyssey-erp/erp-api/internal/rbac"
	"github.com/odyssey-erp/erp-api/internal/shared"
	_ "github.com/odyssey-erp/erp-api/testing"
)

type memoryUserRepo struct {
	users map[int64]auth.User
}

func newMemoryUserRepo() *memoryUserRepo {
	now := time.Now()
	return &memoryUserRepo{users: map[int64]auth.User{
		1: {ID: 1, Name: "Admin User", Email: "admin@erp.com", Role: shared.RoleAdmin, IsActive: true, CreatedAt: now},
		2: {ID: 2, Name: "Sales User", Email: "sales@erp.com", Role: shared.RoleSales, IsActive: true, CreatedAt: now.Add(time.Second)},
		3: {ID: 3, Name: "Inventory User", Email: "inventory@erp.com", Role: shared.RoleInventory, IsActive: false, CreatedAt: now.Add(2 * time.Second)},
	}}
}

func (m *memoryUserRepo) List(_ context.Context, filter ListFilter) ([]auth.User, int, error) {
	out := make([]auth.User, 0)
	for id := int64(len(m.users)); id > 0; id-- {
		u := m.users[id]
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.Name+" "+u.Email), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memoryUserRepo) Get(_ context.Context, id int64) (*auth.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.NotFound("User not found")
	}
	return &u, nil
}

func (m *memoryUserRepo) Update(_ context.Context, user *auth.User) error {
	m.users[user.ID] = *user
	return nil
}

func TestAdminCannotDemoteOrDeactivateSelf(t *testing.T) {
	svc := NewService(newMemoryUserRepo(), nil)
	admin := &shared.Identity{UserID: 1, Role: shared.RoleAdmin}
	ctx := context.Background()

	sales := shared.RoleSales
	_, err := svc.Update(ctx, 1, UpdateInput{Role: &sales}, admin)
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.EqualError(t, err, "You cannot change your own role")

	inactive := false
	_, err = svc.Update(ctx, 1, UpdateInput{IsActive: &inactive}, admin)
	require.ErrorIs(t, err, shared.ErrBusinessRule)

	name := "  Head Admin "
	same := shared.RoleAdmin
	user, err := svc.Update(ctx, 1, UpdateInput{Name: &name, Role: &same}, admin)
	require.NoError(t, err)
	require.Equal(t, "Head Admin", user.Name)
}

func TestAdminUpdatesOtherAccounts(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil)
	admin := &shared.Identity{UserID: 1, Role: shared.RoleAdmin}

	purchase := shared.RolePurchase
	inactive := false
	user, err := svc.Update(context.Background(), 2, UpdateInput{Role: &purchase, IsActive: &inactive}, admin)
	require.NoError(t, err)
	require.Equal(t, shared.RolePurchase, user.Role)
	require.False(t, repo.users[2].IsActive)

	bogus := shared.Role("Root")
	_, err = svc.Update(context.Background(), 2, UpdateInput{Role: &bogus}, admin)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(context.Background(), 42, UpdateInput{}, admin)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUserRoutes(t *testing.T) {
	h := NewHandler(nil, NewService(newMemoryUserRepo(), nil), rbac.Middleware{})
	router := func(role shared.Role) http.Handler {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 1, Role: role})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		r.Route("/api/users", h.MountRoutes)
		return r
	}

	rec := httptest.NewRecorder()
	router(shared.RoleSales).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router(shared.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users?isActive=true&search=sales", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Users      []auth.User       `json:"users"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Users, 1)
	require.Equal(t, "sales@erp.com", list.Users[0].Email)
	require.NotContains(t, rec.Body.String(), "password")

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/users/3", strings.NewReader(`{"isActive":true}`))
	router(shared.RoleAdmin).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"isActive":true`)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/api/users/2", strings.NewReader(`{"role":"Root"}`))
	router(shared.RoleAdmin).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
