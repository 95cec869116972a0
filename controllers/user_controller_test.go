package controllers

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"unilib/db"
	"unilib/lending"
	"unilib/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserStore mirrors the repo: deleting a user takes the account's
// notifications and reviews with it, all-or-nothing.
type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	notes   map[string]int // userID -> notification count
	reviews map[string]int // userID -> review count
	active  map[string]int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:   make(map[string]*models.User),
		notes:   make(map[string]int),
		reviews: make(map[string]int),
		active:  make(map[string]int64),
	}
}

func (f *fakeUserStore) addUser(id, email, userRole string) {
	f.users[id] = &models.User{ID: id, Email: email, Name: "N " + id, Role: userRole}
}

func (f *fakeUserStore) ListUsers(_ context.Context, _ string, _, _ int) (db.ListUsersResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return db.ListUsersResult{Users: out, Total: int64(len(out))}, nil
}

func (f *fakeUserStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, found := f.users[id]
	if !found {
		return nil, lending.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) UpdateUserRole(_ context.Context, id, userRole string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, found := f.users[id]
	if !found {
		return lending.ErrNotFound
	}
	u.Role = userRole
	return nil
}

func (f *fakeUserStore) DeleteUserByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, found := f.users[id]; !found {
		return lending.ErrNotFound
	}
	delete(f.users, id)
	delete(f.notes, id)
	delete(f.reviews, id)
	return nil
}

func (f *fakeUserStore) CountActiveLoans(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[userID], nil
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked []string
}

func (f *fakeRevoker) RevokeAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, userID)
	return nil
}

func newUserRouter(uc *UserController, adminID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", adminID)
		c.Set("role", models.RoleAdmin)
	})
	r.GET("/api/users", uc.ListUsers)
	r.GET("/api/users/:id", uc.GetUser)
	r.PATCH("/api/users/:id/role", uc.UpdateRole)
	r.DELETE("/api/users/:id", uc.DeleteUser)
	return r
}

func TestUpdateRoleRevokesSessions(t *testing.T) {
	store := newFakeUserStore()
	store.addUser("u1", "lea@univ.fr", models.RoleStudent)
	revoker := &fakeRevoker{}
	r := newUserRouter(&UserController{Store: store, Tokens: revoker}, "admin")

	w, out := doJSON(t, r, http.MethodPatch, "/api/users/u1/role", gin.H{"role": models.RoleLibrarian})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleLibrarian, out["data"].(map[string]interface{})["role"])
	assert.Equal(t, models.RoleLibrarian, store.users["u1"].Role)
	// old sessions carry the old role, kill them
	assert.Contains(t, revoker.revoked, "u1")
}

func TestUpdateRoleRejectsUnknownRole(t *testing.T) {
	store := newFakeUserStore()
	store.addUser("u1", "lea@univ.fr", models.RoleStudent)
	r := newUserRouter(&UserController{Store: store, Tokens: &fakeRevoker{}}, "admin")

	w, out := doJSON(t, r, http.MethodPatch, "/api/users/u1/role", gin.H{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", out["code"])
	assert.Equal(t, models.RoleStudent, store.users["u1"].Role)
}

func TestDeleteUserCleansUp(t *testing.T) {
	store := newFakeUserStore()
	store.addUser("u1", "lea@univ.fr", models.RoleStudent)
	store.notes["u1"] = 3
	store.reviews["u1"] = 2
	revoker := &fakeRevoker{}
	r := newUserRouter(&UserController{Store: store, Tokens: revoker}, "admin")

	w, _ := doJSON(t, r, http.MethodDelete, "/api/users/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, found := store.users["u1"]
	assert.False(t, found)
	// notifications and reviews go with the account
	assert.Zero(t, store.notes["u1"])
	assert.Zero(t, store.reviews["u1"])
	assert.Contains(t, revoker.revoked, "u1")
}

func TestDeleteUserBlockedByActiveLoans(t *testing.T) {
	store := newFakeUserStore()
	store.addUser("u1", "lea@univ.fr", models.RoleStudent)
	store.active["u1"] = 1
	revoker := &fakeRevoker{}
	r := newUserRouter(&UserController{Store: store, Tokens: revoker}, "admin")

	w, out := doJSON(t, r, http.MethodDelete, "/api/users/u1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", out["code"])
	_, found := store.users["u1"]
	assert.True(t, found)
	assert.Empty(t, revoker.revoked)
}

func TestDeleteOwnAccountRefused(t *testing.T) {
	store := newFakeUserStore()
	store.addUser("admin", "admin@univ.fr", models.RoleAdmin)
	r := newUserRouter(&UserController{Store: store, Tokens: &fakeRevoker{}}, "admin")

	w, out := doJSON(t, r, http.MethodDelete, "/api/users/admin", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", out["code"])
	_, found := store.users["admin"]
	assert.True(t, found)
}
