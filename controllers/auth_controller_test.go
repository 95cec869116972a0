package controllers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"unilib/db"
	"unilib/lending"
	"unilib/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthStore struct {
	mu    sync.Mutex
	users map[string]*models.User // by id

	// when set, FindUserByEmail misses even for stored users, so the
	// duplicate only surfaces from the unique index in CreateUser —
	// the shape of two concurrent registrations
	hideOnLookup bool

	active int64
	unread int64
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{users: make(map[string]*models.User)}
}

func (f *fakeAuthStore) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.users {
		if strings.EqualFold(other.Email, u.Email) {
			return db.ErrDuplicateEmail
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeAuthStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, found := f.users[id]
	if !found {
		return nil, lending.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAuthStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideOnLookup {
		return nil, lending.ErrNotFound
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, lending.ErrNotFound
}

func (f *fakeAuthStore) TouchUserLogin(_ context.Context, _, _, _ string) error { return nil }

func (f *fakeAuthStore) CountActiveLoans(_ context.Context, _ string) (int64, error) {
	return f.active, nil
}

func (f *fakeAuthStore) CountUnread(_ context.Context, _ string) (int64, error) {
	return f.unread, nil
}

type fakeTokens struct {
	mu       sync.Mutex
	sessions map[string]string // token -> userID
}

func newFakeTokens() *fakeTokens { return &fakeTokens{sessions: make(map[string]string)} }

func (f *fakeTokens) Create(_ context.Context, tok, userID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[tok] = userID
	return nil
}

func (f *fakeTokens) Delete(_ context.Context, tok string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tok)
	return nil
}

func (f *fakeTokens) live(tok string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, found := f.sessions[tok]
	return found
}

func newAuthRouter(ac *AuthController, uid, tok string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", ac.Register)
	r.POST("/auth/login", ac.Login)
	authed := r.Group("/auth", func(c *gin.Context) {
		c.Set("userID", uid)
		c.Set("role", models.RoleStudent)
		c.Set("token", tok)
	})
	authed.POST("/logout", ac.Logout)
	authed.GET("/me", ac.Me)
	return r
}

func newAuthController(store *fakeAuthStore, tokens *fakeTokens) *AuthController {
	return &AuthController{Store: store, Tokens: tokens, Pol: lending.DefaultPolicy()}
}

func TestRegisterLoginMeLogout(t *testing.T) {
	store := newFakeAuthStore()
	tokens := newFakeTokens()
	ac := newAuthController(store, tokens)
	r := newAuthRouter(ac, "", "")

	w, out := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"email": "lea@univ.fr", "name": "Léa", "password": "motdepasse",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, models.RoleStudent, data["role"])
	uid := data["id"].(string)

	w, out = doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"email": "lea@univ.fr", "password": "motdepasse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	tok := out["data"].(map[string]interface{})["token"].(string)
	require.NotEmpty(t, tok)
	assert.True(t, tokens.live(tok))

	store.active = 2
	store.unread = 1
	authed := newAuthRouter(ac, uid, tok)
	w, out = doJSON(t, authed, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := out["data"].(map[string]interface{})
	assert.Equal(t, "lea@univ.fr", me["user"].(map[string]interface{})["email"])
	assert.Equal(t, float64(2), me["active_loans"])
	assert.Equal(t, float64(5), me["loan_quota"])
	assert.Equal(t, float64(1), me["unread_notifications"])

	w, _ = doJSON(t, authed, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, tokens.live(tok))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newAuthRouter(newAuthController(newFakeAuthStore(), newFakeTokens()), "", "")

	w, _ := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"email": "lea@univ.fr", "name": "Léa", "password": "motdepasse",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, out := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"email": "lea@univ.fr", "name": "Autre", "password": "motdepasse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email_taken", out["code"])
}

func TestRegisterDuplicateEmailUnderRace(t *testing.T) {
	// the pre-insert lookup misses, so the duplicate comes back from
	// the unique index; still a 409, not a 500
	store := newFakeAuthStore()
	store.hideOnLookup = true
	r := newAuthRouter(newAuthController(store, newFakeTokens()), "", "")

	w, _ := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"email": "lea@univ.fr", "name": "Léa", "password": "motdepasse",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, out := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"email": "lea@univ.fr", "name": "Autre", "password": "motdepasse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email_taken", out["code"])
	assert.Equal(t, "Adresse email déjà utilisée", out["message"])
}

func TestLoginBadCredentials(t *testing.T) {
	store := newFakeAuthStore()
	r := newAuthRouter(newAuthController(store, newFakeTokens()), "", "")

	w, _ := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"email": "lea@univ.fr", "name": "Léa", "password": "motdepasse",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// wrong password and unknown email give the same answer
	w, out := doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"email": "lea@univ.fr", "password": "pasdutout",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", out["code"])

	w, out = doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"email": "inconnu@univ.fr", "password": "motdepasse",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", out["code"])
}
