package controllers

import (
	"context"
	"errors"
	"net/http"

	"unilib/app"
	"unilib/db"
	"unilib/lending"
	"unilib/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchUserLogin(ctx context.Context, userID, ip, ua string) error
	CountActiveLoans(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type TokenIssuer interface {
	Create(ctx context.Context, tok, userID, role string) error
	Delete(ctx context.Context, tok string) error
}

type AuthController struct {
	Store  AuthStore
	Tokens TokenIssuer
	Pol    lending.Policy
}

func NewAuthController(s *Srv) *AuthController {
	return &AuthController{Store: s.Repo, Tokens: s.Tokens, Pol: s.Cfg.Policy}
}

func emailTaken(c *gin.Context) {
	c.JSON(http.StatusConflict, app.H{"success": false, "code": "email_taken", "message": "Adresse email déjà utilisée"})
}

// 自助注册的账号一律是 student；馆员/管理员由 admin 指派
func (ac *AuthController) Register(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required,email"`
		Name     string `json:"name" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	if _, err := ac.Store.FindUserByEmail(c.Request.Context(), in.Email); err == nil {
		emailTaken(c)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, err)
		return
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}
	if err := ac.Store.CreateUser(c.Request.Context(), u); err != nil {
		// 上面的查重有并发窗口，最终裁判是唯一索引
		if errors.Is(err, db.ErrDuplicateEmail) {
			emailTaken(c)
			return
		}
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, u)
}

func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	u, err := ac.Store.FindUserByEmail(c.Request.Context(), in.Email)
	if err != nil {
		// same answer for unknown email and bad password
		fail(c, lending.ErrUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		fail(c, lending.ErrUnauthorized)
		return
	}

	tok := uuid.NewString()
	if err := ac.Tokens.Create(c.Request.Context(), tok, u.ID, u.Role); err != nil {
		fail(c, err)
		return
	}
	_ = ac.Store.TouchUserLogin(c.Request.Context(), u.ID, c.ClientIP(), c.Request.UserAgent())

	ok(c, http.StatusOK, app.H{"token": tok, "user": u})
}

func (ac *AuthController) Logout(c *gin.Context) {
	if v, okTok := c.Get("token"); okTok {
		if tok, _ := v.(string); tok != "" {
			_ = ac.Tokens.Delete(c.Request.Context(), tok)
		}
	}
	ok(c, http.StatusOK, app.H{"loggedOut": true})
}

func (ac *AuthController) Me(c *gin.Context) {
	u, err := ac.Store.FindUserByID(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	active, err := ac.Store.CountActiveLoans(c.Request.Context(), u.ID)
	if err != nil {
		fail(c, err)
		return
	}
	unread, _ := ac.Store.CountUnread(c.Request.Context(), u.ID)
	ok(c, http.StatusOK, app.H{
		"user":                 u,
		"active_loans":         active,
		"loan_quota":           ac.Pol.MaxBooksPerUser,
		"unread_notifications": unread,
	})
}
