package controllers

import (
	"context"
	"net/http"
	"strconv"

	"unilib/app"
	"unilib/db"
	"unilib/models"

	"github.com/gin-gonic/gin"
)

type UserStore interface {
	ListUsers(ctx context.Context, q string, page, size int) (db.ListUsersResult, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserRole(ctx context.Context, id, role string) error
	DeleteUserByID(ctx context.Context, id string) error
	CountActiveLoans(ctx context.Context, userID string) (int64, error)
}

type TokenRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

type UserController struct {
	Store  UserStore
	Tokens TokenRevoker
}

func NewUserController(s *Srv) *UserController {
	return &UserController{Store: s.Repo, Tokens: s.Tokens}
}

// 管理员：用户列表 ?q=&page=&size=
func (uc *UserController) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	res, err := uc.Store.ListUsers(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (uc *UserController) GetUser(c *gin.Context) {
	u, err := uc.Store.FindUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	active, _ := uc.Store.CountActiveLoans(c.Request.Context(), u.ID)
	ok(c, http.StatusOK, app.H{"user": u, "active_loans": active})
}

// 改角色后立刻撤销旧会话，下次请求就按新角色走
func (uc *UserController) UpdateRole(c *gin.Context) {
	var in struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	switch in.Role {
	case models.RoleStudent, models.RoleLibrarian, models.RoleAdmin:
	default:
		badRequest(c, "role invalide")
		return
	}

	id := c.Param("id")
	if err := uc.Store.UpdateUserRole(c.Request.Context(), id, in.Role); err != nil {
		fail(c, err)
		return
	}
	_ = uc.Tokens.RevokeAllForUser(c.Request.Context(), id)
	ok(c, http.StatusOK, app.H{"role": in.Role})
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == userID(c) {
		badRequest(c, "impossible de supprimer son propre compte")
		return
	}

	// 还有未归还的书不允许删号
	active, err := uc.Store.CountActiveLoans(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if active > 0 {
		c.JSON(http.StatusConflict, app.H{"success": false, "code": "invalid_transition", "message": "Des emprunts sont encore en cours"})
		return
	}

	if err := uc.Store.DeleteUserByID(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	_ = uc.Tokens.RevokeAllForUser(c.Request.Context(), id)
	ok(c, http.StatusOK, app.H{"deleted": true})
}
