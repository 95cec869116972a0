package controllers

import (
	"context"
	"errors"
	"net/http"

	"unilib/app"
	"unilib/db"
	"unilib/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReviewStore interface {
	CreateReview(ctx context.Context, rv *models.Review) error
	ListBookReviews(ctx context.Context, bookID string, includeUnapproved bool) ([]models.Review, error)
	ApproveReview(ctx context.Context, id string) (*models.Review, error)
	DeleteReview(ctx context.Context, id string) error
	FindReviewByID(ctx context.Context, id string) (*models.Review, error)
	FindBookByID(ctx context.Context, id string) (*models.Book, error)
}

type ReviewController struct{ Store ReviewStore }

func NewReviewController(s *Srv) *ReviewController { return &ReviewController{Store: s.Repo} }

// 书评列表；馆员能看到待审核的
func (rc *ReviewController) ListBookReviews(c *gin.Context) {
	staff := role(c) == models.RoleLibrarian || role(c) == models.RoleAdmin
	rs, err := rc.Store.ListBookReviews(c.Request.Context(), c.Param("id"), staff)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rs)
}

func (rc *ReviewController) CreateReview(c *gin.Context) {
	var in struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	bookID := c.Param("id")
	if _, err := rc.Store.FindBookByID(c.Request.Context(), bookID); err != nil {
		fail(c, err)
		return
	}

	rv := &models.Review{
		ID:      uuid.NewString(),
		UserID:  userID(c),
		BookID:  bookID,
		Rating:  in.Rating,
		Comment: in.Comment,
	}
	if err := rc.Store.CreateReview(c.Request.Context(), rv); err != nil {
		if errors.Is(err, db.ErrDuplicateReview) {
			c.JSON(http.StatusConflict, app.H{"success": false, "code": "duplicate_review", "message": "Vous avez déjà évalué ce livre"})
			return
		}
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, rv)
}

func (rc *ReviewController) ApproveReview(c *gin.Context) {
	rv, err := rc.Store.ApproveReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rv)
}

// 删除：作者本人或馆员
func (rc *ReviewController) DeleteReview(c *gin.Context) {
	rv, err := rc.Store.FindReviewByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	staff := role(c) == models.RoleLibrarian || role(c) == models.RoleAdmin
	if rv.UserID != userID(c) && !staff {
		c.JSON(http.StatusForbidden, app.H{"success": false, "code": "forbidden", "message": "Avis d'un autre lecteur"})
		return
	}
	if err := rc.Store.DeleteReview(c.Request.Context(), rv.ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, app.H{"deleted": true})
}
