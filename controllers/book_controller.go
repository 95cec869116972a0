package controllers

import (
	"context"
	"net/http"
	"strconv"

	"unilib/app"
	"unilib/db"
	"unilib/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookStore interface {
	CreateBook(ctx context.Context, b *models.Book) error
	FindBookByID(ctx context.Context, id string) (*models.Book, error)
	ListBooks(ctx context.Context, q db.BooksQuery) (*db.PagedBooks, error)
	UpdateBook(ctx context.Context, id string, updates map[string]interface{}) (*models.Book, error)
	DeleteBookByID(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]string, error)
	BookRating(ctx context.Context, bookID string) (float64, int64, error)
}

type BookController struct {
	Store BookStore
}

func NewBookController(s *Srv) *BookController { return &BookController{Store: s.Repo} }

type bookView struct {
	models.Book
	DisplayStatus string  `json:"display_status"`
	AvgRating     float64 `json:"avg_rating"`
	RatingCount   int64   `json:"rating_count"`
}

// 目录 ?page=&limit=&search=&category=&author=
func (bc *BookController) ListBooks(c *gin.Context) {
	q := db.BooksQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Author:   c.Query("author"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	res, err := bc.Store.ListBooks(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}

	books := make([]bookView, 0, len(res.Books))
	for _, b := range res.Books {
		books = append(books, bookView{Book: b, DisplayStatus: b.DisplayStatus()})
	}
	ok(c, http.StatusOK, app.H{"books": books, "total": res.Total})
}

func (bc *BookController) GetBook(c *gin.Context) {
	b, err := bc.Store.FindBookByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	avg, count, err := bc.Store.BookRating(c.Request.Context(), b.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, bookView{Book: *b, DisplayStatus: b.DisplayStatus(), AvgRating: avg, RatingCount: count})
}

func (bc *BookController) ListCategories(c *gin.Context) {
	cats, err := bc.Store.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, cats)
}

type bookInput struct {
	ISBN        string `json:"isbn" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author" binding:"required"`
	Category    string `json:"category"`
	TotalCopies int    `json:"total_copies" binding:"required,min=1"`
	Description string `json:"description"`
}

// 馆员新增一种书，初始库存 = 总册数
func (bc *BookController) CreateBook(c *gin.Context) {
	var in bookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	b := &models.Book{
		ID:              uuid.NewString(),
		ISBN:            in.ISBN,
		Title:           in.Title,
		Author:          in.Author,
		Category:        in.Category,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
		Status:          models.BookAvailable,
		Description:     in.Description,
	}
	if err := bc.Store.CreateBook(c.Request.Context(), b); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, bookView{Book: *b, DisplayStatus: b.DisplayStatus()})
}

func (bc *BookController) UpdateBook(c *gin.Context) {
	var in struct {
		Title       *string `json:"title"`
		Author      *string `json:"author"`
		Category    *string `json:"category"`
		TotalCopies *int    `json:"total_copies"`
		Status      *string `json:"status"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Author != nil {
		updates["author"] = *in.Author
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.TotalCopies != nil {
		if *in.TotalCopies < 0 {
			badRequest(c, "total_copies invalide")
			return
		}
		updates["total_copies"] = *in.TotalCopies
	}
	if in.Status != nil {
		switch *in.Status {
		case models.BookAvailable, models.BookMaintenance, models.BookLost:
			updates["status"] = *in.Status
		default:
			badRequest(c, "status invalide")
			return
		}
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if len(updates) == 0 {
		badRequest(c, "aucune modification")
		return
	}

	b, err := bc.Store.UpdateBook(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, bookView{Book: *b, DisplayStatus: b.DisplayStatus()})
}

func (bc *BookController) DeleteBook(c *gin.Context) {
	if err := bc.Store.DeleteBookByID(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, app.H{"deleted": true})
}
