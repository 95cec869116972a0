package db

import (
	"context"
	"strings"

	"unilib/lending"
	"unilib/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BooksQuery struct {
	Search   string // 模糊搜索：title/author/isbn
	Category string
	Author   string
	Page     int
	Limit    int
}

type PagedBooks struct {
	Books []models.Book `json:"books"`
	Total int64         `json:"total"`
}

func (r *Repo) CreateBook(ctx context.Context, b *models.Book) error {
	return r.DB.WithContext(ctx).Create(b).Error
}

func (r *Repo) FindBookByID(ctx context.Context, id string) (*models.Book, error) {
	var b models.Book
	if err := r.DB.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *Repo) ListBooks(ctx context.Context, q BooksQuery) (*PagedBooks, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.Book{})
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(isbn) LIKE ?", like, like, like)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Author != "" {
		tx = tx.Where("LOWER(author) = ?", strings.ToLower(q.Author))
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}

	var books []models.Book
	if err := tx.
		Order("title ASC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&books).Error; err != nil {
		return nil, err
	}
	return &PagedBooks{Books: books, Total: total}, nil
}

// UpdateBook applies librarian edits. Shrinking total_copies clamps
// available_copies inside the same UPDATE: a separate follow-up
// statement would never run, the copies-bounds CHECK already rejects
// the intermediate state.
func (r *Repo) UpdateBook(ctx context.Context, id string, updates map[string]interface{}) (*models.Book, error) {
	var b models.Book
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if v, set := updates["total_copies"]; set {
			updates["available_copies"] = gorm.Expr("LEAST(available_copies, ?)", v)
		}
		if err := tx.Model(&b).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&b, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repo) DeleteBookByID(ctx context.Context, id string) error {
	// 还有未归还借阅时不允许删除
	var open int64
	if err := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Where("book_id = ? AND status = ?", id, lending.StatusActive).
		Count(&open).Error; err != nil {
		return err
	}
	if open > 0 {
		return lending.ErrInvalidTransition
	}
	res := r.DB.WithContext(ctx).Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lending.ErrNotFound
	}
	return nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]string, error) {
	var cats []string
	err := r.DB.WithContext(ctx).Model(&models.Book{}).
		Distinct("category").
		Where("category <> ''").
		Order("category ASC").
		Pluck("category", &cats).Error
	return cats, err
}
