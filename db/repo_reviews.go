package db

import (
	"context"
	"errors"
	"strings"

	"unilib/lending"
	"unilib/models"

	"gorm.io/gorm"
)

var ErrDuplicateReview = errors.New("user already reviewed this book")

func (r *Repo) CreateReview(ctx context.Context, rv *models.Review) error {
	err := r.DB.WithContext(ctx).Create(rv).Error
	if err != nil && strings.Contains(err.Error(), "idx_review_user_book") {
		return ErrDuplicateReview
	}
	return err
}

// ListBookReviews returns a book's reviews; unapproved ones are only
// included when the caller is staff.
func (r *Repo) ListBookReviews(ctx context.Context, bookID string, includeUnapproved bool) ([]models.Review, error) {
	q := r.DB.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("created_at DESC")
	if !includeUnapproved {
		q = q.Where("approved = TRUE")
	}
	var rs []models.Review
	err := q.Find(&rs).Error
	return rs, err
}

func (r *Repo) ApproveReview(ctx context.Context, id string) (*models.Review, error) {
	var rv models.Review
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rv, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		rv.Approved = true
		return tx.Save(&rv).Error
	})
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *Repo) DeleteReview(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lending.ErrNotFound
	}
	return nil
}

func (r *Repo) FindReviewByID(ctx context.Context, id string) (*models.Review, error) {
	var rv models.Review
	if err := r.DB.WithContext(ctx).First(&rv, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rv, nil
}

// BookRating aggregates approved reviews for the catalog view.
func (r *Repo) BookRating(ctx context.Context, bookID string) (avg float64, count int64, err error) {
	row := struct {
		Avg   float64
		Count int64
	}{}
	err = r.DB.WithContext(ctx).Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("book_id = ? AND approved = TRUE", bookID).
		Scan(&row).Error
	return row.Avg, row.Count, err
}
