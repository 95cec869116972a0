package models

import "time"

const ReviewTable = "lib_reviews"

type Review struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;index:idx_review_user_book,unique;not null" json:"user_id"`
	BookID string `gorm:"type:uuid;index:idx_review_user_book,unique;not null" json:"book_id"`

	Rating  int    `gorm:"not null" json:"rating"` // 1..5
	Comment string `gorm:"type:text" json:"comment,omitempty"`

	// Reviews are hidden from the public listing until a librarian
	// approves them.
	Approved bool `gorm:"not null;default:false" json:"approved"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Review) TableName() string { return ReviewTable }
