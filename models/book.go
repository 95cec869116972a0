package models

import "time"

const BookTable = "lib_books"

// Shelf status is what a librarian sets on the record itself.
// "borrowed"/"reserved" are display labels derived from the counters,
// never stored here.
const (
	BookAvailable   = "available"
	BookMaintenance = "maintenance"
	BookLost        = "lost"
)

type Book struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	ISBN     string `gorm:"size:32;uniqueIndex;not null" json:"isbn"`
	Title    string `gorm:"size:255;not null;index" json:"title"`
	Author   string `gorm:"size:255;not null;index" json:"author"`
	Category string `gorm:"size:100;index" json:"category"`

	TotalCopies     int    `gorm:"not null;default:1" json:"total_copies"`
	AvailableCopies int    `gorm:"not null;default:1" json:"available_copies"`
	Status          string `gorm:"size:20;not null;default:'available'" json:"status"`

	Description string `gorm:"type:text" json:"description,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Book) TableName() string { return BookTable }

// DisplayStatus folds the counters into the label clients show on the
// catalog: a shelved book with no free copies reads as "borrowed".
func (b *Book) DisplayStatus() string {
	if b.Status == BookAvailable && b.AvailableCopies <= 0 {
		return "borrowed"
	}
	return b.Status
}
