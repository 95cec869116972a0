package models

import "time"

const LoanTable = "lib_loans"

type Loan struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`
	BookID string `gorm:"type:uuid;index;not null" json:"book_id"`

	LoanDate time.Time `gorm:"index;not null" json:"loan_date"`
	DueDate  time.Time `gorm:"index;not null" json:"due_date"`

	ReturnDate *time.Time `gorm:"index" json:"return_date,omitempty"`
	// Persisted status is only active/returned; "overdue" is computed
	// from due_date at read time (lending.DisplayStatus).
	Status        string `gorm:"size:20;not null;default:'active';index" json:"status"`
	RenewalsCount int    `gorm:"not null;default:0" json:"renewals_count"`

	LateFeeCents *int64 `json:"late_fee_cents,omitempty"`
	Notes        string `gorm:"size:255" json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Loan) TableName() string { return LoanTable }
