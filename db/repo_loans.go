package db

import (
	"context"
	"time"

	"unilib/lending"
	"unilib/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Loans. All three transitions run in one transaction with the
// relevant row locked, so the quota, the per-book holding rule and the
// copy counters are checked against committed state only.

// 借出：原子操作 = 锁住 book → 校验规则 → 扣库存 → 新建 loan
func (r *Repo) BorrowBook(ctx context.Context, userID, bookID string, pol lending.Policy, notes string) (*models.Loan, error) {
	var loan *models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁住该书
		var bk models.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&bk, "id = ?", bookID).Error; err != nil {
			return notFound(err)
		}
		// 维修/遗失的书不可借，不论库存数字
		if bk.Status != models.BookAvailable {
			return lending.ErrNoCopiesAvailable
		}

		// 2) 业务规则：同书未还 / 配额 / 库存
		var holding int64
		if err := tx.Model(&models.Loan{}).
			Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, lending.StatusActive).
			Count(&holding).Error; err != nil {
			return err
		}
		var active int64
		if err := tx.Model(&models.Loan{}).
			Where("user_id = ? AND status = ?", userID, lending.StatusActive).
			Count(&active).Error; err != nil {
			return err
		}
		if err := pol.CheckBorrow(bk.AvailableCopies, int(active), holding > 0); err != nil {
			return err
		}

		// 3) 扣库存，WHERE 再挡一次最后一本的并发竞争
		res := tx.Model(&models.Book{}).
			Where("id = ? AND available_copies > 0", bk.ID).
			UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return lending.ErrNoCopiesAvailable
		}

		// 4) 新建 Loan
		now := time.Now().UTC()
		l := &models.Loan{
			ID:       uuid.NewString(),
			UserID:   userID,
			BookID:   bk.ID,
			LoanDate: now,
			DueDate:  pol.DueDate(now),
			Status:   lending.StatusActive,
			Notes:    notes,
		}
		if err := tx.Create(l).Error; err != nil {
			return err
		}
		loan = l
		return nil
	})
	return loan, err
}

// 归还：原子操作 = 完成 loan → 加回库存。重复归还返回
// InvalidTransition，库存只加一次。
func (r *Repo) ReturnLoan(ctx context.Context, loanID string, pol lending.Policy) (*models.Loan, error) {
	var l models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&l, "id = ?", loanID).Error; err != nil {
			return notFound(err)
		}
		if err := pol.CheckReturn(l.Status); err != nil {
			return err
		}

		now := time.Now().UTC()
		l.Status = lending.StatusReturned
		l.ReturnDate = &now
		if fee := pol.LateFee(l.DueDate, now); fee > 0 {
			l.LateFeeCents = &fee
		}
		if err := tx.Save(&l).Error; err != nil {
			return err
		}

		// 加回库存，上限 total_copies
		if err := tx.Model(&models.Book{}).
			Where("id = ? AND available_copies < total_copies", l.BookID).
			UpdateColumn("available_copies", gorm.Expr("available_copies + 1")).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// 续借：due_date 顺延一个借期，renewals_count + 1，受上限约束。
// 逾期但未归还的借阅仍算 active，未到上限即可续。
func (r *Repo) RenewLoan(ctx context.Context, loanID string, pol lending.Policy) (*models.Loan, error) {
	var l models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&l, "id = ?", loanID).Error; err != nil {
			return notFound(err)
		}
		if err := pol.CheckRenew(l.Status, l.RenewalsCount); err != nil {
			return err
		}

		l.DueDate = pol.ExtendedDue(l.DueDate)
		l.RenewalsCount++
		return tx.Save(&l).Error
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) FindLoanByID(ctx context.Context, id string) (*models.Loan, error) {
	var l models.Loan
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (r *Repo) ListLoansByUser(ctx context.Context, userID string) ([]models.Loan, error) {
	var ls []models.Loan
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("loan_date DESC").
		Find(&ls).Error
	return ls, err
}

func (r *Repo) CountActiveLoans(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Where("user_id = ? AND status = ?", userID, lending.StatusActive).
		Count(&n).Error
	return n, err
}

func (r *Repo) ListLoans(ctx context.Context, userID, bookID, status string) ([]models.Loan, error) {
	q := r.DB.WithContext(ctx).Model(&models.Loan{}).Order("loan_date DESC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if bookID != "" {
		q = q.Where("book_id = ?", bookID)
	}
	switch status {
	case "active":
		q = q.Where("status = ?", lending.StatusActive)
	case "returned":
		q = q.Where("status = ?", lending.StatusReturned)
	case "overdue":
		// 逾期 = active 且已过期，是查询条件而不是存储状态
		q = q.Where("status = ? AND due_date < NOW()", lending.StatusActive)
	}
	var ls []models.Loan
	if err := q.Find(&ls).Error; err != nil {
		return nil, err
	}
	return ls, nil
}

// OpenLoanRow carries what the overdue notifier needs in one query.
type OpenLoanRow struct {
	LoanID    string    `json:"loanId"`
	UserID    string    `json:"userId"`
	BookTitle string    `json:"bookTitle"`
	DueDate   time.Time `json:"dueDate"`
}

func (r *Repo) ListOpenLoansDueBefore(ctx context.Context, cutoff time.Time) ([]OpenLoanRow, error) {
	var rows []OpenLoanRow
	err := r.DB.WithContext(ctx).
		Table(models.LoanTable+" l").
		Select("l.id AS loan_id, l.user_id, b.title AS book_title, l.due_date").
		Joins("JOIN "+models.BookTable+" b ON b.id = l.book_id").
		Where("l.status = ? AND l.due_date < ?", lending.StatusActive, cutoff).
		Order("l.due_date ASC").
		Scan(&rows).Error
	return rows, err
}
