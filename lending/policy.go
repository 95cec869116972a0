package lending

import (
	"math"
	"time"
)

// Loan status as persisted. Overdue is never stored: it is always
// derived from (active && now past due), so there is a single source
// of truth for it. See DESIGN.md.
const (
	StatusActive   = "active"
	StatusReturned = "returned"
)

// Policy carries the configured lending limits. It is built once from
// the environment at startup and injected everywhere; business code
// never reads env vars directly.
type Policy struct {
	MaxBooksPerUser    int
	LoanPeriodDays     int
	MaxRenewals        int
	LateFeeCentsPerDay int64 // 0 disables late fees
}

func DefaultPolicy() Policy {
	return Policy{MaxBooksPerUser: 5, LoanPeriodDays: 14, MaxRenewals: 2}
}

func (p Policy) period() time.Duration {
	return time.Duration(p.LoanPeriodDays) * 24 * time.Hour
}

// DueDate computes the due date for a loan created at loanDate.
func (p Policy) DueDate(loanDate time.Time) time.Time {
	return loanDate.Add(p.period())
}

// ExtendedDue computes the new due date after one renewal.
func (p Policy) ExtendedDue(due time.Time) time.Time {
	return due.Add(p.period())
}

// CheckBorrow decides whether a borrow is allowed. activeLoans is the
// user's current count of active loans (overdue ones included, they
// are still active); alreadyHolding reports an existing active loan by
// this user for this book.
func (p Policy) CheckBorrow(availableCopies, activeLoans int, alreadyHolding bool) error {
	if alreadyHolding {
		return ErrAlreadyBorrowed
	}
	if activeLoans >= p.MaxBooksPerUser {
		return ErrQuotaExceeded
	}
	if availableCopies <= 0 {
		return ErrNoCopiesAvailable
	}
	return nil
}

// CheckReturn decides whether a loan may be returned. Only active
// loans qualify; a second return of the same loan fails here instead
// of double-incrementing availability.
func (p Policy) CheckReturn(status string) error {
	if status != StatusActive {
		return ErrInvalidTransition
	}
	return nil
}

// CheckRenew decides whether a loan may be renewed. An overdue loan is
// still active, so it stays renewable until the cap is hit.
func (p Policy) CheckRenew(status string, renewals int) error {
	if status != StatusActive {
		return ErrInvalidTransition
	}
	if renewals >= p.MaxRenewals {
		return ErrRenewalCapReached
	}
	return nil
}

func (p Policy) RenewalsLeft(renewals int) int {
	if left := p.MaxRenewals - renewals; left > 0 {
		return left
	}
	return 0
}

// LateFee computes the fee in cents for a loan returned at returnedAt.
// Disabled (0) unless LateFeeCentsPerDay is configured; the charging
// policy itself belongs to the institution, not this service.
func (p Policy) LateFee(due, returnedAt time.Time) int64 {
	if p.LateFeeCentsPerDay <= 0 || !returnedAt.After(due) {
		return 0
	}
	daysLate := int64(returnedAt.Sub(due).Hours() / 24)
	if daysLate < 1 {
		daysLate = 1
	}
	return daysLate * p.LateFeeCentsPerDay
}

// IsOverdue reports whether a due date has passed.
func IsOverdue(due, now time.Time) bool { return now.After(due) }

// DaysUntilDue returns whole days until due, rounded up; negative once
// the loan is overdue.
func DaysUntilDue(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// DisplayStatus is the label shown to clients: the persisted status,
// except that an active loan past due reads as "overdue".
func DisplayStatus(status string, due, now time.Time) string {
	if status == StatusActive && IsOverdue(due, now) {
		return "overdue"
	}
	return status
}
