package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"unilib/app"
	"unilib/lending"
	"unilib/models"

	"github.com/gin-gonic/gin"
)

// LoanStore is the slice of the repo the loan endpoints need;
// *db.Repo satisfies it, tests plug in fakes.
type LoanStore interface {
	BorrowBook(ctx context.Context, userID, bookID string, pol lending.Policy, notes string) (*models.Loan, error)
	ReturnLoan(ctx context.Context, loanID string, pol lending.Policy) (*models.Loan, error)
	RenewLoan(ctx context.Context, loanID string, pol lending.Policy) (*models.Loan, error)
	FindLoanByID(ctx context.Context, id string) (*models.Loan, error)
	ListLoansByUser(ctx context.Context, userID string) ([]models.Loan, error)
	ListLoans(ctx context.Context, userID, bookID, status string) ([]models.Loan, error)
}

type LoanNotifier interface {
	CreateNotification(ctx context.Context, userID, typ, message string) error
	StaffIDs(ctx context.Context) ([]string, error)
}

type LoanController struct {
	Store   LoanStore
	Notify  LoanNotifier
	Guard   *lending.Guard
	Pol     lending.Policy
	Timeout time.Duration
}

func NewLoanController(s *Srv) *LoanController {
	return &LoanController{
		Store:   s.Repo,
		Notify:  s.Repo,
		Guard:   s.Guard,
		Pol:     s.Cfg.Policy,
		Timeout: s.Cfg.RequestTimeout,
	}
}

// loanView decorates a persisted loan with the derived fields clients
// display. "overdue" only ever exists here, computed from due_date.
type loanView struct {
	models.Loan
	DisplayStatus string `json:"display_status"`
	Overdue       bool   `json:"overdue"`
	DaysUntilDue  int    `json:"days_until_due"`
	RenewalsLeft  int    `json:"renewals_left"`
}

func (lc *LoanController) view(l models.Loan) loanView {
	now := time.Now().UTC()
	return loanView{
		Loan:          l,
		DisplayStatus: lending.DisplayStatus(l.Status, l.DueDate, now),
		Overdue:       l.Status == lending.StatusActive && lending.IsOverdue(l.DueDate, now),
		DaysUntilDue:  lending.DaysUntilDue(l.DueDate, now),
		RenewalsLeft:  lc.Pol.RenewalsLeft(l.RenewalsCount),
	}
}

func (lc *LoanController) views(ls []models.Loan) []loanView {
	out := make([]loanView, 0, len(ls))
	for _, l := range ls {
		out = append(out, lc.view(l))
	}
	return out
}

// 我的借阅
func (lc *LoanController) ListMyLoans(c *gin.Context) {
	ls, err := lc.Store.ListLoansByUser(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, lc.views(ls))
}

// 借书。同一 (user, book) 同时只允许一个在途请求，defer 保证
// 无论成败都释放占位；请求整体受超时约束，不会无限挂起。
func (lc *LoanController) Borrow(c *gin.Context) {
	var in struct {
		BookID string `json:"book_id" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "book_id requis")
		return
	}
	uid := userID(c)

	key := lending.BorrowKey(uid, in.BookID)
	if err := lc.Guard.Acquire(key); err != nil {
		fail(c, err)
		return
	}
	defer lc.Guard.Release(key)

	ctx, cancel := context.WithTimeout(c.Request.Context(), lc.Timeout)
	defer cancel()

	loan, err := lc.Store.BorrowBook(ctx, uid, in.BookID, lc.Pol, in.Notes)
	if err != nil {
		fail(c, err)
		return
	}

	// 通知借阅人和馆员，失败不影响主流程
	msg := fmt.Sprintf("Emprunt enregistré, à rendre avant le %s", loan.DueDate.Format("02/01/2006"))
	_ = lc.Notify.CreateNotification(c.Request.Context(), uid, models.NotifLoan, msg)
	if staff, err := lc.Notify.StaffIDs(c.Request.Context()); err == nil {
		for _, sid := range staff {
			_ = lc.Notify.CreateNotification(c.Request.Context(), sid, models.NotifSystem,
				fmt.Sprintf("Nouvel emprunt: livre %s", loan.BookID))
		}
	}

	ok(c, http.StatusCreated, lc.view(*loan))
}

// 还书：本人或馆员
func (lc *LoanController) Return(c *gin.Context) {
	loanID := c.Param("id")

	loan, err := lc.Store.FindLoanByID(c.Request.Context(), loanID)
	if err != nil {
		fail(c, err)
		return
	}
	if loan.UserID != userID(c) && role(c) == models.RoleStudent {
		c.JSON(http.StatusForbidden, app.H{"success": false, "code": "forbidden", "message": "Emprunt d'un autre lecteur"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lc.Timeout)
	defer cancel()

	returned, err := lc.Store.ReturnLoan(ctx, loanID, lc.Pol)
	if err != nil {
		fail(c, err)
		return
	}

	msg := "Retour enregistré, merci"
	if returned.LateFeeCents != nil {
		msg = fmt.Sprintf("Retour enregistré avec retard, pénalité: %.2f €", float64(*returned.LateFeeCents)/100)
	}
	_ = lc.Notify.CreateNotification(c.Request.Context(), returned.UserID, models.NotifReturn, msg)

	ok(c, http.StatusOK, lc.view(*returned))
}

// 续借：仅本人
func (lc *LoanController) Renew(c *gin.Context) {
	loanID := c.Param("id")

	loan, err := lc.Store.FindLoanByID(c.Request.Context(), loanID)
	if err != nil {
		fail(c, err)
		return
	}
	if loan.UserID != userID(c) {
		c.JSON(http.StatusForbidden, app.H{"success": false, "code": "forbidden", "message": "Emprunt d'un autre lecteur"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lc.Timeout)
	defer cancel()

	renewed, err := lc.Store.RenewLoan(ctx, loanID, lc.Pol)
	if err != nil {
		fail(c, err)
		return
	}

	_ = lc.Notify.CreateNotification(c.Request.Context(), renewed.UserID, models.NotifRenewal,
		fmt.Sprintf("Prolongation accordée, nouvelle échéance: %s", renewed.DueDate.Format("02/01/2006")))

	ok(c, http.StatusOK, lc.view(*renewed))
}

// 馆员：全部借阅记录 ?status=active|returned|overdue&userId=&bookId=
func (lc *LoanController) ListLoans(c *gin.Context) {
	ls, err := lc.Store.ListLoans(c.Request.Context(), c.Query("userId"), c.Query("bookId"), c.Query("status"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, lc.views(ls))
}
