package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"unilib/db"
	"unilib/lending"
	"unilib/models"

	"github.com/redis/go-redis/v9"
)

// LoanSource is the slice of the repo the notifier reads and writes.
type LoanSource interface {
	ListOpenLoansDueBefore(ctx context.Context, cutoff time.Time) ([]db.OpenLoanRow, error)
	CreateNotification(ctx context.Context, userID, typ, message string) error
}

// Deduper answers "has this key fired within ttl". The Redis-backed
// one keeps reminders at one per loan per day across restarts and
// replicas.
type Deduper interface {
	Once(ctx context.Context, key string, ttl time.Duration) bool
}

type RedisDeduper struct{ RDB *redis.Client }

func (d RedisDeduper) Once(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := d.RDB.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		// Redis down: better a duplicate reminder than none
		return true
	}
	return ok
}

// OverdueNotifier periodically scans open loans and notifies readers
// whose books are overdue or due within a day.
type OverdueNotifier struct {
	Store    LoanSource
	Dedupe   Deduper
	Interval time.Duration
}

func NewOverdueNotifier(store LoanSource, dedupe Deduper) *OverdueNotifier {
	return &OverdueNotifier{Store: store, Dedupe: dedupe, Interval: time.Hour}
}

func (n *OverdueNotifier) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(n.Interval)
		defer ticker.Stop()
		n.Check(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.Check(ctx)
			}
		}
	}()
}

func (n *OverdueNotifier) Check(ctx context.Context) {
	now := time.Now().UTC()
	rows, err := n.Store.ListOpenLoansDueBefore(ctx, now.Add(24*time.Hour))
	if err != nil {
		log.Printf("overdue worker: %v", err)
		return
	}

	for _, row := range rows {
		var typ, msg, tag string
		if lending.IsOverdue(row.DueDate, now) {
			daysLate := -lending.DaysUntilDue(row.DueDate, now)
			typ = models.NotifOverdue
			msg = fmt.Sprintf("Livre '%s' en retard de %d jour(s), merci de le rapporter", row.BookTitle, daysLate)
			tag = "overdue"
		} else {
			typ = models.NotifSystem
			msg = fmt.Sprintf("Livre '%s' à rendre avant demain (%s)", row.BookTitle, row.DueDate.Format("02/01/2006"))
			tag = "reminder"
		}

		key := fmt.Sprintf("lib:notify:%s:%s:%s", tag, row.LoanID, now.Format("2006-01-02"))
		if !n.Dedupe.Once(ctx, key, 24*time.Hour) {
			continue
		}
		if err := n.Store.CreateNotification(ctx, row.UserID, typ, msg); err != nil {
			log.Printf("overdue worker: notify %s: %v", row.LoanID, err)
		}
	}
}
