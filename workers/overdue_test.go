package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"unilib/db"
	"unilib/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu   sync.Mutex
	rows []db.OpenLoanRow
	sent []string // "<userID>/<type>"
}

func (f *fakeSource) ListOpenLoansDueBefore(_ context.Context, cutoff time.Time) ([]db.OpenLoanRow, error) {
	var out []db.OpenLoanRow
	for _, r := range f.rows {
		if r.DueDate.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) CreateNotification(_ context.Context, userID, typ, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, userID+"/"+typ)
	return nil
}

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memDeduper) Once(_ context.Context, key string, _ time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

func TestCheckNotifiesOverdueAndDueSoon(t *testing.T) {
	now := time.Now().UTC()
	src := &fakeSource{rows: []db.OpenLoanRow{
		{LoanID: "l1", UserID: "u1", BookTitle: "Candide", DueDate: now.AddDate(0, 0, -3)},
		{LoanID: "l2", UserID: "u2", BookTitle: "L'Étranger", DueDate: now.Add(6 * time.Hour)},
		{LoanID: "l3", UserID: "u3", BookTitle: "Germinal", DueDate: now.AddDate(0, 0, 10)},
	}}

	n := NewOverdueNotifier(src, &memDeduper{})
	n.Check(context.Background())

	require.Len(t, src.sent, 2)
	assert.Contains(t, src.sent, "u1/"+models.NotifOverdue)
	assert.Contains(t, src.sent, "u2/"+models.NotifSystem)
	// l3 is not due within a day, nothing sent for u3
	assert.NotContains(t, src.sent, "u3/"+models.NotifOverdue)
	assert.NotContains(t, src.sent, "u3/"+models.NotifSystem)
}

func TestCheckDedupesWithinADay(t *testing.T) {
	now := time.Now().UTC()
	src := &fakeSource{rows: []db.OpenLoanRow{
		{LoanID: "l1", UserID: "u1", BookTitle: "Candide", DueDate: now.AddDate(0, 0, -1)},
	}}

	n := NewOverdueNotifier(src, &memDeduper{})
	n.Check(context.Background())
	n.Check(context.Background())

	// second sweep the same day stays silent
	assert.Len(t, src.sent, 1)
}

func TestStartStopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	n := NewOverdueNotifier(src, &memDeduper{})
	n.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	// no panic, goroutine exited; nothing to notify so nothing sent
	assert.Empty(t, src.sent)
}
