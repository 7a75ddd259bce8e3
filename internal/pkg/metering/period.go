package metering

import (
	"time"

	"github.com/DorianVeras/TradeGate/app/models"
)

// Period is the usage window a counter is bound to. Trial periods follow the
// calendar month; paid periods follow the billing anchor in 30-day steps.
type Period struct {
	Key   string
	Start time.Time
	End   time.Time
}

// trialPeriod returns the calendar-month window containing now, in UTC.
func trialPeriod(now time.Time) Period {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Key:   start.Format("2006-01"),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// paidPeriod returns the billing window for a subscription with explicit
// period bounds. When now has passed the stored end, the window advances by
// exactly 30 days from that end, anchored to the old end and not to now, so
// the anchor day never drifts. Only one advance happens per check; a
// subscription idle across several windows converges over successive checks.
// The second return value reports whether the stored bounds are stale and
// should be written back.
func paidPeriod(sub *models.BillingSubscription, now time.Time) (Period, bool) {
	start := sub.CurrentPeriodStart.UTC()
	end := sub.CurrentPeriodEnd.UTC()
	rolled := false
	if !now.Before(end) {
		start = end
		end = end.AddDate(0, 0, 30)
		rolled = true
	}
	return Period{
		Key:   start.Format("2006-01-02"),
		Start: start,
		End:   end,
	}, rolled
}
