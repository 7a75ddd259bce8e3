package metering

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DorianVeras/TradeGate/app/models"
	"github.com/DorianVeras/TradeGate/internal/pkg/tiers"
	"gorm.io/gorm"
)

type fakeRepository struct {
	tiers  map[uint]string
	subs   map[uint]*models.BillingSubscription
	counts map[string]int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		tiers:  map[uint]string{},
		subs:   map[uint]*models.BillingSubscription{},
		counts: map[string]int{},
	}
}

func countKey(userID uint, periodKey string) string {
	return fmt.Sprintf("%d#%s", userID, periodKey)
}

func (f *fakeRepository) GetUserTier(userID uint) (string, error) {
	if tier, ok := f.tiers[userID]; ok {
		return tier, nil
	}
	return string(tiers.TierTrial), nil
}

func (f *fakeRepository) GetSubscriptionByUser(userID uint) (*models.BillingSubscription, error) {
	if sub, ok := f.subs[userID]; ok {
		return sub, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpdateSubscriptionPeriod(subscriptionID uint, start, end time.Time) error {
	for _, sub := range f.subs {
		if sub.ID == subscriptionID {
			s, e := start, end
			sub.CurrentPeriodStart = &s
			sub.CurrentPeriodEnd = &e
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetUsageCount(userID uint, periodKey string) (int, error) {
	return f.counts[countKey(userID, periodKey)], nil
}

func (f *fakeRepository) IncrementUsage(userID uint, periodKey string, periodEnd time.Time) (int, error) {
	f.counts[countKey(userID, periodKey)]++
	return f.counts[countKey(userID, periodKey)], nil
}

type fakeSnapshot struct {
	data map[string]int
}

func newFakeSnapshot() *fakeSnapshot {
	return &fakeSnapshot{data: map[string]int{}}
}

func (f *fakeSnapshot) GetUsed(userID uint, periodKey string) (int, bool) {
	used, ok := f.data[countKey(userID, periodKey)]
	return used, ok
}

func (f *fakeSnapshot) SetUsed(userID uint, periodKey string, used int) {
	f.data[countKey(userID, periodKey)] = used
}

func newTestService(repo *fakeRepository, snap SnapshotCache, now time.Time) *Service {
	svc := NewService(repo, snap)
	svc.now = func() time.Time { return now }
	return svc
}

func TestCheckQuotaEnforcesStrictLimit(t *testing.T) {
	repo := newFakeRepository()
	repo.tiers[1] = string(tiers.TierStarter) // quota 15
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, nil, now)
	ctx := context.Background()

	period := trialPeriod(now)
	repo.counts[countKey(1, period.Key)] = 14

	q, err := svc.CheckQuota(ctx, 1)
	if err != nil {
		t.Fatalf("CheckQuota returned error: %v", err)
	}
	if !q.Allowed || q.Used != 14 || q.Remaining != 1 {
		t.Fatalf("expected one analysis left, got %+v", q)
	}

	// used == limit refuses; the limit is a ceiling, not a target.
	repo.counts[countKey(1, period.Key)] = 15
	q, err = svc.CheckQuota(ctx, 1)
	if err != nil {
		t.Fatalf("CheckQuota returned error: %v", err)
	}
	if q.Allowed || q.Remaining != 0 {
		t.Fatalf("expected refusal at the limit, got %+v", q)
	}
}

func TestCheckAndIncrementScenario(t *testing.T) {
	repo := newFakeRepository()
	repo.tiers[2] = string(tiers.TierStarter)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, nil, now)
	ctx := context.Background()

	// Burn the full Starter quota analysis by analysis.
	for i := 0; i < 15; i++ {
		q, err := svc.CheckQuota(ctx, 2)
		if err != nil {
			t.Fatalf("CheckQuota returned error: %v", err)
		}
		if !q.Allowed {
			t.Fatalf("expected analysis %d to be admitted, got %+v", i+1, q)
		}
		if _, err := svc.IncrementUsage(ctx, 2); err != nil {
			t.Fatalf("IncrementUsage returned error: %v", err)
		}
	}

	q, err := svc.CheckQuota(ctx, 2)
	if err != nil {
		t.Fatalf("CheckQuota returned error: %v", err)
	}
	if q.Allowed {
		t.Fatalf("expected 16th analysis to be refused, got %+v", q)
	}
}

func TestRolloverStartsFreshCounter(t *testing.T) {
	repo := newFakeRepository()
	repo.tiers[3] = string(tiers.TierProfessional)
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)
	repo.subs[3] = paidSub(start, end)
	repo.subs[3].UserID = 3

	// The old window is exhausted.
	repo.counts[countKey(3, start.Format("2006-01-02"))] = 100

	svc := newTestService(repo, nil, end.Add(time.Hour))
	q, err := svc.CheckQuota(context.Background(), 3)
	if err != nil {
		t.Fatalf("CheckQuota returned error: %v", err)
	}
	if !q.Allowed || q.Used != 0 {
		t.Fatalf("expected fresh counter after rollover, got %+v", q)
	}
	if q.PeriodKey != end.Format("2006-01-02") {
		t.Fatalf("expected new period key %s, got %s", end.Format("2006-01-02"), q.PeriodKey)
	}

	// The rollover was written back to the subscription record.
	if !repo.subs[3].CurrentPeriodStart.Equal(end) {
		t.Fatalf("expected stored period start to advance to %v, got %v", end, repo.subs[3].CurrentPeriodStart)
	}
}

func TestPaidSubscriberWithoutSeededPeriodRunsOnCalendar(t *testing.T) {
	repo := newFakeRepository()
	repo.tiers[4] = string(tiers.TierPremium)
	repo.subs[4] = &models.BillingSubscription{ID: 2, UserID: 4, Tier: string(tiers.TierPremium)}
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	svc := newTestService(repo, nil, now)
	q, err := svc.CheckQuota(context.Background(), 4)
	if err != nil {
		t.Fatalf("CheckQuota returned error: %v", err)
	}
	if q.PeriodKey != "2026-02" {
		t.Fatalf("expected calendar fallback period, got %q", q.PeriodKey)
	}
}

func TestCurrentUsageReadsSnapshotFirst(t *testing.T) {
	repo := newFakeRepository()
	repo.tiers[5] = string(tiers.TierStarter)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	snap := newFakeSnapshot()
	svc := newTestService(repo, snap, now)
	ctx := context.Background()

	period := trialPeriod(now)
	repo.counts[countKey(5, period.Key)] = 3
	snap.SetUsed(5, period.Key, 7)

	q, err := svc.CurrentUsage(ctx, 5)
	if err != nil {
		t.Fatalf("CurrentUsage returned error: %v", err)
	}
	if q.Used != 7 {
		t.Fatalf("expected snapshot value 7, got %d", q.Used)
	}

	// The downgrade guard must not trust the snapshot.
	used, err := svc.UsedInCurrentPeriod(ctx, 5)
	if err != nil {
		t.Fatalf("UsedInCurrentPeriod returned error: %v", err)
	}
	if used != 3 {
		t.Fatalf("expected database value 3, got %d", used)
	}
}

func TestIncrementRefreshesSnapshot(t *testing.T) {
	repo := newFakeRepository()
	repo.tiers[6] = string(tiers.TierStarter)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	snap := newFakeSnapshot()
	svc := newTestService(repo, snap, now)

	if _, err := svc.IncrementUsage(context.Background(), 6); err != nil {
		t.Fatalf("IncrementUsage returned error: %v", err)
	}
	period := trialPeriod(now)
	if used, ok := snap.GetUsed(6, period.Key); !ok || used != 1 {
		t.Fatalf("expected snapshot refreshed to 1, got %d ok=%v", used, ok)
	}
}
