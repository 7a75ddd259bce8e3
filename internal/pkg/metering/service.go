package metering

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/DorianVeras/TradeGate/internal/pkg/tiers"
	"gorm.io/gorm"
)

// Quota is the admission answer for one analysis request.
type Quota struct {
	Allowed   bool      `json:"allowed"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Tier      string    `json:"tier"`
	PeriodKey string    `json:"period_key"`
	PeriodEnd time.Time `json:"period_end"`
}

// Service meters analysis usage against tier quotas. Admission and recording
// are deliberately split: CheckQuota answers whether one more analysis may
// start, IncrementUsage records one that completed. Callers only increment
// after the analysis succeeded, so a failed run never burns quota.
type Service struct {
	repo Repository
	snap SnapshotCache
	now  func() time.Time
}

// NewService creates a metering service. The snapshot cache may be nil.
func NewService(repo Repository, snap SnapshotCache) *Service {
	return &Service{repo: repo, snap: snap, now: time.Now}
}

// NewServiceFromDB creates a metering service from a GORM DB handle with the
// shared redis snapshot cache.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewRedisSnapshotCache())
}

// CheckQuota reports whether the user may start one more analysis in the
// current period. The answer always comes from the database counter; the
// snapshot cache is refreshed on the way out.
func (s *Service) CheckQuota(ctx context.Context, userID uint) (Quota, error) {
	_ = ctx
	if userID == 0 {
		return Quota{}, errors.New("user_id is required")
	}

	tier, def, err := s.userTier(userID)
	if err != nil {
		return Quota{}, err
	}
	period, err := s.resolvePeriod(userID, tier)
	if err != nil {
		return Quota{}, err
	}
	used, err := s.repo.GetUsageCount(userID, period.Key)
	if err != nil {
		return Quota{}, err
	}
	if s.snap != nil {
		s.snap.SetUsed(userID, period.Key, used)
	}

	remaining := def.MonthlyQuota - used
	if remaining < 0 {
		remaining = 0
	}
	return Quota{
		Allowed:   used < def.MonthlyQuota,
		Used:      used,
		Limit:     def.MonthlyQuota,
		Remaining: remaining,
		Tier:      tier,
		PeriodKey: period.Key,
		PeriodEnd: period.End,
	}, nil
}

// IncrementUsage records one completed analysis and returns the new count.
func (s *Service) IncrementUsage(ctx context.Context, userID uint) (int, error) {
	_ = ctx
	if userID == 0 {
		return 0, errors.New("user_id is required")
	}

	tier, _, err := s.userTier(userID)
	if err != nil {
		return 0, err
	}
	period, err := s.resolvePeriod(userID, tier)
	if err != nil {
		return 0, err
	}
	used, err := s.repo.IncrementUsage(userID, period.Key, period.End)
	if err != nil {
		return 0, err
	}
	if s.snap != nil {
		s.snap.SetUsed(userID, period.Key, used)
	}
	return used, nil
}

// UsedInCurrentPeriod returns the database counter for the current period.
// It backs the billing downgrade guard, so it never trusts the snapshot.
func (s *Service) UsedInCurrentPeriod(ctx context.Context, userID uint) (int, error) {
	_ = ctx
	tier, _, err := s.userTier(userID)
	if err != nil {
		return 0, err
	}
	period, err := s.resolvePeriod(userID, tier)
	if err != nil {
		return 0, err
	}
	return s.repo.GetUsageCount(userID, period.Key)
}

// CurrentUsage is the cheap read for dashboards: snapshot first, database on
// a miss.
func (s *Service) CurrentUsage(ctx context.Context, userID uint) (Quota, error) {
	tier, def, err := s.userTier(userID)
	if err != nil {
		return Quota{}, err
	}
	period, err := s.resolvePeriod(userID, tier)
	if err != nil {
		return Quota{}, err
	}

	used, ok := 0, false
	if s.snap != nil {
		used, ok = s.snap.GetUsed(userID, period.Key)
	}
	if !ok {
		used, err = s.repo.GetUsageCount(userID, period.Key)
		if err != nil {
			return Quota{}, err
		}
		if s.snap != nil {
			s.snap.SetUsed(userID, period.Key, used)
		}
	}

	remaining := def.MonthlyQuota - used
	if remaining < 0 {
		remaining = 0
	}
	return Quota{
		Allowed:   used < def.MonthlyQuota,
		Used:      used,
		Limit:     def.MonthlyQuota,
		Remaining: remaining,
		Tier:      tier,
		PeriodKey: period.Key,
		PeriodEnd: period.End,
	}, nil
}

func (s *Service) userTier(userID uint) (string, tiers.Definition, error) {
	tier, err := s.repo.GetUserTier(userID)
	if err != nil {
		return "", tiers.Definition{}, err
	}
	tier = string(tiers.Normalize(tier))
	def, err := tiers.Lookup(tier)
	if err != nil {
		return "", tiers.Definition{}, err
	}
	return tier, def, nil
}

// resolvePeriod picks the usage window for the user at the current instant.
// Paid subscribers with processor-seeded bounds run on the rolling 30-day
// anchor; everyone else runs on the calendar month. A rollover detected here
// is written back so the stored bounds stay current.
func (s *Service) resolvePeriod(userID uint, tier string) (Period, error) {
	now := s.now()
	if tier == string(tiers.TierTrial) {
		return trialPeriod(now), nil
	}

	sub, err := s.repo.GetSubscriptionByUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return trialPeriod(now), nil
		}
		return Period{}, err
	}
	if !sub.HasExplicitPeriod() {
		return trialPeriod(now), nil
	}

	period, rolled := paidPeriod(sub, now)
	if rolled {
		if err := s.repo.UpdateSubscriptionPeriod(sub.ID, period.Start, period.End); err != nil {
			// The window is still correct for this request; the write-back
			// will be retried on the next one.
			log.Printf("[Metering] period rollover write-back failed for user %d: %v", userID, err)
		}
	}
	return period, nil
}
