package billing

import (
	"fmt"
	"time"

	"github.com/DorianVeras/TradeGate/internal/pkg/tiers"
)

// TierChangeDirection classifies a requested tier change relative to the
// current tier.
type TierChangeDirection int

const (
	DirectionLateral TierChangeDirection = iota
	DirectionUpgrade
	DirectionDowngrade
)

func (d TierChangeDirection) String() string {
	switch d {
	case DirectionUpgrade:
		return "upgrade"
	case DirectionDowngrade:
		return "downgrade"
	default:
		return "lateral"
	}
}

// LockDecision is the result of evaluating a tier change against the
// commitment lock. A refused downgrade is a normal outcome, not an error:
// Allowed is false and DaysRemaining/LiftsAt describe when the change
// becomes possible.
type LockDecision struct {
	Direction     TierChangeDirection
	Allowed       bool
	DaysRemaining int
	LiftsAt       time.Time
	// NewLockedUntil is the lock the subscription should carry after the
	// change is applied. Nil means the existing lock is left untouched.
	NewLockedUntil *time.Time
}

// EvaluateTierChange decides whether moving from currentTier to
// requestedTier is permitted at time now, given the subscription's lock.
//
// Upgrades are always permitted and replace the lock with a fresh window
// sized by the requested tier. Downgrades are refused while the lock is
// active; once it has lapsed they are permitted and likewise start the
// requested tier's window. Lateral changes never touch the lock.
func EvaluateTierChange(currentTier, requestedTier string, lockedUntil *time.Time, now time.Time) (LockDecision, error) {
	curRank := tiers.Rank(currentTier)
	if curRank < 0 {
		return LockDecision{}, fmt.Errorf("unknown current tier %q", currentTier)
	}
	reqDef, err := tiers.Lookup(requestedTier)
	if err != nil {
		return LockDecision{}, fmt.Errorf("requested tier: %w", err)
	}
	reqRank := reqDef.Rank

	switch {
	case reqRank > curRank:
		dec := LockDecision{Direction: DirectionUpgrade, Allowed: true}
		if reqDef.LockDays > 0 {
			until := now.AddDate(0, 0, reqDef.LockDays)
			dec.NewLockedUntil = &until
		}
		return dec, nil
	case reqRank < curRank:
		if lockedUntil != nil && now.Before(*lockedUntil) {
			remaining := lockedUntil.Sub(now)
			days := int(remaining / (24 * time.Hour))
			if remaining%(24*time.Hour) != 0 {
				days++
			}
			return LockDecision{
				Direction:     DirectionDowngrade,
				Allowed:       false,
				DaysRemaining: days,
				LiftsAt:       *lockedUntil,
			}, nil
		}
		dec := LockDecision{Direction: DirectionDowngrade, Allowed: true}
		if reqDef.LockDays > 0 {
			until := now.AddDate(0, 0, reqDef.LockDays)
			dec.NewLockedUntil = &until
		}
		return dec, nil
	default:
		return LockDecision{Direction: DirectionLateral, Allowed: true}, nil
	}
}
