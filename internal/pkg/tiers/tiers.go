package tiers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DorianVeras/TradeGate/internal/pkg/env"
)

type Tier string

const (
	TierTrial        Tier = "Trial"
	TierStarter      Tier = "Starter"
	TierProfessional Tier = "Professional"
	TierPremium      Tier = "Premium"
)

// Definition describes the commercial parameters of a subscription tier:
// the monthly analysis quota and the commitment-lock window that guards
// downgrades away from the tier.
type Definition struct {
	Name            Tier
	MonthlyQuota    int
	LockDays        int
	Rank            int
	Watermark       bool
	APIAccess       bool
	PrioritySupport bool
}

// Defaults match the legacy platform's subscription-tier-limits config.
// Quota and lock windows can be overridden per tier via env, e.g.
// TIER_STARTER_QUOTA=20 / TIER_STARTER_LOCK_DAYS=60.
var definitions = map[Tier]Definition{
	TierTrial: {
		Name:         TierTrial,
		MonthlyQuota: 1,
		LockDays:     0,
		Rank:         0,
		Watermark:    true,
	},
	TierStarter: {
		Name:         TierStarter,
		MonthlyQuota: 15,
		LockDays:     30,
		Rank:         1,
	},
	TierProfessional: {
		Name:            TierProfessional,
		MonthlyQuota:    100,
		LockDays:        90,
		Rank:            2,
		PrioritySupport: true,
	},
	TierPremium: {
		Name:            TierPremium,
		MonthlyQuota:    500,
		LockDays:        180,
		Rank:            3,
		APIAccess:       true,
		PrioritySupport: true,
	},
}

// Normalize maps arbitrary tier strings (any case, surrounding space) to a
// known Tier. Unknown values are returned as-is so callers can report them.
func Normalize(name string) Tier {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trial", "free", "":
		return TierTrial
	case "starter":
		return TierStarter
	case "professional":
		return TierProfessional
	case "premium":
		return TierPremium
	default:
		return Tier(strings.TrimSpace(name))
	}
}

// IsKnown reports whether name maps to a configured tier.
func IsKnown(name string) bool {
	_, ok := definitions[Normalize(name)]
	return ok
}

// Lookup returns the definition for a tier. A missing mapping is a
// configuration error: the caller must not fall back to a silent default,
// because that either means unlimited free usage or blocking a paying
// subscriber (we refuse to guess which).
func Lookup(name string) (Definition, error) {
	tier := Normalize(name)
	def, ok := definitions[tier]
	if !ok {
		return Definition{}, fmt.Errorf("no tier definition configured for %q", name)
	}
	def.MonthlyQuota = envOverrideInt(tier, "QUOTA", def.MonthlyQuota)
	def.LockDays = envOverrideInt(tier, "LOCK_DAYS", def.LockDays)
	return def, nil
}

// MustLookup is Lookup for startup paths where a broken tier table should
// stop the process immediately.
func MustLookup(name string) Definition {
	def, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return def
}

// Rank returns the ordinal level of a tier used for upgrade/downgrade
// comparison. Unknown tiers rank below Trial so that they can never be
// treated as an upgrade.
func Rank(name string) int {
	def, err := Lookup(name)
	if err != nil {
		return -1
	}
	return def.Rank
}

// All returns every configured tier ordered by rank.
func All() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, t := range []Tier{TierTrial, TierStarter, TierProfessional, TierPremium} {
		if def, err := Lookup(string(t)); err == nil {
			out = append(out, def)
		}
	}
	return out
}

func envOverrideInt(tier Tier, suffix string, def int) int {
	key := fmt.Sprintf("TIER_%s_%s", strings.ToUpper(string(tier)), suffix)
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
