package tiers

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{in: "trial", want: TierTrial},
		{in: "free", want: TierTrial},
		{in: "", want: TierTrial},
		{in: "Starter", want: TierStarter},
		{in: "PROFESSIONAL", want: TierProfessional},
		{in: " premium ", want: TierPremium},
		{in: "Enterprise", want: Tier("Enterprise")},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookupQuotas(t *testing.T) {
	tests := []struct {
		tier  string
		quota int
		lock  int
	}{
		{tier: "Trial", quota: 1, lock: 0},
		{tier: "Starter", quota: 15, lock: 30},
		{tier: "Professional", quota: 100, lock: 90},
		{tier: "Premium", quota: 500, lock: 180},
	}

	for _, tt := range tests {
		def, err := Lookup(tt.tier)
		if err != nil {
			t.Fatalf("Lookup(%q) returned error: %v", tt.tier, err)
		}
		if def.MonthlyQuota != tt.quota {
			t.Fatalf("Lookup(%q).MonthlyQuota = %d, want %d", tt.tier, def.MonthlyQuota, tt.quota)
		}
		if def.LockDays != tt.lock {
			t.Fatalf("Lookup(%q).LockDays = %d, want %d", tt.tier, def.LockDays, tt.lock)
		}
	}
}

func TestLookupUnknownTierFails(t *testing.T) {
	if _, err := Lookup("Enterprise"); err == nil {
		t.Fatalf("expected unknown tier to return a configuration error")
	}
}

func TestRankOrdering(t *testing.T) {
	if Rank("Trial") >= Rank("Starter") {
		t.Fatalf("expected Starter to outrank Trial")
	}
	if Rank("Starter") >= Rank("Professional") {
		t.Fatalf("expected Professional to outrank Starter")
	}
	if Rank("Professional") >= Rank("Premium") {
		t.Fatalf("expected Premium to outrank Professional")
	}
	if Rank("Enterprise") != -1 {
		t.Fatalf("expected unknown tier rank -1, got %d", Rank("Enterprise"))
	}
}

func TestAllOrderedByRank(t *testing.T) {
	all := All()
	if len(all) != 4 {
		t.Fatalf("expected 4 tiers, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Rank <= all[i-1].Rank {
			t.Fatalf("tiers not ordered by rank at index %d", i)
		}
	}
}
