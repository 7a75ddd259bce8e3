package analysis

import (
	"context"
	"testing"
)

func TestAnalyzeValidatesInput(t *testing.T) {
	engine := NewEngine()
	ctx := context.Background()

	tests := []struct {
		name string
		in   Input
	}{
		{name: "missing hs code", in: Input{OriginCountry: "US", DestinationCountry: "CA", DeclaredValue: 100}},
		{name: "short hs code", in: Input{HSCode: "61", OriginCountry: "US", DestinationCountry: "CA", DeclaredValue: 100}},
		{name: "non-usmca country", in: Input{HSCode: "610910", OriginCountry: "DE", DestinationCountry: "CA", DeclaredValue: 100}},
		{name: "zero value", in: Input{HSCode: "610910", OriginCountry: "US", DestinationCountry: "CA"}},
		{name: "same origin and destination", in: Input{HSCode: "610910", OriginCountry: "US", DestinationCountry: "US", DeclaredValue: 100}},
	}
	for _, tt := range tests {
		if _, err := engine.Analyze(ctx, tt.in); err == nil {
			t.Fatalf("%s: expected validation error", tt.name)
		}
	}
}

func TestAnalyzeTextileRoute(t *testing.T) {
	engine := NewEngine()
	res, err := engine.Analyze(context.Background(), Input{
		HSCode:             "610910",
		OriginCountry:      "MX",
		DestinationCountry: "US",
		DeclaredValue:      5000,
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.Route != "MX-US" {
		t.Fatalf("expected route MX-US, got %q", res.Route)
	}
	if !contains(res.RequiredCertificates, "certificate_of_origin") {
		t.Fatalf("expected certificate_of_origin, got %v", res.RequiredCertificates)
	}
	if res.ID == "" || res.AnalyzedAt.IsZero() {
		t.Fatalf("expected populated result metadata: %+v", res)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
