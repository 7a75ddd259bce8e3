package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Input describes one shipment to be checked for trade compliance.
type Input struct {
	HSCode             string  `json:"hs_code" validate:"required,min=6,max=10"`
	OriginCountry      string  `json:"origin_country" validate:"required,oneof=US CA MX"`
	DestinationCountry string  `json:"destination_country" validate:"required,oneof=US CA MX"`
	DeclaredValue      float64 `json:"declared_value" validate:"required,gt=0"`
	ProductDescription string  `json:"product_description" validate:"max=2000"`
}

// Result is the compliance answer for one shipment.
type Result struct {
	ID                   string    `json:"id"`
	HSCode               string    `json:"hs_code"`
	Route                string    `json:"route"`
	DutyFreeEligible     bool      `json:"duty_free_eligible"`
	EstimatedDutyRate    float64   `json:"estimated_duty_rate"`
	RequiredCertificates []string  `json:"required_certificates"`
	Notes                []string  `json:"notes"`
	AnalyzedAt           time.Time `json:"analyzed_at"`
}

// Analyzer runs one compliance analysis. The HTTP layer depends on this
// interface so tests can swap the engine out.
type Analyzer interface {
	Analyze(ctx context.Context, in Input) (Result, error)
}

var validate = validator.New()

// Engine is the rules-based analyzer for USMCA trade lanes.
type Engine struct{}

// NewEngine creates the default analyzer.
func NewEngine() Engine {
	return Engine{}
}

// Analyze validates the shipment and evaluates the applicable USMCA rules.
func (Engine) Analyze(ctx context.Context, in Input) (Result, error) {
	_ = ctx
	in.HSCode = strings.TrimSpace(in.HSCode)
	in.OriginCountry = strings.ToUpper(strings.TrimSpace(in.OriginCountry))
	in.DestinationCountry = strings.ToUpper(strings.TrimSpace(in.DestinationCountry))

	if err := validate.Struct(in); err != nil {
		return Result{}, fmt.Errorf("invalid analysis input: %w", err)
	}
	if in.OriginCountry == in.DestinationCountry {
		return Result{}, fmt.Errorf("origin and destination must differ")
	}

	res := Result{
		ID:         uuid.New().String(),
		HSCode:     in.HSCode,
		Route:      in.OriginCountry + "-" + in.DestinationCountry,
		AnalyzedAt: time.Now().UTC(),
	}

	chapter := in.HSCode[:2]
	switch {
	case isAgriculturalChapter(chapter):
		res.EstimatedDutyRate = 0.045
		res.RequiredCertificates = append(res.RequiredCertificates, "phytosanitary_certificate")
		res.Notes = append(res.Notes, "Agricultural goods require inspection at the border crossing.")
	case isTextileChapter(chapter):
		res.EstimatedDutyRate = 0.082
		res.RequiredCertificates = append(res.RequiredCertificates, "certificate_of_origin")
		res.Notes = append(res.Notes, "Textiles must satisfy the yarn-forward rule of origin for preferential treatment.")
	default:
		res.EstimatedDutyRate = 0.025
	}

	// USMCA preferential treatment needs a certification of origin above the
	// low-value threshold.
	if in.DeclaredValue > 1000 {
		res.RequiredCertificates = appendUnique(res.RequiredCertificates, "certificate_of_origin")
	}
	res.DutyFreeEligible = len(res.RequiredCertificates) > 0 || in.DeclaredValue <= 1000
	if res.DutyFreeEligible {
		res.EstimatedDutyRate = 0
	}

	return res, nil
}

func isAgriculturalChapter(chapter string) bool {
	return chapter >= "01" && chapter <= "24"
}

func isTextileChapter(chapter string) bool {
	return chapter >= "50" && chapter <= "63"
}

func appendUnique(list []string, v string) []string {
	for _, item := range list {
		if item == v {
			return list
		}
	}
	return append(list, v)
}
