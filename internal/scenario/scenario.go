// Package scenario implements the Scenario Generator (§4.G): deterministic
// test-vector corpora of wage attestations, a configurable fraction of them
// deliberately adversarial, built over a fixed set of mock employers.
//
// Grounded on quantumlife-canon-core/pkg/domain/signedclaims's enum-style
// "kind + human description" shape for labeling generated artifacts, and on
// the teacher's own use of google/uuid for stable identifiers — here fed a
// seeded math/rand source (via uuid.NewRandomFromReader) so the same seed
// always reproduces byte-identical scenario ids, not just byte-identical
// attestations.
package scenario

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/wageattest/attestation-engine/internal/attestation"
	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/registry"
	"github.com/wageattest/attestation-engine/internal/validator"
)

// AdversarialVariant enumerates the five deliberate-violation shapes (§4.G).
type AdversarialVariant string

const (
	VariantWageCalculationMismatch AdversarialVariant = "wage_calculation_mismatch"
	VariantExcessiveHours          AdversarialVariant = "excessive_hours"
	VariantFutureWorkPeriod        AdversarialVariant = "future_work_period"
	VariantNegativeValues          AdversarialVariant = "negative_values"
	VariantUnrealisticRate         AdversarialVariant = "unrealistic_rate"
)

var allVariants = []AdversarialVariant{
	VariantWageCalculationMismatch,
	VariantExcessiveHours,
	VariantFutureWorkPeriod,
	VariantNegativeValues,
	VariantUnrealisticRate,
}

// Scenario is one generated test vector.
type Scenario struct {
	ScenarioID    string
	EmployerKey   string
	Attestation   *attestation.Attestation
	ExpectedValid bool
	ErrorType     string // empty when ExpectedValid
	Description   string
}

// Config controls a single Generate call.
type Config struct {
	MockEmployerCount    int
	ScenariosPerEmployer int
	// AdversarialFraction is the fraction of generated scenarios that are
	// deliberately adversarial (§4.G default 0.05).
	AdversarialFraction float64
}

// DefaultConfig returns the spec's stated default adversarial fraction.
func DefaultConfig(mockEmployerCount, scenariosPerEmployer int) Config {
	return Config{
		MockEmployerCount:    mockEmployerCount,
		ScenariosPerEmployer: scenariosPerEmployer,
		AdversarialFraction:  0.05,
	}
}

// Generator produces deterministic scenario corpora given a seed.
type Generator struct {
	registry *registry.Registry
	clock    clock.Clock
	rng      *rand.Rand
}

// New constructs a Generator. The same seed always yields the same
// scenarios (ids included) for the same Config and Registry state.
func New(reg *registry.Registry, c clock.Clock, seed int64) *Generator {
	return &Generator{
		registry: reg,
		clock:    c,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Generate mints cfg.MockEmployerCount employers and cfg.ScenariosPerEmployer
// scenarios each.
func (g *Generator) Generate(cfg Config) ([]Scenario, error) {
	if cfg.AdversarialFraction <= 0 {
		cfg.AdversarialFraction = 0.05
	}

	var scenarios []Scenario
	for e := 0; e < cfg.MockEmployerCount; e++ {
		profile, err := g.registry.Register(registry.RegisterInput{
			CompanyName:      fmt.Sprintf("Mock Employer %d", e),
			Domain:           fmt.Sprintf("mock%d.example", e),
			EmployeeCount:    50,
			PayrollFrequency: registry.Biweekly,
			ContactEmail:     fmt.Sprintf("hr@mock%d.example", e),
			RequestID:        fmt.Sprintf("scenario-gen-%d", e),
		})
		if err != nil {
			return nil, fmt.Errorf("register mock employer %d: %w", e, err)
		}

		for s := 0; s < cfg.ScenariosPerEmployer; s++ {
			sc, err := g.oneScenario(profile.EmployerID, cfg.AdversarialFraction)
			if err != nil {
				return nil, err
			}
			scenarios = append(scenarios, sc)
		}
	}
	return scenarios, nil
}

func (g *Generator) oneScenario(employerID string, adversarialFraction float64) (Scenario, error) {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return Scenario{}, fmt.Errorf("generate scenario id: %w", err)
	}

	now := g.clock.Now()
	periodStart := now.Add(-time.Duration(g.rng.Intn(60)+1) * 24 * time.Hour)
	periodEnd := periodStart.Add(time.Duration(g.rng.Intn(6)+1) * 24 * time.Hour)
	hoursWorked := float64(g.rng.Intn(35)+5) + float64(g.rng.Intn(100))/100
	hourlyRate := int64(g.rng.Intn(9_000) + 1_000) // 10.00-99.99/hr in cents
	wageAmount := validator.ExactWageCents(hoursWorked, hourlyRate)

	a := &attestation.Attestation{
		EmployerID:     employerID,
		EmployeeWallet: randomWallet(g.rng),
		WageAmount:     wageAmount,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		HoursWorked:    hoursWorked,
		HourlyRate:     hourlyRate,
		PeriodNonce:    fmt.Sprintf("scenario_%s", id.String()),
		Timestamp:      now,
	}

	if g.rng.Float64() >= adversarialFraction {
		return Scenario{
			ScenarioID:    id.String(),
			EmployerKey:   employerID,
			Attestation:   a,
			ExpectedValid: true,
			Description:   "well-formed attestation within policy bounds",
		}, nil
	}

	variant := allVariants[g.rng.Intn(len(allVariants))]
	applyVariant(a, variant, now)

	return Scenario{
		ScenarioID:    id.String(),
		EmployerKey:   employerID,
		Attestation:   a,
		ExpectedValid: false,
		ErrorType:     string(variant),
		Description:   variantDescription(variant),
	}, nil
}

func applyVariant(a *attestation.Attestation, variant AdversarialVariant, now time.Time) {
	switch variant {
	case VariantWageCalculationMismatch:
		a.WageAmount = validator.ExactWageCents(a.HoursWorked*1.5, a.HourlyRate)
	case VariantExcessiveHours:
		a.PeriodStart = now.Add(-24 * time.Hour)
		a.PeriodEnd = now
		a.HoursWorked = 25
	case VariantFutureWorkPeriod:
		a.PeriodEnd = now.AddDate(0, 0, 7)
		if !a.PeriodEnd.After(a.PeriodStart) {
			a.PeriodStart = a.PeriodEnd.Add(-24 * time.Hour)
		}
	case VariantNegativeValues:
		a.WageAmount = -a.WageAmount
		a.HoursWorked = -a.HoursWorked
	case VariantUnrealisticRate:
		a.HourlyRate = 100_000
		a.WageAmount = validator.ExactWageCents(a.HoursWorked, a.HourlyRate)
	}
}

func variantDescription(v AdversarialVariant) string {
	switch v {
	case VariantWageCalculationMismatch:
		return "wage_amount is 1.5x the exact hours*rate calculation"
	case VariantExcessiveHours:
		return "hours_worked is 25 within a single calendar day"
	case VariantFutureWorkPeriod:
		return "period_end is seven days in the future"
	case VariantNegativeValues:
		return "wage_amount and hours_worked are negated"
	case VariantUnrealisticRate:
		return "hourly_rate is set to 100,000 cents"
	default:
		return "unknown adversarial variant"
	}
}

func randomWallet(rng *rand.Rand) string {
	b := make([]byte, 20)
	_, _ = rng.Read(b)
	return fmt.Sprintf("0x%x", b)
}
