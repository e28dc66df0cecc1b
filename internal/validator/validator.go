// Package validator implements the Validator (§4.E): the gatekeeper that
// runs the five ordered check suites over a candidate attestation, and, if
// it clears every rejecting check, admits it to the Ledger atomically.
//
// Grounded on certenIO-certen-validator/pkg/attestation/strategy's
// multi-stage verification shape (format -> signature -> aggregation,
// pluggable per scheme) generalized to this domain's five fixed suites, and
// on the Registry/Ledger packages built alongside it for policy lookup and
// single-writer-per-pair admission (§5).
package validator

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/internal/attestation"
	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/errs"
	"github.com/wageattest/attestation-engine/internal/ledger"
	"github.com/wageattest/attestation-engine/internal/policy"
	"github.com/wageattest/attestation-engine/internal/registry"
)

// patternWindow is the 30-day lookback for pattern analysis (§4.E.1.5).
const patternWindow = 30 * 24 * time.Hour

// Security flags (§4.E.1), attached to Result.SecurityFlags.
const (
	FlagReplayAttempt      = "REPLAY_ATTEMPT"
	FlagOverlappingPeriods = "OVERLAPPING_PERIODS"
	FlagUnusualWagePattern = "UNUSUAL_WAGE_PATTERN"
	FlagHighFrequency      = "HIGH_FREQUENCY"
	FlagRoundNumberBias    = "ROUND_NUMBER_BIAS"
)

// Result is the verdict of a single Validate call (§4.E.1 final paragraph):
// is_valid plus three distinct ordered lists.
type Result struct {
	IsValid       bool
	Errors        []string
	Warnings      []string
	SecurityFlags []string
	Nullifier     string // set only when IsValid and the attestation was admitted
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *Result) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *Result) addFlag(flag string) {
	r.SecurityFlags = append(r.SecurityFlags, flag)
}

// Validator wires the Registry (policy lookup, employer existence) and the
// Ledger (anti-replay state, admission) behind the ordered check suites.
type Validator struct {
	registry *registry.Registry
	ledger   *ledger.Ledger
	clock    clock.Clock
	logger   *zap.Logger
}

// New constructs a Validator over reg and led.
func New(reg *registry.Registry, led *ledger.Ledger, c clock.Clock, logger *zap.Logger) *Validator {
	return &Validator{registry: reg, ledger: led, clock: c, logger: logger}
}

// Validate runs the five check suites in order over a, and, if it is valid,
// admits it to the Ledger. The entire evaluate-then-admit sequence runs
// inside the Ledger's per-(employer_id, employee_wallet) critical section
// (§5), so a concurrent candidate for the same pair can never observe a
// partially-admitted state.
func (v *Validator) Validate(a *attestation.Attestation) (Result, error) {
	// Format check (§4.E.1.1) runs outside the pair lock: it needs no shared
	// state, and a structurally invalid attestation has no well-formed
	// (employer_id, employee_wallet) pair to lock on in the first place.
	if reasons := a.Validate(); len(reasons) > 0 {
		return Result{Errors: reasons}, nil
	}

	bundle, err := v.registry.Policy(a.EmployerID)
	if err != nil {
		return Result{}, err
	}

	var result Result
	lockErr := v.ledger.WithPairLock(a.EmployerID, a.EmployeeWallet, func() error {
		res, admitErr := v.checkAndAdmit(a, bundle)
		if admitErr != nil {
			return admitErr
		}
		result = res
		return nil
	})
	if lockErr != nil {
		return Result{}, lockErr
	}
	return result, nil
}

// checkAndAdmit runs suites 2-5 and, if the attestation is clean, admits it.
// Caller MUST hold the (employer_id, employee_wallet) pair lock.
func (v *Validator) checkAndAdmit(a *attestation.Attestation, bundle policy.Bundle) (Result, error) {
	var result Result

	v.antiReplayCheck(a, &result)
	v.policyCheck(a, bundle, &result)
	v.temporalCheck(a, bundle, &result)
	v.patternAnalysis(a, &result)

	result.IsValid = len(result.Errors) == 0
	if !result.IsValid {
		return result, nil
	}

	nullifier, err := a.Nullifier()
	if err != nil {
		return Result{}, errs.CanonicalizationFailed(err.Error())
	}

	if err := v.ledger.Admit(a, nullifier); err != nil {
		return Result{}, err
	}
	result.Nullifier = nullifier
	return result, nil
}

// antiReplayCheck is suite 2 (§4.E.1.2).
func (v *Validator) antiReplayCheck(a *attestation.Attestation, result *Result) {
	periodKey := a.PeriodKey()
	if v.ledger.NonceSeen(periodKey) {
		result.addError(errs.ReplayAttempt(periodKey).Message)
		result.addFlag(FlagReplayAttempt)
		return
	}

	if nullifier, err := a.Nullifier(); err == nil && v.ledger.NullifierSeen(nullifier) {
		result.addError(errs.ReplayAttempt(periodKey).Message)
		result.addFlag(FlagReplayAttempt)
		return
	}

	for _, existing := range v.ledger.AdmittedForPair(a.EmployerID, a.EmployeeWallet) {
		classification := ledger.Classify(a.PeriodStart, a.PeriodEnd, existing.Attestation.PeriodStart, existing.Attestation.PeriodEnd)
		if classification != ledger.OverlapNone {
			result.addError(errs.OverlappingPeriod(classification).Message)
			result.addFlag(FlagOverlappingPeriods)
			return
		}
	}
}

// policyCheck is suite 3 (§4.E.1.3).
func (v *Validator) policyCheck(a *attestation.Attestation, bundle policy.Bundle, result *Result) {
	if a.WageAmount > bundle.MaxWagePerAttestation {
		result.addError(errs.WageLimitExceeded(a.WageAmount, bundle.MaxWagePerAttestation).Message)
	}

	if a.HourlyRate < bundle.MinHourlyRate {
		result.addError(errs.HourlyRateBelowMinimum(a.HourlyRate, bundle.MinHourlyRate).Message)
	} else if a.HourlyRate > bundle.MaxHourlyRate {
		result.addWarning("hourly rate exceeds policy maximum")
	}

	days := ceilDays(a.PeriodEnd.Sub(a.PeriodStart).Hours())
	avgHoursPerDay := a.HoursWorked / float64(days)
	if avgHoursPerDay > bundle.MaxHoursPerDay {
		result.addError(errs.HoursExceedLimit(avgHoursPerDay, bundle.MaxHoursPerDay).Message)
	}

	if !bundle.AllowFutureAttestations && a.PeriodEnd.After(v.clock.Now()) {
		result.addError(errs.FuturePeriod().Message)
	}

	if bundle.RequireExactWageCalculation {
		want := ExactWageCents(a.HoursWorked, a.HourlyRate)
		if a.WageAmount != want {
			result.addError(errs.WageCalculationMismatch(a.WageAmount, want).Message)
		}
	}
}

// temporalCheck is suite 4 (§4.E.1.4).
func (v *Validator) temporalCheck(a *attestation.Attestation, bundle policy.Bundle, result *Result) {
	age := v.clock.Now().Sub(a.Timestamp)
	if age > bundle.MaxAttestationAge {
		result.addError(errs.AttestationTooOld(age.String(), bundle.MaxAttestationAge.String()).Message)
	}

	span := a.PeriodEnd.Sub(a.PeriodStart).Hours()
	if span > 0 && a.HoursWorked/span > 1.0 {
		result.addWarning("hours_worked exceeds the real-time span of the period")
	}

	if isWeekend(a.PeriodStart) || isWeekend(a.PeriodEnd) {
		result.addWarning("period boundary falls on a weekend")
	}
}

func isWeekend(t time.Time) bool {
	day := t.Weekday()
	return day == time.Saturday || day == time.Sunday
}

// patternAnalysis is suite 5 (§4.E.1.5): never rejects, only warns/flags.
func (v *Validator) patternAnalysis(a *attestation.Attestation, result *Result) {
	cutoff := v.clock.Now().Add(-patternWindow)

	var window []*ledger.Admitted
	for _, rec := range v.ledger.AdmittedForPair(a.EmployerID, a.EmployeeWallet) {
		if !rec.AdmittedAt.Before(cutoff) {
			window = append(window, rec)
		}
	}

	wages := make([]int64, 0, len(window)+1)
	rates := make([]int64, 0, len(window)+1)
	for _, rec := range window {
		wages = append(wages, rec.Attestation.WageAmount)
		rates = append(rates, rec.Attestation.HourlyRate)
	}
	wages = append(wages, a.WageAmount)
	rates = append(rates, a.HourlyRate)

	mean, stddev := populationStats(wages)
	if stddev > 0.1*mean {
		diff := math.Abs(float64(a.WageAmount) - mean)
		if diff > 2*stddev {
			result.addFlag(FlagUnusualWagePattern)
		}
	}

	perDay := float64(len(window)+1) / 30.0
	if perDay > 2 {
		result.addFlag(FlagHighFrequency)
	}

	if len(rates) >= 5 {
		roundCount := 0
		for _, r := range rates {
			if r%100 == 0 {
				roundCount++
			}
		}
		if float64(roundCount)/float64(len(rates)) > 0.8 {
			result.addFlag(FlagRoundNumberBias)
		}
	}
}

func populationStats(values []int64) (mean, stddev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean = sum / float64(n)

	var sqDiff float64
	for _, v := range values {
		d := float64(v) - mean
		sqDiff += d * d
	}
	stddev = math.Sqrt(sqDiff / float64(n))
	return mean, stddev
}
