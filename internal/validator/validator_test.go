package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/internal/attestation"
	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/ledger"
	"github.com/wageattest/attestation-engine/internal/registry"
	"github.com/wageattest/attestation-engine/internal/vault"
)

const testWallet = "0x742d35cc6634c0532925a3b8d000b45f5c964c12"

func newHarness(t *testing.T) (*Validator, *registry.Registry, *clock.Fixed, string) {
	t.Helper()
	logger := zap.NewNop()
	c := clock.NewFixed(time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC))
	v := vault.New(c, logger)
	reg := registry.New(c, v, logger)
	led := ledger.New(c)
	val := New(reg, led, c, logger)

	profile, err := reg.Register(registry.RegisterInput{
		CompanyName:      "Acme Corp",
		Domain:           "acme.example",
		EmployeeCount:    50,
		PayrollFrequency: registry.Weekly,
		ContactEmail:     "hr@acme.example",
		RequestID:        "req-1",
	})
	require.NoError(t, err)
	return val, reg, c, profile.EmployerID
}

func sampleAttestation(employerID string, start, end time.Time, nonce string) *attestation.Attestation {
	return &attestation.Attestation{
		EmployerID:     employerID,
		EmployeeWallet: testWallet,
		WageAmount:     500_000,
		PeriodStart:    start,
		PeriodEnd:      end,
		HoursWorked:    40,
		HourlyRate:     12_500,
		PeriodNonce:    nonce,
		Timestamp:      time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC),
	}
}

func TestValidate_AdmitsCleanAttestation(t *testing.T) {
	val, _, _, employerID := newHarness(t)
	a := sampleAttestation(employerID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		"nonce-1")

	result, err := val.Validate(a)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.Nullifier)
}

func TestValidate_RejectsStructuralFailure(t *testing.T) {
	val, _, _, employerID := newHarness(t)
	a := sampleAttestation(employerID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), // end == start
		"nonce-1")

	result, err := val.Validate(a)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidate_RejectsReplay(t *testing.T) {
	val, _, _, employerID := newHarness(t)
	a1 := sampleAttestation(employerID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		"nonce-dup")
	result1, err := val.Validate(a1)
	require.NoError(t, err)
	require.True(t, result1.IsValid)

	a2 := sampleAttestation(employerID,
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		"nonce-dup") // same period_nonce -> same period_key
	result2, err := val.Validate(a2)
	require.NoError(t, err)
	assert.False(t, result2.IsValid)
	assert.Contains(t, result2.SecurityFlags, FlagReplayAttempt)
}

func TestValidate_RejectsOverlappingPeriod(t *testing.T) {
	val, _, _, employerID := newHarness(t)
	a1 := sampleAttestation(employerID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		"nonce-a")
	result1, err := val.Validate(a1)
	require.NoError(t, err)
	require.True(t, result1.IsValid)

	a2 := sampleAttestation(employerID,
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		"nonce-b")
	result2, err := val.Validate(a2)
	require.NoError(t, err)
	assert.False(t, result2.IsValid)
	assert.Contains(t, result2.SecurityFlags, FlagOverlappingPeriods)
}

func TestValidate_RejectsWageAboveMax(t *testing.T) {
	val, _, _, employerID := newHarness(t)
	a := sampleAttestation(employerID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		"nonce-wage")
	a.WageAmount = 2_000_000 // above default 1,000,000 cap

	result, err := val.Validate(a)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
}

func TestValidate_RejectsExcessiveAvgHoursPerDay(t *testing.T) {
	val, _, _, employerID := newHarness(t)
	a := sampleAttestation(employerID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), // single day window
		"nonce-hours")
	a.HoursWorked = 20 // above default 16/day max

	result, err := val.Validate(a)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
}

func TestValidate_RejectsFuturePeriod(t *testing.T) {
	val, _, c, employerID := newHarness(t)
	a := sampleAttestation(employerID,
		c.Now().Add(24*time.Hour),
		c.Now().Add(48*time.Hour),
		"nonce-future")

	result, err := val.Validate(a)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
}

func TestValidate_ExactWageCalculationMismatch(t *testing.T) {
	val, reg, _, employerID := newHarness(t)
	b, err := reg.Policy(employerID)
	require.NoError(t, err)
	b.RequireExactWageCalculation = true
	require.NoError(t, reg.SetPolicy(employerID, b))

	a := sampleAttestation(employerID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		"nonce-exact")
	a.WageAmount = 1 // 40*12500 cents-hundredths/100 = 500000, not 1

	result, err := val.Validate(a)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
}

func TestValidate_ExactWageCalculationMatches(t *testing.T) {
	val, reg, _, employerID := newHarness(t)
	b, err := reg.Policy(employerID)
	require.NoError(t, err)
	b.RequireExactWageCalculation = true
	require.NoError(t, reg.SetPolicy(employerID, b))

	a := sampleAttestation(employerID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		"nonce-exact-ok")
	a.WageAmount = 500_000 // 40 * 12500

	result, err := val.Validate(a)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestValidate_UnknownEmployer(t *testing.T) {
	val, _, _, _ := newHarness(t)
	a := sampleAttestation("0000000000000000",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		"nonce-unknown")

	_, err := val.Validate(a)
	assert.Error(t, err)
}

func TestExactWageCents_HalfUpRounding(t *testing.T) {
	assert.Equal(t, int64(500000), ExactWageCents(40, 12500))
	assert.Equal(t, int64(1), ExactWageCents(0.01, 50)) // 0.5 cents rounds up to 1
}

func TestCeilDays(t *testing.T) {
	assert.Equal(t, 1, ceilDays(20))
	assert.Equal(t, 1, ceilDays(24))
	assert.Equal(t, 2, ceilDays(25))
	assert.Equal(t, 7, ceilDays(7*24))
}
