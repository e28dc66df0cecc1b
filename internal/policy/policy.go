// Package policy defines the per-employer Policy bundle (§3) the Validator
// evaluates attestations against.
package policy

import "time"

// Bundle is a per-employer policy configuration (§3 Policy bundle). It is
// read-mostly and may be cached without locking across admission attempts
// (§5); updates apply to subsequent admissions only.
type Bundle struct {
	MaxDailyAttestations        int
	MaxWagePerAttestation       int64 // cents
	MinHourlyRate               int64 // cents/hour
	MaxHourlyRate               int64 // cents/hour
	MaxHoursPerDay              float64
	AllowFutureAttestations     bool
	RequireExactWageCalculation bool
	MaxAttestationAge           time.Duration
}

// Default returns a conservative default bundle. dailyAttestationLimit
// mirrors the employer's registry-side signing cap (§4.C) so the two stay in
// sync unless a caller overrides the bundle explicitly; the Validator's
// §4.E.1.3 policy check suite does not itself reference
// MaxDailyAttestations — daily volume is enforced by the Registry's
// sign_attestation rate limit, not by this field.
func Default(dailyAttestationLimit int) Bundle {
	return Bundle{
		MaxDailyAttestations:        dailyAttestationLimit,
		MaxWagePerAttestation:       1_000_000, // $10,000.00
		MinHourlyRate:               100,       // $1.00/hr
		MaxHourlyRate:               50_000,    // $500.00/hr
		MaxHoursPerDay:              16,
		AllowFutureAttestations:     false,
		RequireExactWageCalculation: false,
		MaxAttestationAge:           90 * 24 * time.Hour,
	}
}
