// Package attestation implements the Wage Attestation entity (§3) and its
// structural self-validation (§4.D), plus the canonicalization-facing
// operations of §4.A that need the concrete field set: preparing an
// attestation for signing and computing its signing digest and id.
//
// Grounded on ahwlsqja-go-stable/internal/wallet's address-format validation
// style (ValidateEthereumAddress, called before any mutating operation) and
// other_examples' employee-profile field shape; canonicalization itself
// delegates to internal/canon.
package attestation

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/wageattest/attestation-engine/internal/canon"
)

var (
	walletPattern   = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	employerPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)
)

// Attestation is the Wage attestation entity (§3).
type Attestation struct {
	AttestationID  string // derived, empty until computed
	EmployerID     string
	EmployeeWallet string
	WageAmount     int64 // cents
	PeriodStart    time.Time
	PeriodEnd      time.Time
	HoursWorked    float64 // decimal, <=2 fractional digits
	HourlyRate     int64   // cents/hour
	PeriodNonce    string  // opaque 16-byte random hex
	Timestamp      time.Time
	Signature      []byte // optional until signed
	RecoveryID     byte
}

// Validate runs the structural self-validation of §4.D and returns the list
// of violations found (empty means valid). A model that fails this check
// MUST NOT be signed.
func (a *Attestation) Validate() []string {
	var errs []string

	if a.EmployerID == "" {
		errs = append(errs, "employer_id is required")
	} else if !employerPattern.MatchString(a.EmployerID) {
		errs = append(errs, "employer_id must be 16 lowercase hex characters")
	}

	if a.EmployeeWallet == "" {
		errs = append(errs, "employee_wallet is required")
	} else if !walletPattern.MatchString(a.EmployeeWallet) {
		errs = append(errs, "employee_wallet must be 0x + 40 hex characters")
	}

	if a.PeriodNonce == "" {
		errs = append(errs, "period_nonce is required")
	}

	if !a.PeriodEnd.After(a.PeriodStart) {
		errs = append(errs, "period_end must be after period_start")
	}

	if a.WageAmount < 0 {
		errs = append(errs, "wage_amount must be >= 0")
	}

	if a.HoursWorked < 0 {
		errs = append(errs, "hours_worked must be >= 0")
	}

	if a.HourlyRate < 0 {
		errs = append(errs, "hourly_rate must be >= 0")
	}

	if a.PeriodStart.Location() != time.UTC || a.PeriodEnd.Location() != time.UTC || a.Timestamp.Location() != time.UTC {
		errs = append(errs, "all instants must be UTC")
	}

	return errs
}

// signingFields is the canonical value for §4.A's prepare_attestation_for_signing:
// the exact field set employee_wallet, employer_id, hourly_rate, hours_worked,
// period_end, period_nonce, period_start, timestamp, wage_amount. Key order
// in the map is irrelevant — canon.Canonicalize always sorts — the set is
// what matters: signature and attestation_id are never included.
func (a *Attestation) signingFields() map[string]any {
	return map[string]any{
		"employee_wallet": a.EmployeeWallet,
		"employer_id":     a.EmployerID,
		"hourly_rate":     canon.Int(a.HourlyRate),
		"hours_worked":    canon.Decimal(a.HoursWorked),
		"period_end":      canon.Instant(a.PeriodEnd),
		"period_nonce":    a.PeriodNonce,
		"period_start":    canon.Instant(a.PeriodStart),
		"timestamp":       canon.Instant(a.Timestamp),
		"wage_amount":     canon.Int(a.WageAmount),
	}
}

// PrepareForSigning projects a into its signing-field value (§4.A).
func (a *Attestation) PrepareForSigning() any {
	return a.signingFields()
}

// SigningDigest returns digest(prepare_attestation_for_signing(a)) (§4.A).
func (a *Attestation) SigningDigest() ([32]byte, error) {
	return canon.Digest(a.signingFields())
}

// ComputeID derives attestation_id: SHA-256 over the canonical JSON of every
// field except signature and attestation_id itself, truncated to 24 hex
// chars (§3).
func (a *Attestation) ComputeID() (string, error) {
	fields := a.signingFields()
	digest, err := canon.Digest(fields)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(digest[:])[:24], nil
}

// NullifierInput builds the canonical value nullifiers are derived from
// (§4.E.2): {employer_id, employee_wallet, period_nonce, wage_amount}.
func (a *Attestation) NullifierInput() map[string]any {
	return map[string]any{
		"employer_id":     a.EmployerID,
		"employee_wallet": a.EmployeeWallet,
		"period_nonce":    a.PeriodNonce,
		"wage_amount":     canon.Int(a.WageAmount),
	}
}

// Nullifier computes the deterministic nullifier for a (§4.E.2): SHA-256 hex
// of the canonicalized NullifierInput.
func (a *Attestation) Nullifier() (string, error) {
	return canon.DigestHex(a.NullifierInput())
}

// PeriodKey is the anti-replay key of §4.E.1.2:
// employer_id ":" employee_wallet ":" period_nonce.
func (a *Attestation) PeriodKey() string {
	return fmt.Sprintf("%s:%s:%s", a.EmployerID, a.EmployeeWallet, a.PeriodNonce)
}

// NormalizeWallet lowercases the employee wallet, matching canon's own
// wallet-lowercasing rule, so callers that build an Attestation from user
// input can normalize before validating.
func (a *Attestation) NormalizeWallet() {
	if walletPattern.MatchString(a.EmployeeWallet) {
		a.EmployeeWallet = lowerHexHash(a.EmployeeWallet)
	}
}

func lowerHexHash(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'F' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
