package attestation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAttestation() *Attestation {
	return &Attestation{
		EmployerID:     "0123456789abcdef",
		EmployeeWallet: "0x742d35cc6634c0532925a3b8d000b45f5c964c12",
		WageAmount:     500000,
		PeriodStart:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2024, 1, 7, 23, 59, 59, 999_000_000, time.UTC),
		HoursWorked:    40,
		HourlyRate:     12500,
		PeriodNonce:    "test_nonce_123",
		Timestamp:      time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC),
	}
}

func TestValidate_ValidAttestation(t *testing.T) {
	a := sampleAttestation()
	assert.Empty(t, a.Validate())
}

func TestValidate_PeriodEndNotAfterStart(t *testing.T) {
	a := sampleAttestation()
	a.PeriodEnd = a.PeriodStart
	errs := a.Validate()
	assert.Contains(t, errs, "period_end must be after period_start")
}

func TestValidate_NegativeWage(t *testing.T) {
	a := sampleAttestation()
	a.WageAmount = -1
	errs := a.Validate()
	assert.Contains(t, errs, "wage_amount must be >= 0")
}

func TestValidate_BadWalletFormat(t *testing.T) {
	a := sampleAttestation()
	a.EmployeeWallet = "not-a-wallet"
	errs := a.Validate()
	assert.Contains(t, errs, "employee_wallet must be 0x + 40 hex characters")
}

func TestSigningDigest_Deterministic(t *testing.T) {
	a := sampleAttestation()
	d1, err := a.SigningDigest()
	require.NoError(t, err)
	d2, err := a.SigningDigest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestSigningDigest_ExcludesSignatureAndID(t *testing.T) {
	a := sampleAttestation()
	d1, err := a.SigningDigest()
	require.NoError(t, err)

	b := sampleAttestation()
	b.Signature = []byte{0x01, 0x02}
	b.AttestationID = "deadbeef"
	d2, err := b.SigningDigest()
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
}

func TestComputeID_Is24HexChars(t *testing.T) {
	a := sampleAttestation()
	id, err := a.ComputeID()
	require.NoError(t, err)
	assert.Len(t, id, 24)
}

func TestNullifier_DiffersOnAnyFieldChange(t *testing.T) {
	a := sampleAttestation()
	n1, err := a.Nullifier()
	require.NoError(t, err)

	b := sampleAttestation()
	b.WageAmount = 600000
	n2, err := b.Nullifier()
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
}

func TestPeriodKey_Shape(t *testing.T) {
	a := sampleAttestation()
	assert.Equal(t, "0123456789abcdef:0x742d35cc6634c0532925a3b8d000b45f5c964c12:test_nonce_123", a.PeriodKey())
}

func TestNormalizeWallet_Lowercases(t *testing.T) {
	a := sampleAttestation()
	a.EmployeeWallet = "0x742D35cc6634C0532925A3B8D000b45F5c964c12"
	a.NormalizeWallet()
	assert.Equal(t, "0x742d35cc6634c0532925a3b8d000b45f5c964c12", a.EmployeeWallet)
}
