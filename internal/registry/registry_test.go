package registry

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/errs"
	"github.com/wageattest/attestation-engine/internal/vault"
)

func newTestRegistry() (*Registry, *clock.Fixed) {
	fc := clock.NewFixed(time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC))
	v := vault.New(fc, zap.NewNop())
	return New(fc, v, zap.NewNop()), fc
}

func TestDeriveEmployerID_SameNameDistinctTimestamps(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Millisecond)
	id1 := DeriveEmployerID("Acme Inc.", "acme.com", t1)
	id2 := DeriveEmployerID("Acme Inc.", "acme.com", t2)
	assert.NotEqual(t, id1, id2)
	assert.Len(t, id1, 16)
}

func TestRegister_SetsRateLimitFromEmployeeCount(t *testing.T) {
	r, _ := newTestRegistry()
	p, err := r.Register(RegisterInput{CompanyName: "Acme", Domain: "acme.com", EmployeeCount: 1, RequestID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, 10, p.DailyAttestationLimit)
	assert.Equal(t, StatusPending, p.VerificationStatus)
}

func TestRegister_CapsRateLimitAt1000(t *testing.T) {
	r, _ := newTestRegistry()
	p, err := r.Register(RegisterInput{CompanyName: "Mega Corp", Domain: "mega.com", EmployeeCount: 5000, RequestID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, 1000, p.DailyAttestationLimit)
}

func TestSignAttestation_RateLimitExceeded(t *testing.T) {
	r, _ := newTestRegistry()
	p, err := r.Register(RegisterInput{CompanyName: "Acme", Domain: "acme.com", EmployeeCount: 1, RequestID: "r1"})
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("wage"))
	for i := 0; i < p.DailyAttestationLimit; i++ {
		_, err := r.SignAttestation(p.EmployerID, "req", digest[:])
		require.NoError(t, err)
	}

	_, err = r.SignAttestation(p.EmployerID, "req", digest[:])
	assert.True(t, errs.HasCode(err, errs.CodeRateLimitExceeded))
}

func TestSignAttestation_ResetsAfter24Hours(t *testing.T) {
	r, fc := newTestRegistry()
	p, err := r.Register(RegisterInput{CompanyName: "Acme", Domain: "acme.com", EmployeeCount: 1, RequestID: "r1"})
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("wage"))
	for i := 0; i < p.DailyAttestationLimit; i++ {
		_, err := r.SignAttestation(p.EmployerID, "req", digest[:])
		require.NoError(t, err)
	}
	_, err = r.SignAttestation(p.EmployerID, "req", digest[:])
	require.Error(t, err)

	fc.Advance(24 * time.Hour)
	_, err = r.SignAttestation(p.EmployerID, "req", digest[:])
	assert.NoError(t, err)
}

func TestVerifyAttestation(t *testing.T) {
	r, _ := newTestRegistry()
	p, err := r.Register(RegisterInput{CompanyName: "Acme", Domain: "acme.com", EmployeeCount: 1, RequestID: "r1"})
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("wage"))
	info, err := r.SignAttestation(p.EmployerID, "req", digest[:])
	require.NoError(t, err)

	ok, err := r.VerifyAttestation(p.EmployerID, info.Signature, digest[:])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInfo_UnknownEmployer(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Info("ghost")
	assert.True(t, errs.HasCode(err, errs.CodeUnknownEmployer))
}

func TestResetExpiredWindows_ResetsIdleEmployerAfterWindow(t *testing.T) {
	r, fc := newTestRegistry()
	p, err := r.Register(RegisterInput{CompanyName: "Acme", Domain: "acme.com", EmployeeCount: 1, RequestID: "r1"})
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("wage"))
	for i := 0; i < p.DailyAttestationLimit; i++ {
		_, err := r.SignAttestation(p.EmployerID, "req", digest[:])
		require.NoError(t, err)
	}

	assert.Equal(t, 0, r.ResetExpiredWindows()) // window not yet elapsed

	fc.Advance(24 * time.Hour)
	assert.Equal(t, 1, r.ResetExpiredWindows())

	r.mu.RLock()
	rs := r.rates[p.EmployerID]
	r.mu.RUnlock()
	rs.mu.Lock()
	count := rs.signatureCount
	rs.mu.Unlock()
	assert.Equal(t, 0, count)
}
