package vault

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/errs"
	"github.com/wageattest/attestation-engine/pkg/secp"
)

func newTestVault() (*Vault, *clock.Fixed) {
	fc := clock.NewFixed(time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC))
	return New(fc, zap.NewNop()), fc
}

func TestGenerateKeypair_RejectsDuplicate(t *testing.T) {
	v, _ := newTestVault()
	_, _, err := v.GenerateKeypair("employer1", "req1")
	require.NoError(t, err)

	_, _, err = v.GenerateKeypair("employer1", "req2")
	assert.True(t, errs.HasCode(err, errs.CodeDuplicateEmployer))
}

func TestSignVerify_RoundTrip(t *testing.T) {
	v, _ := newTestVault()
	pub, _, err := v.GenerateKeypair("employer1", "req1")
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("hello"))
	sig, count, err := v.Sign("employer1", "req2", digest[:])
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.True(t, v.Verify(pub, sig, digest[:]))
}

func TestSign_UnknownEmployer(t *testing.T) {
	v, _ := newTestVault()
	digest := sha256.Sum256([]byte("hello"))
	_, _, err := v.Sign("ghost", "req1", digest[:])
	assert.True(t, errs.HasCode(err, errs.CodeUnknownEmployer))
}

func TestSign_InvalidDigestLength(t *testing.T) {
	v, _ := newTestVault()
	_, _, err := v.GenerateKeypair("employer1", "req1")
	require.NoError(t, err)
	_, _, err = v.Sign("employer1", "req2", []byte("short"))
	assert.True(t, errs.HasCode(err, errs.CodeInvalidDigestLength))
}

func TestStats_IsActive(t *testing.T) {
	v, fc := newTestVault()
	_, _, err := v.GenerateKeypair("employer1", "req1")
	require.NoError(t, err)

	stats, err := v.Stats("employer1")
	require.NoError(t, err)
	assert.True(t, stats.IsActive)

	fc.Advance(31 * 24 * time.Hour)
	stats, err = v.Stats("employer1")
	require.NoError(t, err)
	assert.False(t, stats.IsActive)
}

func TestAccessLogs_SortedDescendingAndFiltered(t *testing.T) {
	v, fc := newTestVault()
	_, _, err := v.GenerateKeypair("employer1", "req1")
	require.NoError(t, err)
	fc.Advance(time.Minute)
	_, _, err = v.GenerateKeypair("employer2", "req2")
	require.NoError(t, err)

	all := v.AccessLogs("", 10)
	require.Len(t, all, 2)
	assert.Equal(t, "employer2", all[0].EmployerID)
	assert.Equal(t, "employer1", all[1].EmployerID)

	only1 := v.AccessLogs("employer1", 10)
	require.Len(t, only1, 1)
	assert.Equal(t, "employer1", only1[0].EmployerID)
}

func TestVerify_FalseOnMalformedPublicKey(t *testing.T) {
	v, _ := newTestVault()
	digest := sha256.Sum256([]byte("hello"))
	assert.False(t, v.Verify([]byte("not a key"), secp.Signature{}, digest[:]))
}
