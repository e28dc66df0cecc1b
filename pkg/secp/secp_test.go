package secp

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("wage attestation signing digest"))

	sig, err := Sign(priv, digest[:])
	require.NoError(t, err)

	assert.True(t, Verify(&priv.PublicKey, sig, digest[:]))
}

func TestVerifyRejectsWrongDigest(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("original"))
	other := sha256.Sum256([]byte("tampered"))

	sig, err := Sign(priv, digest[:])
	require.NoError(t, err)

	assert.False(t, Verify(&priv.PublicKey, sig, other[:]))
}

func TestSignRejectsShortDigest(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	_, err = Sign(priv, []byte("too short"))
	assert.ErrorIs(t, err, ErrInvalidDigestLength)
}

func TestRecoverMatchesSigner(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	digest := sha256.Sum256([]byte("recover me"))

	sig, err := Sign(priv, digest[:])
	require.NoError(t, err)

	recovered, err := Recover(sig, digest[:])
	require.NoError(t, err)
	assert.Equal(t, MarshalPublicKey(&priv.PublicKey), MarshalPublicKey(recovered))
}

func TestMarshalParsePublicKeyRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	b := MarshalPublicKey(&priv.PublicKey)
	pub, err := ParsePublicKey(b)
	require.NoError(t, err)
	assert.Equal(t, priv.PublicKey, *pub)
}
