// Package secp wraps go-ethereum's secp256k1 primitives into the plain
// sign/verify/recover shape the Key Vault needs: callers always hand in a
// 32-byte digest already produced by internal/canon, never typed data or a
// Keccak-prefixed message, so there is no EIP-712 domain separator here.
//
// Grounded on ahwlsqja-go-stable/pkg/eip712/eth_verifier.go's
// VerifySignatureOnly (digest -> crypto.SigToPub -> compare) and Sign flow,
// generalized by dropping the "\x19\x01" + domain-separator + Keccak256
// wrapping that package applies before recovery, since our digest is already
// final.
package secp

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// DigestLen is the required length of any digest signed or verified here.
const DigestLen = 32

// Signature is a 64-byte (r || s) low-s secp256k1 ECDSA signature plus its
// 1-byte recovery id, matching the wire format in §6.
type Signature struct {
	RS         [64]byte
	RecoveryID byte
}

// ErrInvalidDigestLength is returned when a digest is not exactly 32 bytes.
var ErrInvalidDigestLength = fmt.Errorf("secp: digest must be exactly %d bytes", DigestLen)

// halfOrder is n/2 for the secp256k1 curve order n; a signature is "low-s"
// when its s component does not exceed this value.
var halfOrder = func() [32]byte {
	n := crypto.S256().Params().N
	half := new(big.Int).Rsh(n, 1)
	var out [32]byte
	half.FillBytes(out[:])
	return out
}()

// GenerateKey produces a new secp256k1 keypair using a CSPRNG.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// MarshalPublicKey returns the 65-byte uncompressed public key encoding.
func MarshalPublicKey(pub *ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(pub)
}

// ParsePublicKey parses a 65-byte uncompressed public key.
func ParsePublicKey(b []byte) (*ecdsa.PublicKey, error) {
	return crypto.UnmarshalPubkey(b)
}

// Sign produces a low-s signature over digest using priv. digest MUST be
// exactly 32 bytes.
func Sign(priv *ecdsa.PrivateKey, digest []byte) (Signature, error) {
	if len(digest) != DigestLen {
		return Signature{}, ErrInvalidDigestLength
	}
	sig, err := crypto.Sign(digest, priv)
	if err != nil {
		return Signature{}, fmt.Errorf("secp: sign: %w", err)
	}
	var out Signature
	copy(out.RS[:], sig[:64])
	out.RecoveryID = sig[64]
	if !isLowS(out.RS[32:64]) {
		return Signature{}, fmt.Errorf("secp: produced a high-s signature, refusing to return it")
	}
	return out, nil
}

// Verify reports whether sig is a valid signature over digest by the holder
// of pub. It is a pure function: malformed inputs simply return false.
func Verify(pub *ecdsa.PublicKey, sig Signature, digest []byte) bool {
	if pub == nil || len(digest) != DigestLen {
		return false
	}
	if !isLowS(sig.RS[32:64]) {
		return false
	}
	pubBytes := crypto.FromECDSAPub(pub)
	return crypto.VerifySignature(pubBytes, digest, sig.RS[:])
}

// Recover recovers the public key that produced sig over digest.
func Recover(sig Signature, digest []byte) (*ecdsa.PublicKey, error) {
	if len(digest) != DigestLen {
		return nil, ErrInvalidDigestLength
	}
	full := make([]byte, 65)
	copy(full[:64], sig.RS[:])
	full[64] = sig.RecoveryID
	return crypto.SigToPub(digest, full)
}

func isLowS(s []byte) bool {
	for i := range s {
		if s[i] > halfOrder[i] {
			return false
		}
		if s[i] < halfOrder[i] {
			return true
		}
	}
	return true // s == halfOrder, still "not greater than", i.e. low-s.
}
