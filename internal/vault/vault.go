// Package vault implements the Key Vault (§4.B): it owns secp256k1 private
// key material per employer, signs 32-byte digests, and never reveals
// secret material through any public method.
//
// Grounded on ahwlsqja-go-stable's per-employer sync.RWMutex-guarded service
// struct shape and its zap-structured audit logging; signature math is
// generalized from pkg/eip712/eth_verifier.go's recover-then-compare flow
// into pkg/secp's plain digest sign/verify/recover.
package vault

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/errs"
	"github.com/wageattest/attestation-engine/pkg/secp"
)

// Operation names for access log entries (§3 Access log entry).
const (
	OpKeyGeneration   = "KEY_GENERATION"
	OpSignature       = "SIGNATURE"
	OpPublicKeyAccess = "PUBLIC_KEY_ACCESS"
)

// maxKeyGenerationAttempts bounds consecutive scalar-out-of-range rejections
// before generate_keypair gives up (§4.B failure modes).
const maxKeyGenerationAttempts = 256

// activeWindow is how recently last_used_at must fall for stats() to report
// is_active = true (§4.B).
const activeWindow = 30 * 24 * time.Hour

// AccessLogEntry is an append-only audit record (§3).
type AccessLogEntry struct {
	EmployerID string
	Operation  string
	Timestamp  time.Time
	RequestID  string
}

// Stats is the response shape of the stats() operation (§4.B).
type Stats struct {
	CreatedAt      time.Time
	LastUsedAt     time.Time
	SignatureCount int64
	KeyAge         time.Duration
	IsActive       bool
}

type keyRecord struct {
	mu             sync.Mutex // single-writer per employer (§5)
	privateKey     *ecdsa.PrivateKey
	publicKey      []byte
	keyID          string
	createdAt      time.Time
	lastUsedAt     time.Time
	signatureCount int64
}

// Vault owns all employer key material in process.
type Vault struct {
	clock  clock.Clock
	logger *zap.Logger

	mu      sync.RWMutex // guards records and log, not signing itself
	records map[string]*keyRecord
	log     []AccessLogEntry
}

// New constructs an empty Vault.
func New(c clock.Clock, logger *zap.Logger) *Vault {
	return &Vault{
		clock:   c,
		logger:  logger,
		records: make(map[string]*keyRecord),
	}
}

// GenerateKeypair creates and stores a new secp256k1 keypair for employerID.
// Rejects with DUPLICATE_EMPLOYER if one already exists.
func (v *Vault) GenerateKeypair(employerID, requestID string) (publicKey []byte, keyID string, err error) {
	v.mu.Lock()
	if _, exists := v.records[employerID]; exists {
		v.mu.Unlock()
		return nil, "", errs.DuplicateEmployer(employerID)
	}
	v.mu.Unlock()

	var priv *ecdsa.PrivateKey
	for attempt := 0; ; attempt++ {
		if attempt >= maxKeyGenerationAttempts {
			return nil, "", errs.KeyGenerationExhausted(employerID)
		}
		p, genErr := secp.GenerateKey()
		if genErr != nil {
			continue
		}
		priv = p
		break
	}

	pub := secp.MarshalPublicKey(&priv.PublicKey)
	kid := keyIDFor(pub)
	now := v.clock.Now()

	rec := &keyRecord{
		privateKey: priv,
		publicKey:  pub,
		keyID:      kid,
		createdAt:  now,
		lastUsedAt: now,
	}

	v.mu.Lock()
	if _, exists := v.records[employerID]; exists {
		v.mu.Unlock()
		return nil, "", errs.DuplicateEmployer(employerID)
	}
	v.records[employerID] = rec
	v.appendLog(employerID, OpKeyGeneration, requestID, now)
	v.mu.Unlock()

	v.logger.Info("vault key generated",
		zap.String("employer_id", employerID),
		zap.String("key_id", kid),
	)

	return pub, kid, nil
}

// Sign produces a low-s signature over a 32-byte digest, serialized per
// employer so signature_count stays monotonic and exact (§5).
func (v *Vault) Sign(employerID, requestID string, digest []byte) (secp.Signature, int64, error) {
	rec, err := v.lookup(employerID)
	if err != nil {
		return secp.Signature{}, 0, err
	}
	if len(digest) != secp.DigestLen {
		return secp.Signature{}, 0, errs.InvalidDigestLength(len(digest))
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	sig, err := secp.Sign(rec.privateKey, digest)
	if err != nil {
		return secp.Signature{}, 0, errs.Internal("signing failed", err)
	}
	now := v.clock.Now()
	rec.lastUsedAt = now
	rec.signatureCount++
	count := rec.signatureCount

	v.mu.Lock()
	v.appendLog(employerID, OpSignature, requestID, now)
	v.mu.Unlock()

	return sig, count, nil
}

// PublicKey returns employerID's public key, recording an access-log entry.
func (v *Vault) PublicKey(employerID, requestID string) ([]byte, error) {
	rec, err := v.lookup(employerID)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.appendLog(employerID, OpPublicKeyAccess, requestID, v.clock.Now())
	v.mu.Unlock()
	return rec.publicKey, nil
}

// Verify is a pure function: it returns false on any malformed input rather
// than erroring.
func (v *Vault) Verify(publicKey []byte, sig secp.Signature, digest []byte) bool {
	pub, err := secp.ParsePublicKey(publicKey)
	if err != nil {
		return false
	}
	return secp.Verify(pub, sig, digest)
}

// Stats returns usage accounting for employerID.
func (v *Vault) Stats(employerID string) (Stats, error) {
	rec, err := v.lookup(employerID)
	if err != nil {
		return Stats{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	now := v.clock.Now()
	return Stats{
		CreatedAt:      rec.createdAt,
		LastUsedAt:     rec.lastUsedAt,
		SignatureCount: rec.signatureCount,
		KeyAge:         now.Sub(rec.createdAt),
		IsActive:       now.Sub(rec.lastUsedAt) <= activeWindow,
	}, nil
}

// AccessLogs returns up to limit entries, most recent first, optionally
// filtered by employerID (empty string means all employers).
func (v *Vault) AccessLogs(employerID string, limit int) []AccessLogEntry {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var filtered []AccessLogEntry
	for _, e := range v.log {
		if employerID != "" && e.EmployerID != employerID {
			continue
		}
		filtered = append(filtered, e)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}

func (v *Vault) lookup(employerID string) (*keyRecord, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	rec, ok := v.records[employerID]
	if !ok {
		return nil, errs.UnknownEmployer(employerID)
	}
	return rec, nil
}

// appendLog must be called with v.mu held.
func (v *Vault) appendLog(employerID, operation, requestID string, ts time.Time) {
	v.log = append(v.log, AccessLogEntry{
		EmployerID: employerID,
		Operation:  operation,
		Timestamp:  ts,
		RequestID:  requestID,
	})
}

func keyIDFor(publicKey []byte) string {
	h := sha256.Sum256(publicKey)
	return hex.EncodeToString(h[:8])
}
