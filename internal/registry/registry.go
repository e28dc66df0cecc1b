// Package registry implements the Employer Registry (§4.C): it mints stable
// employer identities, owns each employer's policy bundle, and enforces
// per-employer daily signing rate caps.
//
// Grounded on ahwlsqja-go-stable/internal/user/service.go's lifecycle/state
// accounting style (idempotent operations, structured zap logging per
// mutation) and internal/wallet/service.go's per-request rate-adjacent
// accounting; identity derivation and rate-limit reset replace that
// teacher's DB-row bookkeeping with an in-process, mutex-guarded map per
// §5's single-writer-per-employer discipline.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/errs"
	"github.com/wageattest/attestation-engine/internal/policy"
	"github.com/wageattest/attestation-engine/internal/vault"
	"github.com/wageattest/attestation-engine/pkg/secp"
)

// PayrollFrequency enumerates the employer's stated pay cadence (§3).
type PayrollFrequency string

const (
	Weekly   PayrollFrequency = "WEEKLY"
	Biweekly PayrollFrequency = "BIWEEKLY"
	Monthly  PayrollFrequency = "MONTHLY"
)

// VerificationStatus enumerates the employer's lifecycle status (§3).
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
	StatusRevoked  VerificationStatus = "revoked"
)

const rateLimitWindow = 24 * time.Hour

// maxDailyAttestationLimit is the hard ceiling on daily_attestation_limit
// regardless of employee_count (§4.C).
const maxDailyAttestationLimit = 1000

// Profile is the Employer profile entity (§3), owned exclusively by the
// Registry.
type Profile struct {
	EmployerID            string
	CompanyName           string
	Domain                string
	EmployeeCount         int
	PayrollFrequency      PayrollFrequency
	ContactEmail          string
	PublicKey             []byte
	KeyID                 string
	RegisteredAt          time.Time
	VerificationStatus    VerificationStatus
	DailyAttestationLimit int
	CreatedRequestID      string // supplemental field (SPEC_FULL.md §3): audit trace of the registration call
}

type rateState struct {
	mu             sync.Mutex
	signatureCount int
	lastReset      time.Time
}

// RegisterInput is the caller-supplied shape for register() (§4.C).
type RegisterInput struct {
	CompanyName      string
	Domain           string
	EmployeeCount    int
	PayrollFrequency PayrollFrequency
	ContactEmail     string
	RequestID        string
}

// SignatureInfo describes the outcome of a successful sign_attestation call.
type SignatureInfo struct {
	Signature      secp.Signature
	SignatureCount int64
}

// Registry owns employer identity, policy bundles, and signing rate limits.
type Registry struct {
	clock  clock.Clock
	vault  *vault.Vault
	logger *zap.Logger

	mu       sync.RWMutex
	profiles map[string]*Profile
	policies map[string]policy.Bundle
	rates    map[string]*rateState
}

// New constructs an empty Registry backed by v for key material.
func New(c clock.Clock, v *vault.Vault, logger *zap.Logger) *Registry {
	return &Registry{
		clock:    c,
		vault:    v,
		logger:   logger,
		profiles: make(map[string]*Profile),
		policies: make(map[string]policy.Bundle),
		rates:    make(map[string]*rateState),
	}
}

// Register mints a new, stable employer identity and generates its key
// material via the Vault.
func (r *Registry) Register(in RegisterInput) (*Profile, error) {
	now := r.clock.Now()
	employerID := DeriveEmployerID(in.CompanyName, in.Domain, now)

	publicKey, keyID, err := r.vault.GenerateKeypair(employerID, in.RequestID)
	if err != nil {
		return nil, err
	}

	limit := in.EmployeeCount * 10
	if limit > maxDailyAttestationLimit {
		limit = maxDailyAttestationLimit
	}
	if limit < 0 {
		limit = 0
	}

	profile := &Profile{
		EmployerID:            employerID,
		CompanyName:           in.CompanyName,
		Domain:                in.Domain,
		EmployeeCount:         in.EmployeeCount,
		PayrollFrequency:      in.PayrollFrequency,
		ContactEmail:          in.ContactEmail,
		PublicKey:             publicKey,
		KeyID:                 keyID,
		RegisteredAt:          now,
		VerificationStatus:    StatusPending,
		DailyAttestationLimit: limit,
		CreatedRequestID:      in.RequestID,
	}

	r.mu.Lock()
	r.profiles[employerID] = profile
	r.policies[employerID] = policy.Default(limit)
	r.rates[employerID] = &rateState{lastReset: now}
	r.mu.Unlock()

	r.logger.Info("employer registered",
		zap.String("employer_id", employerID),
		zap.String("company_name", in.CompanyName),
		zap.Int("daily_attestation_limit", limit),
	)

	return profile, nil
}

// SignAttestation signs digest on behalf of employerID, subject to the
// employer's daily rate limit.
func (r *Registry) SignAttestation(employerID, requestID string, digest []byte) (SignatureInfo, error) {
	profile, err := r.Info(employerID)
	if err != nil {
		return SignatureInfo{}, err
	}

	r.mu.RLock()
	rs := r.rates[employerID]
	r.mu.RUnlock()
	if rs == nil {
		return SignatureInfo{}, errs.UnknownEmployer(employerID)
	}

	rs.mu.Lock()
	now := r.clock.Now()
	if now.Sub(rs.lastReset) >= rateLimitWindow {
		rs.signatureCount = 0
		rs.lastReset = now
	}
	if rs.signatureCount >= profile.DailyAttestationLimit {
		rs.mu.Unlock()
		return SignatureInfo{}, errs.RateLimitExceeded(employerID, profile.DailyAttestationLimit)
	}

	sig, count, err := r.vault.Sign(employerID, requestID, digest)
	if err != nil {
		rs.mu.Unlock()
		return SignatureInfo{}, err
	}
	rs.signatureCount++
	rs.mu.Unlock()

	return SignatureInfo{Signature: sig, SignatureCount: count}, nil
}

// ResetExpiredWindows proactively resets any employer's rate-limit window
// that has elapsed, independent of whether that employer has attempted a
// sign since. A lazy reset already happens inside SignAttestation, so this
// is purely so an idle employer's signature_count is visibly zero again as
// soon as the window closes rather than only on its next attempt; it is
// the operation the background sweeper (component H's SweeperConfig) calls
// on an interval.
func (r *Registry) ResetExpiredWindows() int {
	now := r.clock.Now()
	r.mu.RLock()
	states := make([]*rateState, 0, len(r.rates))
	for _, rs := range r.rates {
		states = append(states, rs)
	}
	r.mu.RUnlock()

	reset := 0
	for _, rs := range states {
		rs.mu.Lock()
		if now.Sub(rs.lastReset) >= rateLimitWindow {
			rs.signatureCount = 0
			rs.lastReset = now
			reset++
		}
		rs.mu.Unlock()
	}
	return reset
}

// VerifyAttestation verifies sig over digest against employerID's public key.
func (r *Registry) VerifyAttestation(employerID string, sig secp.Signature, digest []byte) (bool, error) {
	profile, err := r.Info(employerID)
	if err != nil {
		return false, err
	}
	return r.vault.Verify(profile.PublicKey, sig, digest), nil
}

// Info returns employerID's profile.
func (r *Registry) Info(employerID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[employerID]
	if !ok {
		return nil, errs.UnknownEmployer(employerID)
	}
	return p, nil
}

// Policy returns employerID's policy bundle.
func (r *Registry) Policy(employerID string) (policy.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.policies[employerID]
	if !ok {
		return policy.Bundle{}, errs.UnknownEmployer(employerID)
	}
	return b, nil
}

// SetPolicy replaces employerID's policy bundle; applies to subsequent
// admissions only (§5).
func (r *Registry) SetPolicy(employerID string, b policy.Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[employerID]; !ok {
		return errs.UnknownEmployer(employerID)
	}
	r.policies[employerID] = b
	return nil
}

// ListEmployers returns all registered profiles sorted by employer_id.
func (r *Registry) ListEmployers() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployerID < out[j].EmployerID })
	return out
}

// AuditLogs delegates to the Vault's access log, optionally filtered by
// employerID.
func (r *Registry) AuditLogs(employerID string, limit int) []vault.AccessLogEntry {
	return r.vault.AccessLogs(employerID, limit)
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)
var nonAlnumDot = regexp.MustCompile(`[^a-z0-9.]`)

func normalizeName(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

func normalizeDomain(s string) string {
	return nonAlnumDot.ReplaceAllString(strings.ToLower(s), "")
}

// DeriveEmployerID computes employer_id per §4.C: the first 16 hex chars of
// SHA-256(normalize(name) ‖ "_" ‖ normalize(domain) ‖ "_" ‖ registered_at_ms).
func DeriveEmployerID(name, domain string, registeredAt time.Time) string {
	material := fmt.Sprintf("%s_%s_%d",
		normalizeName(name),
		normalizeDomain(domain),
		registeredAt.UnixMilli(),
	)
	h := sha256.Sum256([]byte(material))
	return hex.EncodeToString(h[:])[:16]
}
