// Package ledger implements the in-memory reference Ledger (§4.F): the
// attestation store keyed by identity, the nonce-usage set, and the
// nullifier set, plus the single-writer-per-(employer, wallet) critical
// section §5 requires for admission.
//
// Grounded on certenIO-certen-validator/pkg/ledger/store.go's explicitly
// documented single-writer discipline ("designed to be called from the
// consensus commit thread only") generalized from "one global writer" to
// "one writer per (employer_id, employee_wallet) shard", which is what §5
// asks for (a single global lock is acceptable; finer-grained sharding by
// that pair is recommended).
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/wageattest/attestation-engine/internal/attestation"
	"github.com/wageattest/attestation-engine/internal/clock"
)

// Admitted wraps an attestation with its ledger-assigned bookkeeping.
type Admitted struct {
	Attestation *attestation.Attestation
	Nullifier   string
	AdmittedAt  time.Time
	seq         uint64
}

// Ledger is the in-memory reference implementation of §4.F.
type Ledger struct {
	clock clock.Clock

	mu           sync.RWMutex
	attestations map[string]*Admitted   // attestation_id -> Admitted
	usedNonces   map[string]struct{}    // period_key -> present
	nullifiers   map[string]struct{}    // nullifier hex -> present
	byPair       map[string][]*Admitted // "employer_id:wallet" -> admitted, in admission order
	nextSeq      uint64

	shardMu sync.Mutex
	shards  map[string]*sync.Mutex // "employer_id:wallet" -> critical section lock
}

// New constructs an empty Ledger.
func New(c clock.Clock) *Ledger {
	return &Ledger{
		clock:        c,
		attestations: make(map[string]*Admitted),
		usedNonces:   make(map[string]struct{}),
		nullifiers:   make(map[string]struct{}),
		byPair:       make(map[string][]*Admitted),
		shards:       make(map[string]*sync.Mutex),
	}
}

func pairKey(employerID, wallet string) string {
	return employerID + ":" + wallet
}

// shardLock returns (creating if necessary) the mutex guarding the single
// critical section for (employerID, wallet) admissions (§5).
func (l *Ledger) shardLock(employerID, wallet string) *sync.Mutex {
	key := pairKey(employerID, wallet)
	l.shardMu.Lock()
	defer l.shardMu.Unlock()
	m, ok := l.shards[key]
	if !ok {
		m = &sync.Mutex{}
		l.shards[key] = m
	}
	return m
}

// WithPairLock runs fn holding the single critical section for
// (employerID, wallet). The Validator performs its nonce/overlap/nullifier
// checks and subsequent inserts entirely inside fn, per §5's requirement
// that they execute atomically with respect to other admissions for the
// same pair.
func (l *Ledger) WithPairLock(employerID, wallet string, fn func() error) error {
	lock := l.shardLock(employerID, wallet)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// NonceSeen reports whether periodKey has already been recorded.
func (l *Ledger) NonceSeen(periodKey string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.usedNonces[periodKey]
	return ok
}

// NullifierSeen reports whether nullifier has already been recorded.
func (l *Ledger) NullifierSeen(nullifier string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.nullifiers[nullifier]
	return ok
}

// AdmittedForPair returns every attestation already admitted for
// (employerID, wallet), in admission order. Callers MUST hold the pair's
// shard lock (via WithPairLock) if the result must reflect a consistent
// snapshot with respect to a concurrent admission being evaluated.
func (l *Ledger) AdmittedForPair(employerID, wallet string) []*Admitted {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.byPair[pairKey(employerID, wallet)]
	out := make([]*Admitted, len(src))
	copy(out, src)
	return out
}

// Admit records a, its nullifier, and its period key. MUST be called inside
// WithPairLock(a.EmployerID, a.EmployeeWallet, ...) after the caller has
// already verified the nonce and nullifier are unseen and no period overlap
// exists, so the check-then-insert is atomic per §5.
func (l *Ledger) Admit(a *attestation.Attestation, nullifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.attestations[a.AttestationID]; exists {
		return nil // idempotent insertion (§4.F)
	}

	l.nextSeq++
	rec := &Admitted{
		Attestation: a,
		Nullifier:   nullifier,
		AdmittedAt:  l.clock.Now(),
		seq:         l.nextSeq,
	}

	l.attestations[a.AttestationID] = rec
	l.usedNonces[a.PeriodKey()] = struct{}{}
	l.nullifiers[nullifier] = struct{}{}
	key := pairKey(a.EmployerID, a.EmployeeWallet)
	l.byPair[key] = append(l.byPair[key], rec)

	return nil
}

// Get retrieves an admitted attestation by id.
func (l *Ledger) Get(attestationID string) (*Admitted, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.attestations[attestationID]
	return rec, ok
}

// List returns every admitted attestation for wallet, optionally filtered to
// a single employerID, sorted by admission order.
func (l *Ledger) List(wallet, employerID string) []*Admitted {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Admitted
	if employerID != "" {
		out = append(out, l.byPair[pairKey(employerID, wallet)]...)
	} else {
		for key, recs := range l.byPair {
			if hasWalletSuffix(key, wallet) {
				out = append(out, recs...)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func hasWalletSuffix(pairKey, wallet string) bool {
	n := len(pairKey) - len(wallet)
	return n > 0 && pairKey[n:] == wallet && pairKey[n-1] == ':'
}

// classification of an overlap between [newStart,newEnd) and
// [existingStart,existingEnd), per §4.E.1.2.
const (
	OverlapNone             = ""
	OverlapExactDuplicate   = "EXACT_DUPLICATE"
	OverlapContainedWithin  = "CONTAINED_WITHIN"
	OverlapContainsExisting = "CONTAINS_EXISTING"
	OverlapPartial          = "PARTIAL_OVERLAP"
)

// Classify reports the §4.E.1.2 overlap classification between the new
// half-open interval and an existing one, or OverlapNone if they do not
// overlap. An overlap exists when newStart < existingEnd && newEnd > existingStart.
func Classify(newStart, newEnd, existingStart, existingEnd time.Time) string {
	overlaps := newStart.Before(existingEnd) && newEnd.After(existingStart)
	if !overlaps {
		return OverlapNone
	}
	switch {
	case newStart.Equal(existingStart) && newEnd.Equal(existingEnd):
		return OverlapExactDuplicate
	case !newStart.Before(existingStart) && !newEnd.After(existingEnd):
		return OverlapContainedWithin
	case !newStart.After(existingStart) && !newEnd.Before(existingEnd):
		return OverlapContainsExisting
	default:
		return OverlapPartial
	}
}
