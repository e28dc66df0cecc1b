// Package replay defines the anti-replay Storage collaborator contract
// (§6): nonce_seen/insert_nonce and nullifier_seen/insert_nullifier.
//
// Generalized from ahwlsqja-go-stable/pkg/nonce's Store interface
// (Reserve/MarkUsed/Release, a SETNX-based reservation protocol meant for
// in-flight signature requests). This domain's anti-replay check is a
// plain idempotent set: §4.F only requires "linearizable reads of
// nullifier-existence checks" and idempotent insertion, with no separate
// reserve/release phase, since the whole check-then-insert sequence already
// runs inside the Ledger's single-writer-per-pair critical section (§5).
package replay

import "context"

// Store is the durable anti-replay backing a Ledger implementation may use
// in place of (or alongside) its in-memory maps.
type Store interface {
	// NonceSeen reports whether periodKey has already been recorded.
	NonceSeen(ctx context.Context, periodKey string) (bool, error)
	// InsertNonce records periodKey as used. Idempotent.
	InsertNonce(ctx context.Context, periodKey string) error

	// NullifierSeen reports whether nullifier has already been recorded.
	NullifierSeen(ctx context.Context, nullifier string) (bool, error)
	// InsertNullifier records nullifier as spent. Idempotent.
	InsertNullifier(ctx context.Context, nullifier string) error
}
