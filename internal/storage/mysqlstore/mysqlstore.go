// Package mysqlstore is a MySQL-backed durable implementation of the
// attestation half of the Storage collaborator contract (§6):
// put/get/list over admitted attestations, plus persistence for the Vault's
// access log.
//
// The teacher (ahwlsqja-go-stable) reaches its database exclusively through
// a sqlc-generated Queries object wrapped by a transaction runner
// (internal/wallet/service.go, internal/user/service.go); that generated
// package is not part of this corpus snapshot, so it cannot be adopted
// here. What IS adoptable and is reused directly is pkg/db.New/WithTransaction
// (the connection-pool builder and transaction-wrapping helper) — this
// package hand-writes its SQL against plain database/sql the way pkg/db's
// own WithTransaction signature expects, in place of the sqlc layer.
package mysqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wageattest/attestation-engine/internal/attestation"
	"github.com/wageattest/attestation-engine/internal/vault"
	pkgdb "github.com/wageattest/attestation-engine/pkg/db"
)

// Store persists admitted attestations and vault access-log entries.
type Store struct {
	db *sql.DB
}

// New wraps an open connection pool (see pkgdb.New) as a Store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema is the DDL this store expects to already be applied. It is not
// executed automatically — migrations are the deployment's responsibility,
// matching the teacher's own assumption that pkg/db.New only opens a pool
// against an already-migrated database.
const Schema = `
CREATE TABLE IF NOT EXISTS attestations (
	attestation_id   VARCHAR(24)  NOT NULL PRIMARY KEY,
	employer_id      VARCHAR(16)  NOT NULL,
	employee_wallet  VARCHAR(42)  NOT NULL,
	wage_amount      BIGINT       NOT NULL,
	period_start     DATETIME(3)  NOT NULL,
	period_end       DATETIME(3)  NOT NULL,
	hours_worked     DOUBLE       NOT NULL,
	hourly_rate      BIGINT       NOT NULL,
	period_nonce     VARCHAR(64)  NOT NULL,
	timestamp        DATETIME(3)  NOT NULL,
	signature        VARBINARY(64) NOT NULL,
	recovery_id      TINYINT      NOT NULL,
	nullifier        VARCHAR(64)  NOT NULL,
	admitted_at      DATETIME(3)  NOT NULL,
	INDEX idx_employer_wallet (employer_id, employee_wallet)
);

CREATE TABLE IF NOT EXISTS vault_access_log (
	id          BIGINT AUTO_INCREMENT PRIMARY KEY,
	employer_id VARCHAR(16) NOT NULL,
	operation   VARCHAR(32) NOT NULL,
	request_id  VARCHAR(64) NOT NULL,
	occurred_at DATETIME(3) NOT NULL,
	INDEX idx_employer (employer_id)
);
`

// Put inserts a, idempotently on attestation_id (§4.F(b)).
func (s *Store) Put(ctx context.Context, a *attestation.Attestation, nullifier string, admittedAt time.Time) error {
	return pkgdb.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO attestations
				(attestation_id, employer_id, employee_wallet, wage_amount,
				 period_start, period_end, hours_worked, hourly_rate,
				 period_nonce, timestamp, signature, recovery_id, nullifier, admitted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.AttestationID, a.EmployerID, a.EmployeeWallet, a.WageAmount,
			a.PeriodStart, a.PeriodEnd, a.HoursWorked, a.HourlyRate,
			a.PeriodNonce, a.Timestamp, a.Signature, a.RecoveryID, nullifier, admittedAt,
		)
		if err != nil {
			return fmt.Errorf("insert attestation: %w", err)
		}
		return nil
	})
}

// Get retrieves an attestation by id.
func (s *Store) Get(ctx context.Context, attestationID string) (*attestation.Attestation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT employer_id, employee_wallet, wage_amount, period_start, period_end,
		       hours_worked, hourly_rate, period_nonce, timestamp, signature, recovery_id
		FROM attestations WHERE attestation_id = ?`, attestationID)
	a := &attestation.Attestation{AttestationID: attestationID}
	if err := row.Scan(&a.EmployerID, &a.EmployeeWallet, &a.WageAmount, &a.PeriodStart, &a.PeriodEnd,
		&a.HoursWorked, &a.HourlyRate, &a.PeriodNonce, &a.Timestamp, &a.Signature, &a.RecoveryID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan attestation: %w", err)
	}
	return a, nil
}

// List returns every attestation for wallet, optionally filtered to employerID.
func (s *Store) List(ctx context.Context, wallet, employerID string) ([]*attestation.Attestation, error) {
	query := `SELECT attestation_id, employer_id, employee_wallet, wage_amount, period_start, period_end,
	                  hours_worked, hourly_rate, period_nonce, timestamp, signature, recovery_id
	          FROM attestations WHERE employee_wallet = ?`
	args := []any{wallet}
	if employerID != "" {
		query += " AND employer_id = ?"
		args = append(args, employerID)
	}
	query += " ORDER BY admitted_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attestations: %w", err)
	}
	defer rows.Close()

	var out []*attestation.Attestation
	for rows.Next() {
		a := &attestation.Attestation{}
		if err := rows.Scan(&a.AttestationID, &a.EmployerID, &a.EmployeeWallet, &a.WageAmount,
			&a.PeriodStart, &a.PeriodEnd, &a.HoursWorked, &a.HourlyRate, &a.PeriodNonce,
			&a.Timestamp, &a.Signature, &a.RecoveryID); err != nil {
			return nil, fmt.Errorf("scan attestation row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AppendAccessLog persists a single Vault access-log entry (§4.B).
func (s *Store) AppendAccessLog(ctx context.Context, entry vault.AccessLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vault_access_log (employer_id, operation, request_id, occurred_at)
		VALUES (?, ?, ?, ?)`,
		entry.EmployerID, entry.Operation, entry.RequestID, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert access log entry: %w", err)
	}
	return nil
}
