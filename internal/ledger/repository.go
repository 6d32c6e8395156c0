package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the storage boundary for transaction records: one lookup, one
// insert, nothing else. The backing table carries the uniqueness constraint
// that makes concurrent duplicate inserts fail with ErrDuplicateRecord.
type Repository interface {
	FindOne(ctx context.Context, criteria FindCriteria) (*TransactionRecord, error)
	Insert(ctx context.Context, record *TransactionRecord) error
}

type postgresRepo struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates the pgx-backed transaction repository.
func NewPostgresRepository(db *pgxpool.Pool) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) FindOne(ctx context.Context, criteria FindCriteria) (*TransactionRecord, error) {
	query := `
		SELECT
			id, internal_account_id, transaction_type, direction, amount,
			idempotency_key, check_number, bill_pay_rule_id, transfer_rule_id,
			status, created_at
		FROM check_transactions
		WHERE transaction_type = $1
		  AND internal_account_id = $2
		  AND amount = $3
		  AND bill_pay_rule_id IS NOT DISTINCT FROM $4
		  AND transfer_rule_id IS NOT DISTINCT FROM $5
		  AND (idempotency_key = $6 OR check_number = $6)
		LIMIT 1
	`

	var record TransactionRecord
	err := r.db.QueryRow(ctx, query,
		criteria.TransactionType,
		criteria.InternalAccountID,
		criteria.Amount,
		criteria.BillPayRuleID,
		criteria.TransferRuleID,
		criteria.DedupKey,
	).Scan(
		&record.ID,
		&record.InternalAccountID,
		&record.TransactionType,
		&record.Direction,
		&record.Amount,
		&record.IdempotencyKey,
		&record.CheckNumber,
		&record.BillPayRuleID,
		&record.TransferRuleID,
		&record.Status,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find transaction record: %w", err)
	}

	return &record, nil
}

func (r *postgresRepo) Insert(ctx context.Context, record *TransactionRecord) error {
	query := `
		INSERT INTO check_transactions (
			id, internal_account_id, transaction_type, direction, amount,
			idempotency_key, check_number, bill_pay_rule_id, transfer_rule_id,
			status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		record.ID,
		record.InternalAccountID,
		record.TransactionType,
		record.Direction,
		record.Amount,
		record.IdempotencyKey,
		record.CheckNumber,
		record.BillPayRuleID,
		record.TransferRuleID,
		record.Status,
	).Scan(&record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("insert transaction record: %w", err)
	}

	return nil
}
