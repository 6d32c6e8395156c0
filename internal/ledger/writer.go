package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Writer records each physical check exactly once. The pre-insert lookup is an
// optimization that avoids conflict overhead on obvious retries; the partial
// unique index on the table is the actual correctness mechanism, so a lost
// race on insert is downgraded to a successful duplicate outcome.
type Writer struct {
	repo Repository
	log  zerolog.Logger
}

func NewWriter(repo Repository, log zerolog.Logger) *Writer {
	return &Writer{repo: repo, log: log}
}

// WriteResult reports the outcome of an approved write. Duplicate is true when
// the check was already recorded, by this process or a concurrent one.
type WriteResult struct {
	Record    *TransactionRecord
	Duplicate bool
}

// ApprovedDeposit describes the canonical facts needed to record an inbound
// check deposit.
type ApprovedDeposit struct {
	InternalAccountID string
	AmountCents       int64
	IdempotencyKey    *string
	CheckNumber       *string
	BillPayRuleID     *string
	TransferRuleID    *string
}

// RecordApproved writes exactly one approved record for the deposit. Duplicate
// submissions, concurrent or sequential, converge on the single existing
// record and report Duplicate=true.
func (w *Writer) RecordApproved(ctx context.Context, dep ApprovedDeposit) (*WriteResult, error) {
	if dep.AmountCents < 1 {
		return nil, fmt.Errorf("record approved deposit: amount must be positive, got %d cents", dep.AmountCents)
	}

	record := &TransactionRecord{
		ID:                uuid.NewString(),
		InternalAccountID: dep.InternalAccountID,
		TransactionType:   TransactionTypeCheckDeposit,
		Direction:         DirectionInbound,
		Amount:            AmountFromCents(dep.AmountCents),
		IdempotencyKey:    dep.IdempotencyKey,
		CheckNumber:       dep.CheckNumber,
		BillPayRuleID:     dep.BillPayRuleID,
		TransferRuleID:    dep.TransferRuleID,
		Status:            StatusApproved,
	}

	key := record.DedupKey()
	if key == "" {
		return nil, fmt.Errorf("record approved deposit: no idempotency key or check number to deduplicate on")
	}

	criteria := FindCriteria{
		TransactionType:   record.TransactionType,
		InternalAccountID: record.InternalAccountID,
		Amount:            record.Amount,
		BillPayRuleID:     record.BillPayRuleID,
		TransferRuleID:    record.TransferRuleID,
		DedupKey:          key,
	}

	existing, err := w.repo.FindOne(ctx, criteria)
	if err == nil {
		w.log.Info().
			Str("record_id", existing.ID).
			Str("dedup_key", key).
			Msg("Check already recorded, skipping insert")
		return &WriteResult{Record: existing, Duplicate: true}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("record approved deposit: lookup: %w", err)
	}

	if err := w.repo.Insert(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			// A concurrent writer won the race between lookup and insert. The
			// check is recorded exactly once either way.
			w.log.Info().
				Str("dedup_key", key).
				Msg("Insert conflicted with concurrent duplicate, resolved as already recorded")
			winner, findErr := w.repo.FindOne(ctx, criteria)
			if findErr != nil {
				return &WriteResult{Record: nil, Duplicate: true}, nil
			}
			return &WriteResult{Record: winner, Duplicate: true}, nil
		}
		return nil, fmt.Errorf("record approved deposit: insert: %w", err)
	}

	w.log.Info().
		Str("record_id", record.ID).
		Str("account_id", record.InternalAccountID).
		Str("amount", record.Amount.StringFixed(2)).
		Msg("Approved transaction recorded")

	return &WriteResult{Record: record, Duplicate: false}, nil
}

// RecordDenied writes an informational denied record when business validation
// rejects the deposit before any monetary movement. Denied records never
// participate in deduplication or further processing.
func (w *Writer) RecordDenied(ctx context.Context, accountID string, amount decimal.Decimal, checkNumber *string, reason string) error {
	record := &TransactionRecord{
		ID:                uuid.NewString(),
		InternalAccountID: accountID,
		TransactionType:   TransactionTypeCheckDeposit,
		Direction:         DirectionInbound,
		Amount:            amount,
		CheckNumber:       checkNumber,
		Status:            StatusDenied,
	}

	if err := w.repo.Insert(ctx, record); err != nil {
		return fmt.Errorf("record denied deposit: %w", err)
	}

	w.log.Info().
		Str("record_id", record.ID).
		Str("account_id", accountID).
		Str("reason", reason).
		Msg("Denied transaction recorded")

	return nil
}
