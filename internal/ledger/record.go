package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the terminal state a transaction record is created in. Records are
// append-only: created once as approved or denied, never mutated or deleted.
type Status string

const (
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Direction of the money movement relative to the internal account.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// TransactionTypeCheckDeposit is the transaction type written by the check
// processing pipeline.
const TransactionTypeCheckDeposit = "check_deposit"

// Sentinel errors surfaced by the repository.
var (
	// ErrNotFound reports that no record matched the lookup criteria.
	ErrNotFound = errors.New("transaction record not found")
	// ErrDuplicateRecord reports that an insert violated the storage-layer
	// uniqueness constraint: a concurrent writer already recorded this check.
	ErrDuplicateRecord = errors.New("duplicate transaction record")
)

// TransactionRecord is one persisted money-movement event. At most one
// approved record may exist per (transaction_type, internal_account_id,
// amount, check_number|idempotency_key) tuple, enforced by a partial unique
// index rather than application logic.
type TransactionRecord struct {
	ID                string
	InternalAccountID string
	TransactionType   string
	Direction         Direction
	Amount            decimal.Decimal
	IdempotencyKey    *string
	CheckNumber       *string
	BillPayRuleID     *string
	TransferRuleID    *string
	Status            Status
	CreatedAt         time.Time
}

// DedupKey derives the deduplication key: the idempotency key when present,
// else the check number. The empty string means no key is derivable.
func (r *TransactionRecord) DedupKey() string {
	if r.IdempotencyKey != nil && *r.IdempotencyKey != "" {
		return *r.IdempotencyKey
	}
	if r.CheckNumber != nil && *r.CheckNumber != "" {
		return *r.CheckNumber
	}
	return ""
}

// FindCriteria describes the pre-insert lookup for an already-processed check.
// DedupKey matches either the idempotency key or the check number column.
type FindCriteria struct {
	TransactionType   string
	InternalAccountID string
	Amount            decimal.Decimal
	BillPayRuleID     *string
	TransferRuleID    *string
	DedupKey          string
}

// AmountFromCents builds the exact decimal amount from integer cents.
func AmountFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
