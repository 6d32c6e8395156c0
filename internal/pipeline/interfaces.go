package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/check-deposit/internal/ledger"
)

// LedgerWriter records the money-movement outcome of a processed check.
// Satisfied by *ledger.Writer; narrowed here so tests can stub it.
type LedgerWriter interface {
	RecordApproved(ctx context.Context, dep ledger.ApprovedDeposit) (*ledger.WriteResult, error)
	RecordDenied(ctx context.Context, accountID string, amount decimal.Decimal, checkNumber *string, reason string) error
}

// Archiver stores check images after a successful ledger write. Satisfied by
// *imagestore.Store.
type Archiver interface {
	ArchiveCheck(ctx context.Context, submissionID string, front, back []byte) error
}
