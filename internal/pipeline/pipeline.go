package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/check-deposit/internal/extraction"
	"github.com/dvloznov/check-deposit/internal/jobs"
	"github.com/dvloznov/check-deposit/internal/ledger"
	"github.com/dvloznov/check-deposit/internal/recognition"
)

// ErrIdentityNotFound reports that no strategy could recover a complete check
// identity. The submission fails without any ledger write.
var ErrIdentityNotFound = errors.New("check identity could not be extracted")

// Submission is one check deposit request: two images plus the authenticated
// caller's destination account.
type Submission struct {
	Front          []byte
	Back           []byte
	AccountID      string
	UserID         string
	IdempotencyKey *string
}

// DepositStatus summarizes what the ledger recorded for a submission.
type DepositStatus string

const (
	// DepositApproved means an approved record exists (new or pre-existing).
	DepositApproved DepositStatus = "approved"
	// DepositDenied means business validation rejected the deposit.
	DepositDenied DepositStatus = "denied"
	// DepositNoAmount means no amount could be extracted; the check was
	// recognized but no monetary movement was recorded.
	DepositNoAmount DepositStatus = "no_amount"
)

// Outcome is the result of a fully processed submission.
type Outcome struct {
	SubmissionID       string
	CheckID            string
	AmountCents        *int64
	EndorsementPresent bool
	Status             DepositStatus
	Duplicate          bool
	RecordID           string
	ForwardJobID       string

	// Raw recognition output, populated only in debug mode.
	Diagnostics *recognition.Result
}

// Processor runs the strict linear pipeline for one submission: recognition,
// extraction, canonicalization, ledger write, then deposit forwarding. Each
// submission is independent; the transaction table's uniqueness constraint is
// the only cross-submission coordination.
type Processor struct {
	recognizer recognition.Client
	engine     *extraction.Engine
	writer     LedgerWriter
	publisher  jobs.Publisher
	archive    Archiver
	debug      bool
	log        zerolog.Logger
}

func NewProcessor(
	recognizer recognition.Client,
	engine *extraction.Engine,
	writer LedgerWriter,
	publisher jobs.Publisher,
	archive Archiver,
	debug bool,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		recognizer: recognizer,
		engine:     engine,
		writer:     writer,
		publisher:  publisher,
		archive:    archive,
		debug:      debug,
		log:        log,
	}
}

// Process runs one submission through the pipeline.
func (p *Processor) Process(ctx context.Context, sub Submission) (*Outcome, error) {
	submissionID := uuid.NewString()
	log := p.log.With().Str("submission_id", submissionID).Logger()

	if p.recognizer == nil {
		return nil, recognition.ErrNoProvider
	}

	// 1. Recognition. Any provider failure stops the pipeline before any
	// ledger state exists.
	result, err := p.recognizer.Recognize(ctx, sub.Front, sub.Back)
	if err != nil {
		return nil, fmt.Errorf("process check: %w", err)
	}

	// 2. Extraction.
	fields := p.engine.Extract(result)
	if fields.CheckID == nil {
		return nil, ErrIdentityNotFound
	}

	outcome := &Outcome{
		SubmissionID:       submissionID,
		CheckID:            *fields.CheckID,
		EndorsementPresent: fields.EndorsementPresent,
	}
	if p.debug {
		outcome.Diagnostics = result
	}

	// 3. Canonicalization. An unparsable amount is a warning, not a failure:
	// the check completes with no extracted amount and no deposit write.
	var amountCents *int64
	if fields.AmountRaw != nil {
		cents, err := extraction.CanonicalizeAmount(*fields.AmountRaw)
		if err != nil {
			log.Warn().Err(err).Str("raw", *fields.AmountRaw).Msg("Amount canonicalization failed")
		} else {
			amountCents = &cents
		}
	}
	outcome.AmountCents = amountCents

	if amountCents == nil {
		outcome.Status = DepositNoAmount
		p.archiveImages(ctx, log, submissionID, sub)
		return outcome, nil
	}

	checkNumber := checkNumberFor(fields)

	// 4. Ledger write. A non-positive amount is denied before any movement.
	if *amountCents < 1 {
		if err := p.writer.RecordDenied(ctx, sub.AccountID, ledger.AmountFromCents(*amountCents), checkNumber, "non-positive amount"); err != nil {
			return nil, fmt.Errorf("process check: %w", err)
		}
		outcome.Status = DepositDenied
		p.archiveImages(ctx, log, submissionID, sub)
		return outcome, nil
	}

	write, err := p.writer.RecordApproved(ctx, ledger.ApprovedDeposit{
		InternalAccountID: sub.AccountID,
		AmountCents:       *amountCents,
		IdempotencyKey:    sub.IdempotencyKey,
		CheckNumber:       checkNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("process check: %w", err)
	}

	outcome.Status = DepositApproved
	outcome.Duplicate = write.Duplicate
	if write.Record != nil {
		outcome.RecordID = write.Record.ID
	}

	// 5. Forwarding, off the request path. The idempotency key derived from
	// the check identity collapses repeats downstream, so forwarding again on
	// a duplicate submission is harmless and self-healing.
	if p.publisher != nil {
		job := &jobs.ForwardDepositJob{
			CheckID:     outcome.CheckID,
			AccountID:   sub.AccountID,
			AmountCents: *amountCents,
			RecordID:    outcome.RecordID,
		}
		if err := p.publisher.PublishForwardDeposit(ctx, job); err != nil {
			log.Error().Err(err).Str("check_id", outcome.CheckID).Msg("Failed to enqueue deposit forward")
		} else {
			outcome.ForwardJobID = job.JobID
		}
	}

	p.archiveImages(ctx, log, submissionID, sub)

	return outcome, nil
}

func (p *Processor) archiveImages(ctx context.Context, log zerolog.Logger, submissionID string, sub Submission) {
	if p.archive == nil {
		return
	}
	if err := p.archive.ArchiveCheck(ctx, submissionID, sub.Front, sub.Back); err != nil {
		log.Warn().Err(err).Msg("Check image archival failed")
	}
}

// checkNumberFor picks the check-number component for deduplication. When the
// pre-combined identity string did not split into components, the whole
// canonical id serves as the key.
func checkNumberFor(fields extraction.Fields) *string {
	if fields.Identity != nil && fields.Identity.CheckNumber != "" {
		n := fields.Identity.CheckNumber
		return &n
	}
	if fields.CheckID != nil {
		return fields.CheckID
	}
	return nil
}
