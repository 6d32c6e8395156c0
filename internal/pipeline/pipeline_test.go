package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/check-deposit/internal/extraction"
	"github.com/dvloznov/check-deposit/internal/jobs"
	"github.com/dvloznov/check-deposit/internal/ledger"
	"github.com/dvloznov/check-deposit/internal/recognition"
)

type fakeRecognizer struct {
	result *recognition.Result
	err    error
}

func (f *fakeRecognizer) Recognize(_ context.Context, _, _ []byte) (*recognition.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeWriter struct {
	approveResult *ledger.WriteResult
	approveErr    error

	approved *ledger.ApprovedDeposit
	denied   bool
	reason   string
}

func (f *fakeWriter) RecordApproved(_ context.Context, dep ledger.ApprovedDeposit) (*ledger.WriteResult, error) {
	f.approved = &dep
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	return f.approveResult, nil
}

func (f *fakeWriter) RecordDenied(_ context.Context, _ string, _ decimal.Decimal, _ *string, reason string) error {
	f.denied = true
	f.reason = reason
	return nil
}

type fakePublisher struct {
	published []*jobs.ForwardDepositJob
	err       error
}

func (f *fakePublisher) PublishForwardDeposit(_ context.Context, job *jobs.ForwardDepositJob) error {
	if f.err != nil {
		return f.err
	}
	job.JobID = "job-1"
	f.published = append(f.published, job)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeArchiver struct {
	calls int
	err   error
}

func (f *fakeArchiver) ArchiveCheck(_ context.Context, _ string, _, _ []byte) error {
	f.calls++
	return f.err
}

func combinedResult(fields map[string]recognition.Value) *recognition.Result {
	return &recognition.Result{
		Front:    recognition.Null(),
		Back:     recognition.Null(),
		Combined: recognition.Object(fields),
	}
}

func submission() Submission {
	return Submission{
		Front:     []byte("front"),
		Back:      []byte("back"),
		AccountID: "acct-1",
		UserID:    "user-1",
	}
}

func newTestProcessor(rec recognition.Client, w LedgerWriter, pub jobs.Publisher, arc Archiver) *Processor {
	return NewProcessor(rec, extraction.NewEngine(), w, pub, arc, false, zerolog.Nop())
}

func TestProcessApproved(t *testing.T) {
	rec := &fakeRecognizer{result: combinedResult(map[string]recognition.Value{
		"check_id": recognition.String("021000021_123456_789"),
		"amount":   recognition.String("50.50"),
		"endorsed": recognition.Bool(true),
	})}
	writer := &fakeWriter{approveResult: &ledger.WriteResult{
		Record: &ledger.TransactionRecord{ID: "rec-1"},
	}}
	pub := &fakePublisher{}
	arc := &fakeArchiver{}

	outcome, err := newTestProcessor(rec, writer, pub, arc).Process(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, "021000021_123456_789", outcome.CheckID)
	require.NotNil(t, outcome.AmountCents)
	assert.Equal(t, int64(5050), *outcome.AmountCents)
	assert.True(t, outcome.EndorsementPresent)
	assert.Equal(t, DepositApproved, outcome.Status)
	assert.False(t, outcome.Duplicate)
	assert.Equal(t, "rec-1", outcome.RecordID)
	assert.Equal(t, "job-1", outcome.ForwardJobID)
	assert.Nil(t, outcome.Diagnostics)

	require.NotNil(t, writer.approved)
	assert.Equal(t, int64(5050), writer.approved.AmountCents)
	require.NotNil(t, writer.approved.CheckNumber)
	assert.Equal(t, "789", *writer.approved.CheckNumber)

	require.Len(t, pub.published, 1)
	assert.Equal(t, "021000021_123456_789", pub.published[0].CheckID)
	assert.Equal(t, "rec-1", pub.published[0].RecordID)

	assert.Equal(t, 1, arc.calls)
}

func TestProcessDuplicateStillForwards(t *testing.T) {
	// Forwarding on a duplicate is harmless: the downstream idempotency key
	// collapses the repeat, and re-forwarding heals an earlier lost forward.
	rec := &fakeRecognizer{result: combinedResult(map[string]recognition.Value{
		"check_id": recognition.String("021000021_123456_789"),
		"amount":   recognition.String("50.50"),
	})}
	writer := &fakeWriter{approveResult: &ledger.WriteResult{
		Record:    &ledger.TransactionRecord{ID: "rec-1"},
		Duplicate: true,
	}}
	pub := &fakePublisher{}

	outcome, err := newTestProcessor(rec, writer, pub, nil).Process(context.Background(), submission())
	require.NoError(t, err)

	assert.True(t, outcome.Duplicate)
	assert.Len(t, pub.published, 1)
}

func TestProcessIdentityNotFound(t *testing.T) {
	rec := &fakeRecognizer{result: combinedResult(map[string]recognition.Value{
		"memo": recognition.String("nothing useful"),
	})}
	writer := &fakeWriter{}

	_, err := newTestProcessor(rec, writer, nil, nil).Process(context.Background(), submission())
	require.ErrorIs(t, err, ErrIdentityNotFound)
	assert.Nil(t, writer.approved)
	assert.False(t, writer.denied)
}

func TestProcessNoAmount(t *testing.T) {
	rec := &fakeRecognizer{result: combinedResult(map[string]recognition.Value{
		"check_id": recognition.String("opaque-token"),
	})}
	writer := &fakeWriter{}
	arc := &fakeArchiver{}

	outcome, err := newTestProcessor(rec, writer, nil, arc).Process(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, DepositNoAmount, outcome.Status)
	assert.Nil(t, outcome.AmountCents)
	assert.Nil(t, writer.approved)
	assert.False(t, writer.denied)
	assert.Equal(t, 1, arc.calls, "images are archived even without an amount")
}

func TestProcessUnparsableAmountDegrades(t *testing.T) {
	rec := &fakeRecognizer{result: combinedResult(map[string]recognition.Value{
		"check_id": recognition.String("opaque-token"),
		"amount":   recognition.String("..."),
	})}
	writer := &fakeWriter{}

	outcome, err := newTestProcessor(rec, writer, nil, nil).Process(context.Background(), submission())
	require.NoError(t, err)
	assert.Equal(t, DepositNoAmount, outcome.Status)
	assert.Nil(t, outcome.AmountCents)
}

func TestProcessZeroAmountDenied(t *testing.T) {
	rec := &fakeRecognizer{result: combinedResult(map[string]recognition.Value{
		"check_id": recognition.String("021000021_123456_789"),
		"amount":   recognition.String("0.00"),
	})}
	writer := &fakeWriter{}
	pub := &fakePublisher{}

	outcome, err := newTestProcessor(rec, writer, pub, nil).Process(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, DepositDenied, outcome.Status)
	assert.True(t, writer.denied)
	assert.Equal(t, "non-positive amount", writer.reason)
	assert.Empty(t, pub.published, "denied deposits are never forwarded")
}

func TestProcessRecognitionFailure(t *testing.T) {
	rec := &fakeRecognizer{err: recognition.ErrRecognitionFailed}
	writer := &fakeWriter{}

	_, err := newTestProcessor(rec, writer, nil, nil).Process(context.Background(), submission())
	require.ErrorIs(t, err, recognition.ErrRecognitionFailed)
	assert.Nil(t, writer.approved)
}

func TestProcessNoRecognizer(t *testing.T) {
	p := newTestProcessor(nil, &fakeWriter{}, nil, nil)
	_, err := p.Process(context.Background(), submission())
	require.ErrorIs(t, err, recognition.ErrNoProvider)
}

func TestProcessForwardEnqueueFailureIsNotFatal(t *testing.T) {
	rec := &fakeRecognizer{result: combinedResult(map[string]recognition.Value{
		"check_id": recognition.String("021000021_123456_789"),
		"amount":   recognition.String("50.50"),
	})}
	writer := &fakeWriter{approveResult: &ledger.WriteResult{
		Record: &ledger.TransactionRecord{ID: "rec-1"},
	}}
	pub := &fakePublisher{err: errors.New("queue closed")}

	outcome, err := newTestProcessor(rec, writer, pub, nil).Process(context.Background(), submission())
	require.NoError(t, err)

	assert.Equal(t, DepositApproved, outcome.Status)
	assert.Empty(t, outcome.ForwardJobID)
}

func TestProcessArchiveFailureIsNotFatal(t *testing.T) {
	rec := &fakeRecognizer{result: combinedResult(map[string]recognition.Value{
		"check_id": recognition.String("021000021_123456_789"),
		"amount":   recognition.String("50.50"),
	})}
	writer := &fakeWriter{approveResult: &ledger.WriteResult{
		Record: &ledger.TransactionRecord{ID: "rec-1"},
	}}
	arc := &fakeArchiver{err: errors.New("bucket unavailable")}

	outcome, err := newTestProcessor(rec, writer, nil, arc).Process(context.Background(), submission())
	require.NoError(t, err)
	assert.Equal(t, DepositApproved, outcome.Status)
}

func TestProcessDebugDiagnostics(t *testing.T) {
	res := combinedResult(map[string]recognition.Value{
		"check_id": recognition.String("opaque-token"),
	})
	p := NewProcessor(&fakeRecognizer{result: res}, extraction.NewEngine(), &fakeWriter{}, nil, nil, true, zerolog.Nop())

	outcome, err := p.Process(context.Background(), submission())
	require.NoError(t, err)
	assert.Same(t, res, outcome.Diagnostics)
}

func TestProcessOpaqueCheckIDDedup(t *testing.T) {
	// A pre-combined id that does not split still deduplicates on the whole
	// canonical string.
	rec := &fakeRecognizer{result: combinedResult(map[string]recognition.Value{
		"check_id": recognition.String("opaque-token"),
		"amount":   recognition.String("25.00"),
	})}
	writer := &fakeWriter{approveResult: &ledger.WriteResult{
		Record: &ledger.TransactionRecord{ID: "rec-1"},
	}}

	_, err := newTestProcessor(rec, writer, nil, nil).Process(context.Background(), submission())
	require.NoError(t, err)

	require.NotNil(t, writer.approved)
	require.NotNil(t, writer.approved.CheckNumber)
	assert.Equal(t, "opaque-token", *writer.approved.CheckNumber)
}
