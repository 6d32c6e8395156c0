package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/check-deposit/internal/api/middleware"
	"github.com/dvloznov/check-deposit/internal/pipeline"
	"github.com/dvloznov/check-deposit/internal/recognition"
)

type stubProcessor struct {
	outcome *pipeline.Outcome
	err     error
	gotSub  pipeline.Submission
}

func (s *stubProcessor) Process(_ context.Context, sub pipeline.Submission) (*pipeline.Outcome, error) {
	s.gotSub = sub
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

func multipartBody(t *testing.T, parts map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range parts {
		fw, err := mw.CreateFormFile(name, name+".jpg")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// serve runs the request through the auth middleware the way the router does.
func serve(proc CheckProcessor, req *http.Request) *httptest.ResponseRecorder {
	h := NewChecksHandler(proc, zerolog.Nop())
	keys := map[string]string{"test-key": "user-1"}
	wrapped := middleware.Auth(keys, zerolog.Nop())(http.HandlerFunc(h.CreateCheck))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	return rec
}

func newCheckRequest(t *testing.T, parts map[string][]byte, fields map[string]string) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, parts, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checks", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-Key", "test-key")
	return req
}

func cents(v int64) *int64 { return &v }

func TestCreateCheck(t *testing.T) {
	proc := &stubProcessor{outcome: &pipeline.Outcome{
		SubmissionID:       "sub-1",
		CheckID:            "021000021_123456_789",
		AmountCents:        cents(5050),
		EndorsementPresent: true,
		Status:             pipeline.DepositApproved,
		RecordID:           "rec-1",
		ForwardJobID:       "job-1",
	}}

	req := newCheckRequest(t,
		map[string][]byte{"front": []byte("front-bytes"), "back": []byte("back-bytes")},
		map[string]string{"account_id": "acct-1"},
	)
	req.Header.Set("Idempotency-Key", "client-key-7")

	rec := serve(proc, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "021000021_123456_789", resp["check_id"])
	assert.Equal(t, "50.50", resp["amount"])
	assert.Equal(t, float64(5050), resp["amount_cents"])
	assert.Equal(t, true, resp["endorsement_present"])
	assert.Equal(t, false, resp["duplicate"])
	assert.Equal(t, "approved", resp["status"])
	assert.Equal(t, "rec-1", resp["record_id"])
	assert.Equal(t, "job-1", resp["forward_job_id"])
	assert.NotContains(t, resp, "diagnostics")

	assert.Equal(t, "acct-1", proc.gotSub.AccountID)
	assert.Equal(t, "user-1", proc.gotSub.UserID)
	require.NotNil(t, proc.gotSub.IdempotencyKey)
	assert.Equal(t, "client-key-7", *proc.gotSub.IdempotencyKey)
	assert.Equal(t, []byte("front-bytes"), proc.gotSub.Front)
	assert.Equal(t, []byte("back-bytes"), proc.gotSub.Back)
}

func TestCreateCheckDuplicate(t *testing.T) {
	proc := &stubProcessor{outcome: &pipeline.Outcome{
		CheckID:     "021000021_123456_789",
		AmountCents: cents(5050),
		Status:      pipeline.DepositApproved,
		Duplicate:   true,
		RecordID:    "rec-1",
	}}

	req := newCheckRequest(t,
		map[string][]byte{"front": []byte("f"), "back": []byte("b")},
		map[string]string{"account_id": "acct-1"},
	)
	rec := serve(proc, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["duplicate"])
}

func TestCreateCheckNoAmount(t *testing.T) {
	proc := &stubProcessor{outcome: &pipeline.Outcome{
		CheckID: "opaque-token",
		Status:  pipeline.DepositNoAmount,
	}}

	req := newCheckRequest(t,
		map[string][]byte{"front": []byte("f"), "back": []byte("b")},
		map[string]string{"account_id": "acct-1"},
	)
	rec := serve(proc, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp["amount"])
	assert.Nil(t, resp["amount_cents"])
	assert.Equal(t, "no_amount", resp["status"])
}

func TestCreateCheckMissingImages(t *testing.T) {
	tests := []struct {
		name  string
		parts map[string][]byte
	}{
		{"no front", map[string][]byte{"back": []byte("b")}},
		{"no back", map[string][]byte{"front": []byte("f")}},
		{"empty front", map[string][]byte{"front": {}, "back": []byte("b")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &stubProcessor{outcome: &pipeline.Outcome{}}
			req := newCheckRequest(t, tt.parts, map[string]string{"account_id": "acct-1"})
			rec := serve(proc, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateCheckMissingAccount(t *testing.T) {
	proc := &stubProcessor{outcome: &pipeline.Outcome{}}
	req := newCheckRequest(t,
		map[string][]byte{"front": []byte("f"), "back": []byte("b")},
		nil,
	)
	rec := serve(proc, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCheckUnauthorized(t *testing.T) {
	proc := &stubProcessor{outcome: &pipeline.Outcome{}}
	req := newCheckRequest(t,
		map[string][]byte{"front": []byte("f"), "back": []byte("b")},
		map[string]string{"account_id": "acct-1"},
	)

	req.Header.Set("X-API-Key", "wrong-key")
	rec := serve(proc, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req2 := newCheckRequest(t,
		map[string][]byte{"front": []byte("f"), "back": []byte("b")},
		map[string]string{"account_id": "acct-1"},
	)
	req2.Header.Del("X-API-Key")
	rec2 := serve(proc, req2)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestCreateCheckErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"identity not found", pipeline.ErrIdentityNotFound, http.StatusBadRequest},
		{"no provider", recognition.ErrNoProvider, http.StatusInternalServerError},
		{"recognition failed", recognition.ErrRecognitionFailed, http.StatusBadGateway},
		{"other failure", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &stubProcessor{err: tt.err}
			req := newCheckRequest(t,
				map[string][]byte{"front": []byte("f"), "back": []byte("b")},
				map[string]string{"account_id": "acct-1"},
			)
			rec := serve(proc, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
