package deposit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/check-deposit/internal/config"
)

// Forwarder issues the single downstream deposit request for a recognized
// check. The idempotency key is derived deterministically from the check
// identity so repeated forwarding attempts collapse to one downstream effect.
type Forwarder struct {
	url    string
	apiKey string
	http   *http.Client
	log    zerolog.Logger
}

func NewForwarder(cfg config.DepositConfig, log zerolog.Logger) *Forwarder {
	return &Forwarder{
		url:    cfg.CoreURL,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

// Request carries one deposit instruction.
type Request struct {
	AccountID   string `json:"account_id"`
	AmountCents int64  `json:"amount_cents"`
	CheckID     string `json:"check_id"`
}

// Forward posts the deposit downstream and returns the downstream identifier.
// Errors here degrade gracefully: the ledger write already happened, so the
// caller logs and moves on rather than failing the check response.
func (f *Forwarder) Forward(ctx context.Context, req Request) (string, error) {
	if f.url == "" {
		return "", fmt.Errorf("forward deposit: no downstream endpoint configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("forward deposit: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("forward deposit: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", IdempotencyKeyFor(req.CheckID))
	if f.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("forward deposit: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("forward deposit: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("forward deposit: downstream status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("forward deposit: decode response: %w", err)
	}

	f.log.Info().
		Str("deposit_id", out.ID).
		Str("check_id", req.CheckID).
		Int64("amount_cents", req.AmountCents).
		Msg("Deposit forwarded downstream")

	return out.ID, nil
}

// IdempotencyKeyFor derives the downstream deduplication key from a check
// identity: "check-id-<identity>" with anything outside [A-Za-z0-9_-] replaced
// by a dash.
func IdempotencyKeyFor(checkID string) string {
	sanitized := make([]byte, 0, len(checkID))
	for i := 0; i < len(checkID); i++ {
		c := checkID[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			sanitized = append(sanitized, c)
		default:
			sanitized = append(sanitized, '-')
		}
	}
	return "check-id-" + string(sanitized)
}
