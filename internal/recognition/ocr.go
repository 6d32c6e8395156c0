package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/check-deposit/internal/config"
)

// ocrClient calls a plain OCR service once per image. The service returns
// JSON with whatever shape it likes; the output is kept verbatim.
type ocrClient struct {
	baseURL string
	apiKey  string
	debug   bool
	http    *http.Client
	log     zerolog.Logger
}

func newOCRClient(cfg config.RecognitionConfig, log zerolog.Logger) *ocrClient {
	return &ocrClient{
		baseURL: strings.TrimSuffix(cfg.OCRBaseURL, "/"),
		apiKey:  cfg.OCRAPIKey,
		debug:   cfg.Debug,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

func (c *ocrClient) Recognize(ctx context.Context, front, back []byte) (*Result, error) {
	frontVal, err := c.recognizeOne(ctx, front)
	if err != nil {
		return nil, err
	}
	backVal, err := c.recognizeOne(ctx, back)
	if err != nil {
		return nil, err
	}

	if c.debug {
		dumpDebug(c.log, "front", frontVal)
		dumpDebug(c.log, "back", backVal)
	}

	return &Result{Front: frontVal, Back: backVal, Combined: Null()}, nil
}

func (c *ocrClient) recognizeOne(ctx context.Context, image []byte) (Value, error) {
	payload, err := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return Null(), fmt.Errorf("%w: encode request: %v", ErrRecognitionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ocr", bytes.NewReader(payload))
	if err != nil {
		return Null(), fmt.Errorf("%w: build request: %v", ErrRecognitionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Null(), fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Null(), fmt.Errorf("%w: read response: %v", ErrRecognitionFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncate(string(body), 512)).
			Msg("OCR provider returned non-success status")
		return Null(), fmt.Errorf("%w: provider status %d", ErrRecognitionFailed, resp.StatusCode)
	}

	parsed, err := FromJSON(body)
	if err != nil {
		return Null(), fmt.Errorf("%w: decode provider JSON: %v", ErrRecognitionFailed, err)
	}
	return parsed, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
