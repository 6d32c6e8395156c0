package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/dvloznov/check-deposit/internal/config"
)

// ErrRecognitionFailed is returned when a provider call does not succeed. All
// transport failures and non-success provider responses collapse into this one
// condition; the caller must not proceed to extraction.
var ErrRecognitionFailed = errors.New("recognition service error")

// ErrNoProvider is returned when neither recognition provider is configured.
var ErrNoProvider = errors.New("no recognition provider configured")

// Result carries the raw, provider-shaped output for one check submission.
// Combined is null unless the vision-model provider answered.
type Result struct {
	Front    Value
	Back     Value
	Combined Value
}

// Client calls an external recognition provider and returns its output
// verbatim as a Value tree.
type Client interface {
	// Recognize submits the front and back images and returns the raw results.
	Recognize(ctx context.Context, front, back []byte) (*Result, error)
}

// NewClient selects a provider from configuration: the vision-model provider
// when a Gemini API key is present (one combined request carrying both images),
// otherwise the plain OCR provider (one request per image).
func NewClient(cfg config.RecognitionConfig, log zerolog.Logger) (Client, error) {
	switch {
	case cfg.GeminiAPIKey != "":
		return newVisionClient(cfg, log), nil
	case cfg.OCRBaseURL != "":
		return newOCRClient(cfg, log), nil
	default:
		return nil, ErrNoProvider
	}
}

// dumpDebug writes a raw recognition result to a fixed temp location for
// offline inspection. Diagnostic aid only; errors are logged and swallowed.
func dumpDebug(log zerolog.Logger, name string, v Value) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("check-recognition-%s.json", name))
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("Failed to encode recognition debug dump")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write recognition debug dump")
		return
	}
	log.Debug().Str("path", path).Msg("Wrote recognition debug dump")
}
