package recognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/check-deposit/internal/config"
)

// visionPrompt is the fixed instruction sent with both check images. The model
// must answer with one strict JSON object holding front fields, back fields and
// a pre-combined summary.
const visionPrompt = "You are a check (cheque) recognition engine. " +
	"You receive two images: the FRONT of a check, then the BACK.\n\n" +
	"Task:\n" +
	"- Read every field you can from both images.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a single JSON object with exactly these top-level keys:\n\n" +
	"{\n" +
	"  \"front\": {\n" +
	"    \"routing_number\": string or null (9 digits),\n" +
	"    \"account_number\": string or null,\n" +
	"    \"check_number\": string or null,\n" +
	"    \"amount\": string or null (e.g. \"125.50\"),\n" +
	"    \"payee\": string or null,\n" +
	"    \"date\": string or null,\n" +
	"    \"raw_text\": string (full transcript of the front)\n" +
	"  },\n" +
	"  \"back\": {\n" +
	"    \"endorsed\": boolean,\n" +
	"    \"signed_by\": string or null,\n" +
	"    \"raw_text\": string (full transcript of the back)\n" +
	"  },\n" +
	"  \"combined\": {\n" +
	"    \"check_id\": string or null (routing_account_check, underscore separated),\n" +
	"    \"amount\": string or null,\n" +
	"    \"endorsed\": boolean\n" +
	"  }\n" +
	"}\n\n" +
	"Rules:\n" +
	"- Set any field you cannot read to null. Never invent digits.\n" +
	"- \"combined.check_id\" must only be set when all three components are legible.\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Output must begin with \"{\" and end with \"}\".\n"

// visionClient recognizes both check sides with a single Gemini request.
type visionClient struct {
	apiKey string
	model  string
	debug  bool
	log    zerolog.Logger
}

func newVisionClient(cfg config.RecognitionConfig, log zerolog.Logger) *visionClient {
	return &visionClient{
		apiKey: cfg.GeminiAPIKey,
		model:  cfg.GeminiModel,
		debug:  cfg.Debug,
		log:    log,
	}
}

func (c *visionClient) Recognize(ctx context.Context, front, back []byte) (*Result, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create genai client: %v", ErrRecognitionFailed, err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: visionPrompt},
				{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: front}},
				{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: back}},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %v", ErrRecognitionFailed, err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrRecognitionFailed)
	}

	// The model occasionally ignores the no-fences instruction.
	clean := cleanModelJSON(rawText)

	parsed, err := FromJSON([]byte(clean))
	if err != nil {
		return nil, fmt.Errorf("%w: unmarshal model JSON: %v", ErrRecognitionFailed, err)
	}

	result := &Result{
		Front:    fieldOrNull(parsed, "front"),
		Back:     fieldOrNull(parsed, "back"),
		Combined: fieldOrNull(parsed, "combined"),
	}
	// Providers vary; if the model skipped the envelope, keep the whole object
	// on both sides so no signal is lost.
	if result.Front.IsNull() && result.Back.IsNull() {
		result.Front = parsed
		result.Back = parsed
	}

	if c.debug {
		dumpDebug(c.log, "front", result.Front)
		dumpDebug(c.log, "back", result.Back)
		dumpDebug(c.log, "combined", result.Combined)
	}

	return result, nil
}

func fieldOrNull(v Value, key string) Value {
	if child, ok := v.Field(key); ok {
		return child
	}
	return Null()
}

// cleanModelJSON strips Markdown fences and surrounding junk, keeping the
// outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
