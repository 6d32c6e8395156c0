package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/check-deposit/internal/config"
	"github.com/dvloznov/check-deposit/internal/extraction"
	"github.com/dvloznov/check-deposit/internal/logger"
	"github.com/dvloznov/check-deposit/internal/recognition"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "extract":
		runExtract(log)
	case "submit":
		runSubmit(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Check Deposit CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  extract   Recognize two check images locally and print the extracted fields")
	fmt.Println("  submit    Submit two check images to a running check-deposit API")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// runExtract runs recognition and extraction against local image files without
// touching the database or the downstream core. Useful for tuning providers.
func runExtract(log zerolog.Logger) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	frontPath := fs.String("front", "", "Path to the front image")
	backPath := fs.String("back", "", "Path to the back image")
	fs.Parse(os.Args[2:])

	if *frontPath == "" || *backPath == "" {
		log.Fatal().Msg("Usage: cli extract -front PATH -back PATH")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	client, err := recognition.NewClient(cfg.Recognition, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create recognition client")
	}

	front := mustReadFile(log, *frontPath)
	back := mustReadFile(log, *backPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := client.Recognize(ctx, front, back)
	if err != nil {
		log.Fatal().Err(err).Msg("Recognition failed")
	}

	fields := extraction.NewEngine().Extract(result)

	out := map[string]interface{}{
		"check_id":            fields.CheckID,
		"amount_raw":          fields.AmountRaw,
		"endorsement_present": fields.EndorsementPresent,
	}
	if fields.Identity != nil {
		out["identity"] = map[string]string{
			"routing_number": fields.Identity.Routing,
			"account_number": fields.Identity.Account,
			"check_number":   fields.Identity.CheckNumber,
		}
	}
	if fields.AmountRaw != nil {
		if cents, err := extraction.CanonicalizeAmount(*fields.AmountRaw); err == nil {
			out["amount"] = extraction.FormatCents(cents)
			out["amount_cents"] = cents
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode output")
	}
}

// runSubmit posts the two images to a running API instance, the same call a
// mobile client would make.
func runSubmit(log zerolog.Logger) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	frontPath := fs.String("front", "", "Path to the front image")
	backPath := fs.String("back", "", "Path to the back image")
	accountID := fs.String("account", "", "Destination internal account id")
	baseURL := fs.String("url", "http://localhost:8080", "API base URL")
	apiKey := fs.String("api-key", os.Getenv("CHECK_DEPOSIT_API_KEY"), "API key (or set CHECK_DEPOSIT_API_KEY)")
	idemKey := fs.String("idempotency-key", "", "Optional client idempotency key")
	fs.Parse(os.Args[2:])

	if *frontPath == "" || *backPath == "" || *accountID == "" {
		log.Fatal().Msg("Usage: cli submit -front PATH -back PATH -account ID [-url URL] [-api-key KEY]")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, path := range map[string]string{"front": *frontPath, "back": *backPath} {
		fw, err := mw.CreateFormFile(name, name+".jpg")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build request")
		}
		if _, err := fw.Write(mustReadFile(log, path)); err != nil {
			log.Fatal().Err(err).Msg("Failed to build request")
		}
	}
	if err := mw.WriteField("account_id", *accountID); err != nil {
		log.Fatal().Err(err).Msg("Failed to build request")
	}
	if err := mw.Close(); err != nil {
		log.Fatal().Err(err).Msg("Failed to build request")
	}

	req, err := http.NewRequest(http.MethodPost, *baseURL+"/api/v1/checks", &buf)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", *apiKey)
	if *idemKey != "" {
		req.Header.Set("Idempotency-Key", *idemKey)
	}

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	resp, err := httpClient.Do(req)
	if err != nil {
		log.Fatal().Err(err).Msg("Request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read response")
	}

	fmt.Printf("HTTP %d\n%s\n", resp.StatusCode, body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		os.Exit(1)
	}
}

func mustReadFile(log zerolog.Logger, path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read file")
	}
	return data
}
