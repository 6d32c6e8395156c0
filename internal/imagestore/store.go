package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/check-deposit/internal/config"
)

// Store archives check images to a GCS bucket. Archival is best-effort:
// callers log failures and keep going, because the ledger write has already
// happened by the time images are archived.
type Store struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
}

// New creates the archive store. Returns nil when no bucket is configured,
// which disables archival entirely.
func New(ctx context.Context, cfg config.ArchiveConfig, log zerolog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("imagestore: create storage client: %w", err)
	}

	return &Store{client: client, bucket: cfg.Bucket, log: log}, nil
}

// ArchiveCheck uploads the front and back images for a processed check under
// a date-partitioned prefix keyed by the check submission id.
func (s *Store) ArchiveCheck(ctx context.Context, submissionID string, front, back []byte) error {
	prefix := fmt.Sprintf("checks/%s/%s", time.Now().Format("2006/01/02"), submissionID)

	if err := s.upload(ctx, prefix+"-front", front); err != nil {
		return fmt.Errorf("imagestore: archive front image: %w", err)
	}
	if err := s.upload(ctx, prefix+"-back", back); err != nil {
		return fmt.Errorf("imagestore: archive back image: %w", err)
	}

	s.log.Info().
		Str("submission_id", submissionID).
		Str("prefix", prefix).
		Msg("Check images archived")

	return nil
}

func (s *Store) upload(ctx context.Context, objectName string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "image/jpeg"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Close releases the underlying storage client.
func (s *Store) Close() error {
	return s.client.Close()
}
