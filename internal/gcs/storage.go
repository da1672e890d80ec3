// Package gcs reads audit inputs from and writes report artifacts to Google
// Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// StorageService abstracts the GCS operations the pipeline needs, so tests
// can substitute a fake.
type StorageService interface {
	FetchURI(ctx context.Context, gcsURI string) ([]byte, error)
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error
}

// IsURI reports whether a configured input path points at GCS rather than
// the local filesystem.
func IsURI(p string) bool {
	return strings.HasPrefix(p, "gs://")
}

// FilenameFromURI extracts the filename from a GCS URI.
// e.g. "gs://bucket/folder/file.csv" becomes "file.csv".
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// Service is the concrete StorageService backed by Google Cloud Storage.
// It assumes Application Default Credentials are configured.
type Service struct{}

// NewService creates a new Service.
func NewService() *Service {
	return &Service{}
}

// FetchURI downloads the object bytes behind a gs:// URI.
func (s *Service) FetchURI(ctx context.Context, gcsURI string) ([]byte, error) {
	if !IsURI(gcsURI) {
		return nil, fmt.Errorf("FetchURI: invalid GCS URI: %s", gcsURI)
	}

	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("FetchURI: invalid GCS URI (no object path): %s", gcsURI)
	}

	bucketName := parts[0]
	objectPath := parts[1]

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchURI: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchURI: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("FetchURI: reading bytes: %w", err)
	}

	return data, nil
}

// UploadFile uploads a local file to a GCS bucket under the given object
// name.
func (s *Service) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("UploadFile: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadFile: copy file to GCS writer: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalize upload: %w", err)
	}

	return nil
}

var _ StorageService = (*Service)(nil)
