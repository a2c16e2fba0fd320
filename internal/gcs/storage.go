// Package gcs archives raw statement documents in Google Cloud Storage and
// fetches them back for extraction workers.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// Upload streams r into gs://bucket/object and returns the bytes written.
// Application Default Credentials are assumed.
func Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (int64, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return 0, fmt.Errorf("upload: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	written, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("upload: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("upload: finalize: %w", err)
	}
	return written, nil
}

// Fetch downloads the object bytes behind a gs:// URI.
func Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := splitURI(gcsURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading bytes: %w", err)
	}
	return data, nil
}

// URI builds a gs:// URI.
func URI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// FilenameFromURI extracts the filename from a GCS URI.
// e.g. "gs://bucket/folder/file.pdf" → "file.pdf".
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

func splitURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}
