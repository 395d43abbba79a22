package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"k8s.io/klog/v2"
)

// GCSStore keeps a model in a Cloud Storage object.
type GCSStore struct {
	Bucket string
	Object string
}

var _ Store = (*GCSStore)(nil)

// URI returns the gs://bucket/object form of the location.
func (s *GCSStore) URI() string { return gcsScheme + s.Bucket + "/" + s.Object }

// Get downloads the object. A missing object or bucket reports
// os.ErrNotExist.
func (s *GCSStore) Get(ctx context.Context) ([]byte, error) {
	log := klog.FromContext(ctx)
	gcsURL := s.URI()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS storage client: %w", err)
	}
	defer client.Close()

	log.Info("downloading model from GCS", "url", gcsURL)

	startedAt := time.Now()
	r, err := client.Bucket(s.Bucket).Object(s.Object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("object %q: %w", gcsURL, os.ErrNotExist)
		}
		return nil, fmt.Errorf("opening object from GCS %q: %w", gcsURL, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("downloading from GCS: %w", err)
	}

	log.Info("downloaded model from GCS", "url", gcsURL, "bytes", len(data), "duration", time.Since(startedAt))
	return data, nil
}

// Put uploads data to the object. Cloud Storage finalizes the object only
// when the writer closes successfully, so a failed upload leaves the
// previous object intact.
func (s *GCSStore) Put(ctx context.Context, data []byte) error {
	log := klog.FromContext(ctx)
	gcsURL := s.URI()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating GCS storage client: %w", err)
	}
	defer client.Close()

	log.Info("uploading model to GCS", "url", gcsURL, "bytes", len(data))

	startedAt := time.Now()
	w := client.Bucket(s.Bucket).Object(s.Object).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("uploading to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing GCS writer: %w", err)
	}

	log.Info("uploaded model to GCS", "url", gcsURL, "duration", time.Since(startedAt))
	return nil
}
