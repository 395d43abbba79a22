// Package store moves serialized models between processes: local files and
// Google Cloud Storage objects addressed by gs:// URIs.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/graphcore/internal/device"
	"github.com/born-ml/graphcore/internal/graph"
	"github.com/born-ml/graphcore/internal/serialization"
	"k8s.io/klog/v2"
)

// ErrInvalidURI is returned for URIs that cannot name a model location.
var ErrInvalidURI = errors.New("store: invalid uri")

// Store reads and writes one serialized model.
type Store interface {
	// Get returns the stored bytes. If nothing is stored, the error satisfies
	// errors.Is(err, os.ErrNotExist).
	Get(ctx context.Context) ([]byte, error)
	// Put replaces the stored bytes.
	Put(ctx context.Context, data []byte) error
	// URI returns the location this store addresses.
	URI() string
}

const gcsScheme = "gs://"

// Open returns the store addressed by uri. gs://bucket/object URIs map to
// Cloud Storage, anything else is treated as a local path.
func Open(uri string) (Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURI)
	}
	if rest, ok := strings.CutPrefix(uri, gcsScheme); ok {
		bucket, object, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || object == "" {
			return nil, fmt.Errorf("%w: %q must have the form gs://bucket/object", ErrInvalidURI, uri)
		}
		return &GCSStore{Bucket: bucket, Object: object}, nil
	}
	if strings.Contains(uri, "://") {
		return nil, fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidURI, uri)
	}
	return &FileStore{Path: uri}, nil
}

// Save serializes fn and writes it to uri.
func Save(ctx context.Context, fn *graph.Function, uri string) error {
	log := klog.FromContext(ctx)

	if fn == nil {
		return fmt.Errorf("%w: nil function", graph.ErrNilVariable)
	}
	s, err := Open(uri)
	if err != nil {
		return err
	}
	data, err := serialization.Save(fn)
	if err != nil {
		return fmt.Errorf("serializing %q: %w", fn.Name(), err)
	}
	if err := s.Put(ctx, data); err != nil {
		return fmt.Errorf("writing model to %q: %w", uri, err)
	}
	log.V(2).Info("saved model", "uri", uri, "function", fn.Name(), "bytes", len(data))
	return nil
}

// Load reads the model at uri and rebuilds it on dev.
func Load(ctx context.Context, uri string, dev device.Descriptor) (*graph.Function, error) {
	log := klog.FromContext(ctx)

	if err := device.Check(dev); err != nil {
		return nil, err
	}
	s, err := Open(uri)
	if err != nil {
		return nil, err
	}
	data, err := s.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading model from %q: %w", uri, err)
	}
	fn, err := serialization.Load(data, dev)
	if err != nil {
		return nil, fmt.Errorf("loading model from %q: %w", uri, err)
	}
	log.V(2).Info("loaded model", "uri", uri, "function", fn.Name(), "bytes", len(data))
	return fn, nil
}
