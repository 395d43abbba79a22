package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphcore/internal/device"
	"github.com/born-ml/graphcore/internal/graph"
	"github.com/born-ml/graphcore/internal/serialization"
	"github.com/born-ml/graphcore/internal/tensor"
)

func testContext(t *testing.T) context.Context {
	return klog.NewContext(context.Background(), klog.Background().WithName(t.Name()))
}

func buildModel(t *testing.T) *graph.Function {
	t.Helper()
	x, err := graph.InputVariable(tensor.Shape{3}, tensor.Float32, "x")
	require.NoError(t, err)
	b, err := graph.Constant(tensor.Shape{3}, tensor.Float32, 2, device.CPU(), "b")
	require.NoError(t, err)
	fn, err := graph.Plus(x, b, "shift")
	require.NoError(t, err)
	return fn
}

func TestOpen(t *testing.T) {
	tests := []struct {
		uri     string
		want    Store
		wantErr bool
	}{
		{uri: "model.bgcf", want: &FileStore{Path: "model.bgcf"}},
		{uri: "/tmp/models/a.bgcf", want: &FileStore{Path: "/tmp/models/a.bgcf"}},
		{uri: "gs://bucket/models/a.bgcf", want: &GCSStore{Bucket: "bucket", Object: "models/a.bgcf"}},
		{uri: "", wantErr: true},
		{uri: "gs://bucket", wantErr: true},
		{uri: "gs://bucket/", wantErr: true},
		{uri: "gs:///object", wantErr: true},
		{uri: "s3://bucket/object", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := Open(tt.uri)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.uri, got.URI())
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	ctx := testContext(t)
	fn := buildModel(t)
	path := filepath.Join(t.TempDir(), "model.bgcf")

	require.NoError(t, Save(ctx, fn, path))
	loaded, err := Load(ctx, path, device.CPU())
	require.NoError(t, err)

	assert.Equal(t, fn.UID(), loaded.UID())
	assert.Equal(t, fn.Name(), loaded.Name())
	assert.Equal(t, fn.Output().Shape(), loaded.Output().Shape())
	require.Len(t, loaded.Arguments(), 1)
	assert.Equal(t, "x", loaded.Arguments()[0].Name())
}

func TestFilePutReplacesAtomically(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	s := &FileStore{Path: filepath.Join(dir, "model.bgcf")}

	require.NoError(t, s.Put(ctx, []byte("first")))
	require.NoError(t, s.Put(ctx, []byte("second")))

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "model.bgcf", entries[0].Name())
}

func TestFilePutMissingDirectory(t *testing.T) {
	s := &FileStore{Path: filepath.Join(t.TempDir(), "missing", "model.bgcf")}
	assert.Error(t, s.Put(testContext(t), []byte("x")))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(testContext(t), filepath.Join(t.TempDir(), "absent.bgcf"), device.CPU())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCorrupt(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "model.bgcf")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a model"), 0o644))

	_, err := Load(ctx, path, device.CPU())
	assert.ErrorIs(t, err, serialization.ErrPersistenceFormat)
}

func TestLoadUnsupportedDevice(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "model.bgcf")
	require.NoError(t, Save(ctx, buildModel(t), path))

	_, err := Load(ctx, path, device.Descriptor{Kind: tensor.Metal})
	assert.ErrorIs(t, err, device.ErrUnsupportedDevice)
}

func TestSaveInvalidURI(t *testing.T) {
	err := Save(testContext(t), buildModel(t), "s3://bucket/model")
	assert.ErrorIs(t, err, ErrInvalidURI)
}
