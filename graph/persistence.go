// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"context"

	"github.com/born-ml/graphcore/internal/serialization"
	"github.com/born-ml/graphcore/internal/store"
)

// Save serializes fn, its parameters and its constants.
func Save(fn *Function) ([]byte, error) {
	return serialization.Save(fn)
}

// Load rebuilds a Function saved with Save, placing its values on dev.
func Load(data []byte, dev DeviceDescriptor) (*Function, error) {
	return serialization.Load(data, dev)
}

// SaveFile writes fn to path.
func SaveFile(fn *Function, path string) error {
	return serialization.SaveFile(fn, path)
}

// LoadFile reads a Function from path.
func LoadFile(path string, dev DeviceDescriptor) (*Function, error) {
	return serialization.LoadFile(path, dev)
}

// SaveURI writes fn to a local path or a gs://bucket/object URI.
func SaveURI(ctx context.Context, fn *Function, uri string) error {
	return store.Save(ctx, fn, uri)
}

// LoadURI reads a Function from a local path or a gs://bucket/object URI.
func LoadURI(ctx context.Context, uri string, dev DeviceDescriptor) (*Function, error) {
	return store.Load(ctx, uri, dev)
}
