// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/born-ml/graphcore/internal/device"
	"github.com/born-ml/graphcore/internal/eval"
	"github.com/born-ml/graphcore/internal/ops"
	"github.com/born-ml/graphcore/internal/serialization"
	"github.com/born-ml/graphcore/internal/value"
)

// Errors returned by graphcore. Test with errors.Is.
var (
	ErrShapeMismatch     = value.ErrShapeMismatch
	ErrDataTypeMismatch  = value.ErrDataTypeMismatch
	ErrUnsupportedDevice = device.ErrUnsupportedDevice
	ErrUnboundInput      = eval.ErrUnboundInput
	ErrUnknownOutput     = eval.ErrUnknownOutput
	ErrDeviceMismatch    = eval.ErrDeviceMismatch
	ErrUnknownOp         = ops.ErrUnknownOp
	ErrPersistenceFormat = serialization.ErrPersistenceFormat
)
