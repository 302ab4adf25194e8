// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package deploy

type ctxKey int

const (
	// GCSClientOptionsID carries []option.ClientOption applied when
	// constructing GCS clients. Used to stub out storage in tests.
	GCSClientOptionsID ctxKey = iota
)
