// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package archive provides archive packing and inspection for deployment sources.
package archive

// ContentSummary is a summary of the files captured in a source archive.
type ContentSummary struct {
	Files      []string
	FileHashes []string
	TotalSize  int64
}

// FileCount returns the number of files in the archive.
func (cs *ContentSummary) FileCount() int {
	return len(cs.Files)
}
