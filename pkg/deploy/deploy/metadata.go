// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"time"

	"google.golang.org/api/cloudbuild/v1"
)

// BuildInfo summarizes a completed remote container build.
type BuildInfo struct {
	// ID is the deployment request ID.
	ID      string
	Source  Source
	Commit  string
	Builder string
	BuildID string
	LogURL  string
	// ArchiveHash is the hex sha256 of the uploaded source archive.
	ArchiveHash string
	Image       string
	ImageDigest string
	BuildStart  time.Time
	BuildEnd    time.Time
	Steps       []*cloudbuild.BuildStep
}
