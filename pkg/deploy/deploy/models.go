// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package deploy contains the core types and operations of the deployment pipeline.
package deploy

import (
	"fmt"
	"time"
)

// Image identifies a container image in Artifact Registry.
type Image struct {
	// Host is the registry host (e.g. "us-central1-docker.pkg.dev").
	Host string
	// Project is the GCP project containing the registry.
	Project string
	// Repository is the Artifact Registry repository name.
	Repository string
	// Name is the image name, derived from the source repo unless overridden.
	Name string
	// Tag is the image tag. For deployments this is the request ID.
	Tag string
}

// URI returns the image URI without the tag.
func (i Image) URI() string {
	return fmt.Sprintf("%s/%s/%s/%s", i.Host, i.Project, i.Repository, i.Name)
}

// Ref returns the fully tagged image reference.
func (i Image) Ref() string {
	return i.URI() + ":" + i.Tag
}

// ImageHost returns the Artifact Registry docker host for a region.
func ImageHost(region string) string {
	return region + "-docker.pkg.dev"
}

// Source identifies the git source of a deployment.
type Source struct {
	// Repo is the canonicalized repository URI.
	Repo string
	// Ref is the branch, tag, or commit to deploy. Empty means the default branch.
	Ref string
}

// Timings describe how long the phases of a deployment took.
type Timings struct {
	Fetch time.Duration
	Pack  time.Duration
	Build time.Duration
}

func (t Timings) Total() time.Duration {
	return t.Fetch + t.Pack + t.Build
}
