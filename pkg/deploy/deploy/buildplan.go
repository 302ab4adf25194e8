// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"time"

	"google.golang.org/api/cloudbuild/v1"
)

// DefaultDockerfile is the build file expected at the source tree root.
const DefaultDockerfile = "Dockerfile"

// BuildPlan is the configuration used to assemble a Cloud Build request.
type BuildPlan struct {
	// SourceBucket and SourceObject locate the uploaded source archive.
	SourceBucket string
	SourceObject string
	// Image is the image built and pushed by the plan.
	Image Image
	// Dockerfile is the build file path within the source tree.
	// Defaults to DefaultDockerfile.
	Dockerfile string
	// LogsBucket receives the build logs. Optional.
	LogsBucket string
	// ServiceAccount runs the build in place of the project default. Optional.
	ServiceAccount string
	// MachineType selects a non-default worker size. Optional.
	MachineType string
	// Timeout bounds the build duration. Optional.
	Timeout time.Duration
}

// MakeBuild assembles the Cloud Build request that builds and pushes the
// plan's image from its source archive.
func MakeBuild(p BuildPlan) *cloudbuild.Build {
	ref := p.Image.Ref()
	buildArgs := []string{"build", "-t", ref}
	if p.Dockerfile != "" && p.Dockerfile != DefaultDockerfile {
		buildArgs = append(buildArgs, "-f", p.Dockerfile)
	}
	buildArgs = append(buildArgs, ".")
	build := &cloudbuild.Build{
		Source: &cloudbuild.Source{
			StorageSource: &cloudbuild.StorageSource{
				Bucket: p.SourceBucket,
				Object: p.SourceObject,
			},
		},
		Steps: []*cloudbuild.BuildStep{
			{
				Name: "gcr.io/cloud-builders/docker",
				Args: buildArgs,
			},
			{
				Name: "gcr.io/cloud-builders/docker",
				Args: []string{"push", ref},
			},
		},
		Images:         []string{ref},
		LogsBucket:     p.LogsBucket,
		ServiceAccount: p.ServiceAccount,
	}
	if p.LogsBucket != "" {
		build.Options = &cloudbuild.BuildOptions{Logging: "GCS_ONLY"}
	}
	if p.MachineType != "" {
		if build.Options == nil {
			build.Options = &cloudbuild.BuildOptions{}
		}
		build.Options.MachineType = p.MachineType
	}
	if p.Timeout > 0 {
		build.Timeout = fmt.Sprintf("%ds", int64(p.Timeout.Seconds()))
	}
	return build
}
