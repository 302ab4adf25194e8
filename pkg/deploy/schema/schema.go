// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the wire types and stored records of the deployment
// service.
package schema

import (
	"time"

	"github.com/aboyz1/workflow/pkg/act"
	"github.com/aboyz1/workflow/pkg/deploy/deploy"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type VersionRequest struct {
	Service string `form:","`
}

var _ act.Input = VersionRequest{}

func (VersionRequest) Validate() error { return nil }

type VersionResponse struct {
	Version string
}

// DeployRequest asks the service to build and push a repository.
type DeployRequest struct {
	// RepositoryURL is the GitHub repository to deploy.
	RepositoryURL string `form:"repository_url,required"`
	// Ref optionally names a branch, tag, or full commit SHA.
	// Empty deploys the default branch.
	Ref string `form:"ref"`
}

var _ act.Input = DeployRequest{}

func (r DeployRequest) Validate() error {
	if r.RepositoryURL == "" {
		return errors.New("repository_url must not be empty")
	}
	return nil
}

// DeployResponse acknowledges a deployment before the build runs.
type DeployResponse struct {
	Message string `json:"message"`
	ID      string `json:"request_id"`
	Repo    string `json:"repo"`
}

// BuildRequest is the queue message from the api service to the builder.
type BuildRequest struct {
	ID   string `form:"id,required"`
	Repo string `form:"repo,required"`
	Ref  string `form:"ref"`
}

var _ act.Input = BuildRequest{}

func (r BuildRequest) Validate() error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return errors.Wrap(err, "parsing id")
	}
	return nil
}

// BuildResponse reports the outcome of a builder run.
type BuildResponse struct {
	ID          string           `json:"id"`
	Status      DeploymentStatus `json:"status"`
	BuildID     string           `json:"build_id,omitempty"`
	Image       string           `json:"image,omitempty"`
	ImageDigest string           `json:"image_digest,omitempty"`
	LogURL      string           `json:"log_url,omitempty"`
	Message     string           `json:"message,omitempty"`
}

type GetDeploymentRequest struct {
	ID string `form:"id,required"`
}

var _ act.Input = GetDeploymentRequest{}

func (r GetDeploymentRequest) Validate() error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return errors.Wrap(err, "parsing id")
	}
	return nil
}

// MaxListLimit bounds the page size of ListDeployments.
const MaxListLimit = 100

type ListDeploymentsRequest struct {
	// Repo filters to deployments of one canonical repo URL. Optional.
	Repo string `form:"repo"`
	// Limit caps the number of records returned. Zero applies the default.
	Limit int `form:"limit"`
}

var _ act.Input = ListDeploymentsRequest{}

func (r ListDeploymentsRequest) Validate() error {
	if r.Limit < 0 || r.Limit > MaxListLimit {
		return errors.Errorf("limit must be between 0 and %d", MaxListLimit)
	}
	return nil
}

type ListDeploymentsResponse struct {
	Deployments []Deployment
}

// DeploymentStatus tracks a deployment through its pipeline phases.
type DeploymentStatus string

const (
	DeploymentPending   DeploymentStatus = "pending"
	DeploymentFetching  DeploymentStatus = "fetching"
	DeploymentPackaging DeploymentStatus = "packaging"
	DeploymentBuilding  DeploymentStatus = "building"
	DeploymentSucceeded DeploymentStatus = "succeeded"
	DeploymentFailed    DeploymentStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s DeploymentStatus) Terminal() bool {
	return s == DeploymentSucceeded || s == DeploymentFailed
}

// DeploymentCollection is the Firestore collection holding deployment records.
const DeploymentCollection = "deployments"

// Deployment stores the state of a single deployment request. The document
// ID is the request ID.
type Deployment struct {
	ID              string           `firestore:"id,omitempty"`
	Repo            string           `firestore:"repo,omitempty"`
	RepoName        string           `firestore:"repo_name,omitempty"`
	Ref             string           `firestore:"ref,omitempty"`
	Commit          string           `firestore:"commit,omitempty"`
	Status          DeploymentStatus `firestore:"status,omitempty"`
	Message         string           `firestore:"message,omitempty"`
	Image           string           `firestore:"image,omitempty"`
	ImageDigest     string           `firestore:"image_digest,omitempty"`
	ArchiveDigest   string           `firestore:"archive_digest,omitempty"`
	FileCount       int              `firestore:"file_count,omitempty"`
	BuildID         string           `firestore:"build_id,omitempty"`
	LogURL          string           `firestore:"log_url,omitempty"`
	Timings         deploy.Timings   `firestore:"timings,omitempty"`
	ExecutorVersion string           `firestore:"executor_version,omitempty"`
	Created         time.Time        `firestore:"created,omitempty"`
	Updated         time.Time        `firestore:"updated,omitempty"`
}
