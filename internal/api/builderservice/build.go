// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package builderservice implements the build execution operations of the
// deployment service.
package builderservice

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/aboyz1/workflow/internal/gcb"
	"github.com/aboyz1/workflow/internal/gitx"
	"github.com/aboyz1/workflow/internal/provenance"
	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/archive"
	"github.com/aboyz1/workflow/pkg/deploy/deploy"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/pkg/errors"
	"google.golang.org/api/cloudbuild/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Failure reasons recorded on the deployment.
const (
	CloneFailedMessage       = "Cloning repository failed"
	DockerfileMissingMessage = "Dockerfile not found in repository root"
	BadManifestMessage       = "Invalid deploy.toml manifest"
)

// buildWaitSlack bounds how long we wait beyond the build's own timeout,
// covering queueing and worker provisioning.
const buildWaitSlack = 30 * time.Minute

type BuildDeps struct {
	FirestoreClient *firestore.Client
	GCBClient       gcb.Client
	Clone           gitx.CloneFunc
	AssetStore      deploy.LocatableAssetStore
	// ImageBase carries the registry host, project, and repository; the
	// image name and tag are filled in per deployment.
	ImageBase           deploy.Image
	BuildProject        string
	BuildServiceAccount string
	LogsBucket          string
	BuildTimeout        time.Duration
	// BuilderID identifies this executor in build metadata and provenance.
	BuilderID string
	// Attestor publishes signed provenance when configured. Optional.
	Attestor *provenance.Attestor
}

// deployFailure marks an error whose cause lies with the deployment rather
// than the service. Failures are recorded on the record and acknowledged so
// the queue does not redeliver; any other error propagates as a 5xx.
type deployFailure struct {
	reason string
	err    error
}

func (f *deployFailure) Error() string { return f.err.Error() }
func (f *deployFailure) Unwrap() error { return f.err }

func failDeployment(err error, reason string) error {
	return &deployFailure{reason: reason, err: err}
}

// Build executes the pipeline for a queued deployment: fetch the source,
// package it into the staging bucket, run the container build, and record
// the outcome.
func Build(ctx context.Context, req schema.BuildRequest, deps *BuildDeps) (*schema.BuildResponse, error) {
	docRef := deps.FirestoreClient.Collection(schema.DeploymentCollection).Doc(req.ID)
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, api.AsStatus(codes.NotFound, errors.Errorf("deployment %s not found", req.ID))
		}
		return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "fetching deployment record"))
	}
	var d schema.Deployment
	if err := doc.DataTo(&d); err != nil {
		return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "parsing deployment record"))
	}
	// NOTE: Cloud Tasks redelivers tasks whose response was lost; a terminal
	// record must not build twice.
	if d.Status.Terminal() {
		return response(&d), nil
	}
	d.ExecutorVersion = os.Getenv("K_REVISION")
	persist := func(s schema.DeploymentStatus) error {
		d.Status = s
		d.Updated = time.Now().UTC()
		_, err := docRef.Set(ctx, d)
		return errors.Wrapf(err, "recording status %s", s)
	}
	err = execute(ctx, &d, persist, deps)
	var failure *deployFailure
	switch {
	case stderrors.As(err, &failure):
		log.Printf("deployment %s failed: %v", d.ID, err)
		d.Message = failure.reason
		if err := persist(schema.DeploymentFailed); err != nil {
			return nil, api.AsStatus(codes.Internal, err)
		}
	case err != nil:
		return nil, api.AsStatus(codes.Internal, err)
	default:
		if err := persist(schema.DeploymentSucceeded); err != nil {
			return nil, api.AsStatus(codes.Internal, err)
		}
	}
	return response(&d), nil
}

func response(d *schema.Deployment) *schema.BuildResponse {
	return &schema.BuildResponse{
		ID:          d.ID,
		Status:      d.Status,
		BuildID:     d.BuildID,
		Image:       d.Image,
		ImageDigest: d.ImageDigest,
		LogURL:      d.LogURL,
		Message:     d.Message,
	}
}

func execute(ctx context.Context, d *schema.Deployment, persist func(schema.DeploymentStatus) error, deps *BuildDeps) error {
	// Fetch
	if err := persist(schema.DeploymentFetching); err != nil {
		return err
	}
	fetchStart := time.Now()
	tmp, err := os.MkdirTemp("", "deploy-"+d.ID+"-*")
	if err != nil {
		return errors.Wrap(err, "creating temp dir")
	}
	defer os.RemoveAll(tmp)
	worktree := osfs.New(tmp)
	opts := &gitx.RepositoryOptions{
		Storer:   filesystem.NewStorage(osfs.New(filepath.Join(tmp, ".git")), cache.NewObjectLRUDefault()),
		Worktree: worktree,
	}
	_, commit, err := deploy.FetchSource(ctx, deps.Clone, opts, deploy.Source{Repo: d.Repo, Ref: d.Ref})
	if err != nil {
		return failDeployment(err, CloneFailedMessage)
	}
	d.Commit = commit
	d.Timings.Fetch = time.Since(fetchStart)
	m, err := deploy.ReadManifest(worktree)
	if err != nil {
		return failDeployment(err, BadManifestMessage)
	}
	if _, err := worktree.Stat(m.DockerfilePath()); errors.Is(err, fs.ErrNotExist) {
		return failDeployment(err, DockerfileMissingMessage)
	} else if err != nil {
		return errors.Wrap(err, "checking build file")
	}

	// Package
	if err := persist(schema.DeploymentPackaging); err != nil {
		return err
	}
	packStart := time.Now()
	asset := deploy.SourceArchiveAsset.For(d.ID)
	w, err := deps.AssetStore.Writer(ctx, asset)
	if err != nil {
		return errors.Wrap(err, "creating archive writer")
	}
	digest := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(w, digest))
	cs, err := archive.PackFS(worktree, zw, ".git")
	if err != nil {
		w.Close()
		return errors.Wrap(err, "packing worktree")
	}
	if err := zw.Close(); err != nil {
		w.Close()
		return errors.Wrap(err, "finalizing archive")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "uploading archive")
	}
	d.ArchiveDigest = hex.EncodeToString(digest.Sum(nil))
	d.FileCount = cs.FileCount()
	d.Timings.Pack = time.Since(packStart)

	// Build
	if err := persist(schema.DeploymentBuilding); err != nil {
		return err
	}
	buildStart := time.Now()
	img := deps.ImageBase
	img.Name = d.RepoName
	if m.Image.Name != "" {
		img.Name = m.Image.Name
	}
	img.Tag = d.ID
	timeout := deps.BuildTimeout
	if t := m.BuildTimeout(); t > 0 {
		timeout = t
	}
	archiveURL := deps.AssetStore.URL(asset)
	build := deploy.MakeBuild(deploy.BuildPlan{
		SourceBucket:   archiveURL.Host,
		SourceObject:   strings.TrimPrefix(archiveURL.Path, "/"),
		Image:          img,
		Dockerfile:     m.DockerfilePath(),
		LogsBucket:     deps.LogsBucket,
		ServiceAccount: deps.BuildServiceAccount,
		MachineType:    m.Build.MachineType,
		Timeout:        timeout,
	})
	op, created, err := gcb.StartBuild(ctx, deps.GCBClient, deps.BuildProject, build)
	if err != nil {
		return errors.Wrap(err, "starting build")
	}
	d.BuildID = created.Id
	d.LogURL = created.LogUrl
	d.Image = img.Ref()
	if err := persist(schema.DeploymentBuilding); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout+buildWaitSlack)
	defer cancel()
	final, err := gcb.WaitForBuild(waitCtx, deps.GCBClient, op, gcb.WaitForBuildOpts{TerminateOnTimeout: true})
	if err != nil {
		return errors.Wrap(err, "waiting for build")
	}
	if err := gcb.ToError(final); err != nil {
		return failDeployment(err, err.Error())
	}
	d.ImageDigest = imageDigest(final, img.Ref())
	d.Timings.Build = time.Since(buildStart)

	info := deploy.BuildInfo{
		ID:          d.ID,
		Source:      deploy.Source{Repo: d.Repo, Ref: d.Ref},
		Commit:      d.Commit,
		Builder:     deps.BuilderID,
		BuildID:     d.BuildID,
		LogURL:      d.LogURL,
		ArchiveHash: d.ArchiveDigest,
		Image:       d.Image,
		ImageDigest: d.ImageDigest,
		BuildStart:  parseBuildTime(final.StartTime),
		BuildEnd:    parseBuildTime(final.FinishTime),
		Steps:       final.Steps,
	}
	iw, err := deps.AssetStore.Writer(ctx, deploy.BuildInfoAsset.For(d.ID))
	if err != nil {
		return errors.Wrap(err, "creating build info writer")
	}
	if err := json.NewEncoder(iw).Encode(info); err != nil {
		iw.Close()
		return errors.Wrap(err, "writing build info")
	}
	if err := iw.Close(); err != nil {
		return errors.Wrap(err, "uploading build info")
	}
	if deps.Attestor != nil {
		stmt, err := provenance.DeploymentStatement(info)
		if err != nil {
			return errors.Wrap(err, "creating provenance statement")
		}
		if err := deps.Attestor.PublishBundle(ctx, d.ID, stmt); err != nil {
			return errors.Wrap(err, "publishing provenance")
		}
	}
	return nil
}

// imageDigest extracts the pushed image digest from build results.
func imageDigest(b *cloudbuild.Build, ref string) string {
	if b.Results == nil {
		return ""
	}
	for _, img := range b.Results.Images {
		if img.Name == ref {
			return img.Digest
		}
	}
	if len(b.Results.Images) > 0 {
		return b.Results.Images[0].Digest
	}
	return ""
}

func parseBuildTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
