// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package apiservice implements the frontdoor operations of the deployment
// service.
package apiservice

import (
	"context"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/aboyz1/workflow/internal/taskqueue"
	"github.com/aboyz1/workflow/internal/uri"
	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DeployStartedMessage acknowledges an accepted deployment request.
const DeployStartedMessage = "Deployment started via Cloud Build"

type DeployDeps struct {
	FirestoreClient *firestore.Client
	Queue           taskqueue.Queue
	BuilderURL      *url.URL
}

// Deploy accepts a deployment request, records it, and hands the build off
// to the builder's task queue. The response is returned before the build
// runs.
func Deploy(ctx context.Context, req schema.DeployRequest, deps *DeployDeps) (*schema.DeployResponse, error) {
	repo, err := uri.CanonicalizeRepoURI(req.RepositoryURL)
	if err != nil {
		return nil, api.AsStatus(codes.InvalidArgument, errors.Wrap(err, "canonicalizing repo"))
	}
	if u, err := url.Parse(repo); err != nil || u.Host != "github.com" {
		return nil, api.AsStatus(codes.InvalidArgument, errors.Errorf("unsupported repo host: %q (only github.com is supported)", repo))
	}
	name, err := uri.RepoName(repo)
	if err != nil {
		return nil, api.AsStatus(codes.InvalidArgument, errors.Wrap(err, "deriving repo name"))
	}
	id := uuid.New().String()
	now := time.Now().UTC()
	d := schema.Deployment{
		ID:       id,
		Repo:     repo,
		RepoName: name,
		Ref:      req.Ref,
		Status:   schema.DeploymentPending,
		Created:  now,
		Updated:  now,
	}
	err = deps.FirestoreClient.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		// NOTE: This would fail if the deployment already exists.
		return t.Create(deps.FirestoreClient.Collection(schema.DeploymentCollection).Doc(id), d)
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, api.AsStatus(codes.AlreadyExists, errors.Errorf("deployment %s already exists", id))
		}
		return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "creating deployment record"))
	}
	msg := schema.BuildRequest{ID: id, Repo: repo, Ref: req.Ref}
	if _, err := deps.Queue.Add(ctx, deps.BuilderURL.JoinPath("build").String(), msg); err != nil {
		return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "queueing build"))
	}
	return &schema.DeployResponse{
		Message: DeployStartedMessage,
		ID:      id,
		Repo:    repo,
	}, nil
}
