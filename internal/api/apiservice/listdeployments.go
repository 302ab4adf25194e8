// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package apiservice

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
)

// DefaultListLimit is the page size applied when the request leaves Limit unset.
const DefaultListLimit = 20

type ListDeploymentsDeps struct {
	FirestoreClient *firestore.Client
}

// ListDeployments returns the most recent deployment records, newest first.
func ListDeployments(ctx context.Context, req schema.ListDeploymentsRequest, deps *ListDeploymentsDeps) (*schema.ListDeploymentsResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	q := deps.FirestoreClient.Collection(schema.DeploymentCollection).Query
	if req.Repo != "" {
		q = q.Where("repo", "==", req.Repo)
	}
	q = q.OrderBy("created", firestore.Desc).Limit(limit)
	iter := q.Documents(ctx)
	defer iter.Stop()
	resp := schema.ListDeploymentsResponse{Deployments: []schema.Deployment{}}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "iterating deployment records"))
		}
		var d schema.Deployment
		if err := doc.DataTo(&d); err != nil {
			return nil, api.AsStatus(codes.Internal, errors.Wrap(err, "parsing deployment record"))
		}
		resp.Deployments = append(resp.Deployments, d)
	}
	return &resp, nil
}
