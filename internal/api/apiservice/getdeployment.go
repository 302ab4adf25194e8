// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package apiservice

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type GetDeploymentDeps struct {
	FirestoreClient *firestore.Client
}

// GetDeployment fetches a single deployment record by request ID.
func GetDeployment(ctx context.Context, req schema.GetDeploymentRequest, deps *GetDeploymentDeps) (*schema.Deployment, error) {
	doc, err := deps.FirestoreClient.Collection(schema.DeploymentCollection).Doc(req.ID).Get(ctx)
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
	return &d, nil
}
