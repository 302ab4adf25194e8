// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package apiservice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGetDeployment(t *testing.T) {
	ctx := context.Background()
	client := emulatorClient(ctx, t)
	id := uuid.New().String()
	want := schema.Deployment{
		ID:       id,
		Repo:     "https://github.com/octocat/hello-world",
		RepoName: "hello-world",
		Status:   schema.DeploymentSucceeded,
		Image:    "us-central1-docker.pkg.dev/proj/apps/hello-world",
		Created:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Updated:  time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
	}
	if _, err := client.Collection(schema.DeploymentCollection).Doc(id).Set(ctx, want); err != nil {
		t.Fatalf("seeding record: %v", err)
	}
	deps := &GetDeploymentDeps{FirestoreClient: client}

	got, err := GetDeployment(ctx, schema.GetDeploymentRequest{ID: id}, deps)
	if err != nil {
		t.Fatalf("GetDeployment(): %v", err)
	}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("GetDeployment() mismatch (-want +got):\n%s", diff)
	}

	_, err = GetDeployment(ctx, schema.GetDeploymentRequest{ID: uuid.New().String()}, deps)
	if status.Code(err) != codes.NotFound {
		t.Errorf("GetDeployment(unknown) code = %v, want NotFound", status.Code(err))
	}
}

func TestListDeployments(t *testing.T) {
	ctx := context.Background()
	client := emulatorClient(ctx, t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 25 {
		id := uuid.New().String()
		ids = append(ids, id)
		repo := "https://github.com/octocat/hello-world"
		if i%2 == 1 {
			repo = "https://github.com/octocat/spoon-knife"
		}
		d := schema.Deployment{
			ID:      id,
			Repo:    repo,
			Status:  schema.DeploymentSucceeded,
			Created: base.Add(time.Duration(i) * time.Minute),
			Updated: base.Add(time.Duration(i) * time.Minute),
		}
		if _, err := client.Collection(schema.DeploymentCollection).Doc(id).Set(ctx, d); err != nil {
			t.Fatalf("seeding record %d: %v", i, err)
		}
	}
	deps := &ListDeploymentsDeps{FirestoreClient: client}

	t.Run("default limit", func(t *testing.T) {
		resp, err := ListDeployments(ctx, schema.ListDeploymentsRequest{}, deps)
		if err != nil {
			t.Fatalf("ListDeployments(): %v", err)
		}
		if len(resp.Deployments) != DefaultListLimit {
			t.Fatalf("got %d records, want %d", len(resp.Deployments), DefaultListLimit)
		}
		var got, want []string
		for i, d := range resp.Deployments {
			got = append(got, d.ID)
			want = append(want, ids[len(ids)-1-i])
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("newest-first order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("explicit limit", func(t *testing.T) {
		resp, err := ListDeployments(ctx, schema.ListDeploymentsRequest{Limit: 3}, deps)
		if err != nil {
			t.Fatalf("ListDeployments(): %v", err)
		}
		if len(resp.Deployments) != 3 {
			t.Fatalf("got %d records, want 3", len(resp.Deployments))
		}
	})

	t.Run("repo filter", func(t *testing.T) {
		repo := "https://github.com/octocat/spoon-knife"
		resp, err := ListDeployments(ctx, schema.ListDeploymentsRequest{Repo: repo, Limit: schema.MaxListLimit}, deps)
		if err != nil {
			t.Fatalf("ListDeployments(): %v", err)
		}
		if len(resp.Deployments) != 12 {
			t.Fatalf("got %d records, want 12", len(resp.Deployments))
		}
		for _, d := range resp.Deployments {
			if d.Repo != repo {
				t.Errorf("record %s repo = %q, want %q", d.ID, d.Repo, repo)
			}
		}
	})
}

func TestListDeploymentsRequestValidate(t *testing.T) {
	for _, tc := range []struct {
		limit   int
		wantErr bool
	}{
		{limit: 0},
		{limit: 20},
		{limit: schema.MaxListLimit},
		{limit: schema.MaxListLimit + 1, wantErr: true},
		{limit: -1, wantErr: true},
	} {
		t.Run(fmt.Sprint(tc.limit), func(t *testing.T) {
			err := schema.ListDeploymentsRequest{Limit: tc.limit}.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate(limit=%d) error = %v, wantErr %v", tc.limit, err, tc.wantErr)
			}
		})
	}
}
