// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aboyz1/workflow/pkg/act/cli"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/google/uuid"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				API:  "http://test",
				Repo: "https://github.com/octocat/hello-world",
			},
			wantErr: false,
		},
		{
			name: "missing api",
			cfg: Config{
				Repo: "https://github.com/octocat/hello-world",
			},
			wantErr: true,
		},
		{
			name: "missing repo",
			cfg: Config{
				API: "http://test",
			},
			wantErr: true,
		},
		{
			name: "not a repo url",
			cfg: Config{
				API:  "http://test",
				Repo: "https://example.com/not-a-forge",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	repo := "https://github.com/octocat/hello-world"
	id := uuid.New().String()
	image := "us-central1-docker.pkg.dev/test-project/apps/hello-world:" + id
	tests := []struct {
		name    string
		cfg     Config
		final   schema.Deployment
		wantErr bool
		wantOut []string
	}{
		{
			name:    "fire and forget",
			cfg:     Config{Repo: repo},
			wantOut: []string{"Deployment " + id + " started"},
		},
		{
			name: "watch until success",
			cfg:  Config{Repo: repo, Watch: true},
			final: schema.Deployment{
				ID:          id,
				Repo:        repo,
				Status:      schema.DeploymentSucceeded,
				Image:       image,
				ImageDigest: "sha256:" + strings.Repeat("cd", 32),
			},
			wantOut: []string{"SUCCEEDED:", image, "digest: sha256:"},
		},
		{
			name: "watch until failure",
			cfg:  Config{Repo: repo, Watch: true},
			final: schema.Deployment{
				ID:      id,
				Repo:    repo,
				Status:  schema.DeploymentFailed,
				Message: "failed to clone repository",
			},
			wantErr: true,
			wantOut: []string{"FAILED:", "failed to clone repository"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/deploy", func(w http.ResponseWriter, r *http.Request) {
				r.ParseForm()
				if got := r.Form.Get("repository_url"); got != repo {
					t.Errorf("deploy request repository_url = %q, want %q", got, repo)
				}
				json.NewEncoder(w).Encode(schema.DeployResponse{Message: "deployment queued", ID: id, Repo: repo})
			})
			mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
				r.ParseForm()
				if got := r.Form.Get("id"); got != id {
					t.Errorf("status request id = %q, want %q", got, id)
				}
				json.NewEncoder(w).Encode(tt.final)
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()
			tt.cfg.API = srv.URL
			var out, errOut bytes.Buffer
			deps := &Deps{IO: cli.IO{Out: &out, Err: &errOut}}
			_, err := Handler(context.Background(), tt.cfg, deps)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handler() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}
