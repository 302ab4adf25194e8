// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package apiservice

import (
	"io"
	"log"
	"net/http"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	"github.com/aboyz1/workflow/internal/gcb"
	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type BuildLogsDeps struct {
	FirestoreClient *firestore.Client
	LogsClient      gcb.LogsClient
}

// BuildLogsHandler streams the merged Cloud Build log of a deployment.
//
// This is a raw handler rather than an action: the log is served as plain
// text of unbounded size, not a JSON response.
func BuildLogsHandler(initDeps api.InitDeps[*BuildLogsDeps]) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := r.URL.Query().Get("id")
		if _, err := uuid.Parse(id); err != nil {
			http.Error(rw, "invalid deployment id", http.StatusBadRequest)
			return
		}
		deps, err := initDeps(ctx)
		if err != nil {
			log.Println(errors.Wrap(err, "initializing dependencies"))
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		doc, err := deps.FirestoreClient.Collection(schema.DeploymentCollection).Doc(id).Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				http.Error(rw, "deployment not found", http.StatusNotFound)
				return
			}
			log.Println(errors.Wrap(err, "fetching deployment record"))
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		var d schema.Deployment
		if err := doc.DataTo(&d); err != nil {
			log.Println(errors.Wrap(err, "parsing deployment record"))
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if d.BuildID == "" {
			http.Error(rw, "no build started for deployment", http.StatusNotFound)
			return
		}
		lr, err := deps.LogsClient.ReadBuildLogs(ctx, d.BuildID)
		if err != nil {
			if errors.Is(err, gcs.ErrObjectNotExist) {
				http.Error(rw, "build logs not yet available", http.StatusNotFound)
				return
			}
			log.Println(errors.Wrap(err, "opening build logs"))
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer lr.Close()
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := io.Copy(rw, lr); err != nil {
			log.Println(errors.Wrap(err, "streaming build logs"))
		}
	}
}
