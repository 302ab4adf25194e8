// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// main contains the deployment frontdoor, which accepts deployment requests
// and hands the build work to the builder service via Cloud Tasks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	"github.com/aboyz1/workflow/internal/api/apiservice"
	"github.com/aboyz1/workflow/internal/gcb"
	"github.com/aboyz1/workflow/internal/taskqueue"
	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"
)

var (
	project        = flag.String("project", "", "GCP Project ID for deployment records")
	builderURL     = flag.String("builder-url", "", "URL of the builder service")
	taskQueuePath  = flag.String("task-queue", "", "Resource name of the Cloud Tasks queue for build tasks")
	taskQueueEmail = flag.String("task-queue-email", "", "Service account email used to authenticate build tasks")
	logsBucket     = flag.String("logs-bucket", "", "GCS bucket holding Cloud Build logs")
	port           = flag.Int("port", 8080, "port on which to serve")
)

func DeployInit(ctx context.Context) (*apiservice.DeployDeps, error) {
	var d apiservice.DeployDeps
	var err error
	d.FirestoreClient, err = firestore.NewClient(ctx, *project)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}
	d.Queue, err = taskqueue.NewQueue(ctx, *taskQueuePath, *taskQueueEmail)
	if err != nil {
		return nil, errors.Wrap(err, "creating task queue")
	}
	d.BuilderURL, err = url.Parse(*builderURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing builder URL")
	}
	return &d, nil
}

func GetDeploymentInit(ctx context.Context) (*apiservice.GetDeploymentDeps, error) {
	var d apiservice.GetDeploymentDeps
	var err error
	d.FirestoreClient, err = firestore.NewClient(ctx, *project)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}
	return &d, nil
}

func ListDeploymentsInit(ctx context.Context) (*apiservice.ListDeploymentsDeps, error) {
	var d apiservice.ListDeploymentsDeps
	var err error
	d.FirestoreClient, err = firestore.NewClient(ctx, *project)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}
	return &d, nil
}

func VersionInit(ctx context.Context) (*apiservice.VersionDeps, error) {
	var d apiservice.VersionDeps
	client, err := idtoken.NewClient(ctx, *builderURL)
	if err != nil {
		return nil, errors.Wrap(err, "creating id client")
	}
	u, err := url.Parse(*builderURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing builder URL")
	}
	d.BuilderVersionStub = api.Stub[schema.VersionRequest, schema.VersionResponse](client, u.JoinPath("version"))
	return &d, nil
}

func BuildLogsInit(ctx context.Context) (*apiservice.BuildLogsDeps, error) {
	var d apiservice.BuildLogsDeps
	var err error
	d.FirestoreClient, err = firestore.NewClient(ctx, *project)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}
	gcsClient, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating GCS client")
	}
	d.LogsClient = gcb.NewGCSLogsClient(gcsClient, *logsBucket)
	return &d, nil
}

func main() {
	flag.Parse()
	http.HandleFunc("/deploy", api.Handler(DeployInit, apiservice.Deploy))
	http.HandleFunc("/status", api.Handler(GetDeploymentInit, apiservice.GetDeployment))
	http.HandleFunc("/list", api.Handler(ListDeploymentsInit, apiservice.ListDeployments))
	http.HandleFunc("/version", api.Handler(VersionInit, apiservice.Version))
	http.HandleFunc("/logs", apiservice.BuildLogsHandler(BuildLogsInit))
	webhook := api.Translate(apiservice.GitHubPushToDeployRequest, api.Handler(DeployInit, apiservice.Deploy))
	if secret := os.Getenv("GITHUB_WEBHOOK_SECRET"); secret != "" {
		webhook = apiservice.VerifyGitHubSignature([]byte(secret), webhook)
	} else {
		log.Println("GITHUB_WEBHOOK_SECRET unset, accepting unsigned webhooks")
	}
	http.HandleFunc("/webhook/github", webhook)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), nil); err != nil {
		log.Fatalln(err)
	}
}
