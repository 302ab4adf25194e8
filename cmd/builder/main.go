// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// main contains the builder, which executes queued deployments via GCB.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	kms "cloud.google.com/go/kms/apiv1"
	"github.com/aboyz1/workflow/internal/api/builderservice"
	"github.com/aboyz1/workflow/internal/gcb"
	"github.com/aboyz1/workflow/internal/gitx"
	"github.com/aboyz1/workflow/internal/provenance"
	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/deploy/deploy"
	"github.com/aboyz1/workflow/pkg/kmsdsse"
	"github.com/pkg/errors"
	"github.com/secure-systems-lab/go-securesystemslib/dsse"
	"google.golang.org/api/cloudbuild/v1"
)

var (
	project              = flag.String("project", "", "GCP Project ID for storage and build resources")
	buildServiceAccount  = flag.String("build-service-account", "", "Identity from which to run Cloud Build")
	stagingBucket        = flag.String("staging-bucket", "", "GCS bucket for staged source archives and build metadata")
	logsBucket           = flag.String("logs-bucket", "", "GCS bucket for Cloud Build logs")
	region               = flag.String("region", "us-central1", "Artifact Registry region for built images")
	registryRepo         = flag.String("registry-repo", "", "Artifact Registry repository for built images")
	buildTimeout         = flag.Duration("build-timeout", 20*time.Minute, "default Cloud Build timeout, overridable per repo")
	signingKeyVersion    = flag.String("signing-key-version", "", "Resource name of the signing CryptoKeyVersion")
	overwriteProvenance  = flag.Bool("overwrite-provenance", false, "whether to overwrite existing provenance when writing to GCS")
	gcbPrivatePoolName   = flag.String("gcb-private-pool-name", "", "Resource name of GCB private pool to use, if configured")
	gcbPrivatePoolRegion = flag.String("gcb-private-pool-region", "", "GCP location to use for GCB private pool builds, if configured")
	port                 = flag.Int("port", 8080, "port on which to serve")
)

func BuildInit(ctx context.Context) (*builderservice.BuildDeps, error) {
	var d builderservice.BuildDeps
	var err error
	d.FirestoreClient, err = firestore.NewClient(ctx, *project)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}
	svc, err := cloudbuild.NewService(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating CloudBuild service")
	}
	if *gcbPrivatePoolName != "" {
		d.GCBClient = gcb.NewClientWithPrivatePool(svc, &gcb.PrivatePoolConfig{
			Name:   *gcbPrivatePoolName,
			Region: *gcbPrivatePoolRegion,
		})
	} else {
		d.GCBClient = gcb.NewClient(svc)
	}
	d.Clone = gitx.Clone
	store, err := deploy.NewGCSStore(ctx, "gs://"+*stagingBucket)
	if err != nil {
		return nil, errors.Wrap(err, "creating asset store")
	}
	d.AssetStore = store
	d.ImageBase = deploy.Image{
		Host:       deploy.ImageHost(*region),
		Project:    *project,
		Repository: *registryRepo,
	}
	d.BuildProject = *project
	d.BuildServiceAccount = *buildServiceAccount
	d.LogsBucket = *logsBucket
	d.BuildTimeout = *buildTimeout
	d.BuilderID = fmt.Sprintf("%s@%s", os.Getenv("K_SERVICE"), os.Getenv("K_REVISION"))
	if *signingKeyVersion != "" {
		kmsClient, err := kms.NewKeyManagementClient(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "creating KMS client")
		}
		signerVerifier, err := kmsdsse.NewCloudKMSSignerVerifier(ctx, kmsClient, *signingKeyVersion)
		if err != nil {
			return nil, errors.Wrap(err, "creating signer/verifier")
		}
		signer, err := dsse.NewEnvelopeSigner(signerVerifier)
		if err != nil {
			return nil, errors.Wrap(err, "creating envelope signer")
		}
		d.Attestor = &provenance.Attestor{
			Store:          store,
			Signer:         provenance.InTotoEnvelopeSigner{EnvelopeSigner: signer},
			AllowOverwrite: *overwriteProvenance,
		}
	}
	return &d, nil
}

func main() {
	flag.Parse()
	http.HandleFunc("/build", api.Handler(BuildInit, builderservice.Build))
	http.HandleFunc("/version", api.Handler(api.NoDepsInit, builderservice.Version))
	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), nil); err != nil {
		log.Fatalln(err)
	}
}
