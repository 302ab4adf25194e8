// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package provenance

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aboyz1/workflow/pkg/deploy/deploy"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/google/go-cmp/cmp"
	"github.com/in-toto/in-toto-golang/in_toto"
	"github.com/in-toto/in-toto-golang/in_toto/slsa_provenance/common"
	slsa1 "github.com/in-toto/in-toto-golang/in_toto/slsa_provenance/v1"
	"github.com/secure-systems-lab/go-securesystemslib/dsse"
	"google.golang.org/api/cloudbuild/v1"
)

type FakeSigner struct{}

func (FakeSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return []byte("just trust me"), nil
}
func (FakeSigner) KeyID() (string, error) {
	return "fake", nil
}

func testBuildInfo() deploy.BuildInfo {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return deploy.BuildInfo{
		ID:          "4f9f5e9e-8c3a-4b62-9a3f-0e2b9a3d1c11",
		Source:      deploy.Source{Repo: "https://github.com/octocat/hello-world", Ref: "main"},
		Commit:      "e83c5163316f89bfbde7d9ab23ca2e25604af290",
		Builder:     "https://builder.example.run.app",
		BuildID:     "build-id",
		LogURL:      "https://console.cloud.google.com/build/build-id",
		ArchiveHash: strings.Repeat("ab", 32),
		Image:       "us-central1-docker.pkg.dev/proj/apps/hello-world:4f9f5e9e-8c3a-4b62-9a3f-0e2b9a3d1c11",
		ImageDigest: "sha256:" + strings.Repeat("cd", 32),
		BuildStart:  start,
		BuildEnd:    start.Add(2 * time.Minute),
		Steps: []*cloudbuild.BuildStep{
			{Name: "gcr.io/cloud-builders/docker", Args: []string{"build", "-t", "img", "."}, Status: "SUCCESS"},
		},
	}
}

func TestDeploymentStatement(t *testing.T) {
	info := testBuildInfo()
	stmt, err := DeploymentStatement(info)
	if err != nil {
		t.Fatalf("DeploymentStatement(): %v", err)
	}
	wantSubject := []in_toto.Subject{{
		Name:   info.Image,
		Digest: common.DigestSet{"sha256": strings.Repeat("cd", 32)},
	}}
	if diff := cmp.Diff(wantSubject, stmt.Subject); diff != "" {
		t.Errorf("Subject diff (-want +got):\n%s", diff)
	}
	if stmt.PredicateType != slsa1.PredicateSLSAProvenance {
		t.Errorf("PredicateType = %q", stmt.PredicateType)
	}
	if got := stmt.Predicate.BuildDefinition.BuildType; got != ContainerDeployBuildType {
		t.Errorf("BuildType = %q", got)
	}
	wantDeps := []slsa1.ResourceDescriptor{
		{Name: "git+https://github.com/octocat/hello-world", Digest: common.DigestSet{"sha1": info.Commit}},
		{Name: "source/4f9f5e9e-8c3a-4b62-9a3f-0e2b9a3d1c11.zip", Digest: common.DigestSet{"sha256": info.ArchiveHash}},
	}
	if diff := cmp.Diff(wantDeps, stmt.Predicate.BuildDefinition.ResolvedDependencies); diff != "" {
		t.Errorf("ResolvedDependencies diff (-want +got):\n%s", diff)
	}
	if got := stmt.Predicate.RunDetails.Builder.ID; got != info.Builder {
		t.Errorf("Builder.ID = %q, want %q", got, info.Builder)
	}
	if got := stmt.Predicate.RunDetails.BuildMetadata.InvocationID; got != "build-id" {
		t.Errorf("InvocationID = %q, want build-id", got)
	}
	// Step status is scrubbed from the byproduct steps.
	for _, bp := range stmt.Predicate.RunDetails.Byproducts {
		if bp.Name == "steps.json" && strings.Contains(string(bp.Content), "SUCCESS") {
			t.Errorf("steps.json retains step status: %s", bp.Content)
		}
	}
}

func TestDeploymentStatementRejectsBadInputs(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*deploy.BuildInfo)
	}{
		{name: "missing image digest", mutate: func(i *deploy.BuildInfo) { i.ImageDigest = "" }},
		{name: "non-sha256 image digest", mutate: func(i *deploy.BuildInfo) { i.ImageDigest = "md5:abcd" }},
		{name: "missing archive hash", mutate: func(i *deploy.BuildInfo) { i.ArchiveHash = "" }},
		{name: "bad commit", mutate: func(i *deploy.BuildInfo) { i.Commit = "HEAD" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			info := testBuildInfo()
			tc.mutate(&info)
			if _, err := DeploymentStatement(info); err == nil {
				t.Errorf("DeploymentStatement() expected error, got nil")
			}
		})
	}
}

func TestAttestorPublishBundle(t *testing.T) {
	ctx := context.Background()
	store := deploy.NewFilesystemAssetStore(memfs.New())
	signer, err := dsse.NewEnvelopeSigner(&FakeSigner{})
	if err != nil {
		t.Fatalf("NewEnvelopeSigner(): %v", err)
	}
	a := Attestor{Store: store, Signer: InTotoEnvelopeSigner{EnvelopeSigner: signer}}
	info := testBuildInfo()
	stmt, err := DeploymentStatement(info)
	if err != nil {
		t.Fatalf("DeploymentStatement(): %v", err)
	}

	if exists, err := a.BundleExists(ctx, info.ID); err != nil || exists {
		t.Fatalf("BundleExists() = %v, %v before publish", exists, err)
	}
	if err := a.PublishBundle(ctx, info.ID, stmt); err != nil {
		t.Fatalf("PublishBundle(): %v", err)
	}
	if exists, err := a.BundleExists(ctx, info.ID); err != nil || !exists {
		t.Fatalf("BundleExists() = %v, %v after publish", exists, err)
	}

	r, err := store.Reader(ctx, deploy.ProvenanceAsset.For(info.ID))
	if err != nil {
		t.Fatalf("Reader(): %v", err)
	}
	defer r.Close()
	var envelopes []dsse.Envelope
	d := json.NewDecoder(r)
	for d.More() {
		var e dsse.Envelope
		if err := d.Decode(&e); err != nil {
			t.Fatalf("decoding envelope: %v", err)
		}
		envelopes = append(envelopes, e)
	}
	if len(envelopes) != 1 {
		t.Fatalf("bundle contains %d envelopes, want 1", len(envelopes))
	}
	if envelopes[0].PayloadType != in_toto.StatementInTotoV1 {
		t.Errorf("PayloadType = %q", envelopes[0].PayloadType)
	}
	payload, err := base64.StdEncoding.DecodeString(envelopes[0].Payload)
	if err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	var got in_toto.ProvenanceStatementSLSA1
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshalling payload: %v", err)
	}
	if got.Subject[0].Name != info.Image {
		t.Errorf("payload subject = %q, want %q", got.Subject[0].Name, info.Image)
	}

	// A second publish must not clobber the bundle unless permitted.
	if err := a.PublishBundle(ctx, info.ID, stmt); err == nil {
		t.Error("PublishBundle() succeeded over an existing bundle")
	} else if !strings.Contains(err.Error(), "bundle already exists") {
		t.Errorf("PublishBundle() error = %v", err)
	}
	a.AllowOverwrite = true
	if err := a.PublishBundle(ctx, info.ID, stmt); err != nil {
		t.Errorf("PublishBundle() with AllowOverwrite: %v", err)
	}
}
