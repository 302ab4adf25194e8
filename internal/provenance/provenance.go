// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package provenance builds and publishes SLSA provenance for completed
// deployments.
package provenance

import (
	"crypto"
	"encoding/json"
	"strings"

	"github.com/aboyz1/workflow/pkg/deploy/deploy"
	"github.com/in-toto/in-toto-golang/in_toto"
	"github.com/in-toto/in-toto-golang/in_toto/slsa_provenance/common"
	slsa1 "github.com/in-toto/in-toto-golang/in_toto/slsa_provenance/v1"
	"github.com/pkg/errors"
)

// ContainerDeployBuildType is the SLSA build type used for deployment attestations.
const ContainerDeployBuildType = "https://github.com/aboyz1/workflow/builds/ContainerDeploy@v0.1"

// gitDigestSet returns a DigestSet for a hex git commit hash.
func gitDigestSet(commit string) (common.DigestSet, error) {
	switch len(commit) {
	case 2 * crypto.SHA1.Size():
		return common.DigestSet{"sha1": commit}, nil
	case 2 * crypto.SHA256.Size():
		return common.DigestSet{"sha256": commit}, nil
	default:
		return nil, errors.Errorf("unsupported commit hash %q", commit)
	}
}

// DeploymentStatement creates the SLSA provenance statement for a completed
// deployment: the pushed image attested to the source commit and the staged
// archive it was built from.
func DeploymentStatement(info deploy.BuildInfo) (*in_toto.ProvenanceStatementSLSA1, error) {
	digest, ok := strings.CutPrefix(info.ImageDigest, "sha256:")
	if !ok || digest == "" {
		return nil, errors.Errorf("unsupported image digest %q", info.ImageDigest)
	}
	if info.ArchiveHash == "" {
		return nil, errors.New("missing archive hash")
	}
	commitDigest, err := gitDigestSet(info.Commit)
	if err != nil {
		return nil, err
	}
	// Empty the PullTiming and Status fields since they are superfluous to
	// downstream users.
	for _, s := range info.Steps {
		s.PullTiming = nil
		s.Status = ""
	}
	stepsBytes, err := json.Marshal(info.Steps)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling GCB steps")
	}
	return &in_toto.ProvenanceStatementSLSA1{
		StatementHeader: in_toto.StatementHeader{
			Type:          in_toto.StatementInTotoV1,
			Subject:       []in_toto.Subject{{Name: info.Image, Digest: common.DigestSet{"sha256": digest}}},
			PredicateType: slsa1.PredicateSLSAProvenance,
		},
		Predicate: slsa1.ProvenancePredicate{
			BuildDefinition: slsa1.ProvenanceBuildDefinition{
				BuildType: ContainerDeployBuildType,
				ExternalParameters: map[string]string{
					"repository": info.Source.Repo,
					"ref":        info.Source.Ref,
				},
				InternalParameters: nil,
				ResolvedDependencies: []slsa1.ResourceDescriptor{
					{Name: "git+" + info.Source.Repo, Digest: commitDigest},
					{Name: deploy.ObjectName(deploy.SourceArchiveAsset.For(info.ID)), Digest: common.DigestSet{"sha256": info.ArchiveHash}},
				},
			},
			RunDetails: slsa1.ProvenanceRunDetails{
				Builder: slsa1.Builder{ID: info.Builder},
				BuildMetadata: slsa1.BuildMetadata{
					InvocationID: info.BuildID,
					StartedOn:    &info.BuildStart,
					FinishedOn:   &info.BuildEnd,
				},
				Byproducts: []slsa1.ResourceDescriptor{
					{Name: "steps.json", Content: stepsBytes},
					{Name: "log", URI: info.LogURL},
				},
			},
		},
	}, nil
}
