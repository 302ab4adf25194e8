// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package provenance

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/aboyz1/workflow/pkg/deploy/deploy"
	"github.com/in-toto/in-toto-golang/in_toto"
	"github.com/pkg/errors"
)

// Attestor signs and publishes provenance bundles for deployments.
type Attestor struct {
	Store          deploy.AssetStore
	Signer         InTotoEnvelopeSigner
	AllowOverwrite bool
}

// BundleExists returns whether a provenance bundle was already published for
// the deployment.
func (a Attestor) BundleExists(ctx context.Context, id string) (bool, error) {
	r, err := a.Store.Reader(ctx, deploy.ProvenanceAsset.For(id))
	if errors.Is(err, deploy.ErrAssetNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	} else {
		defer r.Close()
		return true, nil
	}
}

// PublishBundle signs and publishes a provenance bundle, one DSSE envelope
// per line.
func (a Attestor) PublishBundle(ctx context.Context, id string, stmts ...*in_toto.ProvenanceStatementSLSA1) error {
	if exists, err := a.BundleExists(ctx, id); err != nil {
		return errors.Wrap(err, "checking for existing bundle")
	} else if exists && !a.AllowOverwrite {
		return errors.New("bundle already exists")
	}
	bundle := bytes.NewBuffer(nil)
	e := json.NewEncoder(bundle)
	for _, stmt := range stmts {
		envelope, err := a.Signer.SignStatement(ctx, stmt)
		if err != nil {
			return errors.Wrap(err, "signing attestation")
		}
		if err := e.Encode(envelope); err != nil {
			return errors.Wrap(err, "marshalling DSSE")
		}
	}
	w, err := a.Store.Writer(ctx, deploy.ProvenanceAsset.For(id))
	if err != nil {
		return errors.Wrap(err, "creating writer for bundle")
	}
	if _, err := io.Copy(w, bundle); err != nil {
		return errors.Wrap(err, "uploading bundle")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "closing bundle upload")
	}
	return nil
}
