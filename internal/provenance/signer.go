// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package provenance

import (
	"context"
	"encoding/json"

	"github.com/in-toto/in-toto-golang/in_toto"
	"github.com/pkg/errors"
	"github.com/secure-systems-lab/go-securesystemslib/dsse"
)

// InTotoEnvelopeSigner is a wrapper around dsse.EnvelopeSigner that implements
// a higher-level signing operation for in-toto statements.
type InTotoEnvelopeSigner struct {
	*dsse.EnvelopeSigner
}

// SignStatement produces a DSSE Envelope for the provided provenance statement.
func (signer *InTotoEnvelopeSigner) SignStatement(ctx context.Context, s *in_toto.ProvenanceStatementSLSA1) (*dsse.Envelope, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling statement")
	}
	envelope, err := signer.SignPayload(ctx, s.StatementHeader.Type, b)
	if err != nil {
		return nil, errors.Wrap(err, "signing payload")
	}
	return envelope, nil
}
