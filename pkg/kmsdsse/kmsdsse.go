// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package kmsdsse

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"regexp"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/pkg/errors"
	"github.com/secure-systems-lab/go-securesystemslib/dsse"
)

// keyNameRegex matches a fully qualified KMS crypto key version resource name.
var keyNameRegex = regexp.MustCompile(`^projects/[^/]+/locations/[^/]+/keyRings/[^/]+/cryptoKeys/[^/]+/cryptoKeyVersions/[0-9]+$`)

type CloudKMSSignerVerifier struct {
	client  *kms.KeyManagementClient
	keyName string
	pubpb   *kmspb.PublicKey
	pub     crypto.PublicKey
}

func NewCloudKMSSignerVerifier(ctx context.Context, c *kms.KeyManagementClient, keyName string) (*CloudKMSSignerVerifier, error) {
	if !keyNameRegex.MatchString(keyName) {
		return nil, errors.Errorf("invalid crypto key version name: %s", keyName)
	}
	req := &kmspb.GetPublicKeyRequest{
		Name: keyName,
	}
	pubpb, err := c.GetPublicKey(ctx, req)
	if err != nil {
		return nil, err
	}
	blk, _ := pem.Decode([]byte(pubpb.Pem))
	if blk == nil || blk.Bytes == nil {
		return nil, errors.New("failed to decode PEM public key")
	}
	pub, err := x509.ParsePKIXPublicKey(blk.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse PEM public key")
	}
	return &CloudKMSSignerVerifier{c, keyName, pubpb, pub}, nil
}

func (s *CloudKMSSignerVerifier) Public() crypto.PublicKey {
	return s.pub
}

func (s *CloudKMSSignerVerifier) Sign(ctx context.Context, data []byte) ([]byte, error) {
	// NOTE: We could pass Digest here instead to shrink the RPC size.
	req := &kmspb.AsymmetricSignRequest{
		Name: s.keyName,
		Data: data,
	}
	resp, err := s.client.AsymmetricSign(ctx, req)
	if err != nil {
		return []byte{}, err
	}
	return resp.Signature, nil
}

func (s *CloudKMSSignerVerifier) Verify(ctx context.Context, data, sig []byte) error {
	switch s.pubpb.Algorithm {
	case kmspb.CryptoKeyVersion_EC_SIGN_P256_SHA256:
		h := sha256.New()
		ecKey, ok := s.pub.(*ecdsa.PublicKey)
		if !ok {
			return errors.New("unexpected public key type")
		}
		h.Write(data)
		if !ecdsa.VerifyASN1(ecKey, h.Sum(nil), sig) {
			return errors.New("signature verification failed")
		}
		return nil
	// TODO: Support more key types as necessary.
	default:
		return errors.New("unsupported key type")
	}
}

func (s CloudKMSSignerVerifier) KeyID() (string, error) {
	return s.keyName, nil
}

var _ dsse.SignerVerifier = (*CloudKMSSignerVerifier)(nil)
