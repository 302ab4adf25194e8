// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package apiservice

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/pkg/errors"
)

// GitHubPushToDeployRequest translates a GitHub push event payload into a
// DeployRequest. Only pushes to the repository default branch deploy; the
// pushed head commit becomes the requested ref.
func GitHubPushToDeployRequest(body io.ReadCloser) (schema.DeployRequest, error) {
	var event schema.GitHubPushEvent
	{
		if err := json.NewDecoder(body).Decode(&event); err != nil {
			return schema.DeployRequest{}, errors.Wrap(err, "decoding push event")
		}
		if err := body.Close(); err != nil {
			return schema.DeployRequest{}, errors.Wrap(err, "closing request body")
		}
	}
	if event.Deleted {
		return schema.DeployRequest{}, errors.New("ignoring ref deletion")
	}
	if event.Repository.HTMLURL == "" {
		return schema.DeployRequest{}, errors.New("push event missing repository url")
	}
	if event.Ref != "refs/heads/"+event.Repository.DefaultBranch {
		return schema.DeployRequest{}, errors.Errorf("ignoring push to %s: not the default branch", event.Ref)
	}
	return schema.DeployRequest{
		RepositoryURL: event.Repository.HTMLURL,
		Ref:           event.After,
	}, nil
}

// VerifyGitHubSignature wraps h with GitHub webhook signature verification.
// Requests whose X-Hub-Signature-256 header does not carry the HMAC-SHA256
// of the body under secret are rejected with 401.
func VerifyGitHubSignature(secret []byte, h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Println(errors.Wrap(err, "reading webhook body"))
			http.Error(rw, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		r.Body.Close()
		mac := hmac.New(sha256.New, secret)
		mac.Write(body)
		want := hex.EncodeToString(mac.Sum(nil))
		got := strings.TrimPrefix(r.Header.Get("X-Hub-Signature-256"), "sha256=")
		if got == "" || !hmac.Equal([]byte(got), []byte(want)) {
			log.Println("rejecting webhook: signature mismatch")
			http.Error(rw, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		h(rw, r)
	}
}
