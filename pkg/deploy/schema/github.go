// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package schema

// GitHubPushEvent represents a subset of the GitHub push webhook payload.
// Fields are based on the push event:
// https://docs.github.com/en/webhooks/webhook-events-and-payloads#push
type GitHubPushEvent struct {
	Ref        string           `json:"ref"`     // The full ref that was pushed (e.g. "refs/heads/main")
	After      string           `json:"after"`   // The SHA of the head commit after the push
	Deleted    bool             `json:"deleted"` // Whether the push deleted the ref
	Repository GitHubRepository `json:"repository"`
}

// GitHubRepository is the repository block of a webhook payload.
type GitHubRepository struct {
	HTMLURL       string `json:"html_url"`       // The repository URL
	DefaultBranch string `json:"default_branch"` // The repository default branch (e.g. "main")
}
