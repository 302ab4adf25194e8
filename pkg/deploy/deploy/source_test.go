// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/aboyz1/workflow/internal/gitx"
	"github.com/aboyz1/workflow/internal/gitx/gitxtest"
	"github.com/pkg/errors"
)

// Commit order matters: go-git moves the checked-out branch on every commit,
// so the default branch commit must come last for master to land on it.
const sourceRepoYAML = `
commits:
  - id: initial
    branch: master
    message: "Initial commit"
    tag: v1.0.0
    files:
      Dockerfile: "FROM python:3.12"
      README.md: "v1"
  - id: feature
    parent: initial
    branch: feature
    message: "Feature commit"
    files:
      README.md: "feature work"
  - id: second
    parent: initial
    branch: master
    message: "Second commit"
    files:
      README.md: "v2"
`

// setupUpstream creates a local repo reachable over file:// and returns its
// URL with the commit ID to hash mapping.
func setupUpstream(t *testing.T) (string, *gitxtest.Repository) {
	t.Helper()
	upstreamFS := osfs.New(t.TempDir())
	repo, err := gitxtest.CreateRepoFromYAML(sourceRepoYAML, &gitxtest.RepositoryOptions{
		Storer:   filesystem.NewStorage(upstreamFS, cache.NewObjectLRUDefault()),
		Worktree: upstreamFS,
	})
	if err != nil {
		t.Fatalf("creating upstream repo: %v", err)
	}
	return "file://" + upstreamFS.Root(), repo
}

func diskRepositoryOptions(t *testing.T) *gitx.RepositoryOptions {
	t.Helper()
	return &gitx.RepositoryOptions{
		Storer:   filesystem.NewStorage(osfs.New(t.TempDir()), cache.NewObjectLRUDefault()),
		Worktree: osfs.New(t.TempDir()),
	}
}

func readWorktreeFile(t *testing.T, repo *git.Repository, name string) string {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("getting worktree: %v", err)
	}
	f, err := wt.Filesystem.Open(name)
	if err != nil {
		t.Fatalf("opening %s: %v", name, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(b)
}

func TestFetchSourceDefaultBranch(t *testing.T) {
	if !gitx.NativeGitAvailable() {
		t.Skip("native git not available")
	}
	url, upstream := setupUpstream(t)
	repo, commit, err := FetchSource(context.Background(), gitx.Clone, diskRepositoryOptions(t), Source{Repo: url})
	if err != nil {
		t.Fatalf("FetchSource() = %v, want nil", err)
	}
	if want := upstream.Commits["second"].String(); commit != want {
		t.Errorf("commit = %s, want %s", commit, want)
	}
	if got := readWorktreeFile(t, repo, "README.md"); got != "v2" {
		t.Errorf("README.md = %q, want %q", got, "v2")
	}
}

func TestFetchSourceBranch(t *testing.T) {
	if !gitx.NativeGitAvailable() {
		t.Skip("native git not available")
	}
	url, upstream := setupUpstream(t)
	repo, commit, err := FetchSource(context.Background(), gitx.Clone, diskRepositoryOptions(t), Source{Repo: url, Ref: "feature"})
	if err != nil {
		t.Fatalf("FetchSource() = %v, want nil", err)
	}
	if want := upstream.Commits["feature"].String(); commit != want {
		t.Errorf("commit = %s, want %s", commit, want)
	}
	if got := readWorktreeFile(t, repo, "README.md"); got != "feature work" {
		t.Errorf("README.md = %q, want %q", got, "feature work")
	}
}

func TestFetchSourceTag(t *testing.T) {
	if !gitx.NativeGitAvailable() {
		t.Skip("native git not available")
	}
	url, upstream := setupUpstream(t)
	repo, commit, err := FetchSource(context.Background(), gitx.Clone, diskRepositoryOptions(t), Source{Repo: url, Ref: "v1.0.0"})
	if err != nil {
		t.Fatalf("FetchSource() = %v, want nil", err)
	}
	if want := upstream.Commits["initial"].String(); commit != want {
		t.Errorf("commit = %s, want %s", commit, want)
	}
	if got := readWorktreeFile(t, repo, "README.md"); got != "v1" {
		t.Errorf("README.md = %q, want %q", got, "v1")
	}
}

func TestFetchSourceCommit(t *testing.T) {
	if !gitx.NativeGitAvailable() {
		t.Skip("native git not available")
	}
	url, upstream := setupUpstream(t)
	sha := upstream.Commits["initial"].String()
	repo, commit, err := FetchSource(context.Background(), gitx.Clone, diskRepositoryOptions(t), Source{Repo: url, Ref: sha})
	if err != nil {
		t.Fatalf("FetchSource() = %v, want nil", err)
	}
	if commit != sha {
		t.Errorf("commit = %s, want %s", commit, sha)
	}
	if got := readWorktreeFile(t, repo, "README.md"); got != "v1" {
		t.Errorf("README.md = %q, want %q", got, "v1")
	}
}

func TestFetchSourceRefNotFound(t *testing.T) {
	if !gitx.NativeGitAvailable() {
		t.Skip("native git not available")
	}
	url, _ := setupUpstream(t)
	_, _, err := FetchSource(context.Background(), gitx.Clone, diskRepositoryOptions(t), Source{Repo: url, Ref: "does-not-exist"})
	if !errors.Is(err, ErrRefNotFound) {
		t.Errorf("FetchSource() = %v, want ErrRefNotFound", err)
	}
}
