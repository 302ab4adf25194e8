// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/aboyz1/workflow/internal/gitx"
	"github.com/pkg/errors"
)

// ErrRefNotFound indicates the requested ref does not exist on the remote.
var ErrRefNotFound = errors.New("ref not found on remote")

// ResolveRef determines whether ref names a branch or a tag on the remote.
func ResolveRef(ctx context.Context, repo, ref string) (plumbing.ReferenceName, error) {
	rem := git.NewRemote(nil, &config.RemoteConfig{URLs: []string{repo}})
	refs, err := rem.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", errors.Wrap(err, "listing remote refs")
	}
	branch, tag := plumbing.NewBranchReferenceName(ref), plumbing.NewTagReferenceName(ref)
	var foundTag bool
	for _, r := range refs {
		switch r.Name() {
		case branch:
			return branch, nil
		case tag:
			foundTag = true
		}
	}
	if foundTag {
		return tag, nil
	}
	return "", errors.Wrapf(ErrRefNotFound, "ref %q", ref)
}

// FetchSource clones the deployment source and checks out the requested ref.
//
// An empty ref clones the default branch, a 40-char hex ref is treated as a
// commit and requires a full clone, and anything else is resolved against the
// remote as a branch or tag and fetched with a shallow single-branch clone.
// The resolved commit hash is returned alongside the repository.
func FetchSource(ctx context.Context, clone gitx.CloneFunc, opts *gitx.RepositoryOptions, src Source) (*git.Repository, string, error) {
	if opts == nil {
		opts = &gitx.RepositoryOptions{}
	}
	if opts.Storer == nil {
		opts.Storer = memory.NewStorage()
	}
	if opts.Worktree == nil {
		opts.Worktree = memfs.New()
	}
	var repo *git.Repository
	var err error
	switch {
	case src.Ref == "":
		repo, err = clone(ctx, opts.Storer, opts.Worktree, &git.CloneOptions{URL: src.Repo, Depth: 1})
		if err != nil {
			return nil, "", errors.Wrap(err, "cloning default branch")
		}
	case plumbing.IsHash(src.Ref):
		// Commits can sit arbitrarily deep in history so a shallow clone is not an option.
		repo, err = clone(ctx, opts.Storer, opts.Worktree, &git.CloneOptions{URL: src.Repo})
		if err != nil {
			return nil, "", errors.Wrap(err, "cloning for commit")
		}
		wt, err := repo.Worktree()
		if err != nil {
			return nil, "", errors.Wrap(err, "getting worktree")
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(src.Ref), Force: true}); err != nil {
			return nil, "", errors.Wrapf(err, "checking out commit %s", src.Ref)
		}
		return repo, src.Ref, nil
	default:
		refName, err := ResolveRef(ctx, src.Repo, src.Ref)
		if err != nil {
			return nil, "", err
		}
		repo, err = clone(ctx, opts.Storer, opts.Worktree, &git.CloneOptions{
			URL:           src.Repo,
			ReferenceName: refName,
			SingleBranch:  true,
			Depth:         1,
		})
		if err != nil {
			return nil, "", errors.Wrapf(err, "cloning %s", refName.Short())
		}
	}
	head, err := repo.Head()
	if err != nil {
		return nil, "", errors.Wrap(err, "resolving HEAD")
	}
	return repo, head.Hash().String(), nil
}
