// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package gitxtest constructs throwaway git repositories for tests.
package gitxtest

import (
	"bytes"
	"io"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Commit describes one commit in a repository spec.
type Commit struct {
	ID      string            `yaml:"id"`
	Message string            `yaml:"message"`
	Author  string            `yaml:"author,omitempty"`
	Parent  string            `yaml:"parent,omitempty"`
	Parents []string          `yaml:"parents,omitempty"`
	Branch  string            `yaml:"branch,omitempty"`
	Tag     string            `yaml:"tag,omitempty"`
	Files   map[string]string `yaml:"files,omitempty"`
}

// History is the full commit history for a repository spec.
type History struct {
	Commits []Commit `yaml:"commits"`
}

// Repository wraps a constructed repo with a commit ID to hash mapping.
type Repository struct {
	*git.Repository
	Commits map[string]plumbing.Hash
}

// RepositoryOptions configures the storage and worktree for constructed repositories.
type RepositoryOptions struct {
	Storer   storage.Storer
	Worktree billy.Filesystem
}

// CreateRepoFromYAML builds a repository from a YAML history spec.
func CreateRepoFromYAML(content string, opts *RepositoryOptions) (*Repository, error) {
	var history History
	d := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	d.KnownFields(true) // Fail on unknown fields
	if err := d.Decode(&history); err != nil {
		return nil, err
	}
	return CreateRepo(history.Commits, opts)
}

// CreateRepo builds a repository from a sequence of commit specs.
func CreateRepo(commits []Commit, opts *RepositoryOptions) (*Repository, error) {
	var repo Repository
	var err error
	var s storage.Storer
	if opts != nil && opts.Storer != nil {
		s = opts.Storer
	} else {
		s = memory.NewStorage()
	}
	var wfs billy.Filesystem
	if opts != nil && opts.Worktree != nil {
		wfs = opts.Worktree
	} else {
		wfs = memfs.New()
	}
	repo.Repository, err = git.Init(s, wfs)
	if err != nil {
		return nil, errors.Wrap(err, "initializing repo")
	}
	w, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "accessing worktree")
	}
	repo.Commits = make(map[string]plumbing.Hash)
	for _, c := range commits {
		if err := createFiles(w, c.Files); err != nil {
			return nil, errors.Wrap(err, "creating files")
		}
		var parents []plumbing.Hash
		if len(c.Parents) > 0 {
			for _, parentID := range c.Parents {
				parents = append(parents, repo.Commits[parentID])
			}
		} else if c.Parent != "" {
			parents = append(parents, repo.Commits[c.Parent])
		}
		author := "Place Holder"
		if c.Author != "" {
			author = c.Author
		}
		commitHash, err := w.Commit(c.Message, &git.CommitOptions{
			Author:            &object.Signature{Name: author},
			AllowEmptyCommits: true,
			Parents:           parents,
		})
		if err != nil {
			return nil, errors.Wrap(err, "creating commit")
		}
		repo.Commits[c.ID] = commitHash
		if c.Branch != "" {
			if _, err := repo.Branch(c.Branch); err == git.ErrBranchNotFound {
				if err := repo.CreateBranch(&config.Branch{Name: c.Branch}); err != nil {
					return nil, errors.Wrap(err, "creating branch")
				}
			} else if err != nil {
				return nil, errors.Wrap(err, "getting branch")
			}
			err = repo.Storer.SetReference(
				plumbing.NewHashReference(plumbing.NewBranchReferenceName(c.Branch), commitHash))
			if err != nil {
				return nil, errors.Wrap(err, "setting branch")
			}
		}
		if c.Tag != "" {
			if _, err := repo.CreateTag(c.Tag, commitHash, nil); err != nil {
				return nil, errors.Wrap(err, "creating tag")
			}
		}
	}
	return &repo, nil
}

func createFiles(w *git.Worktree, files map[string]string) error {
	for name, content := range files {
		if err := w.Filesystem.MkdirAll(path.Dir(name), 0755); err != nil {
			return err
		}
		f, err := w.Filesystem.Create(name)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(f, content); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		if _, err := w.Add(name); err != nil {
			return err
		}
	}
	return nil
}
