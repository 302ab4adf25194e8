// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// AssetType is the type of an artifact stored for a deployment.
type AssetType string

func (a AssetType) For(id string) Asset {
	return Asset{Type: a, ID: id}
}

const (
	// SourceArchiveAsset is the zipped source tree submitted to Cloud Build.
	SourceArchiveAsset AssetType = "source"
	// BuildInfoAsset is the serialized BuildInfo summarizing the remote build.
	BuildInfoAsset AssetType = "info"
	// ProvenanceAsset is the signed provenance bundle for a completed deployment.
	ProvenanceAsset AssetType = "provenance"
)

var (
	// ErrAssetNotFound indicates the asset requested to be read could not be found.
	ErrAssetNotFound = errors.New("asset not found")
)

// Asset represents one artifact of a single deployment.
type Asset struct {
	Type AssetType
	ID   string
}

// assetPath describes the layout of assets shared by hierarchy-based AssetStore types.
func assetPath(a Asset) []string {
	switch a.Type {
	case SourceArchiveAsset:
		return []string{"source", a.ID + ".zip"}
	case BuildInfoAsset:
		return []string{"info", a.ID + ".json"}
	case ProvenanceAsset:
		return []string{"provenance", a.ID + ".intoto.jsonl"}
	default:
		return []string{string(a.Type), a.ID}
	}
}

// ObjectName returns the canonical object name of an asset relative to the store root.
func ObjectName(a Asset) string {
	return path.Join(assetPath(a)...)
}

// ReadOnlyAssetStore is a read-only storage mechanism for deployment assets.
type ReadOnlyAssetStore interface {
	Reader(ctx context.Context, a Asset) (io.ReadCloser, error)
}

// AssetStore is a storage mechanism for deployment assets.
type AssetStore interface {
	ReadOnlyAssetStore
	Writer(ctx context.Context, a Asset) (io.WriteCloser, error)
}

// LocatableAssetStore is an asset store whose assets can be identified with a URL.
type LocatableAssetStore interface {
	AssetStore
	URL(a Asset) *url.URL
}

// AssetCopy copies an asset from one store to another.
func AssetCopy(ctx context.Context, to AssetStore, from ReadOnlyAssetStore, a Asset) error {
	r, err := from.Reader(ctx, a)
	if err != nil {
		return errors.Wrap(err, "from.Reader failed")
	}
	defer r.Close()
	w, err := to.Writer(ctx, a)
	if err != nil {
		return errors.Wrap(err, "to.Writer failed")
	}
	defer w.Close()
	if _, err := io.Copy(w, r); err != nil {
		return errors.Wrap(err, "copy failed")
	}
	return w.Close()
}

// GCSStore is an asset store backed by GCS.
type GCSStore struct {
	gcsClient *gcs.Client
	bucket    string
	prefix    string
}

// NewGCSStore creates a new GCSStore rooted at the given gs://bucket[/prefix] path.
func NewGCSStore(ctx context.Context, uploadPrefix string) (*GCSStore, error) {
	s := &GCSStore{}
	{
		var err error
		var gcsOpts []option.ClientOption
		if opts, ok := ctx.Value(GCSClientOptionsID).([]option.ClientOption); ok {
			gcsOpts = append(gcsOpts, opts...)
		}
		s.gcsClient, err = gcs.NewClient(ctx, gcsOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "creating GCS client")
		}
	}
	s.bucket, s.prefix, _ = strings.Cut(strings.TrimPrefix(uploadPrefix, "gs://"), "/")
	if s.bucket == "" {
		return nil, errors.New("no bucket provided")
	}
	return s, nil
}

// Bucket returns the bucket backing this store.
func (s *GCSStore) Bucket() string {
	return s.bucket
}

// ObjectPath returns the full object name of an asset within the bucket.
func (s *GCSStore) ObjectPath(a Asset) string {
	return path.Join(append([]string{s.prefix}, assetPath(a)...)...)
}

func (s *GCSStore) URL(a Asset) *url.URL {
	return &url.URL{Scheme: "gs", Host: s.bucket, Path: "/" + s.ObjectPath(a)}
}

// Reader returns a reader for the given asset.
func (s *GCSStore) Reader(ctx context.Context, a Asset) (io.ReadCloser, error) {
	path := s.ObjectPath(a)
	obj := s.gcsClient.Bucket(s.bucket).Object(path)
	r, err := obj.NewReader(ctx)
	if err != nil {
		if err == gcs.ErrObjectNotExist {
			err = stderrors.Join(err, ErrAssetNotFound)
		}
		return nil, errors.Wrapf(err, "creating GCS reader for %s", path)
	}
	return r, nil
}

// Writer returns a writer for the given asset.
func (s *GCSStore) Writer(ctx context.Context, a Asset) (io.WriteCloser, error) {
	obj := s.gcsClient.Bucket(s.bucket).Object(s.ObjectPath(a))
	return obj.NewWriter(ctx), nil
}

var _ LocatableAssetStore = &GCSStore{}

// FilesystemAssetStore stores assets in a billy.Filesystem.
type FilesystemAssetStore struct {
	fs billy.Filesystem
}

// NewFilesystemAssetStore creates a new FilesystemAssetStore.
func NewFilesystemAssetStore(fs billy.Filesystem) *FilesystemAssetStore {
	return &FilesystemAssetStore{fs: fs}
}

func (s *FilesystemAssetStore) resourcePath(a Asset) string {
	return filepath.Join(assetPath(a)...)
}

func (s *FilesystemAssetStore) URL(a Asset) *url.URL {
	return &url.URL{Scheme: "file", Path: filepath.Join(s.fs.Root(), s.resourcePath(a))}
}

// Reader returns a reader for the given asset.
func (s *FilesystemAssetStore) Reader(ctx context.Context, a Asset) (io.ReadCloser, error) {
	path := s.resourcePath(a)
	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = stderrors.Join(err, ErrAssetNotFound)
		}
		return nil, errors.Wrapf(err, "creating reader for %v", a)
	}
	return f, nil
}

// Writer returns a writer for the given asset.
func (s *FilesystemAssetStore) Writer(ctx context.Context, a Asset) (io.WriteCloser, error) {
	path := s.resourcePath(a)
	f, err := s.fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating writer for %v", a)
	}
	return f, nil
}

var _ LocatableAssetStore = &FilesystemAssetStore{}
