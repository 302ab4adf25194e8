// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"io"
	"io/fs"
	"regexp"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// ManifestFile is the optional per-repo build manifest at the source tree root.
const ManifestFile = "deploy.toml"

var imageNameRE = regexp.MustCompile(`^[a-z0-9]+((\.|_|__|-+)[a-z0-9]+)*$`)

// Worker sizes accepted by Cloud Build.
var machineTypes = map[string]bool{
	"E2_MEDIUM":     true,
	"E2_HIGHCPU_8":  true,
	"E2_HIGHCPU_32": true,
	"N1_HIGHCPU_8":  true,
	"N1_HIGHCPU_32": true,
}

// Manifest captures the build settings a repo can declare for itself.
type Manifest struct {
	Build BuildSettings `toml:"build"`
	Image ImageSettings `toml:"image"`
}

// BuildSettings configure the Cloud Build execution.
type BuildSettings struct {
	// Dockerfile is the build file path relative to the repo root.
	Dockerfile string `toml:"dockerfile"`
	// Timeout bounds the build duration (e.g. "20m").
	Timeout string `toml:"timeout"`
	// MachineType selects a non-default Cloud Build worker size.
	MachineType string `toml:"machine-type"`
}

// ImageSettings configure the produced image.
type ImageSettings struct {
	// Name overrides the image name derived from the repo.
	Name string `toml:"name"`
}

// Validate checks the manifest fields that admit bad values.
func (m *Manifest) Validate() error {
	if m.Build.Timeout != "" {
		d, err := time.ParseDuration(m.Build.Timeout)
		if err != nil {
			return errors.Wrap(err, "parsing build.timeout")
		}
		if d <= 0 {
			return errors.New("build.timeout must be positive")
		}
		if d > 24*time.Hour {
			return errors.New("build.timeout exceeds the 24h Cloud Build maximum")
		}
	}
	if m.Build.MachineType != "" && !machineTypes[m.Build.MachineType] {
		return errors.Errorf("unsupported build.machine-type %q", m.Build.MachineType)
	}
	if m.Image.Name != "" && !imageNameRE.MatchString(m.Image.Name) {
		return errors.Errorf("invalid image.name %q", m.Image.Name)
	}
	return nil
}

// BuildTimeout returns the parsed build.timeout, or zero when unset.
func (m *Manifest) BuildTimeout() time.Duration {
	if m.Build.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(m.Build.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// DockerfilePath returns the configured build file path, or the default.
func (m *Manifest) DockerfilePath() string {
	if m.Build.Dockerfile != "" {
		return m.Build.Dockerfile
	}
	return DefaultDockerfile
}

// ReadManifest loads and validates the manifest from the source tree root.
// A missing manifest yields the zero value rather than an error.
func ReadManifest(bfs billy.Filesystem) (*Manifest, error) {
	f, err := bfs.Open(ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		return &Manifest{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "opening manifest")
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}
	var m Manifest
	if err := toml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "decoding manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
