// Package metadata records and verifies checksums of generated artifacts.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest verification errors.
var (
	ErrNoArtifacts   = errors.New("manifest lists no artifacts")
	ErrNoHashFound   = errors.New("no hash found in manifest entry")
	ErrHashMismatch  = errors.New("hash mismatch")
	ErrSizeMismatch  = errors.New("size mismatch")
	ErrMissingTarget = errors.New("artifact file not found")
)

// Artifact describes one generated file.
type Artifact struct {
	Path   string `yaml:"path"`
	Bytes  int64  `yaml:"bytes"`
	SHA256 string `yaml:"sha256"`
}

// Manifest lists the artifacts of one normalization run. It carries no
// timestamps, so repeated runs over the same input produce the same manifest.
type Manifest struct {
	Rows      int        `yaml:"rows"`
	Artifacts []Artifact `yaml:"artifacts"`
}

// NewManifest creates an empty manifest for rows records.
func NewManifest(rows int) *Manifest {
	return &Manifest{Rows: rows}
}

// CalculateHash computes the hex SHA-256 digest of data.
func CalculateHash(data []byte) string {
	hash := sha256.Sum256(data)

	return hex.EncodeToString(hash[:])
}

// Add records an artifact from its in-memory content.
func (m *Manifest) Add(path string, data []byte) {
	m.Artifacts = append(m.Artifacts, Artifact{
		Path:   path,
		Bytes:  int64(len(data)),
		SHA256: CalculateHash(data),
	})
}

// Marshal renders the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	return data, nil
}

// Write saves the manifest as YAML to path.
func (m *Manifest) Write(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// Load reads a manifest from a YAML file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}

// Verify re-hashes every artifact listed in m and reports the first
// difference.
func Verify(m *Manifest) error {
	if len(m.Artifacts) == 0 {
		return ErrNoArtifacts
	}

	for _, a := range m.Artifacts {
		if err := verifyArtifact(a); err != nil {
			return err
		}
	}

	return nil
}

func verifyArtifact(a Artifact) error {
	if a.SHA256 == "" {
		return fmt.Errorf("%w: %s", ErrNoHashFound, a.Path)
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingTarget, a.Path)
		}

		return fmt.Errorf("failed to read %s: %w", a.Path, err)
	}

	if int64(len(data)) != a.Bytes {
		return fmt.Errorf("%w: %s: expected %d bytes, got %d", ErrSizeMismatch, a.Path, a.Bytes, len(data))
	}

	calculated := CalculateHash(data)
	if calculated != a.SHA256 {
		return fmt.Errorf("%w: %s: expected %s, got %s", ErrHashMismatch, a.Path, a.SHA256, calculated)
	}

	return nil
}
