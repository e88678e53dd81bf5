package metadata

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCalculateHash(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	if got := CalculateHash([]byte("abc")); got != want {
		t.Errorf("CalculateHash() = %s, want %s", got, want)
	}
}

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}

	return path
}

func TestManifest_WriteLoadVerify(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeArtifact(t, dir, "rows.csv", "id\n1\n")
	jsonPath := writeArtifact(t, dir, "rows.json", "[]\n")

	m := NewManifest(1)
	m.Add(csvPath, []byte("id\n1\n"))
	m.Add(jsonPath, []byte("[]\n"))

	manifestPath := filepath.Join(dir, "manifest.yaml")
	if err := m.Write(manifestPath); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := Load(manifestPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Rows != 1 || len(loaded.Artifacts) != 2 {
		t.Fatalf("unexpected manifest: %+v", loaded)
	}

	if loaded.Artifacts[0].Bytes != 5 {
		t.Errorf("Bytes = %d, want 5", loaded.Artifacts[0].Bytes)
	}

	if err := Verify(loaded); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestManifest_Deterministic(t *testing.T) {
	build := func() []byte {
		m := NewManifest(2)
		m.Add("a.csv", []byte("x"))
		m.Add("a.json", []byte("y"))

		data, err := m.Marshal()
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}

		return data
	}

	if !bytes.Equal(build(), build()) {
		t.Error("manifests for identical input should be identical")
	}
}

func TestVerify_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "rows.csv", "original")

	tests := []struct {
		name    string
		m       *Manifest
		wantErr error
	}{
		{
			name:    "No artifacts",
			m:       &Manifest{},
			wantErr: ErrNoArtifacts,
		},
		{
			name:    "No hash",
			m:       &Manifest{Artifacts: []Artifact{{Path: path, Bytes: 8}}},
			wantErr: ErrNoHashFound,
		},
		{
			name:    "Missing file",
			m:       &Manifest{Artifacts: []Artifact{{Path: filepath.Join(dir, "gone.csv"), SHA256: "x"}}},
			wantErr: ErrMissingTarget,
		},
		{
			name:    "Size changed",
			m:       &Manifest{Artifacts: []Artifact{{Path: path, Bytes: 3, SHA256: CalculateHash([]byte("original"))}}},
			wantErr: ErrSizeMismatch,
		},
		{
			name:    "Content changed",
			m:       &Manifest{Artifacts: []Artifact{{Path: path, Bytes: 8, SHA256: CalculateHash([]byte("modified"))}}},
			wantErr: ErrHashMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Verify(tt.m); !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
