package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spachava753/imagecrawl/internal/models"
)

func charcoal(version string) models.Transform {
	return models.Transform{
		Name:       "Charcoal",
		Version:    version,
		Executable: "convert",
		Arguments:  "{input} -charcoal 2 {output}",
	}
}

func TestLoadFromPath(t *testing.T) {
	// Create a temporary registry file
	tmpDir := t.TempDir()
	registryPath := filepath.Join(tmpDir, "registry.json")

	transforms := []models.Transform{charcoal("1.0.0")}

	data, err := json.Marshal(transforms)
	if err != nil {
		t.Fatalf("marshaling test data: %v", err)
	}

	if err := os.WriteFile(registryPath, data, 0644); err != nil {
		t.Fatalf("writing test registry: %v", err)
	}

	// Test loading
	loaded, err := LoadFromPath(registryPath)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if len(loaded) != 1 {
		t.Errorf("expected 1 transform, got %d", len(loaded))
	}

	if loaded[0].Name != "Charcoal" {
		t.Errorf("expected name 'Charcoal', got %q", loaded[0].Name)
	}

	if loaded[0].Arguments != "{input} -charcoal 2 {output}" {
		t.Errorf("unexpected arguments %q", loaded[0].Arguments)
	}
}

func TestLoadFromPath_NotFound(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/registry.json")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromPath_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	registryPath := filepath.Join(tmpDir, "registry.json")

	if err := os.WriteFile(registryPath, []byte("invalid json"), 0644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	_, err := LoadFromPath(registryPath)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadFromURL(t *testing.T) {
	data, err := json.Marshal([]models.Transform{charcoal("2.0.0")})
	if err != nil {
		t.Fatalf("marshaling test data: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	defer server.Close()

	loaded, err := LoadFromURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("LoadFromURL: %v", err)
	}

	if len(loaded) != 1 || loaded[0].Version != "2.0.0" {
		t.Errorf("unexpected registry %+v", loaded)
	}
}

func TestLoadFromURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := LoadFromURL(context.Background(), server.URL)
	if err == nil {
		t.Error("expected error for HTTP 404")
	}
}

func TestFindTransform(t *testing.T) {
	sepia := charcoal("1")
	sepia.Name = "Sepia"
	transforms := []models.Transform{
		charcoal("1"),
		charcoal("1.10.0"),
		charcoal("1.2"),
		charcoal("nightly"),
		sepia,
		{Name: "Legacy", Version: "latest"},
	}

	tests := []struct {
		name        string
		tName       string
		version     string
		wantVersion string
		wantErr     bool
	}{
		{"exact match", "Charcoal", "1.2", "1.2", false},
		{"exact non-semver", "Charcoal", "nightly", "nightly", false},
		{"latest semver", "Charcoal", "", "1.10.0", false},
		{"single entry", "Sepia", "", "1", false},
		{"not found", "Blur", "", "", true},
		{"version not found", "Charcoal", "3", "", true},
		{"no semver candidates", "Legacy", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindTransform(transforms, tt.tName, tt.version)
			if (err != nil) != tt.wantErr {
				t.Errorf("FindTransform() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil && got.Version != tt.wantVersion {
				t.Errorf("FindTransform() version = %v, want %v", got.Version, tt.wantVersion)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	registryPath := filepath.Join(t.TempDir(), "registry.json")
	broken := charcoal("9.0.0")
	broken.Arguments = "{input}"
	data, _ := json.Marshal([]models.Transform{charcoal("1.0.0"), broken})
	if err := os.WriteFile(registryPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	ref := models.RegistryRef{Path: &registryPath}

	tr, err := Resolve(context.Background(), ref, "Charcoal", "1.0.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tr.TimeoutSec != 300.0 {
		t.Errorf("expected default timeout, got %f", tr.TimeoutSec)
	}

	// Latest is the broken entry, which must fail validation.
	if _, err := Resolve(context.Background(), ref, "Charcoal", ""); err == nil {
		t.Error("expected validation error")
	}

	if _, err := Resolve(context.Background(), models.RegistryRef{}, "Charcoal", ""); err == nil {
		t.Error("expected error for empty ref")
	}
}
