// Package registry loads catalogs of transform descriptors from a local file or
// a URL.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/spachava753/imagecrawl/internal/models"
)

// LoadFromPath loads a registry.json from a local filesystem path.
func LoadFromPath(path string) ([]models.Transform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}

	var transforms []models.Transform
	if err := json.Unmarshal(data, &transforms); err != nil {
		return nil, fmt.Errorf("parsing registry JSON: %w", err)
	}

	return transforms, nil
}

// LoadFromURL loads a registry.json from a remote URL.
func LoadFromURL(ctx context.Context, url string) ([]models.Transform, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching registry: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var transforms []models.Transform
	if err := json.Unmarshal(data, &transforms); err != nil {
		return nil, fmt.Errorf("parsing registry JSON: %w", err)
	}

	return transforms, nil
}

// Load loads the registry described by ref.
func Load(ctx context.Context, ref models.RegistryRef) ([]models.Transform, error) {
	switch {
	case ref.Path != nil && *ref.Path != "":
		return LoadFromPath(*ref.Path)
	case ref.URL != nil && *ref.URL != "":
		return LoadFromURL(ctx, *ref.URL)
	default:
		return nil, fmt.Errorf("registry: must specify either 'path' or 'url'")
	}
}

// FindTransform searches for a transform by name and version. If version is
// empty, it returns the highest semantic version with that name; entries whose
// version is not a semantic version are not considered in that case.
func FindTransform(transforms []models.Transform, name, version string) (*models.Transform, error) {
	if version != "" {
		for i := range transforms {
			if transforms[i].Name == name && transforms[i].Version == version {
				return &transforms[i], nil
			}
		}
		return nil, fmt.Errorf("transform %q version %q not found in registry", name, version)
	}

	type candidate struct {
		idx int
		v   *semver.Version
	}
	var candidates []candidate
	found := false
	for i := range transforms {
		if transforms[i].Name != name {
			continue
		}
		found = true
		v, err := semver.NewVersion(transforms[i].Version)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{idx: i, v: v})
	}

	if !found {
		return nil, fmt.Errorf("transform %q not found in registry", name)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("transform %q has no semantic versions; specify a version", name)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].v.GreaterThan(candidates[j].v)
	})
	return &transforms[candidates[0].idx], nil
}

// Resolve loads the registry in ref and returns the named transform, validated.
func Resolve(ctx context.Context, ref models.RegistryRef, name, version string) (models.Transform, error) {
	transforms, err := Load(ctx, ref)
	if err != nil {
		return models.Transform{}, err
	}

	t, err := FindTransform(transforms, name, version)
	if err != nil {
		return models.Transform{}, err
	}

	if t.TimeoutSec == 0 {
		t.TimeoutSec = 300.0
	}
	if err := t.Validate(); err != nil {
		return models.Transform{}, fmt.Errorf("validating transform %s: %w", t.ID(), err)
	}
	return *t, nil
}
