package config

import (
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/BurntSushi/toml"

	"github.com/spachava753/imagecrawl/internal/models"
)

// DefaultTransform returns a Transform with default values.
func DefaultTransform() models.Transform {
	return models.Transform{
		TimeoutSec: 300.0,
	}
}

// LoadTransform loads and parses a transform descriptor file from the given
// filesystem.
func LoadTransform(fsys fs.FS, name string) (models.Transform, error) {
	t := DefaultTransform()

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return t, fmt.Errorf("reading %s: %w", name, err)
	}

	md, err := toml.Decode(string(data), &t)
	if err != nil {
		return t, fmt.Errorf("parsing %s: %w", name, err)
	}

	for _, key := range md.Undecoded() {
		slog.Warn("ignoring unknown transform key", "file", name, "key", key.String())
	}

	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("validating %s: %w", name, err)
	}

	return t, nil
}
