package models

import (
	"fmt"
	"strings"
	"time"
)

// Argument template placeholders.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

// Transform is a named, versioned external-tool invocation template, parsed
// from transform.toml or a registry entry.
type Transform struct {
	Name            string  `toml:"name" json:"name"`
	Version         string  `toml:"version" json:"version"`
	Description     string  `toml:"description,omitempty" json:"description,omitempty"`
	Executable      string  `toml:"executable" json:"executable"`
	Arguments       string  `toml:"arguments" json:"arguments"`
	OutputExtension string  `toml:"output_extension,omitempty" json:"output_extension,omitempty"`
	Image           *string `toml:"image,omitempty" json:"image,omitempty"` // run inside this container image
	TimeoutSec      float64 `toml:"timeout_sec" json:"timeout_sec"`         // per file, default: 300.0
}

// TransformID identifies a transform by name and version.
type TransformID struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (id TransformID) String() string {
	return id.Name + "@" + id.Version
}

// ID returns the identity of t.
func (t Transform) ID() TransformID {
	return TransformID{Name: t.Name, Version: t.Version}
}

// Timeout returns the per-file timeout, or zero for none.
func (t Transform) Timeout() time.Duration {
	return time.Duration(t.TimeoutSec * float64(time.Second))
}

// Validate checks that t can be invoked.
func (t Transform) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return Precondition("transform.name", "must not be empty")
	}
	if strings.TrimSpace(t.Version) == "" {
		return Precondition("transform.version", "must not be empty")
	}
	if strings.TrimSpace(t.Executable) == "" {
		return Precondition("transform.executable", "must not be empty")
	}
	if !strings.Contains(t.Arguments, InputPlaceholder) {
		return Precondition("transform.arguments", "missing %s placeholder", InputPlaceholder)
	}
	if !strings.Contains(t.Arguments, OutputPlaceholder) {
		return Precondition("transform.arguments", "missing %s placeholder", OutputPlaceholder)
	}
	if t.OutputExtension != "" && !strings.HasPrefix(t.OutputExtension, ".") {
		return Precondition("transform.output_extension", "%q must start with a dot", t.OutputExtension)
	}
	return nil
}

// Record returns the metadata record persisted once per run for t.
func (t Transform) Record(table string) Record {
	fields := map[string]any{
		"name":       t.Name,
		"version":    t.Version,
		"executable": t.Executable,
		"arguments":  t.Arguments,
	}
	if t.Image != nil {
		fields["image"] = *t.Image
	}
	return Record{
		Table:        table,
		PartitionKey: SanitizeKey(t.Name),
		RowKey:       SanitizeKey(t.Version),
		Fields:       fields,
	}
}

func (t Transform) String() string {
	return fmt.Sprintf("%s (%s %s)", t.ID(), t.Executable, t.Arguments)
}
