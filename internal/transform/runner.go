// Package transform applies an external tool to every file of a group and
// collects whatever outputs it produced.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spachava753/imagecrawl/internal/grouper"
	"github.com/spachava753/imagecrawl/internal/models"
	"github.com/spachava753/imagecrawl/internal/util"
)

// Runner runs a transform over file groups, writing outputs under OutputRoot.
type Runner struct {
	Transform  models.Transform
	OutputRoot string
	Lister     grouper.Lister
	Exts       util.ExtensionSet
	Tool       Tool
}

// NewRunner validates its arguments and creates a Runner.
func NewRunner(tr models.Transform, outputRoot string, lister grouper.Lister, exts util.ExtensionSet, tool Tool) (*Runner, error) {
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(outputRoot) == "" {
		return nil, models.Precondition("transform.output_dir", "must not be empty")
	}
	if lister == nil {
		return nil, models.Precondition("lister", "must not be nil")
	}
	if len(exts) == 0 {
		return nil, models.Precondition("extensions", "must not be empty")
	}
	if tool == nil {
		return nil, models.Precondition("tool", "must not be nil")
	}
	outputRoot, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}
	return &Runner{
		Transform:  tr,
		OutputRoot: outputRoot,
		Lister:     lister,
		Exts:       exts,
		Tool:       tool,
	}, nil
}

// OutputDir returns the directory outputs for suffix are written to.
func (r *Runner) OutputDir(suffix string) string {
	return filepath.Join(r.OutputRoot, filepath.FromSlash(suffix))
}

// Run invokes the tool once per file in group, sequentially. Files whose
// invocation fails are skipped with a warning. The returned group lists what
// is actually in the output directory afterwards, which may be empty.
func (r *Runner) Run(ctx context.Context, group models.FileGroup) (models.FileGroup, error) {
	outDir := r.OutputDir(group.Suffix)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return models.FileGroup{}, fmt.Errorf("creating output directory: %w", err)
	}

	logger := slog.With("transform", r.Transform.ID().String(), "group", group.Suffix)

	for _, src := range group.Files {
		if err := ctx.Err(); err != nil {
			return models.FileGroup{}, err
		}

		dst := filepath.Join(outDir, r.OutputName(src))
		args := r.Arguments(src, dst)

		code, err := r.invoke(ctx, args)
		if err != nil {
			logger.Warn("transform failed", "file", src, "error", err)
			continue
		}
		if code != 0 {
			logger.Warn("transform exited non-zero", "file", src, "exit_code", code)
			continue
		}
		logger.Debug("transformed file", "file", src, "output", dst)
	}

	listed, err := r.Lister.List(outDir, false)
	if err != nil {
		return models.FileGroup{}, fmt.Errorf("listing transform outputs: %w", err)
	}

	var files []string
	for _, f := range listed {
		if r.Exts.Match(f) {
			files = append(files, f)
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		logger.Warn("transform produced no outputs", "output_dir", outDir)
	}

	return models.FileGroup{Suffix: group.Suffix, Dir: outDir, Files: files}, nil
}

func (r *Runner) invoke(ctx context.Context, args []string) (int, error) {
	if timeout := r.Transform.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return r.Tool.Run(ctx, r.Transform.Executable, args)
}

// OutputName returns the base name of the output for src: the source name
// with its extension replaced by the transform's output extension, if any.
func (r *Runner) OutputName(src string) string {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	if r.Transform.OutputExtension == "" {
		return base
	}
	return strings.TrimSuffix(base, ext) + r.Transform.OutputExtension
}

// Arguments expands the argument template for one invocation. The template is
// split on whitespace before substitution so paths containing spaces stay a
// single argument.
func (r *Runner) Arguments(input, output string) []string {
	fields := strings.Fields(r.Transform.Arguments)
	args := make([]string, len(fields))
	for i, f := range fields {
		f = strings.ReplaceAll(f, models.InputPlaceholder, input)
		args[i] = strings.ReplaceAll(f, models.OutputPlaceholder, output)
	}
	return args
}
