package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Tool runs one external-tool invocation and reports its exit code.
type Tool interface {
	// Run executes executable with args. A non-nil error means the process
	// could not be started or did not finish; otherwise the exit code is
	// returned.
	Run(ctx context.Context, executable string, args []string) (int, error)
}

// ExecTool runs the executable directly on the host.
type ExecTool struct{}

// NewExecTool creates a new host tool.
func NewExecTool() *ExecTool {
	return &ExecTool{}
}

// Run implements Tool.
func (t *ExecTool) Run(ctx context.Context, executable string, args []string) (int, error) {
	return run(ctx, executable, args)
}

// DockerTool runs the executable inside a throwaway container. Mounts and the
// directories of absolute path arguments, including the value of "--flag=/path"
// arguments, are bind-mounted at the same path in the container.
type DockerTool struct {
	Image  string
	Mounts []string
}

// NewDockerTool creates a tool that runs inside image, always mounting the
// given directories.
func NewDockerTool(image string, mounts ...string) *DockerTool {
	return &DockerTool{Image: image, Mounts: mounts}
}

// Run implements Tool.
func (t *DockerTool) Run(ctx context.Context, executable string, args []string) (int, error) {
	return run(ctx, "docker", t.dockerArgs(executable, args))
}

func (t *DockerTool) dockerArgs(executable string, args []string) []string {
	dockerArgs := []string{"run", "--rm"}
	for _, dir := range mountDirs(t.Mounts, args) {
		dockerArgs = append(dockerArgs, "-v", dir+":"+dir)
	}
	dockerArgs = append(dockerArgs, t.Image, executable)
	return append(dockerArgs, args...)
}

func mountDirs(mounts, args []string) []string {
	seen := make(map[string]struct{})
	for _, dir := range mounts {
		if abs, err := filepath.Abs(dir); err == nil {
			seen[abs] = struct{}{}
		}
	}
	for _, arg := range args {
		if _, value, ok := strings.Cut(arg, "="); ok && filepath.IsAbs(value) {
			arg = value
		}
		if !filepath.IsAbs(arg) {
			continue
		}
		seen[filepath.Dir(arg)] = struct{}{}
	}
	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

func run(ctx context.Context, name string, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			slog.Debug("tool exited with error", "command", name, "exit_code", exitErr.ExitCode(), "stderr", strings.TrimSpace(stderr.String()))
			return exitErr.ExitCode(), nil
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return -1, fmt.Errorf("command timed out")
		}
		return -1, fmt.Errorf("executing %s: %w", name, err)
	}

	return 0, nil
}
