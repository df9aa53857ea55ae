// Package dispatch runs the tool named by a directive as a child process.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pardnchiu/mcp-pyrevit/internal/directive"
)

const ToolsDir = "mcp_tools"

// Dispatcher resolves tools under RepoRoot/mcp_tools by convention only;
// there is no search path and no fallback.
type Dispatcher struct {
	RepoRoot string
}

func New(repoRoot string) *Dispatcher {
	return &Dispatcher{RepoRoot: repoRoot}
}

func ExeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// ExecutablePath is repoRoot/mcp_tools/<tool>/bin/Debug/<tool><suffix>.
func ExecutablePath(repoRoot, tool string) string {
	return filepath.Join(repoRoot, ToolsDir, tool, "bin", "Debug", tool+ExeSuffix())
}

// validName rejects names that would leave mcp_tools/<tool>.
func validName(tool string) bool {
	if tool == "." || tool == ".." {
		return false
	}
	return !strings.ContainsAny(tool, `/\`) && filepath.Base(tool) == tool && filepath.VolumeName(tool) == ""
}

// Resolve validates dir and returns the executable it names. It never
// starts a process.
func (d *Dispatcher) Resolve(dir directive.Directive) (string, error) {
	if !dir.Actionable() {
		var missing []string
		if dir.Tool == "" {
			missing = append(missing, "tool")
		}
		if dir.FilePath == "" {
			missing = append(missing, "file_path")
		}
		return "", &DispatchError{
			Kind: MissingField,
			Tool: dir.Tool,
			Err:  fmt.Errorf("missing %s", strings.Join(missing, ", ")),
		}
	}

	if !validName(dir.Tool) {
		return "", &DispatchError{
			Kind: NotFound,
			Tool: dir.Tool,
			Err:  errors.New("tool name is not a single path element"),
		}
	}

	path := ExecutablePath(d.RepoRoot, dir.Tool)
	info, err := os.Stat(path)
	if err != nil {
		return "", &DispatchError{
			Kind: NotFound,
			Tool: dir.Tool,
			Path: path,
			Err:  err,
		}
	}
	if !info.Mode().IsRegular() {
		return "", &DispatchError{
			Kind: NotFound,
			Tool: dir.Tool,
			Path: path,
			Err:  fmt.Errorf("%s is not a regular file", path),
		}
	}
	return path, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, dir directive.Directive) (*Invocation, error) {
	path, err := d.Resolve(dir)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, dir.FilePath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	inv := &Invocation{
		ExecutablePath: path,
		Arg:            dir.FilePath,
	}

	err = cmd.Run()
	inv.Stdout = stdout.String()
	inv.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		inv.ExitStatus = 0
	case errors.As(err, &exitErr):
		inv.ExitStatus = exitErr.ExitCode()
	default:
		return nil, &DispatchError{
			Kind: SpawnFailed,
			Tool: dir.Tool,
			Path: path,
			Err:  err,
		}
	}
	return inv, nil
}
