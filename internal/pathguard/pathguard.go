// Package pathguard enforces that tool filesystem access resolves within
// one of a small set of configured roots (workspace, output, scratch);
// paths escaping those roots are rejected.
//
// Grounded on internal/tools/files/resolver.go's root-relative resolution
// and original_source/path_management.py's workspace/output root
// distinction and defaulting rules.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Root names one of the guard's configured containment roots.
type Root string

const (
	RootWorkspace Root = "workspace"
	RootOutput    Root = "output"
	RootScratch   Root = "scratch"
)

// Config supplies the raw root paths. OutputDir and ScratchDir default to
// subdirectories of Workspace when left empty, mirroring
// path_management.py's defaulting of output_path/workspace_path to the
// project path when unset.
type Config struct {
	Workspace string
	OutputDir string
	ScratchDir string
}

// Guard resolves and validates paths against its configured roots.
type Guard struct {
	roots map[Root]string
}

// New resolves cfg's roots to absolute paths and builds a Guard.
func New(cfg Config) (*Guard, error) {
	workspace := strings.TrimSpace(cfg.Workspace)
	if workspace == "" {
		workspace = "."
	}
	workspaceAbs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("pathguard: resolve workspace root: %w", err)
	}

	output := strings.TrimSpace(cfg.OutputDir)
	if output == "" {
		output = filepath.Join(workspaceAbs, "output")
	}
	outputAbs, err := filepath.Abs(output)
	if err != nil {
		return nil, fmt.Errorf("pathguard: resolve output root: %w", err)
	}

	scratch := strings.TrimSpace(cfg.ScratchDir)
	if scratch == "" {
		scratch = filepath.Join(workspaceAbs, "scratch")
	}
	scratchAbs, err := filepath.Abs(scratch)
	if err != nil {
		return nil, fmt.Errorf("pathguard: resolve scratch root: %w", err)
	}

	return &Guard{roots: map[Root]string{
		RootWorkspace: workspaceAbs,
		RootOutput:    outputAbs,
		RootScratch:   scratchAbs,
	}}, nil
}

// Root returns the absolute path configured for a given root name.
func (g *Guard) Root(r Root) (string, bool) {
	p, ok := g.roots[r]
	return p, ok
}

// Resolve resolves path against root, returning an absolute path that is
// guaranteed to fall within it. Relative paths are joined to the root;
// absolute paths are accepted as-is if (and only if) they resolve inside
// the root. Escaping paths (via "..", symlink-independent) are rejected.
func (g *Guard) Resolve(root Root, path string) (string, error) {
	rootAbs, ok := g.roots[root]
	if !ok {
		return "", fmt.Errorf("pathguard: unknown root %q", root)
	}

	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("pathguard: path is required")
	}

	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("pathguard: resolve path: %w", err)
	}

	if !within(rootAbs, targetAbs) {
		return "", fmt.Errorf("pathguard: path %q escapes %s root", path, root)
	}
	return targetAbs, nil
}

// Within reports whether path (need not exist) falls inside root, without
// producing an error — used by callers that only need a boolean check,
// mirroring path_management.py's is_path_within_workspace/
// is_path_within_output.
func (g *Guard) Within(root Root, path string) bool {
	rootAbs, ok := g.roots[root]
	if !ok {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return within(rootAbs, abs)
}

func within(rootAbs, targetAbs string) bool {
	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
