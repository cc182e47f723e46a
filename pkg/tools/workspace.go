package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxReadBytes caps how much of a file read_file returns.
const DefaultMaxReadBytes = 1 << 20

var (
	// ErrNotFound is returned when a requested file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrOutsideRoot is returned for absolute paths and paths escaping the project
	// root, either lexically or through a symlink that already exists.
	ErrOutsideRoot = errors.New("path is outside the project root")
)

// Workspace is the project root all tools operate in.
//
// Path checks keep model-chosen paths under the root. They are not a sandbox:
// links created after a check, and commands started by run_cmd, can still
// reach the rest of the filesystem.
type Workspace struct {
	root         string
	maxReadBytes int64
}

// NewWorkspace returns a workspace rooted at root. The directory is not created.
func NewWorkspace(root string, maxReadBytes int64) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("project root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %q: %w", root, err)
	}
	if maxReadBytes <= 0 {
		maxReadBytes = DefaultMaxReadBytes
	}
	return &Workspace{root: abs, maxReadBytes: maxReadBytes}, nil
}

// Root returns the absolute project root.
func (w *Workspace) Root() string {
	return w.root
}

// Prepare creates the project root, removing any previous contents first when clear is set.
func (w *Workspace) Prepare(clear bool) error {
	if clear {
		if err := os.RemoveAll(w.root); err != nil {
			return fmt.Errorf("failed to clear project root: %w", err)
		}
	}
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("failed to create project root: %w", err)
	}
	return nil
}

// Resolve maps a project-relative path to an absolute path inside the root.
// Symlinks along the part of the path that exists must resolve inside the root.
func (w *Workspace) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	cleanPath := filepath.Clean(path)
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	full := filepath.Join(w.root, cleanPath)
	if !w.linksStayInside(full) {
		return "", fmt.Errorf("%w: %s (via symlink)", ErrOutsideRoot, path)
	}
	return full, nil
}

// linksStayInside reports whether the longest existing prefix of full resolves
// inside the root. Dangling links fail the check.
func (w *Workspace) linksStayInside(full string) bool {
	root, err := filepath.EvalSymlinks(w.root)
	if err != nil {
		// No root yet, so nothing under it can be a link.
		return true
	}

	existing := full
	for existing != w.root {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		existing = filepath.Dir(existing)
	}

	target, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, target)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ReadFile returns the content of a project file, or ErrNotFound.
func (w *Workspace) ReadFile(_ context.Context, path string) (string, error) {
	full, err := w.Resolve(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	data, err := io.ReadAll(io.LimitReader(f, w.maxReadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile replaces a project file atomically, creating parent directories.
func (w *Workspace) WriteFile(path, content string) error {
	full, err := w.Resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".codegen-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// List returns every file under directory, relative to it, slash-separated and sorted.
// Dot-directories are skipped.
func (w *Workspace) List(directory string) ([]string, error) {
	if directory == "" {
		directory = "."
	}
	base, err := w.Resolve(directory)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, directory)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", directory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", directory)
	}

	files := []string{}
	walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to list %s: %w", directory, walkErr)
	}
	sort.Strings(files)
	return files, nil
}
