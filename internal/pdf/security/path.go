package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator confines file access to a set of root directories: the
// template directory and the session work directory.
type PathValidator struct {
	roots []string
}

// NewPathValidator creates a validator for roots. The first root is the
// base for relative paths. Roots need not exist yet.
func NewPathValidator(roots ...string) (*PathValidator, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one directory must be configured")
	}

	v := &PathValidator{}
	for _, r := range roots {
		if r == "" {
			return nil, fmt.Errorf("configured directory cannot be empty")
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
		}
		v.roots = append(v.roots, filepath.Clean(abs))
	}
	return v, nil
}

// Roots returns the configured directories
func (v *PathValidator) Roots() []string {
	return append([]string(nil), v.roots...)
}

// ValidatePath checks that path lies inside one of the roots
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains a null byte")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	for _, root := range v.roots {
		if within(absPath, root) {
			return nil
		}
	}
	return fmt.Errorf("path is outside configured directories: %s", path)
}

// within reports whether path, and its resolved location when it or its
// parent is a symlink, are inside root.
func within(path, root string) bool {
	clean := filepath.Clean(path)

	realRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		realRoot = resolved
	}

	// outputs may not exist yet, so resolve through the parent directory
	real := clean
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		real = resolved
	} else if parent, err := filepath.EvalSymlinks(filepath.Dir(clean)); err == nil {
		real = filepath.Join(parent, filepath.Base(clean))
	}

	under := func(p string) bool {
		return isUnder(p, root) || isUnder(p, realRoot)
	}
	return under(clean) && under(real)
}

func isUnder(path, dir string) bool {
	if path == dir {
		return true
	}
	withSep := dir
	if !strings.HasSuffix(withSep, string(filepath.Separator)) {
		withSep += string(filepath.Separator)
	}
	return strings.HasPrefix(path, withSep)
}

// Resolve returns the absolute form of path, joining relative paths to the
// first root, and validates it.
func (v *PathValidator) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.roots[0], path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// ResolveInput resolves path and requires an existing regular file no
// larger than maxSize bytes (0 disables the size check).
func (v *PathValidator) ResolveInput(path string, maxSize int64) (string, error) {
	resolved, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return "", fmt.Errorf("file too large: %d bytes (maximum %d)", info.Size(), maxSize)
	}
	return resolved, nil
}

// ResolveOutput resolves a path for a new PDF. The parent directory must
// exist and the name must end in .pdf.
func (v *PathValidator) ResolveOutput(path string) (string, error) {
	resolved, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(resolved), ".pdf") {
		return "", fmt.Errorf("output must be a .pdf file: %s", path)
	}
	info, err := os.Stat(filepath.Dir(resolved))
	if err != nil {
		return "", fmt.Errorf("output directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output parent is not a directory: %s", filepath.Dir(resolved))
	}
	return resolved, nil
}
