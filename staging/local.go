// staging/local.go
package staging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local stores files in a directory on disk.
type Local struct {
	dir string
}

// NewLocal creates dir when needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Write(_ context.Context, name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	full := filepath.Join(l.dir, name)
	// a failed write never replaces an existing file
	tmp, err := os.CreateTemp(l.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to create local file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", full, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", full, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", full, err)
	}
	return nil
}

func (l *Local) List(_ context.Context, ext string) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", l.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && hasExt(e.Name(), ext) {
			names = append(names, e.Name())
		}
	}
	return sorted(names), nil
}

func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(l.dir, name))
}
