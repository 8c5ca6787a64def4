// staging/staging.go
package staging

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/nclcancer/survival/config"
)

const (
	ModeLocal  = "local"
	ModeS3     = "s3"
	ModeMemory = "memory"
)

// Store keeps downloaded workbooks between the scrape and process steps.
// Names are flat file names, without directories.
type Store interface {
	Write(ctx context.Context, name string, data []byte) error
	// List returns the names ending in ext (case-insensitive), sorted.
	List(ctx context.Context, ext string) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FromConfig creates the store selected by STAGING_MODE.
func FromConfig(ctx context.Context, cfg config.StagingConfig) (Store, error) {
	switch strings.ToLower(cfg.Mode) {
	case ModeS3:
		return NewS3(ctx, S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case ModeMemory:
		return NewMemory(), nil
	case ModeLocal, "":
		return NewLocal(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unsupported staging mode: %s (supported: local, s3, memory)", cfg.Mode)
	}
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || path.Base(name) != name {
		return fmt.Errorf("invalid staged file name %q", name)
	}
	return nil
}

func hasExt(name, ext string) bool {
	return len(name) >= len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext)
}

func sorted(names []string) []string {
	sort.Strings(names)
	return names
}
