// Package archive publishes finished report directories to longer-term
// storage, either a local directory tree or an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Local copies report files into a timestamped subdirectory of a local
// archive root.
type Local struct {
	dir string
}

func NewLocal(dir string) *Local { return &Local{dir: dir} }

func (l *Local) Describe() string { return "local archive " + l.dir }

// Publish snapshots every regular file of the output directory. Nested
// directories are not part of a report and stay behind.
func (l *Local) Publish(ctx context.Context, outDir string) error {
	dest := filepath.Join(l.dir, snapshotName(outDir))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(filepath.Join(outDir, e.Name()), filepath.Join(dest, e.Name())); err != nil {
			return fmt.Errorf("failed to archive %s: %w", e.Name(), err)
		}
	}
	return nil
}

func snapshotName(outDir string) string {
	return filepath.Base(outDir) + "-" + time.Now().UTC().Format("20060102T150405Z")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
