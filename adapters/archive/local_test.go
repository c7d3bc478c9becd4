package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPublishSnapshotsFlatFiles(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "report_out")
	require.NoError(t, os.MkdirAll(filepath.Join(outDir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "heatmap.txt"), []byte("metric\tA\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "report.html"), []byte("<html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "nested", "skipme.txt"), []byte("x"), 0o644))

	root := t.TempDir()
	l := NewLocal(root)
	assert.Equal(t, "local archive "+root, l.Describe())
	require.NoError(t, l.Publish(context.Background(), outDir))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "report_out-"))

	snap := filepath.Join(root, entries[0].Name())
	raw, err := os.ReadFile(filepath.Join(snap, "heatmap.txt"))
	require.NoError(t, err)
	assert.Equal(t, "metric\tA\n", string(raw))

	_, err = os.Stat(filepath.Join(snap, "report.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(snap, "nested"))
	assert.True(t, os.IsNotExist(err), "nested directories stay behind")
}

func TestLocalPublishMissingOutputDir(t *testing.T) {
	l := NewLocal(t.TempDir())
	assert.Error(t, l.Publish(context.Background(), filepath.Join(t.TempDir(), "absent")))
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	assert.ErrorContains(t, err, "bucket required")
}
