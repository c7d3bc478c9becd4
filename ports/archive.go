package ports

import (
	"context"
)

// ArchivePort publishes a finished report directory to longer-term
// storage. Implementations exist for a local archive tree and an S3
// bucket.
type ArchivePort interface {
	// Describe names the archive destination for logs.
	Describe() string
	// Publish copies the report files under outDir to the destination.
	Publish(ctx context.Context, outDir string) error
}
