// Package storage holds the ArchiveStore side of schema management: before
// SchemaMode ResetFile truncates a realm file, the session layer archives a
// copy through ObjectStorage so an operator can recover it later.
package storage

import (
	"context"
	"errors"
)

// Common errors for archive operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the archive backend a Session's ArchiveConfig
// resolves to — S3 in production, the local filesystem for development and
// tests. session.archiveBeforeReset, ListArchivedResets, PruneArchivedResets,
// and RestoreArchivedReset are its only callers.
type ObjectStorage interface {
	// Upload archives the file at localPath under objectPath.
	Upload(ctx context.Context, localPath, objectPath string) error

	// UploadMultipart archives a large file in parts, returning an ETag for
	// the assembled object. Used in place of Upload once a realm file
	// crosses the multipart size threshold.
	UploadMultipart(ctx context.Context, localPath, objectPath string) (string, error)

	// Download retrieves an archived object to localPath, for restoring a
	// snapshot taken before a ResetFile.
	Download(ctx context.Context, objectPath, localPath string) error

	// Delete removes an archived object. Used by PruneArchivedResets to
	// trim retention.
	Delete(ctx context.Context, objectPath string) error

	// Exists reports whether objectPath is already archived, so
	// archiveBeforeReset can skip a redundant upload for a run-id that was
	// already written.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns every archived object path under prefix, used by
	// ListArchivedResets and PruneArchivedResets to enumerate retained
	// snapshots.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// MultipartUploadConfig holds configuration for multipart uploads.
type MultipartUploadConfig struct {
	// PartSize is the size of each part in bytes (default: 5MB).
	PartSize int64
	// Concurrency is carried in the configuration (default: 5) but is not
	// read by S3Storage, which uploads parts one at a time.
	Concurrency int
}

// DefaultMultipartConfig returns the default multipart upload configuration.
func DefaultMultipartConfig() MultipartUploadConfig {
	return MultipartUploadConfig{
		PartSize:    5 * 1024 * 1024, // 5MB
		Concurrency: 5,
	}
}
