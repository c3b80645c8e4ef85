package config

import (
	"context"

	"github.com/arkilian/ember/internal/storage"
)

// newArchiveStore builds the ObjectStorage used for ResetFile pre-reset
// archival: a filesystem-backed store if LocalDir is set (generalized from
// the teacher's storage.NewLocalStorage, handy for local development and
// tests without any cloud credentials), otherwise S3-compatible storage
// (generalized from storage.NewS3Storage).
func newArchiveStore(a ArchiveConfig) (storage.ObjectStorage, error) {
	if a.LocalDir != "" {
		return storage.NewLocalStorage(a.LocalDir)
	}

	s3Cfg := storage.DefaultS3Config()
	if a.Region != "" {
		s3Cfg.Region = a.Region
	}
	s3Cfg.Endpoint = a.Endpoint
	s3Cfg.UsePathStyle = a.UsePathStyle

	return storage.NewS3Storage(context.Background(), a.Bucket, s3Cfg)
}
