package session

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/arkilian/ember/pkg/runid"
)

// resetsPrefix is the object-path prefix under which ResetFile snapshots are
// archived, one object per run via its runid.RunID.
const resetsPrefix = "resets/"

// multipartArchiveThreshold is the file size at or above which
// archiveBeforeReset uses ArchiveStore.UploadMultipart instead of Upload, so
// large realm files are sent to S3 in parts rather than in one request.
const multipartArchiveThreshold = 5 * 1024 * 1024

// archiveBeforeReset uploads a copy of the on-disk file to s.cfg.ArchiveStore
// under "resets/<run-id>.realm" before ResetFile truncates it. A no-op if no
// ArchiveStore is configured, or if the session is in-memory (nothing to
// archive). Archival failures are returned to the caller, which logs them as
// warnings and proceeds with the reset regardless — archival is best-effort
// diagnostics, not a correctness requirement (see DESIGN.md).
func (s *Session) archiveBeforeReset(runID runid.RunID) error {
	if s.cfg.ArchiveStore == nil || s.cfg.InMemory || s.cfg.Path == "" {
		return nil
	}
	info, err := os.Stat(s.cfg.Path)
	if err != nil {
		return nil
	}

	objectPath := fmt.Sprintf("%s%s.realm", resetsPrefix, runID)
	ctx := context.Background()

	if exists, err := s.cfg.ArchiveStore.Exists(ctx, objectPath); err == nil && exists {
		return nil
	}

	if info.Size() >= multipartArchiveThreshold {
		_, err := s.cfg.ArchiveStore.UploadMultipart(ctx, s.cfg.Path, objectPath)
		return err
	}
	return s.cfg.ArchiveStore.Upload(ctx, s.cfg.Path, objectPath)
}

// ListArchivedResets returns the object paths of every ResetFile snapshot
// held in ArchiveStore, oldest first (run-id object paths sort lexically in
// generation order). Returns nil if no ArchiveStore is configured.
func (s *Session) ListArchivedResets() ([]string, error) {
	if s.cfg.ArchiveStore == nil {
		return nil, nil
	}
	paths, err := s.cfg.ArchiveStore.ListObjects(context.Background(), resetsPrefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// PruneArchivedResets deletes archived ResetFile snapshots beyond the most
// recent keep, oldest first. A no-op if no ArchiveStore is configured or
// fewer than keep snapshots exist.
func (s *Session) PruneArchivedResets(keep int) error {
	paths, err := s.ListArchivedResets()
	if err != nil || len(paths) <= keep {
		return err
	}
	ctx := context.Background()
	for _, p := range paths[:len(paths)-keep] {
		if err := s.cfg.ArchiveStore.Delete(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RestoreArchivedReset downloads an archived ResetFile snapshot (an object
// path as returned by ListArchivedResets) to destPath, for operators
// recovering pre-reset state.
func (s *Session) RestoreArchivedReset(objectPath, destPath string) error {
	if s.cfg.ArchiveStore == nil {
		return fmt.Errorf("session: no archive store configured")
	}
	return s.cfg.ArchiveStore.Download(context.Background(), objectPath, destPath)
}

// ArchivedReset describes one ResetFile snapshot as reported by
// ListArchivedResetsDetailed.
type ArchivedReset struct {
	ObjectPath string
	RunID      runid.RunID
	RanAt      time.Time
}

// ListArchivedResetsDetailed is ListArchivedResets with each object path's
// embedded run-id decoded back into its generation time, for operators
// auditing reset history by when a reset actually happened rather than by
// the opaque object path.
func (s *Session) ListArchivedResetsDetailed() ([]ArchivedReset, error) {
	paths, err := s.ListArchivedResets()
	if err != nil {
		return nil, err
	}
	out := make([]ArchivedReset, 0, len(paths))
	for _, p := range paths {
		entry := ArchivedReset{ObjectPath: p}
		name := strings.TrimSuffix(strings.TrimPrefix(p, resetsPrefix), ".realm")
		if id, err := runid.Parse(name); err == nil {
			entry.RunID = id
			entry.RanAt = id.Time()
		}
		out = append(out, entry)
	}
	return out, nil
}
