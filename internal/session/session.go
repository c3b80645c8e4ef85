// Package session implements the external Session surface the orchestrator
// is reached through: configuration, the transaction boundary, and
// update_schema/apply(). It is the "external collaborator" the design names
// but treats as out of the schema core's own budget — made concrete here so
// the core is exercisable end to end, grounded in the teacher's internal/app
// lifecycle-management style.
package session

import (
	"fmt"
	"time"

	"github.com/arkilian/ember/internal/metadata"
	"github.com/arkilian/ember/internal/ordererr"
	"github.com/arkilian/ember/internal/storage"
	"github.com/arkilian/ember/internal/store"
	"github.com/arkilian/ember/pkg/runid"
	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// Config mirrors spec Section 6's Session configuration surface.
type Config struct {
	// Path is the on-disk file path. Ignored if InMemory is true.
	Path string

	// EncryptionKey must be empty or exactly 64 bytes.
	EncryptionKey []byte

	InMemory bool

	SchemaMode SchemaMode

	// Schema and SchemaVersion are the caller's target shape; both are
	// optional (a session can be opened read-only without a target, e.g. for
	// inspection).
	Schema        schemapkg.Schema
	HasSchema     bool
	SchemaVersion uint64

	MigrationFunction MigrationCallback
	RenameHints       []RenameHint

	// ArchiveStore, if set, receives a copy of the file's bytes before
	// ResetFile truncates it. Optional; archival failures are logged as
	// warnings and never block the reset.
	ArchiveStore storage.ObjectStorage
}

// Validate checks the structural preconditions on Config itself (not the
// target schema, which apply() validates separately).
func (c Config) Validate() error {
	if len(c.EncryptionKey) != 0 && len(c.EncryptionKey) != 64 {
		return fmt.Errorf("session: encryption key must be empty or exactly 64 bytes, got %d", len(c.EncryptionKey))
	}
	if !c.InMemory && c.Path == "" {
		return fmt.Errorf("session: path is required unless in_memory is set")
	}
	return nil
}

// Transactor is the optional capability a Store backing may offer for
// explicit transaction boundaries; both MemoryStore and SQLiteStore
// implement it. apply() always runs within Begin/Commit so that a failure
// rolls back on-disk state through the backing store's own transaction
// mechanism, per Section 5's "transaction boundary owned by caller" contract
// restated at this layer.
type Transactor interface {
	Begin() error
	Commit() error
	Rollback() error
}

// Session is the orchestrator entry point: it owns the backing store, the
// session's view of the current schema/version, and dispatches update_schema
// calls to apply().
type Session struct {
	cfg     Config
	store   store.Store
	schema  schemapkg.Schema
	version uint64
	clock   func() time.Time
	runIDs  *runid.Generator
}

// GetShared opens (or creates) a session against cfg. For InMemory sessions
// this wraps a MemoryStore; otherwise a SQLiteStore at cfg.Path. This mirrors
// the original's "get_shared" factory: one call that resolves to either a
// fresh file or an existing one, deriving the in-memory schema/version from
// whatever is already persisted.
func GetShared(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var s store.Store
	if cfg.InMemory {
		s = store.NewMemoryStore()
	} else {
		sqliteStore, err := store.OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		s = sqliteStore
	}

	sess := &Session{cfg: cfg, store: s, clock: time.Now, runIDs: runid.NewGenerator()}

	if err := metadata.EnsureTables(s); err != nil {
		return nil, err
	}
	derived, err := deriveSchema(s)
	if err != nil {
		return nil, err
	}
	sess.schema = derived
	sess.version = metadata.GetVersion(s)

	if cfg.HasSchema {
		if err := sess.UpdateSchema(cfg.Schema, cfg.SchemaVersion, cfg.MigrationFunction, cfg.RenameHints...); err != nil {
			return nil, err
		}
	}

	return sess, nil
}

func (s *Session) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now()
}

// Schema returns the session's current in-memory schema view.
func (s *Session) Schema() schemapkg.Schema { return s.schema }

// SchemaVersion returns the session's current in-memory schema version.
func (s *Session) SchemaVersion() uint64 { return s.version }

// Close releases the backing store, if it supports it.
func (s *Session) Close() error {
	type closer interface{ Close() error }
	if c, ok := s.store.(closer); ok {
		return c.Close()
	}
	return nil
}

// UpdateSchema is the orchestrator entry point named in Section 6:
// apply(target, version, callback). RenameHints, if any, are consumed only
// inside the migration callback window (see apply.go).
func (s *Session) UpdateSchema(target schemapkg.Schema, version uint64, callback MigrationCallback, hints ...RenameHint) error {
	t, ok := s.store.(Transactor)
	if !ok {
		return s.apply(target, version, callback, hints)
	}

	if err := t.Begin(); err != nil {
		return err
	}
	if err := s.apply(target, version, callback, hints); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf("session: apply failed (%w) and rollback failed (%v)", err, rbErr)
		}
		return err
	}
	return t.Commit()
}

// RenameProperty performs a column rename outside of a migration callback —
// the standalone entry point named in Section 6. It is rejected with
// UnknownObjectType if objectType is not a "class_"-prefixed table the core
// manages.
func (s *Session) RenameProperty(objectType, oldName, newName string) error {
	if _, ok := s.store.GetTable(metadata.TableName(objectType)); !ok {
		return ordererr.UnknownObjectType(objectType)
	}
	if err := s.renameProperty(objectType, oldName, newName); err != nil {
		return err
	}
	derived, err := deriveSchema(s.store)
	if err != nil {
		return err
	}
	s.schema = refreshColumnIndices(s.store, mergeComputed(derived, s.schema))
	return nil
}
