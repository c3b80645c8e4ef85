package session

import (
	"fmt"
	"log"

	"github.com/arkilian/ember/internal/diff"
	"github.com/arkilian/ember/internal/metadata"
	"github.com/arkilian/ember/internal/ordererr"
	"github.com/arkilian/ember/internal/validator"
	"github.com/arkilian/ember/pkg/runid"
	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// SchemaMode selects the orchestrator's policy for reconciling a target
// schema against the store's current shape.
type SchemaMode int

const (
	Automatic SchemaMode = iota
	ReadOnly
	ResetFile
	Additive
	// Manual is declared for config-surface completeness only; apply()
	// rejects it outright, matching the original's "declared but
	// unimplemented" status.
	Manual
)

func (m SchemaMode) String() string {
	switch m {
	case Automatic:
		return "Automatic"
	case ReadOnly:
		return "ReadOnly"
	case ResetFile:
		return "ResetFile"
	case Additive:
		return "Additive"
	case Manual:
		return "Manual"
	default:
		return "Unknown"
	}
}

// MigrationCallback is invoked between the pre- and post-migration phases of
// an Automatic upgrade. It sees the new-shape schema (via the session it's
// handed) with soon-to-be-removed columns still present — the window that
// lets a callback copy data out of a column being retired.
type MigrationCallback func(s *Session, oldVersion, newVersion uint64) error

// RenameHint names a column rename to apply inside the migration callback
// window, supplied by the caller rather than discovered by the diff engine —
// the diff engine has no rename detection, per original_source/.
type RenameHint struct {
	ObjectType string
	OldName    string
	NewName    string
}

// apply runs the full orchestrator algorithm described in the design: policy
// dispatch, pre/post migration phases, the callback window, primary-key
// uniqueness enforcement, and rollback of in-memory state on failure. s is
// mutated on success; on failure s.schema/s.version are left exactly as they
// were on entry.
func (s *Session) apply(target schemapkg.Schema, targetVersion uint64, callback MigrationCallback, hints []RenameHint) error {
	if s.cfg.SchemaMode == Manual {
		return ordererr.New(ordererr.CategoryMismatch, ordererr.CodeSchemaMismatch, "Manual schema mode is not implemented")
	}

	if errs := validator.Validate(target); len(errs) > 0 {
		return ordererr.SchemaValidationFailure(toOffenders(errs))
	}

	runID, err := s.runIDs.New()
	if err != nil {
		return fmt.Errorf("session: failed to generate run id: %w", err)
	}
	log.Printf("[session] run=%s mode=%s starting apply: target_version=%d", runID, s.cfg.SchemaMode, targetVersion)

	if err := metadata.EnsureTables(s.store); err != nil {
		return err
	}

	currentVersion := metadata.GetVersion(s.store)
	if currentVersion != metadata.NotVersioned && currentVersion > targetVersion && s.cfg.SchemaMode != Additive {
		return ordererr.InvalidSchemaVersion(currentVersion, targetVersion)
	}

	savedSchema, savedVersion := s.schema, s.version

	switch s.cfg.SchemaMode {
	case Automatic:
		err = s.applyAutomatic(runID, target, targetVersion, currentVersion, callback, hints)
	case ReadOnly:
		err = s.applyReadOnly(target)
	case ResetFile:
		err = s.applyResetFile(runID, target, targetVersion, currentVersion)
	case Additive:
		err = s.applyAdditive(target, targetVersion, currentVersion)
	default:
		err = fmt.Errorf("session: unknown schema mode %v", s.cfg.SchemaMode)
	}

	if err != nil {
		log.Printf("[session] run=%s apply failed, restoring in-memory schema/version: %v", runID, err)
		s.schema, s.version = savedSchema, savedVersion
		return err
	}

	derived, derr := deriveSchema(s.store)
	if derr != nil {
		return derr
	}
	s.schema = refreshColumnIndices(s.store, mergeComputed(derived, target))
	s.version = metadata.GetVersion(s.store)

	if herr := metadata.RecordHistory(s.store, s.schema, s.version, s.now()); herr != nil {
		log.Printf("[session] run=%s warning: failed to record schema_history: %v", runID, herr)
	}

	log.Printf("[session] run=%s apply complete: version=%d", runID, s.version)
	return nil
}

// applyAutomatic implements the Automatic policy's three branches: same
// version (restricted additive set), NotVersioned (fresh file), and upgrade
// (full pre/callback/post pipeline).
func (s *Session) applyAutomatic(runID runid.RunID, target schemapkg.Schema, targetVersion, currentVersion uint64, callback MigrationCallback, hints []RenameHint) error {
	current, err := deriveSchema(s.store)
	if err != nil {
		return err
	}
	changes := diff.Diff(current, target)

	switch {
	case currentVersion == targetVersion:
		return s.applySameVersion(changes)
	case currentVersion == metadata.NotVersioned:
		return s.applyInitialCreation(changes, targetVersion)
	default:
		return s.applyUpgrade(runID, changes, target, targetVersion, callback, hints)
	}
}

// applySameVersion permits only AddTable, AddProperty-for-new-tables,
// AddIndex, and RemoveIndex; anything else is a SchemaMismatch.
func (s *Session) applySameVersion(changes diff.Changes) error {
	newTables := make(map[string]bool)
	for _, c := range changes {
		if c.Kind == diff.AddTable {
			newTables[c.Object.Name] = true
		}
	}

	var offenders []ordererr.Offender
	for _, c := range changes {
		switch c.Kind {
		case diff.AddTable:
			if err := s.createTable(c.Object); err != nil {
				return err
			}
		case diff.AddProperty:
			if !newTables[c.Object.Name] {
				offenders = append(offenders, ordererr.Offender{ObjectType: c.Object.Name, Property: c.Property.Name, Message: "adding a property requires a version increase"})
				continue
			}
			if err := s.addPropertyToExistingTable(c.Object.Name, c.Property); err != nil {
				return err
			}
		case diff.AddIndex:
			if err := s.toggleIndex(c.Object.Name, c.Property, true); err != nil {
				return err
			}
		case diff.RemoveIndex:
			if err := s.toggleIndex(c.Object.Name, c.Property, false); err != nil {
				return err
			}
		default:
			offenders = append(offenders, ordererr.Offender{ObjectType: c.Object.Name, Message: fmt.Sprintf("%s requires a version increase", c.Kind)})
		}
	}
	if len(offenders) > 0 {
		return ordererr.SchemaMismatch(offenders)
	}
	return nil
}

// applyInitialCreation builds every table from scratch, applying the full
// change list tolerantly since it is purely additive by construction (there
// is no prior schema to conflict with).
func (s *Session) applyInitialCreation(changes diff.Changes, targetVersion uint64) error {
	for _, c := range changes {
		switch c.Kind {
		case diff.AddTable:
			if err := s.createTable(c.Object); err != nil {
				return err
			}
		case diff.AddProperty:
			if err := s.addPropertyToExistingTable(c.Object.Name, c.Property); err != nil {
				return err
			}
		case diff.AddIndex:
			if err := s.toggleIndex(c.Object.Name, c.Property, true); err != nil {
				return err
			}
		case diff.ChangePrimaryKey:
			if err := s.setPrimaryKey(c.Object.Name, c.NewPrimaryKey); err != nil {
				return err
			}
		}
	}
	return metadata.SetVersion(s.store, targetVersion)
}

// applyUpgrade runs the full pre-migration / callback / post-migration
// pipeline described in spec Section 4.3.
func (s *Session) applyUpgrade(runID runid.RunID, changes diff.Changes, target schemapkg.Schema, targetVersion uint64, callback MigrationCallback, hints []RenameHint) error {
	log.Printf("[session] run=%s phase=pre-migration: %d changes", runID, len(changes))
	for _, c := range changes {
		// RemoveProperty is deferred to the post-migration phase below, so
		// the callback window still sees the soon-to-be-removed column.
		if c.Kind == diff.RemoveProperty {
			continue
		}
		// A property the caller has flagged as the destination of a rename
		// is created by renameProperty itself inside the callback window
		// below, not by AddProperty here — otherwise the rename would find
		// the target column already occupied.
		if c.Kind == diff.AddProperty && isRenameTarget(hints, c.Object.Name, c.Property.Name) {
			continue
		}
		if err := s.applyPreMigrationChange(c); err != nil {
			return err
		}
	}

	oldVersion := s.version
	s.version = targetVersion
	s.schema = target
	if err := metadata.SetVersion(s.store, targetVersion); err != nil {
		return err
	}

	if callback != nil {
		log.Printf("[session] run=%s phase=callback: %d->%d", runID, oldVersion, targetVersion)
		if err := callback(s, oldVersion, targetVersion); err != nil {
			return err
		}
	}
	for _, h := range hints {
		if err := s.renameProperty(h.ObjectType, h.OldName, h.NewName); err != nil {
			return err
		}
	}

	log.Printf("[session] run=%s phase=post-migration", runID)
	reDerived, err := deriveSchema(s.store)
	if err != nil {
		return err
	}
	postChanges := diff.Diff(reDerived, target)
	for _, c := range postChanges {
		if c.Kind != diff.RemoveProperty {
			continue
		}
		if target.Find(c.Object.Name).PropertyForName(c.Property.Name) != nil {
			// Callback renamed onto this name from elsewhere; not a removal.
			continue
		}
		if err := s.removeProperty(c.Object.Name, c.Property); err != nil {
			return err
		}
	}

	return s.enforcePrimaryKeyUniquenessAll(target)
}

// isRenameTarget reports whether (objectType, property) is the destination
// name of one of hints.
func isRenameTarget(hints []RenameHint, objectType, property string) bool {
	for _, h := range hints {
		if h.ObjectType == objectType && h.NewName == property {
			return true
		}
	}
	return false
}

// applyPreMigrationChange handles one non-RemoveProperty change during the
// pre-migration phase of an Automatic upgrade.
func (s *Session) applyPreMigrationChange(c diff.Change) error {
	switch c.Kind {
	case diff.AddTable:
		return s.createTable(c.Object)
	case diff.AddProperty:
		return s.addPropertyToExistingTable(c.Object.Name, c.Property)
	case diff.ChangePropertyType:
		return s.changePropertyType(c.Object.Name, c.OldProperty, c.NewProperty)
	case diff.MakePropertyNullable:
		return s.makePropertyNullable(c.Object.Name, c.Property)
	case diff.MakePropertyRequired:
		return s.makePropertyRequired(c.Object.Name, c.Property)
	case diff.ChangePrimaryKey:
		return s.changePrimaryKey(c.Object.Name, c.NewPrimaryKey)
	case diff.AddIndex:
		return s.toggleIndex(c.Object.Name, c.Property, true)
	case diff.RemoveIndex:
		return s.toggleIndex(c.Object.Name, c.Property, false)
	default:
		return fmt.Errorf("session: unexpected pre-migration change kind %v", c.Kind)
	}
}

// applyReadOnly permits only AddTable for tables missing from the file, and
// tolerates AddIndex/RemoveIndex as no-ops; any other diff is a
// SchemaMismatch and the store is never mutated.
func (s *Session) applyReadOnly(target schemapkg.Schema) error {
	current, err := deriveSchema(s.store)
	if err != nil {
		return err
	}
	changes := diff.Diff(current, target)

	var offenders []ordererr.Offender
	for _, c := range changes {
		switch c.Kind {
		case diff.AddTable, diff.AddIndex, diff.RemoveIndex:
			continue
		default:
			offenders = append(offenders, ordererr.Offender{ObjectType: c.Object.Name, Message: fmt.Sprintf("%s is not permitted under ReadOnly", c.Kind)})
		}
	}
	if len(offenders) > 0 {
		return ordererr.SchemaMismatch(offenders)
	}
	return nil
}

// applyResetFile truncates and recreates the entire store if any diff
// implies a non-additive change or an explicit version increase; otherwise
// it applies the purely additive diff in place.
func (s *Session) applyResetFile(runID runid.RunID, target schemapkg.Schema, targetVersion, currentVersion uint64) error {
	current, err := deriveSchema(s.store)
	if err != nil {
		return err
	}
	changes := diff.Diff(current, target)

	newTables := make(map[string]bool)
	additive := true
	for _, c := range changes {
		if c.Kind == diff.AddTable {
			newTables[c.Object.Name] = true
		} else if c.Kind != diff.AddIndex && c.Kind != diff.RemoveIndex && !(c.Kind == diff.AddProperty && newTables[c.Object.Name]) {
			additive = false
		}
	}

	if additive && targetVersion <= currentVersion {
		for _, c := range changes {
			switch c.Kind {
			case diff.AddTable:
				if err := s.createTable(c.Object); err != nil {
					return err
				}
			case diff.AddProperty:
				if err := s.addPropertyToExistingTable(c.Object.Name, c.Property); err != nil {
					return err
				}
			case diff.AddIndex:
				if err := s.toggleIndex(c.Object.Name, c.Property, true); err != nil {
					return err
				}
			case diff.RemoveIndex:
				if err := s.toggleIndex(c.Object.Name, c.Property, false); err != nil {
					return err
				}
			}
		}
		return metadata.SetVersion(s.store, targetVersion)
	}

	log.Printf("[session] run=%s ResetFile: resetting file due to non-additive change (version %d -> %d)", runID, currentVersion, targetVersion)
	if err := s.archiveBeforeReset(runID); err != nil {
		log.Printf("[session] run=%s warning: pre-reset archival failed, proceeding with reset: %v", runID, err)
	}
	for _, name := range s.store.TableNames() {
		if _, ok := metadata.ObjectTypeForTableName(name); ok {
			if err := s.store.RemoveTable(name); err != nil {
				return err
			}
		}
	}
	if err := metadata.EnsureTables(s.store); err != nil {
		return err
	}
	return s.applyInitialCreation(diff.Diff(schemapkg.New(), target), targetVersion)
}

// applyAdditive permits only AddTable, AddProperty, AddIndex, RemoveIndex.
// The version may be less than current (no downgrade error) but the stored
// version is never decreased; index changes only take effect if
// targetVersion strictly increases the stored version. Migration callbacks
// are never invoked under this policy even if supplied.
func (s *Session) applyAdditive(target schemapkg.Schema, targetVersion, currentVersion uint64) error {
	current, err := deriveSchema(s.store)
	if err != nil {
		return err
	}
	changes := diff.Diff(current, target)

	versionIncreased := currentVersion == metadata.NotVersioned || targetVersion > currentVersion

	var offenders []ordererr.Offender
	for _, c := range changes {
		switch c.Kind {
		case diff.AddTable:
			if err := s.createTable(c.Object); err != nil {
				return err
			}
		case diff.AddProperty:
			if err := s.addPropertyToExistingTable(c.Object.Name, c.Property); err != nil {
				return err
			}
		case diff.AddIndex:
			if versionIncreased {
				if err := s.toggleIndex(c.Object.Name, c.Property, true); err != nil {
					return err
				}
			}
		case diff.RemoveIndex:
			if versionIncreased {
				if err := s.toggleIndex(c.Object.Name, c.Property, false); err != nil {
					return err
				}
			}
		default:
			offenders = append(offenders, ordererr.Offender{ObjectType: c.Object.Name, Message: fmt.Sprintf("%s is not permitted under Additive", c.Kind)})
		}
	}
	if len(offenders) > 0 {
		return ordererr.SchemaMismatch(offenders)
	}

	newVersion := currentVersion
	if currentVersion == metadata.NotVersioned || targetVersion > currentVersion {
		newVersion = targetVersion
	}
	return metadata.SetVersion(s.store, newVersion)
}

func toOffenders(errs []*validator.Error) []ordererr.Offender {
	offenders := make([]ordererr.Offender, 0, len(errs))
	for _, e := range errs {
		offenders = append(offenders, ordererr.Offender{ObjectType: e.Path, Message: e.Message})
	}
	return offenders
}
