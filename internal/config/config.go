// Package config provides file-based configuration for ember sessions and
// CLI invocations: the session's path/key/mode surface, plus the on-disk
// schema definition a Config.SchemaFile points at.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arkilian/ember/internal/session"
)

// Config is the unified on-disk configuration for an ember session.
type Config struct {
	// Path is the database file path. Ignored if InMemory.
	Path string `json:"path" yaml:"path"`

	// EncryptionKeyHex is the hex-encoded 64-byte encryption key, or empty.
	EncryptionKeyHex string `json:"encryption_key_hex" yaml:"encryption_key_hex"`

	InMemory bool `json:"in_memory" yaml:"in_memory"`

	// SchemaMode is one of Automatic, ReadOnly, ResetFile, Additive, Manual.
	SchemaMode string `json:"schema_mode" yaml:"schema_mode"`

	// SchemaFile, if set, points at a YAML schema definition (see schema.go)
	// applied as the session's target on open.
	SchemaFile    string `json:"schema_file" yaml:"schema_file"`
	SchemaVersion uint64 `json:"schema_version" yaml:"schema_version"`

	// Archive configures optional pre-reset archival (local directory or S3)
	// under ResetFile.
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
}

// ArchiveConfig configures the archival target used before ResetFile
// truncates a file. Set LocalDir for a filesystem-backed archive (useful for
// local development and tests); set Bucket for S3-compatible storage.
// LocalDir takes precedence if both are set.
type ArchiveConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	LocalDir     string `json:"local_dir" yaml:"local_dir"`
	Bucket       string `json:"bucket" yaml:"bucket"`
	Region       string `json:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Path:       "./data/ember.db",
		SchemaMode: "Automatic",
	}
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// Validate checks structural preconditions on the raw file config.
func (c *Config) Validate() error {
	switch c.SchemaMode {
	case "Automatic", "ReadOnly", "ResetFile", "Additive", "Manual":
	default:
		return fmt.Errorf("config: invalid schema_mode %q", c.SchemaMode)
	}
	if !c.InMemory && c.Path == "" {
		return fmt.Errorf("config: path is required unless in_memory is set")
	}
	if c.EncryptionKeyHex != "" {
		key, err := hex.DecodeString(c.EncryptionKeyHex)
		if err != nil {
			return fmt.Errorf("config: encryption_key_hex is not valid hex: %w", err)
		}
		if len(key) != 64 {
			return fmt.Errorf("config: encryption key must decode to exactly 64 bytes, got %d", len(key))
		}
	}
	if c.Archive.Enabled && c.Archive.LocalDir == "" && c.Archive.Bucket == "" {
		return fmt.Errorf("config: archive.local_dir or archive.bucket is required when archive.enabled is set")
	}
	return nil
}

func schemaModeFromString(m string) session.SchemaMode {
	switch m {
	case "ReadOnly":
		return session.ReadOnly
	case "ResetFile":
		return session.ResetFile
	case "Additive":
		return session.Additive
	case "Manual":
		return session.Manual
	default:
		return session.Automatic
	}
}

// ToSessionConfig resolves c into a session.Config ready for
// session.GetShared, loading and parsing SchemaFile (if set) and configuring
// local or S3 archival (if enabled).
func ToSessionConfig(c *Config) (session.Config, error) {
	if err := c.Validate(); err != nil {
		return session.Config{}, err
	}

	sc := session.Config{
		Path:       c.Path,
		InMemory:   c.InMemory,
		SchemaMode: schemaModeFromString(c.SchemaMode),
	}

	if c.EncryptionKeyHex != "" {
		key, err := hex.DecodeString(c.EncryptionKeyHex)
		if err != nil {
			return session.Config{}, err
		}
		sc.EncryptionKey = key
	}

	if c.SchemaFile != "" {
		target, err := LoadSchemaFile(c.SchemaFile)
		if err != nil {
			return session.Config{}, err
		}
		sc.Schema = target
		sc.HasSchema = true
		sc.SchemaVersion = c.SchemaVersion
	}

	if c.Archive.Enabled {
		archiveStore, err := newArchiveStore(c.Archive)
		if err != nil {
			return session.Config{}, err
		}
		sc.ArchiveStore = archiveStore
	}

	return sc, nil
}
