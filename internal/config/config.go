// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatstore.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.chatstore/config.toml
//   - ~/.chatstore/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"

	"github.com/jeranaias/chatstore/internal/slug"
	"github.com/jeranaias/chatstore/internal/storage"
	"github.com/jeranaias/chatstore/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatstore configuration.
type Config struct {
	// Storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Slug allocation
	Slugs SlugConfig `toml:"slugs" json:"slugs"`

	// Session id scheme
	Sessions SessionConfig `toml:"sessions" json:"sessions"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`
}

// StorageConfig selects and tunes the embedded store.
type StorageConfig struct {
	// Path is the database file. Empty disables history.
	Path string `toml:"path" json:"path"`

	// Backend is "sqlite" or "bolt".
	Backend string `toml:"backend" json:"backend"`

	// Recovery is "backup" or "recreate" and applies to schema version conflicts.
	Recovery string `toml:"recovery" json:"recovery"`

	// BusyTimeoutMs bounds waits on a locked database.
	BusyTimeoutMs int `toml:"busy_timeout_ms" json:"busy_timeout_ms"`
}

// SlugConfig tunes the slug allocator.
type SlugConfig struct {
	MaxProbes    int    `toml:"max_probes" json:"max_probes"`
	RandomPrefix string `toml:"random_prefix" json:"random_prefix"`
}

// SessionConfig controls new session ids.
type SessionConfig struct {
	// IDScheme is "numeric" (max+1 counters) or "uuid".
	IDScheme string `toml:"id_scheme" json:"id_scheme"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `toml:"level" json:"level"`

	// File receives log output instead of stderr when set.
	File string `toml:"file" json:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dbPath := ""
	if dir, err := ConfigDir(); err == nil {
		dbPath = filepath.Join(dir, "chats.db")
	}
	return &Config{
		Storage: StorageConfig{
			Path:          dbPath,
			Backend:       string(storage.BackendSQLite),
			Recovery:      string(storage.RecoveryBackup),
			BusyTimeoutMs: 5000,
		},
		Slugs: SlugConfig{
			MaxProbes:    slug.DefaultMaxProbes,
			RandomPrefix: slug.DefaultRandomPrefix,
		},
		Sessions: SessionConfig{
			IDScheme: "numeric",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chatstore configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".chatstore"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to decode TOML file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return errors.Newf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read JSON file")
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, "failed to decode JSON file")
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
// Unset values keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "failed to load JSON config from %s", path)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "failed to load TOML config from %s", path)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// SetDefaults fills zero values that have a default.
// Storage.Path is left alone: an empty path deliberately disables history.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Storage.Recovery == "" {
		c.Storage.Recovery = defaults.Storage.Recovery
	}
	if c.Storage.BusyTimeoutMs == 0 {
		c.Storage.BusyTimeoutMs = defaults.Storage.BusyTimeoutMs
	}
	if c.Slugs.MaxProbes == 0 {
		c.Slugs.MaxProbes = defaults.Slugs.MaxProbes
	}
	if c.Slugs.RandomPrefix == "" {
		c.Slugs.RandomPrefix = defaults.Slugs.RandomPrefix
	}
	if c.Sessions.IDScheme == "" {
		c.Sessions.IDScheme = defaults.Sessions.IDScheme
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file atomically.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chatstore configuration file\n")
	buf.WriteString("# Generated by chatstore - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file atomically.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// maxBusyTimeoutMs caps storage.busy_timeout_ms at ten minutes.
const maxBusyTimeoutMs = 10 * 60 * 1000

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, ok := storage.ParseBackend(c.Storage.Backend); !ok {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: sqlite, bolt", c.Storage.Backend),
		})
	}
	if _, ok := storage.ParseRecoveryMode(c.Storage.Recovery); !ok {
		errs = append(errs, ValidationError{
			Field:   "storage.recovery",
			Message: fmt.Sprintf("invalid recovery mode '%s', must be one of: backup, recreate", c.Storage.Recovery),
		})
	}
	if c.Storage.BusyTimeoutMs < 0 || c.Storage.BusyTimeoutMs > maxBusyTimeoutMs {
		errs = append(errs, ValidationError{
			Field:   "storage.busy_timeout_ms",
			Message: fmt.Sprintf("must be between 0 and %d, got %d", maxBusyTimeoutMs, c.Storage.BusyTimeoutMs),
		})
	}

	if c.Slugs.MaxProbes < 1 {
		errs = append(errs, ValidationError{
			Field:   "slugs.max_probes",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Slugs.MaxProbes),
		})
	}
	if c.Slugs.RandomPrefix != "" && slug.Sanitize(c.Slugs.RandomPrefix) != c.Slugs.RandomPrefix {
		errs = append(errs, ValidationError{
			Field:   "slugs.random_prefix",
			Message: fmt.Sprintf("'%s' may only contain letters, digits, '-' and '_'", c.Slugs.RandomPrefix),
		})
	}

	switch strings.ToLower(c.Sessions.IDScheme) {
	case "", "numeric", "uuid":
	default:
		errs = append(errs, ValidationError{
			Field:   "sessions.id_scheme",
			Message: fmt.Sprintf("invalid id scheme '%s', must be one of: numeric, uuid", c.Sessions.IDScheme),
		})
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error, fatal", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - CHATSTORE_DB: overrides storage.path
//   - CHATSTORE_BACKEND: overrides storage.backend
//   - CHATSTORE_RECOVERY: overrides storage.recovery
//   - CHATSTORE_LOG_LEVEL: overrides log.level
//   - CHATSTORE_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() {
	if path := os.Getenv("CHATSTORE_DB"); path != "" {
		c.Storage.Path = path
	}
	if backend := os.Getenv("CHATSTORE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if recovery := os.Getenv("CHATSTORE_RECOVERY"); recovery != "" {
		c.Storage.Recovery = recovery
	}
	if level := os.Getenv("CHATSTORE_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if file := os.Getenv("CHATSTORE_LOG_FILE"); file != "" {
		c.Log.File = file
	}
}

// =============================================================================
// WIRING
// =============================================================================

// StorageOptions converts the storage section into storage.Options.
func (c *Config) StorageOptions(logger *log.Logger) storage.Options {
	backend, _ := storage.ParseBackend(c.Storage.Backend)
	recovery, _ := storage.ParseRecoveryMode(c.Storage.Recovery)
	return storage.Options{
		Path:        c.Storage.Path,
		Backend:     backend,
		Recovery:    recovery,
		BusyTimeout: time.Duration(c.Storage.BusyTimeoutMs) * time.Millisecond,
		Logger:      logger,
	}
}

// Allocator builds the slug allocator described by the slugs section.
func (c *Config) Allocator() *slug.Allocator {
	a := slug.New()
	if c.Slugs.MaxProbes > 0 {
		a.MaxProbes = c.Slugs.MaxProbes
	}
	if c.Slugs.RandomPrefix != "" {
		a.RandomPrefix = c.Slugs.RandomPrefix
	}
	return a
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "storage.backend").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "storage.backend").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return errors.Newf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks a dotted key to a leaf field.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, errors.Newf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, errors.Newf("'%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, errors.Newf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, errors.Newf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return errors.Wrap(err, "invalid integer value")
			}
			field.SetInt(intVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("cannot assign nil")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return errors.Newf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every configuration key in dot notation.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := tomlName(section)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+tomlName(section.Type.Field(j)))
		}
	}
	return keys
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	if name == "" {
		return strings.ToLower(f.Name)
	}
	return name
}
