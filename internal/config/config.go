// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/polychat/internal/kv"
	"github.com/jeranaias/polychat/internal/layer"
	"github.com/jeranaias/polychat/internal/preset"
	"github.com/jeranaias/polychat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete polychat configuration.
type Config struct {
	Version string `toml:"version" json:"version" yaml:"version"`

	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`
	Presets PresetsConfig `toml:"presets" json:"presets" yaml:"presets"`
	// Layers overrides stacking bands by category name, e.g. [layers.modal].
	Layers map[string]BandConfig `toml:"layers" json:"layers,omitempty" yaml:"layers,omitempty"`
	Server ServerConfig          `toml:"server" json:"server" yaml:"server"`
}

// StorageConfig selects and locates the durable key-value store.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory".
	Backend string `toml:"backend" json:"backend" yaml:"backend"`
	// DataDir holds the file backend's <key>.json files. Empty means
	// <config dir>/data.
	DataDir string `toml:"data_dir" json:"data_dir" yaml:"data_dir"`
	// SQLitePath is the database file. Empty means <data dir>/polychat.db.
	SQLitePath string `toml:"sqlite_path" json:"sqlite_path" yaml:"sqlite_path"`
	// Watch reloads presets when another process rewrites the data dir.
	// Only the file backend supports it.
	Watch bool `toml:"watch" json:"watch" yaml:"watch"`
}

// PresetsConfig tunes the preset store.
type PresetsConfig struct {
	HistoryLimit        int    `toml:"history_limit" json:"history_limit" yaml:"history_limit"`
	HistoryPerPreset    bool   `toml:"history_per_preset" json:"history_per_preset" yaml:"history_per_preset"`
	RecommendationLimit int    `toml:"recommendation_limit" json:"recommendation_limit" yaml:"recommendation_limit"`
	ShareBaseURL        string `toml:"share_base_url" json:"share_base_url" yaml:"share_base_url"`
	SeedBuiltins        bool   `toml:"seed_builtins" json:"seed_builtins" yaml:"seed_builtins"`
}

// BandConfig overrides one category's stacking band.
type BandConfig struct {
	Base int `toml:"base" json:"base" yaml:"base"`
	Span int `toml:"span" json:"span" yaml:"span"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr" yaml:"addr"`
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit    float64 `toml:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	RateBurst    int     `toml:"rate_burst" json:"rate_burst" yaml:"rate_burst"`
	MaxBodyBytes int64   `toml:"max_body_bytes" json:"max_body_bytes" yaml:"max_body_bytes"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Storage: StorageConfig{
			Backend: kv.BackendFile,
			Watch:   true,
		},

		Presets: PresetsConfig{
			HistoryLimit:        preset.DefaultHistoryLimit,
			HistoryPerPreset:    false,
			RecommendationLimit: preset.DefaultRecommendationLimit,
			ShareBaseURL:        "http://127.0.0.1:8686/",
			SeedBuiltins:        true,
		},

		Server: ServerConfig{
			Addr:         "127.0.0.1:8686",
			RateLimit:    20,
			RateBurst:    40,
			MaxBodyBytes: 1 << 20,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the polychat configuration directory. POLYCHAT_HOME
// overrides the default ~/.polychat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("POLYCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".polychat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory used by the file backend.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// KVOptions converts the storage section into kv.Open options.
func (c *Config) KVOptions() (kv.Options, error) {
	dir, err := c.DataDir()
	if err != nil {
		return kv.Options{}, err
	}
	return kv.Options{
		Backend:    c.Storage.Backend,
		Dir:        dir,
		SQLitePath: c.Storage.SQLitePath,
	}, nil
}

// HistoryPolicy converts the presets section into a preset.HistoryPolicy.
func (c *Config) HistoryPolicy() preset.HistoryPolicy {
	return preset.HistoryPolicy{
		Limit:     c.Presets.HistoryLimit,
		PerPreset: c.Presets.HistoryPerPreset,
	}
}

// LayerTable returns the default stacking bands with the configured
// overrides applied. A span of 0 keeps the default span.
func (c *Config) LayerTable() (layer.Table, error) {
	table := layer.DefaultTable()
	for name, band := range c.Layers {
		cat, err := layer.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		b := table[cat]
		b.Base = band.Base
		if band.Span > 0 {
			b.Span = band.Span
		}
		table[cat] = b
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.polychat/config.toml if present, then applies .env files
// and POLYCHAT_* environment overrides. A missing file yields defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return LoadFromPath(path)
	}

	cfg := Default()
	return finish(cfg, filepath.Dir(path))
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation. Keys missing from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg, filepath.Dir(path))
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func finish(cfg *Config, dir string) (*Config, error) {
	if err := LoadDotEnv(dir); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv exports variables from <dir>/.env and ./.env into the process
// environment. Variables already set win, and the current directory's file
// wins over the config directory's.
func LoadDotEnv(dir string) error {
	for _, path := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML atomically writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# polychat configuration file")
	fmt.Fprintln(&buf, "# Generated by polychat - edit with care")
	fmt.Fprintln(&buf, "")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
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

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidationErrors.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Storage.Backend {
	case kv.BackendFile, kv.BackendSQLite, kv.BackendMemory:
	default:
		add("storage.backend", "invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend)
	}

	if c.Presets.HistoryLimit < 1 || c.Presets.HistoryLimit > 100000 {
		add("presets.history_limit", "must be 1-100000, got %d", c.Presets.HistoryLimit)
	}
	if c.Presets.RecommendationLimit < 1 || c.Presets.RecommendationLimit > 100 {
		add("presets.recommendation_limit", "must be 1-100, got %d", c.Presets.RecommendationLimit)
	}
	if c.Presets.ShareBaseURL != "" {
		u, err := url.Parse(c.Presets.ShareBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			add("presets.share_base_url", "must be an absolute URL, got '%s'", c.Presets.ShareBaseURL)
		}
	}

	if len(c.Layers) > 0 {
		if _, err := c.LayerTable(); err != nil {
			add("layers", "%v", err)
		}
	}

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", "invalid address '%s': %v", c.Server.Addr, err)
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "cannot be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		add("server.rate_burst", "must be at least 1 when rate_limit is set")
	}
	if c.Server.MaxBodyBytes < 1024 {
		add("server.max_body_bytes", "must be at least 1024, got %d", c.Server.MaxBodyBytes)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Presets.HistoryLimit == 0 {
		c.Presets.HistoryLimit = defaults.Presets.HistoryLimit
	}
	if c.Presets.RecommendationLimit == 0 {
		c.Presets.RecommendationLimit = defaults.Presets.RecommendationLimit
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst == 0 {
		c.Server.RateBurst = int(c.Server.RateLimit * 2)
		if c.Server.RateBurst < 1 {
			c.Server.RateBurst = 1
		}
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// envOverrides maps environment variables to dot-notation keys.
var envOverrides = []struct {
	env string
	key string
}{
	{"POLYCHAT_STORAGE_BACKEND", "storage.backend"},
	{"POLYCHAT_DATA_DIR", "storage.data_dir"},
	{"POLYCHAT_SQLITE_PATH", "storage.sqlite_path"},
	{"POLYCHAT_WATCH", "storage.watch"},
	{"POLYCHAT_HISTORY_LIMIT", "presets.history_limit"},
	{"POLYCHAT_HISTORY_PER_PRESET", "presets.history_per_preset"},
	{"POLYCHAT_SHARE_BASE_URL", "presets.share_base_url"},
	{"POLYCHAT_SEED_BUILTINS", "presets.seed_builtins"},
	{"POLYCHAT_ADDR", "server.addr"},
	{"POLYCHAT_RATE_LIMIT", "server.rate_limit"},
	{"POLYCHAT_RATE_BURST", "server.rate_burst"},
}

// ApplyEnvOverrides applies POLYCHAT_* environment variables:
//
//   - POLYCHAT_STORAGE_BACKEND, POLYCHAT_DATA_DIR, POLYCHAT_SQLITE_PATH, POLYCHAT_WATCH
//   - POLYCHAT_HISTORY_LIMIT, POLYCHAT_HISTORY_PER_PRESET, POLYCHAT_SHARE_BASE_URL, POLYCHAT_SEED_BUILTINS
//   - POLYCHAT_ADDR, POLYCHAT_RATE_LIMIT, POLYCHAT_RATE_BURST
func (c *Config) ApplyEnvOverrides() error {
	for _, o := range envOverrides {
		value, ok := os.LookupEnv(o.env)
		if !ok || value == "" {
			continue
		}
		if err := c.Set(o.key, value); err != nil {
			return fmt.Errorf("%s: %w", o.env, err)
		}
	}
	return nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "server.addr").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field := fieldByTag(v, part)
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds a struct field by its toml tag.
func fieldByTag(v reflect.Value, name string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if strings.EqualFold(tag, name) {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

// setFieldValue sets a reflect.Value from a value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strings.ToLower(strVal))
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
				if !boolVal && !strings.EqualFold(strVal, "no") {
					return fmt.Errorf("invalid boolean value: %q", strVal)
				}
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dot notation, sorted.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			tag := strings.Split(f.Tag.Get("toml"), ",")[0]
			if tag == "" || tag == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+tag+".")
				continue
			}
			if f.Type.Kind() == reflect.Map {
				continue
			}
			keys = append(keys, prefix+tag)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	sort.Strings(keys)
	return keys
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Layers != nil {
		clone.Layers = make(map[string]BandConfig, len(c.Layers))
		for k, v := range c.Layers {
			clone.Layers[k] = v
		}
	}
	return &clone
}

// String returns the config as indented JSON for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. Load errors fall back to defaults.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
