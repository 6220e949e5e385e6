/*
Copyright (c) 2024 Ansible Project

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config manages the catalog tool's own configuration: where the
// ansible-galaxy-compatible binary lives, which collections paths to scan,
// how to cache its invocations, and how the HTTP server binds and
// authenticates. It keeps the original Manager's multi-source, viper-backed
// load shape, narrowed to this tool's own settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var configValidator = validator.New()

// ServerSettings controls the HTTP API.
type ServerSettings struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	TLSCertFile  string        `mapstructure:"tls_cert_file"`
	TLSKeyFile   string        `mapstructure:"tls_key_file"`
	JWTIssuer    string        `mapstructure:"jwt_issuer" validate:"required"`
	JWTAudience  []string      `mapstructure:"jwt_audience"`
	JWTTokenTTL  time.Duration `mapstructure:"jwt_token_ttl" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Config represents the complete catalog tool configuration.
type Config struct {
	// GalaxyBinary is the ansible-galaxy-compatible executable to shell out
	// to for collection listing and version discovery.
	GalaxyBinary string `mapstructure:"galaxy_binary" validate:"required"`
	// CollectionsPaths are the roots to discover bundles under, in
	// precedence order.
	CollectionsPaths []string `mapstructure:"collections_paths"`
	// CompatMode also exports the legacy ANSIBLE_COLLECTIONS_PATHS variable
	// alongside ANSIBLE_COLLECTIONS_PATH, for older tool versions.
	CompatMode bool `mapstructure:"compat_mode"`

	// CacheBackend selects "memory" or "jsonfile".
	CacheBackend string        `mapstructure:"cache_backend" validate:"oneof=memory jsonfile"`
	CacheDir     string        `mapstructure:"cache_dir"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`

	Server ServerSettings `mapstructure:"server"`

	fs afero.Fs
}

// Manager handles catalog tool configuration with multiple source support.
type Manager struct {
	config *Config
	viper  *viper.Viper
	fs     afero.Fs
}

// NewManager creates a new configuration manager backed by fs.
func NewManager(fs afero.Fs) *Manager {
	v := viper.New()
	v.SetFs(fs)

	return &Manager{
		config: &Config{fs: fs},
		viper:  v,
		fs:     fs,
	}
}

// LoadConfig loads configuration from multiple sources with proper
// precedence: defaults, then config file, then ANSIBLE_CATALOG_* env vars.
func (m *Manager) LoadConfig() error {
	m.setDefaults()

	m.viper.SetConfigName("ansible-catalog")
	m.addConfigPaths()

	m.viper.SetEnvPrefix("ANSIBLE_CATALOG")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := m.readConfigFile(); err != nil {
		if !isConfigNotFoundError(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	return m.processConfig()
}

// WatchForChanges re-loads the configuration whenever its backing file
// changes on disk, invoking onChange (if non-nil) with the new config after
// each successful reload. Errors during a triggered reload are dropped
// silently, matching fsnotify's fire-and-forget callback shape: onChange is
// not called for that change and the error is not reported anywhere.
func (m *Manager) WatchForChanges(onChange func(*Config)) {
	m.viper.OnConfigChange(func(_ fsnotify.Event) {
		if err := m.viper.Unmarshal(m.config); err != nil {
			return
		}
		if err := m.processConfig(); err != nil {
			return
		}
		if onChange != nil {
			onChange(m.config)
		}
	})
	m.viper.WatchConfig()
}

func (m *Manager) setDefaults() {
	m.viper.SetDefault("galaxy_binary", "ansible-galaxy")
	m.viper.SetDefault("collections_paths", []string{"~/.ansible/collections", "/usr/share/ansible/collections"})
	m.viper.SetDefault("compat_mode", false)

	m.viper.SetDefault("cache_backend", "memory")
	m.viper.SetDefault("cache_dir", "~/.ansible/catalog-cache")
	m.viper.SetDefault("cache_ttl", "5m")

	m.viper.SetDefault("server.host", "0.0.0.0")
	m.viper.SetDefault("server.port", 8443)
	m.viper.SetDefault("server.jwt_issuer", "ansible-catalog")
	m.viper.SetDefault("server.jwt_audience", []string{"ansible-catalog-clients"})
	m.viper.SetDefault("server.jwt_token_ttl", "1h")
	m.viper.SetDefault("server.read_timeout", "15s")
	m.viper.SetDefault("server.write_timeout", "15s")
	m.viper.SetDefault("server.idle_timeout", "60s")
}

func (m *Manager) addConfigPaths() {
	m.viper.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		m.viper.AddConfigPath(home)
		m.viper.AddConfigPath(filepath.Join(home, ".ansible"))
	}

	m.viper.AddConfigPath("/etc/ansible")
}

func (m *Manager) readConfigFile() error {
	formats := []string{"yaml", "yml", "json", "toml"}
	var lastErr error

	for _, format := range formats {
		m.viper.SetConfigType(format)
		if err := m.viper.ReadInConfig(); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("no configuration file found")
}

func (m *Manager) processConfig() error {
	m.config.CollectionsPaths = expandPaths(m.config.CollectionsPaths)
	m.config.CacheDir = expandPath(m.config.CacheDir)

	if err := configValidator.Struct(m.config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfig returns the loaded configuration.
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetValue returns a configuration value by key.
func (m *Manager) GetValue(key string) interface{} {
	return m.viper.Get(key)
}

// SetValue sets a configuration value.
func (m *Manager) SetValue(key string, value interface{}) {
	m.viper.Set(key, value)
}

// LoadConfigFromData loads configuration directly from in-memory data
// (for testing).
func (m *Manager) LoadConfigFromData(data []byte, format string) error {
	m.setDefaults()

	m.viper.SetEnvPrefix("ANSIBLE_CATALOG")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	m.viper.SetConfigType(format)
	if err := m.viper.ReadConfig(strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("error reading config from data: %w", err)
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	return m.processConfig()
}

func expandPath(path string) string {
	if path == "" {
		return path
	}

	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

func expandPaths(paths []string) []string {
	expanded := make([]string, len(paths))
	for i, path := range paths {
		expanded[i] = expandPath(path)
	}
	return expanded
}

func isConfigNotFoundError(err error) bool {
	return strings.Contains(err.Error(), "Not Found") ||
		strings.Contains(err.Error(), "no such file")
}
