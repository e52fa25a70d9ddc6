package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bryanchriswhite/screencap/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. SCREENCAP_SERVER_PORT.
const EnvPrefix = "SCREENCAP"

// Manager handles configuration
type Manager struct {
	configPath string
	v          *viper.Viper
	// persist holds values given to Set; Save writes them with the file layer.
	persist map[string]any
	mu      sync.RWMutex
}

// DefaultPath returns $HOME/.config/screencap/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "screencap", "config.yaml"), nil
}

// NewManager loads configFile, or the default path when it is empty. A
// missing file is created with defaults. Environment variables override
// file values.
func NewManager(configFile string) (*Manager, error) {
	path := configFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Defaults())

	m := &Manager{
		configPath: path,
		v:          v,
		persist:    make(map[string]any),
	}

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config loaded")

	return m, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_pretty", d.LogPretty)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("image_format", d.ImageFormat)
	v.SetDefault("jpeg_quality", d.JPEGQuality)
	v.SetDefault("exclude_self", d.ExcludeSelf)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("filter.tool_window_allow_classes", d.Filter.ToolWindowAllowClasses)
	v.SetDefault("filter.deny_classes", d.Filter.DenyClasses)
	v.SetDefault("limits.max_records", d.Limits.MaxRecords)
	v.SetDefault("limits.max_buffer_bytes", d.Limits.MaxBufferBytes)
}

// Get returns a snapshot of the effective configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, err := decode(m.v)
	if err != nil {
		logger.WithComponent("config").Warn().Err(err).Msg("Failed to decode config, using defaults")
		return Defaults()
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Filter.ToolWindowAllowClasses == nil {
		cfg.Filter.ToolWindowAllowClasses = []string{}
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{}
	}
	if cfg.Filter.DenyClasses == nil {
		cfg.Filter.DenyClasses = []string{}
	}
	return &cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// fileConfig rebuilds the configuration from defaults, the file on disk and
// the values given to Set. Environment variables and Override values are
// not part of it.
func (m *Manager) fileConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(m.configPath)
	v.SetConfigType("yaml")
	setDefaults(v, Defaults())
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	m.mu.RLock()
	for key, value := range m.persist {
		v.Set(key, value)
	}
	m.mu.RUnlock()

	cfg, err := decode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Save writes the file layer plus every Set value to disk
func (m *Manager) Save() error {
	cfg, err := m.fileConfig()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Keys lists every settable configuration key.
var Keys = []string{
	"log_level",
	"log_pretty",
	"output_dir",
	"image_format",
	"jpeg_quality",
	"exclude_self",
	"server.host",
	"server.port",
	"server.allowed_origins",
	"filter.tool_window_allow_classes",
	"filter.deny_classes",
	"limits.max_records",
	"limits.max_buffer_bytes",
}

// Set parses and validates value for key and applies it in memory. Call
// Save to persist it.
func (m *Manager) Set(key, value string) error {
	parsed, err := parseValue(key, value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.persist[key] = parsed
	m.v.Set(key, parsed)
	m.mu.Unlock()
	return nil
}

// Override applies an already typed value in memory, taking precedence over
// the file and environment. Save does not persist it.
func (m *Manager) Override(key string, value any) {
	m.mu.Lock()
	m.v.Set(key, value)
	m.mu.Unlock()
}

// Lookup returns the effective value of key.
func (m *Manager) Lookup(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.v.IsSet(key) {
		return nil, false
	}
	return m.v.Get(key), true
}

func parseValue(key, value string) (any, error) {
	switch key {
	case "log_level":
		switch strings.ToLower(value) {
		case "trace", "debug", "info", "warn", "error", "disabled":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
	case "log_pretty", "exclude_self":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		return b, nil
	case "image_format":
		switch strings.ToLower(value) {
		case "png", "jpeg", "jpg", "bmp":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("invalid image format: %s (use: png, jpeg, bmp)", value)
	case "jpeg_quality":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 100 {
			return nil, fmt.Errorf("invalid jpeg quality: %s (use 1-100)", value)
		}
		return n, nil
	case "server.port":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("invalid port number: %s", value)
		}
		return n, nil
	case "limits.max_records":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid record limit: %s", value)
		}
		return n, nil
	case "limits.max_buffer_bytes":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 1 || n > math.MaxUint32 {
			return nil, fmt.Errorf("invalid buffer limit: %s (use 1-%d)", value, uint64(math.MaxUint32))
		}
		return n, nil
	case "filter.tool_window_allow_classes", "filter.deny_classes":
		return splitList(value), nil
	case "server.allowed_origins":
		origins := splitList(value)
		for i, o := range origins {
			u, err := url.Parse(o)
			if err != nil || u.Scheme == "" || u.Host == "" || (u.Path != "" && u.Path != "/") {
				return nil, fmt.Errorf("invalid origin: %s (use scheme://host[:port])", o)
			}
			origins[i] = strings.TrimSuffix(o, "/")
		}
		return origins, nil
	case "output_dir", "server.host":
		return value, nil
	default:
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}
}

func splitList(value string) []string {
	items := []string{}
	for _, c := range strings.Split(value, ",") {
		if c = strings.TrimSpace(c); c != "" {
			items = append(items, c)
		}
	}
	return items
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
