package config

// Config represents the application configuration
type Config struct {
	LogLevel    string       `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogPretty   bool         `json:"log_pretty" yaml:"log_pretty" mapstructure:"log_pretty"`
	OutputDir   string       `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	ImageFormat string       `json:"image_format" yaml:"image_format" mapstructure:"image_format"`
	JPEGQuality int          `json:"jpeg_quality" yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
	ExcludeSelf bool         `json:"exclude_self" yaml:"exclude_self" mapstructure:"exclude_self"`
	Server      ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
	Filter      FilterConfig `json:"filter" yaml:"filter" mapstructure:"filter"`
	Limits      LimitsConfig `json:"limits" yaml:"limits" mapstructure:"limits"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host string `json:"host" yaml:"host" mapstructure:"host"`
	Port int    `json:"port" yaml:"port" mapstructure:"port"`
	// AllowedOrigins lists browser origins, e.g. "http://localhost:3000",
	// that may call the API. Requests carrying any other Origin are refused.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// FilterConfig extends the built-in window class lists. The built-in
// entries always apply.
type FilterConfig struct {
	ToolWindowAllowClasses []string `json:"tool_window_allow_classes" yaml:"tool_window_allow_classes" mapstructure:"tool_window_allow_classes"`
	DenyClasses            []string `json:"deny_classes" yaml:"deny_classes" mapstructure:"deny_classes"`
}

// LimitsConfig bounds memory used by a single operation
type LimitsConfig struct {
	MaxRecords     int   `json:"max_records" yaml:"max_records" mapstructure:"max_records"`
	MaxBufferBytes int64 `json:"max_buffer_bytes" yaml:"max_buffer_bytes" mapstructure:"max_buffer_bytes"`
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		LogLevel:    "warn",
		LogPretty:   true,
		OutputDir:   "output",
		ImageFormat: "png",
		JPEGQuality: 90,
		ExcludeSelf: true,
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			AllowedOrigins: []string{},
		},
		Filter: FilterConfig{
			ToolWindowAllowClasses: []string{},
			DenyClasses:            []string{},
		},
		Limits: LimitsConfig{
			MaxRecords:     65536,
			MaxBufferBytes: 1 << 30,
		},
	}
}
