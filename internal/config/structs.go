//nolint:lll
package config

// Config represents the complete configuration for pixkit.
// It includes settings for all commands (upscale, matte, annotate, convert,
// batch, serve) and supports loading from configuration files, environment
// variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Upscale UpscaleConfig `mapstructure:"upscale" yaml:"upscale" json:"upscale"`
	Matte   MatteConfig   `mapstructure:"matte" yaml:"matte" json:"matte"`
	Overlay OverlayConfig `mapstructure:"overlay" yaml:"overlay" json:"overlay"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Prepared-surface cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache" json:"cache"`

	// Input limits
	Limits LimitsConfig `mapstructure:"limits" yaml:"limits" json:"limits"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// UpscaleConfig contains resampling settings.
type UpscaleConfig struct {
	Factor        float64 `mapstructure:"factor" yaml:"factor" json:"factor"`
	Filter        string  `mapstructure:"filter" yaml:"filter" json:"filter"`
	Sharpen       bool    `mapstructure:"sharpen" yaml:"sharpen" json:"sharpen"`
	SharpenAmount float64 `mapstructure:"sharpen_amount" yaml:"sharpen_amount" json:"sharpen_amount"`
}

// MatteConfig contains background removal settings.
type MatteConfig struct {
	Tolerance int `mapstructure:"tolerance" yaml:"tolerance" json:"tolerance"`
}

// OverlayConfig contains caption settings.
type OverlayConfig struct {
	Anchor      string  `mapstructure:"anchor" yaml:"anchor" json:"anchor"`
	Mode        string  `mapstructure:"mode" yaml:"mode" json:"mode"`
	FontScale   float64 `mapstructure:"font_scale" yaml:"font_scale" json:"font_scale"`
	BgOpacity   float64 `mapstructure:"bg_opacity" yaml:"bg_opacity" json:"bg_opacity"`
	TextColor   string  `mapstructure:"text_color" yaml:"text_color" json:"text_color"`
	BgColor     string  `mapstructure:"bg_color" yaml:"bg_color" json:"bg_color"`
	FitPasses   int     `mapstructure:"fit_passes" yaml:"fit_passes" json:"fit_passes"`
	URLMaxLen   int     `mapstructure:"url_max_len" yaml:"url_max_len" json:"url_max_len"`
	FontPath    string  `mapstructure:"font_path" yaml:"font_path" json:"font_path"`
	Prepare     bool    `mapstructure:"prepare" yaml:"prepare" json:"prepare"`
	MinLongSide int     `mapstructure:"min_long_side" yaml:"min_long_side" json:"min_long_side"`
}

// OutputConfig contains encoder settings.
type OutputConfig struct {
	Format  string  `mapstructure:"format" yaml:"format" json:"format"`
	Quality float64 `mapstructure:"quality" yaml:"quality" json:"quality"`
	Dir     string  `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// CacheConfig bounds the prepared-surface cache.
type CacheConfig struct {
	Entries int `mapstructure:"entries" yaml:"entries" json:"entries"`
	// MaxSize accepts a byte count with a unit suffix, e.g. "256MB".
	MaxSize string `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
}

// LimitsConfig contains input size guards.
type LimitsConfig struct {
	MaxPixels       int     `mapstructure:"max_pixels" yaml:"max_pixels" json:"max_pixels"`
	MaxOutputPixels int     `mapstructure:"max_output_pixels" yaml:"max_output_pixels" json:"max_output_pixels"`
	MaxScale        float64 `mapstructure:"max_scale" yaml:"max_scale" json:"max_scale"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string `mapstructure:"host" yaml:"host" json:"host"`
	Port              int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin        string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB       int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec        int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout   int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimitEnabled  bool   `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int    `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int    `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     string `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	OutputDir       string   `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	SummaryFormat   string   `mapstructure:"summary_format" yaml:"summary_format" json:"summary_format"`
}
