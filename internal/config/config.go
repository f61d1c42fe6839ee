// Package config loads server settings from defaults, an optional config
// file, IMAGE_STITCH_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/ironsheep/image-stitch-mcp/internal/imaging"
	"github.com/ironsheep/image-stitch-mcp/internal/layout"
	"github.com/ironsheep/image-stitch-mcp/internal/pool"
	"github.com/ironsheep/image-stitch-mcp/internal/stitch"
	"github.com/ironsheep/image-stitch-mcp/pkg/stitcher"
)

// EnvPrefix is prepended to every environment variable. The key
// "pool.capacity" is read from IMAGE_STITCH_POOL_CAPACITY.
const EnvPrefix = "IMAGE_STITCH"

// Setting keys.
const (
	KeyLogLevel               = "log.level"
	KeyPoolCapacity           = "pool.capacity"
	KeyPoolExactMatch         = "pool.exact_match"
	KeyOutputQuality          = "output.quality"
	KeyMaxPixels              = "stitch.max_pixels"
	KeyReducedPrecisionPixels = "stitch.reduced_precision_pixels"
)

// Config is the resolved server configuration.
type Config struct {
	LogLevel               string
	PoolCapacity           int
	ExactMatch             bool
	Quality                int
	MaxPixels              int64
	ReducedPrecisionPixels int64
}

// New returns a viper instance with defaults and environment binding set
// up. Flags can be bound to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyPoolCapacity, pool.DefaultCapacity)
	v.SetDefault(KeyPoolExactMatch, false)
	v.SetDefault(KeyOutputQuality, imaging.DefaultJPEGQuality)
	v.SetDefault(KeyMaxPixels, layout.MaxPixels)
	v.SetDefault(KeyReducedPrecisionPixels, stitch.DefaultReducedPrecisionPixels)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file, if not empty, into v and returns the validated
// configuration.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	cfg := Config{
		LogLevel:               strings.ToLower(v.GetString(KeyLogLevel)),
		PoolCapacity:           v.GetInt(KeyPoolCapacity),
		ExactMatch:             v.GetBool(KeyPoolExactMatch),
		Quality:                v.GetInt(KeyOutputQuality),
		MaxPixels:              v.GetInt64(KeyMaxPixels),
		ReducedPrecisionPixels: v.GetInt64(KeyReducedPrecisionPixels),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyLogLevel, err))
	}
	if c.PoolCapacity < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyPoolCapacity, c.PoolCapacity))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, fmt.Errorf("%s must be between 1 and 100, got %d", KeyOutputQuality, c.Quality))
	}
	if c.MaxPixels < 1 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyMaxPixels, c.MaxPixels))
	}
	if c.ReducedPrecisionPixels < 1 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyReducedPrecisionPixels, c.ReducedPrecisionPixels))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, or info if it is invalid.
func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// Stitcher converts the configuration for stitcher.New.
func (c Config) Stitcher(logger *log.Logger) stitcher.Config {
	return stitcher.Config{
		PoolCapacity:           c.PoolCapacity,
		ExactMatch:             c.ExactMatch,
		MaxPixels:              c.MaxPixels,
		ReducedPrecisionPixels: c.ReducedPrecisionPixels,
		Quality:                c.Quality,
		Logger:                 logger,
	}
}
