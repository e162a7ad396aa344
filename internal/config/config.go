package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/capturectl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultWorkers     = 2
	DefaultFPS         = 10
	DefaultFormat      = "png"
	DefaultCompression = 6
	DefaultMaxFrames   = 200_000
	DefaultQueueSize   = 100
	DefaultHotkey      = "ctrl+shift+delete"
	DefaultStartDelay  = 2.0
	DefaultTimeout     = 150_000.0
	DefaultOutput      = "./screenshots"
)

type Config struct {
	// Screen pipeline
	Workers     int    `mapstructure:"workers"`
	FPS         int    `mapstructure:"fps"`
	Format      string `mapstructure:"format"`
	Compression int    `mapstructure:"compression"`
	MaxFrames   int    `mapstructure:"max_frames"`
	QueueSize   int    `mapstructure:"queue_size"`
	Display     int    `mapstructure:"display"`

	// Recorder selection
	NoScreen   bool `mapstructure:"no_screen"`
	NoKeyboard bool `mapstructure:"no_keyboard"`
	NoMouse    bool `mapstructure:"no_mouse"`
	NoGamepad  bool `mapstructure:"no_gamepad"`

	// Stop conditions and timing
	Hotkey     string  `mapstructure:"hotkey"`
	StartDelay float64 `mapstructure:"start_delay"`
	Timeout    float64 `mapstructure:"timeout"`

	// Output
	Output string `mapstructure:"output"`

	// Telemetry and observability
	Telemetry   bool   `mapstructure:"telemetry"`
	TelemetryDB string `mapstructure:"database"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	// Tuning mode
	Tune           bool `mapstructure:"tune"`
	TuneMaxWorkers int  `mapstructure:"tune_max_workers"`
	TuneMaxFPS     int  `mapstructure:"tune_max_fps"`
	TuneFrames     int  `mapstructure:"tune_frames"`

	// Logging
	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("capturectl", pflag.ContinueOnError)
	flags.Int("workers", DefaultWorkers, "Number of frame persistence workers")
	flags.Int("fps", DefaultFPS, "Target capture rate in frames per second")
	flags.String("format", DefaultFormat, "Frame image format (png, jpg)")
	flags.Int("compression", DefaultCompression, "PNG compression level (0-9)")
	flags.Int("max-frames", DefaultMaxFrames, "Stop condition: maximum number of frames")
	flags.Int("queue-size", DefaultQueueSize, "Allowed frames in flight per worker before auto-stop")
	flags.Int("display", 0, "Display index to capture")
	flags.Bool("no-screen", false, "Disable screen recording")
	flags.Bool("no-keyboard", false, "Disable keyboard recording")
	flags.Bool("no-mouse", false, "Disable mouse recording")
	flags.Bool("no-gamepad", false, "Disable gamepad recording")
	flags.String("hotkey", DefaultHotkey, "Stop condition: hotkey combination")
	flags.Float64("start-delay", DefaultStartDelay, "Delay in seconds before recording starts")
	flags.Float64("timeout", DefaultTimeout, "Stop condition: recording timeout in seconds")
	flags.String("output", DefaultOutput, "Directory to save recordings")
	flags.Bool("telemetry", false, "Persist session telemetry to the database")
	flags.String("database", "", "Path to the telemetry database")
	flags.String("metrics-addr", "", "Address for the Prometheus metrics endpoint (empty disables)")
	flags.Bool("tune", false, "Probe for the best safe workers/fps configuration and exit")
	flags.Int("tune-max-workers", 4, "Tuning: maximum worker count to probe")
	flags.Int("tune-max-fps", 60, "Tuning: maximum target rate to probe")
	flags.Int("tune-frames", 500, "Tuning: frames per probe run")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("fps", DefaultFPS)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("compression", DefaultCompression)
	v.SetDefault("max_frames", DefaultMaxFrames)
	v.SetDefault("queue_size", DefaultQueueSize)
	v.SetDefault("hotkey", DefaultHotkey)
	v.SetDefault("start_delay", DefaultStartDelay)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("tune_max_workers", 4)
	v.SetDefault("tune_max_fps", 60)
	v.SetDefault("tune_frames", 500)

	v.SetEnvPrefix("CAPTURECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Explicit config file via env, falling back to the system location
	if path := os.Getenv("CAPTURECTL_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("capturectl")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Command line flags take precedence over file and env values
	flags.Visit(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		v.Set(key, f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Workers < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "workers must be 1 or more")
	}
	if c.FPS < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "fps must be 1 or more")
	}
	if c.MaxFrames < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "max_frames must be 1 or more")
	}
	if c.QueueSize < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "queue_size must be 1 or more")
	}
	if c.Compression < 0 || c.Compression > 9 {
		return errFactory.WithData(errors.ErrInvalidConfig, "compression must be between 0 and 9")
	}
	switch strings.ToLower(c.Format) {
	case "png", "jpg", "jpeg":
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, "format must be png or jpg")
	}
	if c.Timeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "timeout must be positive")
	}
	if c.StartDelay < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "start_delay must not be negative")
	}

	return nil
}
