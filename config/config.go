package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"sensorcap/telemetry"
)

// Config is the effective process configuration. Sources are merged in
// precedence order: command-line flag, SENSORCAP_* environment variable
// (a .env file is honored), YAML config file, built-in default.
type Config struct {
	Port          string `yaml:"port"`
	BaudRate      int    `yaml:"baud_rate"`
	OutputDir     string `yaml:"output_dir"`
	RotateMinutes int    `yaml:"rotate_minutes"`
	Prefix        string `yaml:"prefix"`
	Compression   string `yaml:"compression"`
	BufferSize    int    `yaml:"buffer_size"`
	Simulate      bool   `yaml:"simulate"`
	NATSURL       string `yaml:"nats_url"`
	NATSSubject   string `yaml:"nats_subject"`
	LogLevel      string `yaml:"log_level"`
}

// Default returns the built-in configuration, matching the original
// receiver's CLI defaults.
func Default() Config {
	return Config{
		BaudRate:      115200,
		OutputDir:     "./logs",
		RotateMinutes: 0,
		Prefix:        "sensor_log",
		Compression:   "snappy",
		BufferSize:    100,
		NATSSubject:   "sensorcap.records",
		LogLevel:      "info",
	}
}

// envKeys maps flag names to their environment variable overrides.
var envKeys = map[string]string{
	"port":           "SENSORCAP_PORT",
	"baud-rate":      "SENSORCAP_BAUD_RATE",
	"output-dir":     "SENSORCAP_OUTPUT_DIR",
	"rotate-minutes": "SENSORCAP_ROTATE_MINUTES",
	"prefix":         "SENSORCAP_PREFIX",
	"compression":    "SENSORCAP_COMPRESSION",
	"buffer-size":    "SENSORCAP_BUFFER_SIZE",
	"simulate":       "SENSORCAP_SIMULATE",
	"nats-url":       "SENSORCAP_NATS_URL",
	"nats-subject":   "SENSORCAP_NATS_SUBJECT",
	"log-level":      "SENSORCAP_LOG_LEVEL",
}

// Load parses flags and merges all configuration sources. It returns
// pflag.ErrHelp when -h/--help was requested.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("sensorcap", pflag.ContinueOnError)

	var configFile string
	fs.StringVar(&configFile, "config", "", "optional YAML config file")

	defaults := Default()
	port := fs.StringP("port", "p", defaults.Port, "serial port to read (e.g. /dev/ttyUSB0)")
	baud := fs.IntP("baud-rate", "b", defaults.BaudRate, "baud rate for the serial connection")
	outputDir := fs.StringP("output-dir", "o", defaults.OutputDir, "directory for parquet output")
	rotate := fs.IntP("rotate-minutes", "s", defaults.RotateMinutes, "file rotation interval in minutes (0 = no rotation)")
	prefix := fs.StringP("prefix", "f", defaults.Prefix, "output file name prefix")
	compression := fs.StringP("compression", "c", defaults.Compression, "compression algorithm (none, snappy, gzip, lz4, zstd, brotli)")
	bufferSize := fs.IntP("buffer-size", "u", defaults.BufferSize, "records to accumulate before handing a batch to the writer")
	simulate := fs.Bool("simulate", defaults.Simulate, "synthesize records instead of reading hardware")
	natsURL := fs.String("nats-url", defaults.NATSURL, "optional NATS URL to mirror decoded records to")
	natsSubject := fs.String("nats-subject", defaults.NATSSubject, "subject for the NATS record mirror")
	logLevel := fs.String("log-level", defaults.LogLevel, "log verbosity (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := defaults
	if configFile != "" {
		if err := loadFile(configFile, &cfg); err != nil {
			return Config{}, err
		}
	}

	// .env is optional; a missing file is not an error.
	godotenv.Load()
	if err := applyEnv(fs, &cfg); err != nil {
		return Config{}, err
	}

	// Explicit flags win over everything.
	if fs.Changed("port") {
		cfg.Port = *port
	}
	if fs.Changed("baud-rate") {
		cfg.BaudRate = *baud
	}
	if fs.Changed("output-dir") {
		cfg.OutputDir = *outputDir
	}
	if fs.Changed("rotate-minutes") {
		cfg.RotateMinutes = *rotate
	}
	if fs.Changed("prefix") {
		cfg.Prefix = *prefix
	}
	if fs.Changed("compression") {
		cfg.Compression = *compression
	}
	if fs.Changed("buffer-size") {
		cfg.BufferSize = *bufferSize
	}
	if fs.Changed("simulate") {
		cfg.Simulate = *simulate
	}
	if fs.Changed("nats-url") {
		cfg.NATSURL = *natsURL
	}
	if fs.Changed("nats-subject") {
		cfg.NATSSubject = *natsSubject
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(fs *pflag.FlagSet, cfg *Config) error {
	for flagName, envKey := range envKeys {
		val, ok := os.LookupEnv(envKey)
		if !ok || fs.Changed(flagName) {
			continue
		}
		if err := setField(cfg, flagName, val); err != nil {
			return fmt.Errorf("invalid %s: %w", envKey, err)
		}
	}
	return nil
}

func setField(cfg *Config, flagName, val string) error {
	switch flagName {
	case "port":
		cfg.Port = val
	case "baud-rate":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		cfg.BaudRate = n
	case "output-dir":
		cfg.OutputDir = val
	case "rotate-minutes":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		cfg.RotateMinutes = n
	case "prefix":
		cfg.Prefix = val
	case "compression":
		cfg.Compression = val
	case "buffer-size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		cfg.BufferSize = n
	case "simulate":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		cfg.Simulate = b
	case "nats-url":
		cfg.NATSURL = val
	case "nats-subject":
		cfg.NATSSubject = val
	case "log-level":
		cfg.LogLevel = val
	}
	return nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if !c.Simulate && c.Port == "" {
		return fmt.Errorf("invalid configuration: a serial port is required unless --simulate is set")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid configuration: baud rate must be positive, got %d", c.BaudRate)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid configuration: buffer size must be positive, got %d", c.BufferSize)
	}
	if c.RotateMinutes < 0 {
		return fmt.Errorf("invalid configuration: rotation interval cannot be negative, got %d", c.RotateMinutes)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("invalid configuration: output directory is required")
	}
	if c.Prefix == "" {
		return fmt.Errorf("invalid configuration: file prefix is required")
	}
	if _, err := telemetry.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		return fmt.Errorf("invalid configuration: nats-subject is required when nats-url is set")
	}
	return nil
}

// Summary returns the effective configuration as log fields for the
// startup notice.
func (c *Config) Summary() map[string]interface{} {
	return map[string]interface{}{
		"port":           c.Port,
		"baud_rate":      c.BaudRate,
		"output_dir":     c.OutputDir,
		"rotate_minutes": c.RotateMinutes,
		"prefix":         c.Prefix,
		"compression":    c.Compression,
		"buffer_size":    c.BufferSize,
		"simulate":       c.Simulate,
		"nats_url":       c.NATSURL,
		"log_level":      c.LogLevel,
	}
}
