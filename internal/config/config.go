package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Name is the program name, used for the configuration directory.
const Name = "media_downloader"

const configFileName = "config.yaml"

var rangePattern = regexp.MustCompile(`^\d*-\d*$`)

// Config is the program configuration. Values come from defaults and the
// environment, are overridden by configuration files, and finally by flags.
type Config struct {
	RouterEndpoint string        `envconfig:"ROUTER_ENDPOINT" default:"tcp://localhost:5514" yaml:"router-endpoint"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"30s" yaml:"connect-timeout"`

	HTTPConnectTimeout time.Duration `envconfig:"HTTP_CONNECT_TIMEOUT" default:"30s" yaml:"http-connect-timeout"`
	HTTPUserAgent      string        `envconfig:"HTTP_USER_AGENT" yaml:"http-user-agent"`
	HTTPProxy          string        `envconfig:"HTTP_PROXY_URL" yaml:"http-proxy"`
	HTTPRange          string        `envconfig:"HTTP_RANGE" yaml:"http-range"`

	OutputTemplate string `envconfig:"OUTPUT_TEMPLATE" default:"{title} ({identifier}).{container}" yaml:"output-template"`
	OverwriteFile  bool   `envconfig:"OVERWRITE_FILE" yaml:"overwrite-file"`
	Stream         string `envconfig:"STREAM" yaml:"stream"`
	SkipDownload   bool   `envconfig:"SKIP_DOWNLOAD" yaml:"skip-download"`

	LogLevel         string        `envconfig:"LOG_LEVEL" default:"INFO" yaml:"log-level"`
	LogFormat        string        `envconfig:"LOG_FORMAT" default:"text" yaml:"log-format"`
	ProgressInterval time.Duration `envconfig:"PROGRESS_INTERVAL" default:"200ms" yaml:"progress-interval"`
	NoProgress       bool          `envconfig:"NO_PROGRESS" yaml:"no-progress"`

	HistoryDB         string `envconfig:"HISTORY_DB" yaml:"history-db"`
	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL" yaml:"discord-webhook-url"`

	Telemetry struct {
		Exporter       string `split_words:"true" default:"none" yaml:"exporter"`
		MetricsAddress string `split_words:"true" yaml:"metrics-address"`
		OTLPEndpoint   string `envconfig:"OTLP_ENDPOINT" default:"localhost:4317" yaml:"otlp-endpoint"`
	} `yaml:"telemetry"`

	ConfigFile string `envconfig:"CONFIG_FILE" yaml:"-"`

	PrintStreams     bool `ignored:"true" yaml:"-"`
	PrintConfig      bool `ignored:"true" yaml:"-"`
	PrintConfigPaths bool `ignored:"true" yaml:"-"`
	PrintHistory     bool `ignored:"true" yaml:"-"`

	// Args holds the positional arguments: the input URIs.
	Args []string `ignored:"true" yaml:"-"`

	// ConfigPaths lists the configuration files that were read.
	ConfigPaths []string `ignored:"true" yaml:"-"`
}

// LoadConfig builds the configuration from the environment, configuration
// files and the command line arguments args (without the program name).
func LoadConfig(args []string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	// The config file flag has to be known before the files are read.
	pre := pflag.NewFlagSet(Name, pflag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	pre.Usage = func() {}
	pre.StringVar(&cfg.ConfigFile, "config-file", cfg.ConfigFile, "")
	_ = pre.Parse(args)

	paths := []string{cfg.ConfigFile}
	if cfg.ConfigFile == "" {
		paths = SearchPaths()
	}

	for _, path := range paths {
		ok, err := cfg.readFile(path, cfg.ConfigFile != "")
		if err != nil {
			return nil, err
		}

		if ok {
			cfg.ConfigPaths = append(cfg.ConfigPaths, path)
		}
	}

	fs := cfg.flagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Args = fs.Args()

	return &cfg, nil
}

// readFile overlays the YAML file at path. A missing file is an error only
// when required is set.
func (c *Config) readFile(path string, required bool) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return false, nil
		}

		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(b, c); err != nil {
		return false, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return true, nil
}

// SearchPaths returns the configuration files looked up when none is given,
// in the order they are applied.
func SearchPaths() []string {
	var dirs []string

	configDirs := os.Getenv("XDG_CONFIG_DIRS")
	if configDirs == "" {
		configDirs = "/etc/xdg"
	}

	dirs = append(dirs, filepath.SplitList(configDirs)...)

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}

	if configHome != "" {
		dirs = append(dirs, configHome)
	}

	paths := make([]string, 0, len(dirs)+1)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}

		paths = append(paths, filepath.Join(dir, Name, configFileName))
	}

	return append(paths, configFileName)
}

func (c *Config) flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(Name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.BoolVarP(&c.PrintConfigPaths, "print-config-paths", "P", false, "Show configuration file paths and exit")
	fs.BoolVarP(&c.PrintConfig, "print-config", "D", false, "Show configuration and exit")
	fs.BoolVarP(&c.PrintStreams, "print-streams", "S", false, "Show available streams and exit")
	fs.BoolVar(&c.PrintHistory, "print-history", false, "Show the download history, limited to the given URIs if any, and exit")
	fs.StringVar(&c.ConfigFile, "config-file", c.ConfigFile, "Load config from file")

	fs.StringVarP(&c.RouterEndpoint, "router-endpoint", "r", c.RouterEndpoint, "Resolver router endpoint")
	fs.DurationVarP(&c.ConnectTimeout, "connect-timeout", "t", c.ConnectTimeout, "Resolver connect and receive timeout")
	fs.DurationVar(&c.HTTPConnectTimeout, "http-connect-timeout", c.HTTPConnectTimeout, "HTTP connect timeout")
	fs.StringVar(&c.HTTPUserAgent, "http-user-agent", c.HTTPUserAgent, "HTTP user agent string")
	fs.StringVar(&c.HTTPProxy, "http-proxy", c.HTTPProxy, "HTTP proxy URL")
	fs.StringVar(&c.HTTPRange, "http-range", c.HTTPRange, "Byte range to download, e.g. 0-1023")

	fs.StringVarP(&c.OutputTemplate, "output-template", "o", c.OutputTemplate, "Output filename template to use, '-' for stdout")
	fs.BoolVarP(&c.OverwriteFile, "overwrite-file", "W", c.OverwriteFile, "Overwrite existing files")
	fs.StringVarP(&c.Stream, "stream", "s", c.Stream, "Select stream to download")
	fs.BoolVarP(&c.SkipDownload, "skip-download", "n", c.SkipDownload, "Do not download the stream")

	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Log level (DEBUG, INFO, WARN, ERROR)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format (text, json)")
	fs.DurationVar(&c.ProgressInterval, "progress-interval", c.ProgressInterval, "Progress update interval")
	fs.BoolVar(&c.NoProgress, "no-progress", c.NoProgress, "Do not show the progress bar")
	fs.StringVar(&c.HistoryDB, "history-db", c.HistoryDB, "Record downloads in this SQLite database")

	fs.StringVar(&c.Telemetry.Exporter, "telemetry-exporter", c.Telemetry.Exporter, "Telemetry exporter (none, prometheus, otlp)")
	fs.StringVar(&c.Telemetry.MetricsAddress, "metrics-address", c.Telemetry.MetricsAddress, "Serve metrics on this address")

	return fs
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.RouterEndpoint == "" {
		return errors.New("router endpoint must not be empty")
	}

	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %s", c.ConnectTimeout)
	}

	if c.HTTPConnectTimeout <= 0 {
		return fmt.Errorf("HTTP connect timeout must be positive, got %s", c.HTTPConnectTimeout)
	}

	if c.HTTPRange != "" && (c.HTTPRange == "-" || !rangePattern.MatchString(c.HTTPRange)) {
		return fmt.Errorf("invalid HTTP range %q", c.HTTPRange)
	}

	if c.OutputTemplate == "" {
		return errors.New("output template must not be empty")
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	switch c.Telemetry.Exporter {
	case "none", "prometheus", "otlp":
	default:
		return fmt.Errorf("unknown telemetry exporter %q", c.Telemetry.Exporter)
	}

	return nil
}

// Dump returns the configuration as YAML.
func (c *Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
