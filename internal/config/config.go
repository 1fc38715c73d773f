package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "ghostprobe.yaml"
	EnvPrefix   = "GHOSTPROBE"
)

// Environment variables carry no defaults so that values read from the YAML
// file survive when a variable is unset.
type Config struct {
	Host         string        `yaml:"host" envconfig:"HOST"`
	UserAgent    string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	Firmware     string        `yaml:"firmware" envconfig:"FW_VERSION"`
	OutputFormat string        `yaml:"output_format" envconfig:"OUTPUT_FORMAT"`
	NoPace       bool          `yaml:"no_pace" envconfig:"NO_PACE"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`

	Browser   BrowserConfig   `yaml:"browser" envconfig:"BROWSER"`
	Device    DeviceConfig    `yaml:"device" envconfig:"DEVICE"`
	LogServer LogServerConfig `yaml:"log_server" envconfig:"LOG_SERVER"`
	Payloads  PayloadConfig   `yaml:"payloads" envconfig:"PAYLOADS"`
	Log       LogConfig       `yaml:"log" envconfig:"LOG"`
	Slack     SlackConfig     `yaml:"slack" envconfig:"SLACK"`
}

type BrowserConfig struct {
	DevToolsURL string `yaml:"devtools_url" envconfig:"DEVTOOLS_URL"`
	Launch      bool   `yaml:"launch" envconfig:"LAUNCH"`
	PageURL     string `yaml:"page_url" envconfig:"PAGE_URL"`
}

type DeviceConfig struct {
	Host string `yaml:"host" envconfig:"HOST"`
	Port int    `yaml:"port" envconfig:"PORT"`
}

type LogServerConfig struct {
	Port              int           `yaml:"port" envconfig:"PORT"`
	FirmwareTimeout   time.Duration `yaml:"firmware_timeout" envconfig:"FIRMWARE_TIMEOUT"`
	TranscriptTimeout time.Duration `yaml:"transcript_timeout" envconfig:"TRANSCRIPT_TIMEOUT"`
}

// PayloadConfig selects what stage sends. Empty script paths use the built-in
// scripts; the built-in heuristic loads the js/wasm build from ProbeDir.
type PayloadConfig struct {
	Bootstrap string `yaml:"bootstrap" envconfig:"BOOTSTRAP"`
	Heuristic string `yaml:"heuristic" envconfig:"HEURISTIC"`
	ProbeDir  string `yaml:"probe_dir" envconfig:"PROBE_DIR"`
	KeyFile   string `yaml:"key_file" envconfig:"KEY_FILE"`
}

type LogConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" envconfig:"WEBHOOK_URL"`
	Channel    string `yaml:"channel" envconfig:"CHANNEL"`
}

func Default() *Config {
	return &Config{
		Host:         "embedded",
		OutputFormat: "transcript",
		Timeout:      10 * time.Second,
		Browser:      BrowserConfig{PageURL: "about:blank"},
		Device:       DeviceConfig{Port: 50000},
		LogServer: LogServerConfig{
			Port:              8080,
			FirmwareTimeout:   60 * time.Second,
			TranscriptTimeout: 3 * time.Minute,
		},
		Payloads: PayloadConfig{ProbeDir: "build/probe"},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads a YAML file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Load resolves defaults, then the YAML file, then GHOSTPROBE_* variables.
// A missing file is only an error when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = Default()
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration back as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.OutputFormat != "" && c.OutputFormat != "transcript" && c.OutputFormat != "table" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %s", c.OutputFormat)
	}

	if c.Host != "embedded" && c.Host != "browser" {
		return fmt.Errorf("invalid host: %s", c.Host)
	}

	if c.Log.Level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
			return fmt.Errorf("invalid log level: %s", c.Log.Level)
		}
	}

	for name, port := range map[string]int{"device.port": c.Device.Port, "log_server.port": c.LogServer.Port} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s: %d", name, port)
		}
	}

	if c.Timeout < 0 || c.LogServer.FirmwareTimeout < 0 || c.LogServer.TranscriptTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}
