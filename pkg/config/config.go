// Package config loads the optional suite configuration file. Values from
// the file fill in whatever the command line leaves unset.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/redfish-tools/usecase-checkers/pkg/service"
)

// Poll bounds one polling loop: how many attempts and how long between
// them.
type Poll struct {
	Attempts int
	Interval time.Duration
}

// Config is the resolved suite configuration.
type Config struct {
	Host     string
	Username string
	Password string
	Security service.SecurityMode
	Insecure bool

	ReportDir string
	Relaxed   bool

	// Target restricts which collection members the checkers exercise.
	Target string

	// BootTarget overrides the boot source used for boot override testing.
	BootTarget string

	// FallbackSystemURI is used when the service root has no Systems
	// collection.
	FallbackSystemURI string

	Timeout time.Duration

	// PowerPoll bounds the power state monitoring after a reset request.
	PowerPoll Poll

	// BootPoll bounds the boot override revert monitoring across a reboot.
	BootPoll Poll
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Security:  service.SecurityAlways,
		ReportDir: "reports",
		Timeout:   30 * time.Minute,
		PowerPoll: Poll{Attempts: 10, Interval: 5 * time.Second},
		BootPoll:  Poll{Attempts: 30, Interval: 10 * time.Second},
	}
}

// filePoll mirrors Poll with a string interval for YAML.
type filePoll struct {
	Attempts int    `yaml:"attempts"`
	Interval string `yaml:"interval"`
}

// fileConfig is the YAML document shape. Durations are strings in Go
// duration syntax ("10s", "2m"). Pointers distinguish unset from false.
type fileConfig struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Security string `yaml:"security"`
	Insecure *bool  `yaml:"insecure"`

	ReportDir string `yaml:"reportDir"`
	Relaxed   *bool  `yaml:"relaxed"`

	Target            string `yaml:"target"`
	BootTarget        string `yaml:"bootTarget"`
	FallbackSystemURI string `yaml:"fallbackSystemURI"`

	Timeout string `yaml:"timeout"`

	PowerPoll filePoll `yaml:"powerPoll"`
	BootPoll  filePoll `yaml:"bootPoll"`
}

// Load reads a configuration file and merges it over the defaults. Fields
// absent from the file keep their default values; unknown fields are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var doc fileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if doc.Host != "" {
		cfg.Host = doc.Host
	}
	if doc.Username != "" {
		cfg.Username = doc.Username
	}
	if doc.Password != "" {
		cfg.Password = doc.Password
	}
	if doc.Security != "" {
		cfg.Security = service.SecurityMode(doc.Security)
		if err := cfg.Security.Validate(); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if doc.Insecure != nil {
		cfg.Insecure = *doc.Insecure
	}
	if doc.ReportDir != "" {
		cfg.ReportDir = doc.ReportDir
	}
	if doc.Relaxed != nil {
		cfg.Relaxed = *doc.Relaxed
	}
	if doc.Target != "" {
		cfg.Target = doc.Target
	}
	if doc.BootTarget != "" {
		cfg.BootTarget = doc.BootTarget
	}
	if doc.FallbackSystemURI != "" {
		cfg.FallbackSystemURI = doc.FallbackSystemURI
	}

	if cfg.Timeout, err = mergeDuration(cfg.Timeout, doc.Timeout); err != nil {
		return cfg, fmt.Errorf("config file %s: timeout: %w", path, err)
	}
	if cfg.PowerPoll, err = mergePoll(cfg.PowerPoll, doc.PowerPoll); err != nil {
		return cfg, fmt.Errorf("config file %s: powerPoll: %w", path, err)
	}
	if cfg.BootPoll, err = mergePoll(cfg.BootPoll, doc.BootPoll); err != nil {
		return cfg, fmt.Errorf("config file %s: bootPoll: %w", path, err)
	}

	return cfg, nil
}

func mergeDuration(current time.Duration, raw string) (time.Duration, error) {
	if raw == "" {
		return current, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return current, err
	}
	if parsed <= 0 {
		return current, fmt.Errorf("duration must be positive, got %s", raw)
	}

	return parsed, nil
}

func mergePoll(current Poll, doc filePoll) (Poll, error) {
	if doc.Attempts < 0 {
		return current, fmt.Errorf("attempts must not be negative, got %d", doc.Attempts)
	}
	if doc.Attempts > 0 {
		current.Attempts = doc.Attempts
	}

	var err error
	current.Interval, err = mergeDuration(current.Interval, doc.Interval)

	return current, err
}
