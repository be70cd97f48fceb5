package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the sos-button binaries.
type Config struct {
	// ServerAddress is the gRPC server address for emergency service connections.
	ServerAddress string `yaml:"server_addr"`
	// HTTPAddress is the optional listen address of the dashboard HTTP API.
	// Empty disables the HTTP API.
	HTTPAddress string `yaml:"http_addr,omitempty"`
	// StateFile is the path to the JSON file storing the emergency state.
	StateFile string `yaml:"state_file"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// HookTimeout bounds every activation hook run.
	HookTimeout time.Duration `yaml:"hook_timeout"`
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`
	// EvidenceDir is where recording session manifests are written.
	EvidenceDir string `yaml:"evidence_dir"`
	// SirenFile is the path of the rendered siren WAV.
	SirenFile string `yaml:"siren_file"`
	// SirenCommand overrides the OS audio player. "{file}" is replaced with the
	// WAV path, which is appended when no argument mentions it.
	SirenCommand []string `yaml:"siren_command,omitempty"`
	// SlackWebhookURL is the incoming webhook used for alerts. Empty logs alerts only.
	SlackWebhookURL string `yaml:"slack_webhook_url,omitempty"`
	// Location is the fixed position reported when the emergency activates.
	Location Location `yaml:"location"`
	// Contacts are the people notified on activation.
	Contacts []Contact `yaml:"contacts"`
}

// Location is a fixed geographic position.
type Location struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	// Accuracy is the radius of uncertainty in meters.
	Accuracy float64 `yaml:"accuracy"`
	// Address overrides the generated street address.
	Address string `yaml:"address,omitempty"`
}

// IsSet reports whether a position was configured.
func (l Location) IsSet() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

// Contact is an emergency contact.
type Contact struct {
	Name     string `yaml:"name"`
	Relation string `yaml:"relation,omitempty"`
	// Priority is one of low, medium, high.
	Priority string `yaml:"priority,omitempty"`
}

// String renders the contact as shown on the dashboard, e.g. "Mom (Mother)".
func (c Contact) String() string {
	if c.Relation == "" {
		return c.Name
	}

	return fmt.Sprintf("%s (%s)", c.Name, c.Relation)
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "sos-button-settings.yaml"

	// DefaultStateFilename is the default filename for the emergency state JSON.
	DefaultStateFilename = "sos-button-state.json"

	// DefaultEvidenceDir is the default directory for recording manifests.
	DefaultEvidenceDir = "evidence"

	// DefaultSirenFilename is the default filename of the rendered siren.
	DefaultSirenFilename = "sos-siren.wav"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultHookTimeout is the default bound for a single activation hook.
	DefaultHookTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config and state files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the default permission for created directories.
	DefaultDirPermissions = 0o750
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errLatitudeOutOfRange is returned for latitudes outside [-90, 90].
	errLatitudeOutOfRange = errors.New("latitude must be within [-90, 90]")
	// errLongitudeOutOfRange is returned for longitudes outside [-180, 180].
	errLongitudeOutOfRange = errors.New("longitude must be within [-180, 180]")
	// errContactNameRequired is returned for contacts without a name.
	errContactNameRequired = errors.New("contact name must be provided")
	// errUnknownPriority is returned for unsupported contact priorities.
	errUnknownPriority = errors.New("contact priority must be low, medium or high")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file may carry a webhook secret.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling defaults for optional ones.
//
//nolint:cyclop // Flat list of independent checks.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid http socket: %w", err)
		}
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.HookTimeout <= 0 {
		settings.HookTimeout = DefaultHookTimeout
	}

	if settings.StateFile == "" {
		settings.StateFile = DefaultStateFilename
	}

	if settings.EvidenceDir == "" {
		settings.EvidenceDir = DefaultEvidenceDir
	}

	if settings.SirenFile == "" {
		settings.SirenFile = DefaultSirenFilename
	}

	if err := validateLocation(settings.Location); err != nil {
		return err
	}

	for i, contact := range settings.Contacts {
		if err := validateContact(contact); err != nil {
			return fmt.Errorf("contact #%d: %w", i+1, err)
		}
	}

	if settings.SlackWebhookURL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(settings.SlackWebhookURL); err != nil {
		return fmt.Errorf("invalid slack webhook URI: %w", err)
	}

	return nil
}

// validateLocation checks coordinate ranges.
func validateLocation(l Location) error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return errLatitudeOutOfRange
	}

	if l.Longitude < -180 || l.Longitude > 180 {
		return errLongitudeOutOfRange
	}

	return nil
}

// validateContact checks a single contact entry.
func validateContact(c Contact) error {
	if strings.TrimSpace(c.Name) == "" {
		return errContactNameRequired
	}

	switch strings.ToLower(c.Priority) {
	case "", "low", "medium", "high":
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownPriority, c.Priority)
	}
}
