package sandbox

import (
	"fmt"
	"regexp"
	"time"
)

// Settings describes the sandbox to create.
type Settings struct {
	Image          string        `mapstructure:"image"`           // Container image
	WorkDir        string        `mapstructure:"work_dir"`        // Working directory for commands
	MemoryLimit    string        `mapstructure:"memory_limit"`    // Docker memory limit (e.g. "512m")
	CPULimit       float64       `mapstructure:"cpu_limit"`       // CPU cores
	Timeout        time.Duration `mapstructure:"timeout"`         // Ceiling for any single command
	NetworkEnabled bool          `mapstructure:"network_enabled"` // Whether network access is allowed
	NamePrefix     string        `mapstructure:"name_prefix"`     // Container name prefix
}

// DefaultSettings returns the configuration used when a session is created
// implicitly.
func DefaultSettings() Settings {
	return Settings{
		Image:          "python:3.12-slim",
		WorkDir:        "/workspace",
		MemoryLimit:    "512m",
		CPULimit:       1.0,
		Timeout:        300 * time.Second,
		NetworkEnabled: false,
		NamePrefix:     "envop-sandbox",
	}
}

var memoryLimitRE = regexp.MustCompile(`^[0-9]+[bkmgBKMG]?$`)

// Validate checks the settings for values docker would reject.
func (s Settings) Validate() error {
	if s.Image == "" {
		return fmt.Errorf("sandbox image is required")
	}
	if s.MemoryLimit != "" && !memoryLimitRE.MatchString(s.MemoryLimit) {
		return fmt.Errorf("invalid sandbox memory limit %q", s.MemoryLimit)
	}
	if s.CPULimit < 0 {
		return fmt.Errorf("invalid sandbox cpu limit %v", s.CPULimit)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("invalid sandbox timeout %s", s.Timeout)
	}
	return nil
}

// clampTimeout applies the session-wide ceiling to a per-command timeout.
func (s Settings) clampTimeout(timeout time.Duration) time.Duration {
	if s.Timeout > 0 && (timeout <= 0 || timeout > s.Timeout) {
		return s.Timeout
	}
	return timeout
}
