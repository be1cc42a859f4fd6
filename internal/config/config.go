package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/michaelbrown/envop/internal/operator"
	"github.com/michaelbrown/envop/internal/sandbox"
	"github.com/michaelbrown/envop/internal/textenc"
	"github.com/michaelbrown/envop/internal/tools"
)

// Sandbox backends.
const (
	BackendDocker = "docker"
	BackendMCP    = "mcp"
)

type OperatorConfig struct {
	Env               string        `mapstructure:"env"`
	Encoding          string        `mapstructure:"encoding"`
	FallbackEncodings []string      `mapstructure:"fallback_encodings"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// Encodings returns the preference list handed to operators, primary first.
func (o OperatorConfig) Encodings() []string {
	return append([]string{o.Encoding}, o.FallbackEncodings...)
}

type SandboxConfig struct {
	Backend          string                 `mapstructure:"backend"`
	MCP              tools.ToolServerConfig `mapstructure:"mcp"`
	sandbox.Settings `mapstructure:",squash"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	DBPath  string `mapstructure:"db_path"`
	Enabled bool   `mapstructure:"enabled"`
}

type Config struct {
	Operator OperatorConfig                    `mapstructure:"operator"`
	Sandbox  SandboxConfig                     `mapstructure:"sandbox"`
	Server   ServerConfig                      `mapstructure:"server"`
	Storage  StorageConfig                     `mapstructure:"storage"`
	Tools    map[string]tools.ToolServerConfig `mapstructure:"tools"`
}

// Load reads envop.yaml from path, or from the working directory and
// $HOME/.envop when path is empty. A missing file is not an error; every key has
// a default and can be overridden with an ENVOP_ environment variable
// (operator.env → ENVOP_OPERATOR_ENV). A .env file in the working directory is
// loaded first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("envop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.envop")
	}

	v.SetEnvPrefix("ENVOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	sb := sandbox.DefaultSettings()

	v.SetDefault("operator.env", operator.EnvLocal)
	v.SetDefault("operator.encoding", textenc.Primary)
	v.SetDefault("operator.fallback_encodings", textenc.Fallbacks)
	v.SetDefault("operator.default_timeout", operator.DefaultTimeout)

	v.SetDefault("sandbox.backend", BackendDocker)
	v.SetDefault("sandbox.image", sb.Image)
	v.SetDefault("sandbox.work_dir", sb.WorkDir)
	v.SetDefault("sandbox.memory_limit", sb.MemoryLimit)
	v.SetDefault("sandbox.cpu_limit", sb.CPULimit)
	v.SetDefault("sandbox.timeout", sb.Timeout)
	v.SetDefault("sandbox.network_enabled", sb.NetworkEnabled)
	v.SetDefault("sandbox.name_prefix", sb.NamePrefix)
	v.SetDefault("sandbox.mcp.binary", "envop-tool-operator")
	v.SetDefault("sandbox.mcp.enabled", true)

	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".envop", "envop.db"))
	v.SetDefault("storage.enabled", true)
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if _, err := operator.ParseEnv(c.Operator.Env); err != nil {
		return fmt.Errorf("operator.env: %w", err)
	}
	if c.Operator.DefaultTimeout <= 0 {
		return fmt.Errorf("operator.default_timeout must be positive, got %s", c.Operator.DefaultTimeout)
	}
	for _, name := range c.Operator.Encodings() {
		if _, err := textenc.Lookup(name); err != nil {
			return fmt.Errorf("operator encodings: %w", err)
		}
	}

	switch c.Sandbox.Backend {
	case BackendDocker:
	case BackendMCP:
		if c.Sandbox.MCP.Binary == "" {
			return fmt.Errorf("sandbox.mcp.binary is required for the mcp backend")
		}
	default:
		return fmt.Errorf("sandbox.backend: unknown backend %q (want %s or %s)", c.Sandbox.Backend, BackendDocker, BackendMCP)
	}
	if c.Sandbox.Timeout <= 0 {
		return fmt.Errorf("sandbox.timeout must be positive, got %s", c.Sandbox.Timeout)
	}
	if err := c.Sandbox.Settings.Validate(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
