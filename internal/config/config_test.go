package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/michaelbrown/envop/internal/textenc"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "envop.yaml")
	assert.NilError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	assert.NilError(t, err)

	assert.Equal(t, cfg.Operator.Env, "local")
	assert.Equal(t, cfg.Operator.Encoding, "utf-8")
	assert.DeepEqual(t, cfg.Operator.FallbackEncodings, textenc.Fallbacks)
	assert.Equal(t, cfg.Operator.DefaultTimeout, 120*time.Second)

	assert.Equal(t, cfg.Sandbox.Backend, BackendDocker)
	assert.Equal(t, cfg.Sandbox.Image, "python:3.12-slim")
	assert.Equal(t, cfg.Sandbox.WorkDir, "/workspace")
	assert.Equal(t, cfg.Sandbox.MemoryLimit, "512m")
	assert.Equal(t, cfg.Sandbox.CPULimit, 1.0)
	assert.Equal(t, cfg.Sandbox.Timeout, 300*time.Second)
	assert.Equal(t, cfg.Sandbox.NetworkEnabled, false)

	assert.Equal(t, cfg.Server.Port, 8080)
	assert.Equal(t, cfg.Storage.Enabled, true)
	assert.Equal(t, cfg.Storage.DBPath, filepath.Join(home, ".envop", "envop.db"))
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
operator:
  env: sandbox
  encoding: gbk
  fallback_encodings: [latin-1]
  default_timeout: 30s
sandbox:
  backend: mcp
  image: alpine:3.20
  timeout: 1m
  network_enabled: true
  mcp:
    binary: ssh
    args: [build-host, envop-tool-operator]
    env:
      TOKEN: ${ENVOP_TEST_TOKEN}
server:
  port: 9090
storage:
  enabled: false
`)
	cfg, err := Load(path)
	assert.NilError(t, err)

	assert.Equal(t, cfg.Operator.Env, "sandbox")
	assert.DeepEqual(t, cfg.Operator.Encodings(), []string{"gbk", "latin-1"})
	assert.Equal(t, cfg.Operator.DefaultTimeout, 30*time.Second)
	assert.Equal(t, cfg.Sandbox.Backend, BackendMCP)
	assert.Equal(t, cfg.Sandbox.Image, "alpine:3.20")
	assert.Equal(t, cfg.Sandbox.Timeout, time.Minute)
	assert.Equal(t, cfg.Sandbox.NetworkEnabled, true)
	assert.Equal(t, cfg.Sandbox.WorkDir, "/workspace")
	assert.Equal(t, cfg.Sandbox.MCP.Binary, "ssh")
	assert.DeepEqual(t, cfg.Sandbox.MCP.Args, []string{"build-host", "envop-tool-operator"})
	// Expanded when the server is launched.
	assert.Equal(t, cfg.Sandbox.MCP.Env["token"], "${ENVOP_TEST_TOKEN}")
	assert.Equal(t, cfg.Server.Port, 9090)
	assert.Equal(t, cfg.Storage.Enabled, false)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "operator:\n  env: local\n")
	t.Setenv("ENVOP_OPERATOR_ENV", "sandbox")
	t.Setenv("ENVOP_SERVER_PORT", "7070")
	t.Setenv("ENVOP_SANDBOX_IMAGE", "debian:12")

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Operator.Env, "sandbox")
	assert.Equal(t, cfg.Server.Port, 7070)
	assert.Equal(t, cfg.Sandbox.Image, "debian:12")
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"env", "operator:\n  env: mars\n", `unknown environment "mars"`},
		{"timeout", "operator:\n  default_timeout: 0s\n", "operator.default_timeout must be positive"},
		{"encoding", "operator:\n  encoding: klingon\n", `unknown encoding "klingon"`},
		{"backend", "sandbox:\n  backend: firecracker\n", `unknown backend "firecracker"`},
		{"memory", "sandbox:\n  memory_limit: lots\n", `invalid sandbox memory limit "lots"`},
		{"port", "server:\n  port: 70000\n", "server.port out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
