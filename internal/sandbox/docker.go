package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/michaelbrown/envop/internal/textenc"
)

const (
	// killedExitCode is what coreutils timeout reports after SIGKILL.
	killedExitCode = 137

	// clientGrace lets the in-container timeout fire before the docker client
	// itself is killed.
	clientGrace = 5 * time.Second
)

// DockerClient creates long-lived containers and drives them with docker exec.
type DockerClient struct {
	Binary string // docker CLI, default "docker"
}

// NewDockerClient creates a client using the docker CLI found on PATH.
func NewDockerClient() *DockerClient {
	return &DockerClient{Binary: "docker"}
}

func (d *DockerClient) binary() string {
	if d.Binary == "" {
		return "docker"
	}
	return d.Binary
}

// Create starts a detached container that idles until commands arrive.
func (d *DockerClient) Create(ctx context.Context, settings Settings) (Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	name := containerName(settings.NamePrefix)
	args := runArgs(name, settings)

	logrus.WithFields(logrus.Fields{
		"container": name,
		"image":     settings.Image,
		"memory":    settings.MemoryLimit,
		"cpus":      settings.CPULimit,
		"network":   settings.NetworkEnabled,
	}).Info("creating docker sandbox")

	out, err := exec.CommandContext(ctx, d.binary(), args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("starting sandbox container: %w: %s", err, strings.TrimSpace(string(out)))
	}

	// docker run -w creates the work dir, so it is usable for exec -w at once.
	return &DockerSession{
		docker:   d.binary(),
		id:       strings.TrimSpace(string(out)),
		name:     name,
		settings: settings,
	}, nil
}

func containerName(prefix string) string {
	if prefix == "" {
		prefix = "envop-sandbox"
	}
	return prefix + "-" + uuid.New().String()[:8]
}

// runArgs builds the docker run argument list for an idle sandbox container.
func runArgs(name string, settings Settings) []string {
	args := []string{
		"run", "-d",
		"--name", name,
		"--init",
		"--security-opt=no-new-privileges",
	}
	if settings.MemoryLimit != "" {
		args = append(args, "--memory", settings.MemoryLimit)
	}
	if settings.CPULimit > 0 {
		args = append(args, "--cpus", strconv.FormatFloat(settings.CPULimit, 'f', 2, 64))
	}
	if !settings.NetworkEnabled {
		args = append(args, "--network=none")
	}
	if settings.WorkDir != "" {
		args = append(args, "-w", settings.WorkDir)
	}
	args = append(args, settings.Image, "sleep", "infinity")
	return args
}

// DockerSession is one running sandbox container.
type DockerSession struct {
	docker   string
	id       string
	name     string
	settings Settings
}

// ID returns the container ID.
func (s *DockerSession) ID() string { return s.id }

func (s *DockerSession) ReadFile(ctx context.Context, path string) (string, error) {
	stdout, stderr, code, err := s.exec(ctx, nil, "cat", "--", path)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("%s", strings.TrimSpace(string(stderr)))
	}
	return textenc.Decode(stdout, []string{textenc.Primary}), nil
}

func (s *DockerSession) WriteFile(ctx context.Context, path, content string) error {
	script := `mkdir -p "$(dirname "$1")" && cat > "$1"`
	_, stderr, code, err := s.exec(ctx, strings.NewReader(content), "sh", "-c", script, "_", path)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%s", strings.TrimSpace(string(stderr)))
	}
	return nil
}

// RunCommand returns stdout and stderr combined, without an exit code.
func (s *DockerSession) RunCommand(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	res, err := s.RunCommandResult(ctx, cmd, timeout)
	if err != nil {
		return "", err
	}
	return res.Combined(), nil
}

// RunCommandResult runs cmd under coreutils timeout inside the container so the
// process is killed there, not just the docker client.
func (s *DockerSession) RunCommandResult(ctx context.Context, cmd string, timeout time.Duration) (*ExecResult, error) {
	timeout = s.settings.clampTimeout(timeout)
	if timeout <= 0 {
		timeout = s.settings.Timeout
	}

	args := []string{"sh", "-c", cmd}
	if timeout > 0 {
		secs := strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64)
		args = append([]string{"timeout", "-s", "KILL", secs}, args...)

		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout+clientGrace)
		defer cancel()
	}

	start := time.Now()
	stdout, stderr, code, err := s.exec(ctx, nil, args...)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %q after %s", ErrTimeout, cmd, timeout)
		}
		return nil, err
	}
	if timeout > 0 && code == killedExitCode && elapsed >= timeout {
		return nil, fmt.Errorf("%w: %q after %s", ErrTimeout, cmd, timeout)
	}

	return &ExecResult{
		Stdout:   textenc.Decode(stdout, []string{textenc.Primary}),
		Stderr:   textenc.Decode(stderr, []string{textenc.Primary}),
		ExitCode: code,
	}, nil
}

// Close removes the container.
func (s *DockerSession) Close(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, s.docker, "rm", "-f", s.id).CombinedOutput()
	if err != nil {
		return fmt.Errorf("removing sandbox container %s: %w: %s", s.name, err, strings.TrimSpace(string(out)))
	}
	logrus.WithField("container", s.name).Info("removed docker sandbox")
	return nil
}

// exec runs a program inside the container. A non-zero exit is returned as
// code, not as err.
func (s *DockerSession) exec(ctx context.Context, stdin io.Reader, argv ...string) ([]byte, []byte, int, error) {
	args := []string{"exec"}
	if stdin != nil {
		args = append(args, "-i")
	}
	if s.settings.WorkDir != "" {
		args = append(args, "-w", s.settings.WorkDir)
	}
	args = append(args, s.id)
	args = append(args, argv...)

	cmd := exec.CommandContext(ctx, s.docker, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = stdin
	}

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
		}
		return nil, nil, 0, fmt.Errorf("docker exec in %s: %w", s.name, err)
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}
