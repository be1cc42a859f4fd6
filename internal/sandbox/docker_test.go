package sandbox

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestRunArgs(t *testing.T) {
	args := runArgs("envop-sandbox-abc", DefaultSettings())
	want := []string{
		"run", "-d",
		"--name", "envop-sandbox-abc",
		"--init",
		"--security-opt=no-new-privileges",
		"--memory", "512m",
		"--cpus", "1.00",
		"--network=none",
		"-w", "/workspace",
		"python:3.12-slim", "sleep", "infinity",
	}
	assert.DeepEqual(t, args, want)
}

func TestRunArgsOptional(t *testing.T) {
	args := runArgs("n", Settings{Image: "alpine", NetworkEnabled: true})
	assert.DeepEqual(t, args, []string{
		"run", "-d", "--name", "n", "--init", "--security-opt=no-new-privileges",
		"alpine", "sleep", "infinity",
	})
}

func TestContainerName(t *testing.T) {
	a := containerName("")
	b := containerName("job")
	assert.Check(t, strings.HasPrefix(a, "envop-sandbox-"), a)
	assert.Check(t, strings.HasPrefix(b, "job-"), b)
	assert.Check(t, is.Len(strings.TrimPrefix(b, "job-"), 8))
	assert.Check(t, a != containerName(""))
}

func TestDockerCreateRejectsInvalidSettings(t *testing.T) {
	d := &DockerClient{Binary: "/nonexistent/docker"}
	_, err := d.Create(context.Background(), Settings{})
	assert.ErrorContains(t, err, "image is required")
}

func TestDockerCreateMissingBinary(t *testing.T) {
	d := &DockerClient{Binary: "/nonexistent/docker"}
	_, err := d.Create(context.Background(), DefaultSettings())
	assert.ErrorContains(t, err, "starting sandbox container")
}

// Integration: needs a docker daemon. Run with ENVOP_DOCKER_TESTS=1.
func TestDockerSession(t *testing.T) {
	if os.Getenv("ENVOP_DOCKER_TESTS") != "1" {
		t.Skip("set ENVOP_DOCKER_TESTS=1 to run docker integration tests")
	}

	ctx := context.Background()
	settings := DefaultSettings()
	settings.Image = "alpine:3.20"
	settings.Timeout = 30 * time.Second

	sess, err := NewDockerClient().Create(ctx, settings)
	assert.NilError(t, err)
	defer sess.Close(ctx)

	assert.NilError(t, sess.WriteFile(ctx, "/workspace/sub/hello.txt", "héllo\n"))
	got, err := sess.ReadFile(ctx, "/workspace/sub/hello.txt")
	assert.NilError(t, err)
	assert.Equal(t, got, "héllo\n")

	_, err = sess.ReadFile(ctx, "/workspace/missing.txt")
	assert.ErrorContains(t, err, "No such file")

	runner, ok := sess.(ResultRunner)
	assert.Assert(t, ok)

	res, err := runner.RunCommandResult(ctx, "pwd; echo oops >&2; exit 3", 0)
	assert.NilError(t, err)
	assert.Equal(t, res.Stdout, "/workspace\n")
	assert.Equal(t, res.Stderr, "oops\n")
	assert.Equal(t, res.ExitCode, 3)

	_, err = sess.RunCommand(ctx, "sleep 10", time.Second)
	assert.Check(t, errors.Is(err, ErrTimeout), "err = %v", err)
}
