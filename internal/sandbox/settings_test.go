package sandbox

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestDefaultSettingsValid(t *testing.T) {
	s := DefaultSettings()
	assert.NilError(t, s.Validate())
	assert.Equal(t, s.WorkDir, "/workspace")
	assert.Equal(t, s.NetworkEnabled, false)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"no image", func(s *Settings) { s.Image = "" }, "image is required"},
		{"bad memory", func(s *Settings) { s.MemoryLimit = "lots" }, `invalid sandbox memory limit "lots"`},
		{"memory without unit", func(s *Settings) { s.MemoryLimit = "1048576" }, ""},
		{"memory gigabytes", func(s *Settings) { s.MemoryLimit = "2G" }, ""},
		{"empty memory", func(s *Settings) { s.MemoryLimit = "" }, ""},
		{"negative cpu", func(s *Settings) { s.CPULimit = -1 }, "invalid sandbox cpu limit"},
		{"negative timeout", func(s *Settings) { s.Timeout = -time.Second }, "invalid sandbox timeout"},
		{"zero timeout", func(s *Settings) { s.Timeout = 0 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NilError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestClampTimeout(t *testing.T) {
	s := Settings{Timeout: time.Minute}
	assert.Equal(t, s.clampTimeout(10*time.Second), 10*time.Second)
	assert.Equal(t, s.clampTimeout(time.Hour), time.Minute)
	assert.Equal(t, s.clampTimeout(0), time.Minute)

	unlimited := Settings{}
	assert.Equal(t, unlimited.clampTimeout(time.Hour), time.Hour)
	assert.Equal(t, unlimited.clampTimeout(0), time.Duration(0))
}

func TestExecResultCombined(t *testing.T) {
	assert.Equal(t, (&ExecResult{Stdout: "out\n"}).Combined(), "out\n")
	assert.Equal(t, (&ExecResult{Stderr: "err\n"}).Combined(), "err\n")
	assert.Equal(t, (&ExecResult{Stdout: "out\n", Stderr: "err\n"}).Combined(), "out\nerr\n")
	assert.Check(t, is.Equal((&ExecResult{}).Combined(), ""))
}
