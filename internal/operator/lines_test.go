package operator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestSliceLines(t *testing.T) {
	const content = "one\ntwo\nthree\nfour"

	tests := []struct {
		start, end int
		want       string
	}{
		{1, 1, "one"},
		{2, 3, "two\nthree"},
		{3, 0, "three\nfour"},
		{0, 2, "one\ntwo"},
		{-5, 100, content},
	}
	for _, tt := range tests {
		got, err := SliceLines(content, tt.start, tt.end)
		assert.NilError(t, err)
		assert.Equal(t, got, tt.want)
	}

	_, err := SliceLines(content, 4, 2)
	assert.ErrorContains(t, err, "start line 4 is after end line 2")
}

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	assert.NilError(t, os.WriteFile(path, []byte("a\nb\nc\n"), 0o644))
	op := NewLocal(nil)

	got, err := ReadLines(context.Background(), op, path, 0, 0)
	assert.NilError(t, err)
	assert.Equal(t, got, "a\nb\nc\n")

	got, err = ReadLines(context.Background(), op, path, 2, 2)
	assert.NilError(t, err)
	assert.Equal(t, got, "b")

	_, err = ReadLines(context.Background(), op, filepath.Join(t.TempDir(), "missing"), 1, 2)
	assert.ErrorContains(t, err, "failed to read")
}
