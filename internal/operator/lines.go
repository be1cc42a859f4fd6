package operator

import (
	"context"
	"fmt"
	"strings"
)

// ReadLines reads path through op and returns lines start..end, 1-based and
// inclusive. A zero start means the first line and a zero end the last. Out of
// range bounds are clamped.
func ReadLines(ctx context.Context, op Operator, path string, start, end int) (string, error) {
	content, err := op.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}
	if start == 0 && end == 0 {
		return content, nil
	}
	return SliceLines(content, start, end)
}

// SliceLines is the pure part of ReadLines.
func SliceLines(content string, start, end int) (string, error) {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end == 0 || end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return "", fmt.Errorf("start line %d is after end line %d", start, end)
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}
