package toolpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), mode))
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	notExec := filepath.Join(dir, "plain")
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")
	writeFile(t, notExec, 0644)
	writeFile(t, first, 0755)
	writeFile(t, second, 0755)

	tests := []struct {
		name       string
		candidates []string
		want       string
		found      bool
	}{
		{"first executable wins", []string{first, second}, first, true},
		{"skips missing", []string{filepath.Join(dir, "missing"), second}, second, true},
		{"skips non executable", []string{notExec, second}, second, true},
		{"skips directories", []string{dir, first}, first, true},
		{"nothing found", []string{notExec, ""}, "", false},
		{"empty list", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Locate(tt.candidates)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocate_PathLookup(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "fake-tool")
	writeFile(t, tool, 0755)
	t.Setenv("PATH", dir)

	got, ok := Locate([]string{"fake-tool"})
	require.True(t, ok)
	assert.Equal(t, tool, got)
}
