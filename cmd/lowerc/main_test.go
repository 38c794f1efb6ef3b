package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gclower/internal/errors"
	"gclower/internal/lowlevel"
	"gclower/internal/types"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.50s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.5ms", formatDuration(2500*time.Microsecond))
	assert.Equal(t, "42ns", formatDuration(42))
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, lowlevel.DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "lowerc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("write-barriers: false\nroot-runtime: mutator\n"), 0o644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.WriteBarriers)
	assert.True(t, cfg.NullChecks, "unset keys keep their defaults")
	assert.Equal(t, lowlevel.RootsMutator, cfg.RootRuntime)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	ref := types.NewMethodReference("A", "m", types.VoidType)
	pos := errors.Position{Filename: "a.ir", Line: 3, Column: 1}
	positions := map[string]errors.Position{ref.String(): pos}

	malformed := &lowlevel.MethodError{
		Method: ref,
		Pass:   "shadow-stack",
		Err:    fmt.Errorf("%w: verify after: IR verification failed:\n  $1: block is not terminated", lowlevel.ErrMalformed),
	}
	diagnostic := report(malformed, positions)
	assert.Equal(t, errors.ErrorMalformedIR, diagnostic.Code)
	assert.Equal(t, 3, diagnostic.Position.Line)
	assert.Equal(t, ref.String(), diagnostic.Position.Method)
	assert.Contains(t, diagnostic.Notes, "$1: block is not terminated")

	failed := &lowlevel.MethodError{Method: ref, Pass: "write-barriers", Err: fmt.Errorf("boom")}
	assert.Equal(t, errors.ErrorPassFailure, report(failed, positions).Code)
}
