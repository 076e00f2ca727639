package main

import (
	"bytes"
	"dexnetwork/internal/config"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("CONFIG", "/etc/dexnetwork.yaml")

	f, err := parseFlags([]string{"-from", "2022-01-01", "-panel"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "/etc/dexnetwork.yaml", f.config)
	assert.Equal(t, "2022-01-01", f.from)
	assert.True(t, f.panel)
	assert.False(t, f.serve)

	_, err = parseFlags([]string{"-nope"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = parseFlags([]string{"extra"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestResolveRange(t *testing.T) {
	cfg := &config.Config{Sample: config.SampleConfig{Start: "2022-01-01", End: "2022-01-31"}}

	testCases := []struct {
		name     string
		f        flags
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{"sample_defaults", flags{}, "2022-01-01", "2022-01-31", false},
		{"flags_override", flags{from: "2022-01-10", to: "2022-01-12"}, "2022-01-10", "2022-01-12", false},
		{"bad_from", flags{from: "01/10/2022"}, "", "", true},
		{"reversed", flags{from: "2022-02-01"}, "", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			from, to, err := resolveRange(&tc.f, cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantFrom, from.Format(time.DateOnly))
			assert.Equal(t, tc.wantTo, to.Format(time.DateOnly))
		})
	}

	_, _, err := resolveRange(&flags{}, &config.Config{})
	assert.Error(t, err)
}

func TestRun_ExitCodes(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data:\n  root: "+root+"\n  versions: [v2]\nlogging:\n  level: error\n"), 0o644))

	missingRoot := filepath.Join(root, "bad.yaml")
	require.NoError(t, os.WriteFile(missingRoot, []byte("data:\n  root: "+filepath.Join(root, "nope")+"\n"), 0o644))

	testCases := []struct {
		name string
		args []string
		want int
	}{
		{"bad_flag", []string{"-bogus"}, exitBadFlags},
		{"help", []string{"-h"}, exitOK},
		{"missing_config", []string{"-config", filepath.Join(root, "absent.yaml")}, exitFailure},
		{"no_range", []string{"-config", cfgPath}, exitBadFlags},
		{"unreadable_root", []string{"-config", missingRoot, "-from", "2022-01-01", "-to", "2022-01-01"}, exitFailure},
		{"empty_tree_days_skipped", []string{"-config", cfgPath, "-from", "2022-01-01", "-to", "2022-01-02"}, exitOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, run(tc.args, &bytes.Buffer{}))
		})
	}
}
