package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"-no-such-flag"}},
		{name: "malformed integer", args: []string{"-workers", "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 2, run(tt.args))
		})
	}
}

func TestRun_SkipOverpassRefused(t *testing.T) {
	assert.Equal(t, 2, run([]string{"-skip-overpass"}))
}

func TestRun_VersionAndHelp(t *testing.T) {
	assert.Equal(t, 0, run([]string{"-version"}))
	assert.Equal(t, 0, run([]string{"-h"}))
}
