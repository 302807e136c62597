package app

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baaccli/internal/config"
)

func parseOverrides(t *testing.T, args ...string) *Overrides {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := &Overrides{}
	o.BindLoader(fs)
	o.BindEnrichment(fs)
	o.BindSink(fs)
	require.NoError(t, o.Parse(fs, args))
	return o
}

func TestOverrides_Apply(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "no flags keep configuration",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.Default(), cfg)
			},
		},
		{
			name: "loader flags",
			args: []string{"-data-dir", "/data", "-cache-dir", "/cache", "-force-reload", "-sample-size", "50", "-workers", "2"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "/data", cfg.Paths.DataDir)
				assert.Equal(t, "/cache", cfg.Paths.CacheDir)
				assert.True(t, cfg.Loader.ForceReload)
				assert.Equal(t, 50, cfg.Loader.SampleSize)
				assert.Equal(t, 2, cfg.Loader.Workers)
			},
		},
		{
			name: "explicit zero sample size is applied",
			args: []string{"-sample-size", "0"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 0, cfg.Loader.SampleSize)
			},
		},
		{
			name: "overpass url enables enrichment",
			args: []string{"-overpass-url", "http://overpass:12345/api/interpreter", "-overpass-radius", "500", "-overpass-min-year", "2019", "-overpass-workers", "4"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.True(t, cfg.Enrichment.Enabled)
				assert.Equal(t, "http://overpass:12345/api/interpreter", cfg.Enrichment.OverpassURL)
				assert.Equal(t, 500, cfg.Enrichment.Radius)
				assert.Equal(t, 2019, cfg.Enrichment.MinYear)
				assert.Equal(t, 4, cfg.Enrichment.Workers)
			},
		},
		{
			name: "skip overpass wins",
			args: []string{"-overpass-url", "http://overpass/api", "-skip-overpass"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.False(t, cfg.Enrichment.Enabled)
				assert.False(t, cfg.Enrichment.Weather)
			},
		},
		{
			name: "sink flags",
			args: []string{"-sink", "elasticsearch", "-elk-host", "es", "-elk-port", "9201", "-batch-size", "200", "-verbose"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "elasticsearch", cfg.Sink.Type)
				assert.Equal(t, "es", cfg.Sink.Elastic.Host)
				assert.Equal(t, 9201, cfg.Sink.Elastic.Port)
				assert.Equal(t, 200, cfg.Sink.BatchSize)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			parseOverrides(t, tt.args...).Apply(cfg)
			tt.check(t, cfg)
		})
	}
}

func TestOverrides_ParseError(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := &Overrides{}
	o.BindLoader(fs)
	assert.Error(t, o.Parse(fs, []string{"-workers", "many"}))
}
