package app

import (
	"flag"

	"baaccli/internal/config"
)

// Overrides holds command line values. Only flags present on the command
// line replace configuration values.
type Overrides struct {
	ConfigFile string

	DataDir     string
	CacheDir    string
	ForceReload bool
	SampleSize  int
	Workers     int

	SkipOverpass    bool
	OverpassURL     string
	OverpassRadius  int
	OverpassMinYear int
	OverpassWorkers int

	Sink      string
	ElkHost   string
	ElkPort   int
	BatchSize int

	Verbose bool

	set map[string]bool
}

// BindLoader registers the configuration, data and loader flags.
func (o *Overrides) BindLoader(fs *flag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", "", "path to a YAML configuration file")
	fs.StringVar(&o.DataDir, "data-dir", "", "directory holding one sub-directory per year")
	fs.StringVar(&o.CacheDir, "cache-dir", "", "directory for the dataset snapshot")
	fs.BoolVar(&o.ForceReload, "force-reload", false, "ignore the cached snapshot")
	fs.IntVar(&o.SampleSize, "sample-size", 0, "keep a random subset of N accidents (0 keeps all)")
	fs.IntVar(&o.Workers, "workers", 0, "number of years loaded in parallel")
	fs.BoolVar(&o.Verbose, "verbose", false, "log at debug level")
}

// BindEnrichment registers the Overpass flags.
func (o *Overrides) BindEnrichment(fs *flag.FlagSet) {
	fs.BoolVar(&o.SkipOverpass, "skip-overpass", false, "disable infrastructure and weather enrichment")
	fs.StringVar(&o.OverpassURL, "overpass-url", "", "Overpass interpreter endpoint")
	fs.IntVar(&o.OverpassRadius, "overpass-radius", 0, "search radius in meters")
	fs.IntVar(&o.OverpassMinYear, "overpass-min-year", 0, "enrich only accidents from this year on")
	fs.IntVar(&o.OverpassWorkers, "overpass-workers", 0, "number of concurrent enrichment workers")
}

// BindSink registers the document store flags.
func (o *Overrides) BindSink(fs *flag.FlagSet) {
	fs.StringVar(&o.Sink, "sink", "", "document store: none, elasticsearch or sqlite")
	fs.StringVar(&o.ElkHost, "elk-host", "", "Elasticsearch host")
	fs.IntVar(&o.ElkPort, "elk-port", 0, "Elasticsearch port")
	fs.IntVar(&o.BatchSize, "batch-size", 0, "documents per bulk request")
}

// Parse parses args and records which flags were given.
func (o *Overrides) Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return nil
}

// IsSet reports whether name was given on the command line.
func (o *Overrides) IsSet(name string) bool {
	return o.set[name]
}

// Apply copies the given flags onto cfg. An explicit Overpass URL turns
// enrichment on; -skip-overpass always wins.
func (o *Overrides) Apply(cfg *config.Config) {
	if o.IsSet("data-dir") {
		cfg.Paths.DataDir = o.DataDir
	}
	if o.IsSet("cache-dir") {
		cfg.Paths.CacheDir = o.CacheDir
	}
	if o.IsSet("force-reload") {
		cfg.Loader.ForceReload = o.ForceReload
	}
	if o.IsSet("sample-size") {
		cfg.Loader.SampleSize = o.SampleSize
	}
	if o.IsSet("workers") {
		cfg.Loader.Workers = o.Workers
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}

	if o.IsSet("overpass-url") {
		cfg.Enrichment.OverpassURL = o.OverpassURL
		cfg.Enrichment.Enabled = true
	}
	if o.IsSet("overpass-radius") {
		cfg.Enrichment.Radius = o.OverpassRadius
	}
	if o.IsSet("overpass-min-year") {
		cfg.Enrichment.MinYear = o.OverpassMinYear
	}
	if o.IsSet("overpass-workers") {
		cfg.Enrichment.Workers = o.OverpassWorkers
	}
	if o.SkipOverpass {
		cfg.Enrichment.Enabled = false
		cfg.Enrichment.Weather = false
	}

	if o.IsSet("sink") {
		cfg.Sink.Type = o.Sink
	}
	if o.IsSet("elk-host") {
		cfg.Sink.Elastic.Host = o.ElkHost
	}
	if o.IsSet("elk-port") {
		cfg.Sink.Elastic.Port = o.ElkPort
	}
	if o.IsSet("batch-size") {
		cfg.Sink.BatchSize = o.BatchSize
	}
}
