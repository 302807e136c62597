package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"baaccli/internal/app"
	"baaccli/internal/config"
	"baaccli/pkg/contracts"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("enricher", flag.ContinueOnError)
	var o app.Overrides
	o.BindLoader(fs)
	o.BindEnrichment(fs)
	o.BindSink(fs)
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := o.Parse(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Println(contracts.GetFullVersionString("enricher"))
		return 0
	}
	if o.SkipOverpass {
		slog.Error("Nothing to do: -skip-overpass disables the enricher")
		return 2
	}

	// enrich-only mode always queries Overpass
	configure := func(cfg *config.Config) {
		o.Apply(cfg)
		cfg.Enrichment.Enabled = true
	}
	application, err := app.NewApplication(o.ConfigFile, configure)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := application.RunEnrich(ctx)
	if shutdownErr := application.Shutdown(context.Background()); shutdownErr != nil {
		slog.Warn("Shutdown incomplete", slog.String("error", shutdownErr.Error()))
	}
	if err != nil {
		slog.Error("Enrichment failed", slog.String("error", err.Error()))
		return 1
	}
	slog.Info("Enrichment complete", slog.String("operation_id", resp.ID), slog.Duration("duration", resp.Duration))
	return 0
}
