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
	"baaccli/pkg/contracts"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("importer", flag.ContinueOnError)
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
		fmt.Println(contracts.GetFullVersionString("importer"))
		return 0
	}

	application, err := app.NewApplication(o.ConfigFile, o.Apply)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := application.RunImport(ctx)
	if shutdownErr := application.Shutdown(context.Background()); shutdownErr != nil {
		slog.Warn("Shutdown incomplete", slog.String("error", shutdownErr.Error()))
	}
	if err != nil {
		attrs := []any{slog.String("error", err.Error())}
		if resp != nil {
			attrs = append(attrs, slog.String("status", string(resp.Status)))
		}
		slog.Error("Import failed", attrs...)
		return 1
	}
	slog.Info("Import complete", slog.String("operation_id", resp.ID), slog.Duration("duration", resp.Duration))
	return 0
}
