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
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	var o app.Overrides
	o.BindLoader(fs)
	port := fs.Int("port", 0, "HTTP listen port")
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := o.Parse(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Println(contracts.GetFullVersionString("web"))
		return 0
	}

	configure := func(cfg *config.Config) {
		o.Apply(cfg)
		if o.IsSet("port") {
			cfg.Server.Port = *port
		}
	}
	application, err := app.NewApplication(o.ConfigFile, configure)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Serve(ctx); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
