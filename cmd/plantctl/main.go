// Command plantctl queries the solar operations backend from the command
// line through the resilient client stack.
//
//	plantctl --base-url https://api.solarops.example plants
//	plantctl weather 7 --date 2024-03-05
//	plantctl workorders create --plant 7 --title "Replace inverter" --due 2024-03-09
//	plantctl watch plants --interval 30s --metrics-address :2112
//
// With --metrics-address set, plantctl also serves /livez, /readyz and
// /status next to /metrics. --otlp-endpoint exports the client spans.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/kroma-labs/solarops/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "plantctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("plantctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: plantctl [flags] <command> [args]\n\ncommands:\n%s\nflags:\n", commandHelp())
		fs.PrintDefaults()
	}

	config.RegisterFlags(fs)
	var cf commandFlags
	cf.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return pflag.ErrHelp
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	logger, err := cfg.Logging.NewLogger(stderr)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.shutdown(context.WithoutCancel(ctx))

	return a.dispatch(ctx, fs.Args(), cf, stdout)
}
