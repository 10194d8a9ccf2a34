package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/foxess-cli/foxess/pkg/config"
	"github.com/foxess-cli/foxess/pkg/format"
	"github.com/foxess-cli/foxess/pkg/foxess"
	"github.com/foxess-cli/foxess/pkg/log"
	"github.com/foxess-cli/foxess/pkg/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		cancel()
		os.Exit(1)
	}
}

// run executes one invocation and writes all output to w. The returned
// error has already been reported to w.
func run(ctx context.Context, args []string, w io.Writer) error {
	opts, err := parseArgs(args)
	if isHelp(err) {
		usage(w)
		return nil
	}

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	ctx = log.With(ctx, log.New(w, level))

	if err != nil {
		return report(ctx, w, err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return report(ctx, w, err)
	}
	if opts.apiKey == "" {
		opts.apiKey = cfg.APIKey
	}
	if !opts.decimalsSet {
		opts.decimals = cfg.Decimals
	}
	if opts.apiKey == "" {
		return report(ctx, w, &UserError{Msg: "No API key provided", Usage: true})
	}

	client := foxess.New(opts.apiKey, cfg.BaseURL, cfg.Timeout)

	if opts.test {
		if client.TestAuthentication(ctx) {
			fmt.Fprintln(w, "API Key is valid")
		} else {
			fmt.Fprintln(w, "API Key is invalid or there was a connection problem")
		}
		return nil
	}

	if err := show(ctx, w, client, opts); err != nil {
		return report(ctx, w, err)
	}
	return nil
}

func show(ctx context.Context, w io.Writer, client *foxess.Client, opts options) error {
	client.Authenticate(ctx)

	log.Ctx(ctx).DebugContext(ctx, "getting device list")
	devices, err := client.FetchDeviceList(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errNoDevices
	}

	device := devices[0]
	log.Ctx(ctx).DebugContext(ctx, "found device",
		slog.String("stationName", device.StationName),
		slog.String("deviceSN", device.DeviceSN),
	)

	points, err := client.FetchRealData(ctx, device.DeviceSN)
	if err != nil {
		return err
	}

	switch {
	case len(opts.variables) > 0:
		format.Variables(w, points, opts.variables, opts.decimals)
	case opts.all:
		format.All(w, points, opts.decimals)
	default:
		format.Summary(ctx, w, device, points, opts.decimals)
	}

	if opts.textfile != "" {
		if err := metrics.WriteTextfile(opts.textfile, device, points); err != nil {
			return fmt.Errorf("failed to write textfile: %w", err)
		}
		log.Ctx(ctx).DebugContext(ctx, "wrote textfile", slog.String("path", opts.textfile))
	}
	return nil
}

// report prints err and, in debug mode, logs its type and chain.
func report(ctx context.Context, w io.Writer, err error) error {
	var ue *UserError
	if errors.As(err, &ue) && ue.Bare {
		fmt.Fprintln(w, ue.Msg)
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	if ue != nil && ue.Usage {
		usage(w)
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		log.Ctx(ctx).DebugContext(ctx, "error trace", slog.String("type", fmt.Sprintf("%T", e)), slog.String("error", e.Error()))
	}
	return err
}
