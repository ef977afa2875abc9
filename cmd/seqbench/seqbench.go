package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/kakao/asyncseq/internal/flags"
	"github.com/kakao/asyncseq/pkg/util/telemetry"
	"github.com/kakao/asyncseq/pkg/util/units"
	"github.com/kakao/asyncseq/pkg/verrors"
)

func main() {
	os.Exit(run())
}

func run() int {
	app := newSeqBenchApp()
	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "seqbench: %+v\n", err)
		return -1
	}
	return 0
}

func runBench(c *cli.Context) error {
	logger, err := flags.NewLogger(c, "seqbench.log")
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := parseBenchConfig(c)
	if err != nil {
		return err
	}

	ctx, stopSignal := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stopSignal()

	hostname, _ := os.Hostname()
	meterProviderOpts, err := flags.ParseTelemetryFlags(ctx, c, appName, fmt.Sprintf("%s-%d", hostname, os.Getpid()))
	if err != nil {
		return err
	}
	mp, stop, err := telemetry.NewMeterProvider(meterProviderOpts...)
	if err != nil {
		return err
	}
	telemetry.SetGlobalMeterProvider(mp)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.Duration(flags.TelemetryExporterStopTimeout.Name))
		defer cancel()
		if err := stop(ctx); err != nil {
			logger.Warn("could not stop meter provider", zap.Error(err))
		}
	}()

	logger = logger.Named(appName)
	logger.Info("start", zap.Stringer("config", cfg))

	b, err := newBench(cfg, telemetry.GetGlobalMeterProvider().Meter(appName), logger)
	if err != nil {
		return err
	}
	res, err := b.run(ctx)
	if err != nil {
		if verrors.IsCancelled(err) && ctx.Err() != nil {
			logger.Warn("interrupted", zap.Error(err))
		} else {
			logger.Error("failed", zap.Error(err))
		}
		return err
	}

	logger.Info("done",
		zap.Int64("items", res.items),
		zap.Uint64("sum", res.sum),
		zap.Duration("elapsed", res.elapsed),
		zap.String("throughput", units.FormatCount(res.throughput(), 4)+" items/s"),
	)
	_, _ = fmt.Fprintf(c.App.Writer, "%s: %d items in %v (%s items/s)\n",
		cfg.mode, res.items, res.elapsed, units.FormatCount(res.throughput(), 4))
	return nil
}
