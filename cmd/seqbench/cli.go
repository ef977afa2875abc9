package main

import (
	"github.com/urfave/cli/v2"

	"github.com/kakao/asyncseq/internal/flags"
)

const (
	appName = "seqbench"
	version = "0.0.1"
)

func newSeqBenchApp() *cli.App {
	return &cli.App{
		Name:    appName,
		Usage:   "sequencer benchmark",
		Version: version,
		Commands: []*cli.Command{
			newRunCommand(),
		},
	}
}

func newRunCommand() *cli.Command {
	cmdFlags := []cli.Flag{
		flagMode.StringFlag(false, modeSequencer),
		flagBufferSize.StringFlag(false, defaultBufferSize),
		flagItems.StringFlag(false, defaultItems),
		flagBatch.IntFlag(false, defaultBatch),
		flagExecutorWorkers.IntFlag(false, 0),
	}
	cmdFlags = append(cmdFlags, flags.LoggerFlags()...)
	cmdFlags = append(cmdFlags, flags.TelemetryFlags()...)
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "push sequentially numbered items through a ring buffer and check their sum",
		Action:  runBench,
		Flags:   cmdFlags,
	}
}
