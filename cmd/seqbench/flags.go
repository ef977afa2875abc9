package main

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/kakao/asyncseq/internal/flags"
	"github.com/kakao/asyncseq/pkg/util/units"
	"github.com/kakao/asyncseq/pkg/verrors"
)

const (
	modeSequencer = "sequencer"
	modeRingQueue = "ringqueue"

	defaultBufferSize = "1Ki"
	defaultItems      = "1M"
	defaultBatch      = 64

	// maxItems keeps the sum of all items within uint64.
	maxItems = math.MaxUint32
)

var (
	flagMode = flags.FlagDesc{
		Name:  "mode",
		Envs:  []string{"SEQBENCH_MODE"},
		Usage: fmt.Sprintf("What to drive: %s or %s.", modeSequencer, modeRingQueue),
	}
	flagBufferSize = flags.FlagDesc{
		Name:    "buffer-size",
		Aliases: []string{"buffer"},
		Envs:    []string{"SEQBENCH_BUFFER_SIZE"},
		Usage:   "Number of slots in the ring buffer, e.g., 1024, 64k or 64Ki.",
	}
	flagItems = flags.FlagDesc{
		Name:  "items",
		Envs:  []string{"SEQBENCH_ITEMS"},
		Usage: "Number of items to push, e.g., 3M.",
	}
	flagBatch = flags.FlagDesc{
		Name:  "batch",
		Envs:  []string{"SEQBENCH_BATCH"},
		Usage: "Maximum number of slots claimed at once.",
	}
	flagExecutorWorkers = flags.FlagDesc{
		Name:  "executor-workers",
		Envs:  []string{"SEQBENCH_EXECUTOR_WORKERS"},
		Usage: "Number of goroutines resuming waiting consumers. Consumers are resumed by the producer if zero.",
	}
)

func parseBenchConfig(c *cli.Context) (benchConfig, error) {
	bufferSize, err := units.ParseCount(c.String(flagBufferSize.Name), 1, math.MaxInt32)
	if err != nil {
		return benchConfig{}, err
	}
	items, err := units.ParseCount(c.String(flagItems.Name), 1, maxItems)
	if err != nil {
		return benchConfig{}, err
	}
	cfg := benchConfig{
		mode:       c.String(flagMode.Name),
		bufferSize: int(bufferSize),
		items:      items,
		batch:      c.Int(flagBatch.Name),
		workers:    c.Int(flagExecutorWorkers.Name),
	}
	if err := cfg.validate(); err != nil {
		return benchConfig{}, err
	}
	return cfg, nil
}

func (cfg benchConfig) validate() error {
	switch cfg.mode {
	case modeSequencer, modeRingQueue:
	default:
		return errors.Wrapf(verrors.ErrInvalid, "seqbench: mode %q", cfg.mode)
	}
	if cfg.batch < 1 {
		return errors.Wrapf(verrors.ErrInvalid, "seqbench: batch %d", cfg.batch)
	}
	if cfg.workers < 0 {
		return errors.Wrapf(verrors.ErrInvalid, "seqbench: executor workers %d", cfg.workers)
	}
	return nil
}
