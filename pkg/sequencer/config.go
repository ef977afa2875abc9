package sequencer

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kakao/asyncseq/pkg/executor"
	"github.com/kakao/asyncseq/pkg/verrors"
)

type config struct {
	initialSequence    uint64
	hasInitialSequence bool
	executor           executor.Executor
	logger             *zap.Logger
}

func newConfig(opts []Option) (config, error) {
	cfg := config{
		executor: executor.Inline,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	cfg.logger = cfg.logger.Named("sequencer")
	return cfg, nil
}

func (cfg config) validate() error {
	if cfg.executor == nil {
		return errors.Wrap(verrors.ErrInvalid, "sequencer: executor is nil")
	}
	if cfg.logger == nil {
		return errors.Wrap(verrors.ErrInvalid, "sequencer: logger is nil")
	}
	return nil
}

type Option interface {
	apply(*config)
}

type funcOption struct {
	f func(*config)
}

func newFuncOption(f func(*config)) *funcOption {
	return &funcOption{f: f}
}

func (fo *funcOption) apply(cfg *config) {
	fo.f(cfg)
}

// WithInitialSequence sets the sequence number the producer barrier starts
// from; the first claim returns the one after it. It is truncated to the
// width of the sequencer's sequence type. By default it is
// sequence.Initial, so the first claimed sequence number is zero.
func WithInitialSequence(initial uint64) Option {
	return newFuncOption(func(cfg *config) {
		cfg.initialSequence = initial
		cfg.hasInitialSequence = true
	})
}

// WithExecutor sets the executor that runs the continuations of consumers
// waiting on the producer barrier.
func WithExecutor(exec executor.Executor) Option {
	return newFuncOption(func(cfg *config) {
		cfg.executor = exec
	})
}

func WithLogger(logger *zap.Logger) Option {
	return newFuncOption(func(cfg *config) {
		cfg.logger = logger
	})
}
