package executor

import (
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kakao/asyncseq/pkg/verrors"
)

const (
	DefaultQueueCapacity = 1024
)

type poolConfig struct {
	numWorkers    int
	queueCapacity int
	logger        *zap.Logger
}

func newPoolConfig(opts []PoolOption) (poolConfig, error) {
	cfg := poolConfig{
		numWorkers:    runtime.GOMAXPROCS(0),
		queueCapacity: DefaultQueueCapacity,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt.applyPool(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg poolConfig) validate() error {
	if cfg.numWorkers < 1 {
		return errors.Wrapf(verrors.ErrInvalid, "executor: number of workers %d", cfg.numWorkers)
	}
	if cfg.queueCapacity < 1 {
		return errors.Wrapf(verrors.ErrInvalid, "executor: queue capacity %d", cfg.queueCapacity)
	}
	if cfg.logger == nil {
		return errors.Wrap(verrors.ErrInvalid, "executor: logger is nil")
	}
	return nil
}

type PoolOption interface {
	applyPool(*poolConfig)
}

type funcPoolOption struct {
	f func(*poolConfig)
}

func newFuncPoolOption(f func(*poolConfig)) *funcPoolOption {
	return &funcPoolOption{f: f}
}

func (fpo *funcPoolOption) applyPool(cfg *poolConfig) {
	fpo.f(cfg)
}

// WithNumWorkers sets the number of worker goroutines. It defaults to
// GOMAXPROCS.
func WithNumWorkers(numWorkers int) PoolOption {
	return newFuncPoolOption(func(cfg *poolConfig) {
		cfg.numWorkers = numWorkers
	})
}

func WithQueueCapacity(queueCapacity int) PoolOption {
	return newFuncPoolOption(func(cfg *poolConfig) {
		cfg.queueCapacity = queueCapacity
	})
}

func WithLogger(logger *zap.Logger) PoolOption {
	return newFuncPoolOption(func(cfg *poolConfig) {
		cfg.logger = logger
	})
}
