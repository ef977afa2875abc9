package barrier

import (
	"go.uber.org/zap"

	"github.com/kakao/asyncseq/pkg/executor"
)

type config struct {
	executor executor.Executor
	logger   *zap.Logger
}

func newConfig(opts []Option) config {
	cfg := config{
		executor: executor.Inline,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.executor == nil {
		cfg.executor = executor.Inline
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	cfg.logger = cfg.logger.Named("barrier")
	return cfg
}

type Option func(*config)

// WithExecutor sets the executor that runs the continuations of deferred
// waits. By default they run on the goroutine that publishes or closes.
func WithExecutor(exec executor.Executor) Option {
	return func(cfg *config) {
		cfg.executor = exec
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
