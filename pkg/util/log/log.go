// Package log builds zap loggers that write to the standard error, to a
// rotated log file, or to both.
package log

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultSamplingTick = time.Second

func New(opts ...Option) (*zap.Logger, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	var syncers []zapcore.WriteSyncer
	if !cfg.disableLogToStderr {
		syncers = append(syncers, zapcore.Lock(zapcore.AddSync(os.Stderr)))
	}
	if len(cfg.path) > 0 {
		syncers = append(syncers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.path,
			MaxSize:    cfg.maxSizeMB,
			MaxAge:     cfg.maxAgeDays,
			MaxBackups: cfg.maxBackups,
			LocalTime:  cfg.localTime,
			Compress:   cfg.compress,
		}))
	}

	var encoder zapcore.Encoder
	if cfg.humanFriendly {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	core := zapcore.NewCore(encoder, zap.CombineWriteSyncers(syncers...), zap.NewAtomicLevelAt(cfg.level))
	if cfg.sampler != nil {
		tick := cfg.sampler.Tick
		if tick <= 0 {
			tick = defaultSamplingTick
		}
		core = zapcore.NewSamplerWithOptions(core,
			tick,
			cfg.sampler.First,
			cfg.sampler.Thereafter,
		)
	}

	zapOpts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)}
	zapOpts = append(zapOpts, cfg.zapOpts...)
	return zap.New(core, zapOpts...), nil
}
