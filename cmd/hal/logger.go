package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logOptions configures the process logger
type logOptions struct {
	Level  string
	Format string
	// File, when set, receives a copy of everything written to stderr.
	File string
	// MaxSize is in megabytes, MaxAge in days.
	MaxSize int
	MaxAge  int
}

// initLogger creates a configured zap logger. With a log file it also
// returns the rotating sink so the caller can rotate and close it.
func initLogger(opts logOptions) (*zap.Logger, *lumberjack.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(opts.Level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	var loggerConfig zap.Config
	if opts.Format == "json" {
		loggerConfig = zap.NewProductionConfig()
	} else {
		loggerConfig = zap.NewDevelopmentConfig()
	}
	loggerConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, nil, err
	}
	if opts.File == "" {
		return logger, nil, nil
	}

	sink := &lumberjack.Logger{
		Filename:  opts.File,
		MaxSize:   opts.MaxSize,
		MaxAge:    opts.MaxAge,
		LocalTime: true,
	}

	var encoder zapcore.Encoder
	if opts.Format == "json" {
		encoder = zapcore.NewJSONEncoder(loggerConfig.EncoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(loggerConfig.EncoderConfig)
	}
	fileCore := zapcore.NewCore(encoder, zapcore.AddSync(sink), loggerConfig.Level)

	logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
	return logger, sink, nil
}

type rotator interface {
	Rotate() error
}

// rotateEvery starts a new log file every period until ctx is done
func rotateEvery(ctx context.Context, r rotator, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Rotate(); err != nil {
				logger.Error("Failed to rotate log file", zap.Error(err))
				continue
			}
			logger.Info("Rotated log file", zap.Duration("every", every))
		}
	}
}
