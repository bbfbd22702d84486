// Package logger builds the zap logger from the log configuration.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/apohrebniak/paket/internal/common/configtypes"
)

// NewLogger creates a zap logger with console and/or file outputs per the
// configuration. Each output may override the global level and format.
func NewLogger(config configtypes.LogConfig) (*zap.Logger, error) {
	// Global log level is the fallback for outputs without an explicit level
	globalLevel := parseLogLevel(config.Level)

	var cores []zapcore.Core

	if config.Console.Enabled {
		level := resolveLogLevel(config.Console.Level, globalLevel)
		consoleEncoder := createEncoder(config.Console.Format)
		consoleWriter := zapcore.Lock(os.Stdout)
		cores = append(cores, zapcore.NewCore(consoleEncoder, consoleWriter, level))
	}

	if config.File.Enabled {
		if config.File.Path == "" {
			return nil, fmt.Errorf("file.path must be specified when file logging is enabled")
		}

		level := resolveLogLevel(config.File.Level, globalLevel)
		fileEncoder := createEncoder(config.File.Format)
		fileWriter := createFileWriter(config.File.Path, config.File.Rotation)
		cores = append(cores, zapcore.NewCore(fileEncoder, fileWriter, level))
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("at least one log output (console or file) must be enabled")
	}

	var core zapcore.Core
	if len(cores) == 1 {
		core = cores[0]
	} else {
		core = zapcore.NewTee(cores...)
	}

	return zap.New(core), nil
}

// NewDefaultLogger creates a console logger for startup, before the
// configuration has been loaded.
func NewDefaultLogger() (*zap.Logger, error) {
	config := configtypes.LogConfig{
		Level: configtypes.LogLevelDebug,
		Console: configtypes.ConsoleLogConfig{
			Enabled: true,
			Format:  configtypes.LogFormatConsole,
		},
	}
	return NewLogger(config)
}

// parseLogLevel converts string level to zapcore.Level
func parseLogLevel(level string) zapcore.Level {
	switch level {
	case configtypes.LogLevelDebug:
		return zap.DebugLevel
	case configtypes.LogLevelInfo:
		return zap.InfoLevel
	case configtypes.LogLevelWarn:
		return zap.WarnLevel
	case configtypes.LogLevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// resolveLogLevel determines the effective log level for an output
// If outputLevel is specified, use it; otherwise fall back to globalLevel
func resolveLogLevel(outputLevel string, globalLevel zapcore.Level) zapcore.Level {
	if outputLevel != "" {
		return parseLogLevel(outputLevel)
	}
	return globalLevel
}

// createEncoder creates a zapcore.Encoder based on format
func createEncoder(format string) zapcore.Encoder {
	if format == configtypes.LogFormatJSON {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()

	if format == configtypes.LogFormatText {
		// Plain text without color codes (for files)
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		// Console format with color codes (for terminals)
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return zapcore.NewConsoleEncoder(encoderConfig)
}

// createFileWriter creates a zapcore.WriteSyncer with rotation support
func createFileWriter(path string, rotation configtypes.RotationConfig) zapcore.WriteSyncer {
	lumberLogger := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotation.MaxSize,
		MaxAge:     rotation.MaxAge,
		MaxBackups: rotation.MaxBackups,
		Compress:   rotation.Compress,
	}
	return zapcore.AddSync(lumberLogger)
}
