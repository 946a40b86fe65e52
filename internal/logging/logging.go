// Package logging wires the process-wide zap logger.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InitGlobalLogger initializes the zap global logger: console-encoded,
// debug level, teed to stderr and a size-rotated file.
func InitGlobalLogger(filename string) {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	sink := zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stderr), getLogWriter(filename))
	logger := zap.New(zapcore.NewCore(encoder, sink, zapcore.DebugLevel))
	zap.ReplaceGlobals(logger)
}

func getLogWriter(filename string) zapcore.WriteSyncer {
	lumberJackLogger := &lumberjack.Logger{
		Filename: filename,
	}
	return zapcore.AddSync(lumberJackLogger)
}
