package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// L is the process-wide logger. Init must run before anything logs.
var L = zap.NewNop()

// Init builds the global logger: a human-readable console core, plus a
// JSON file core with rotation when LOG_DIR is set.
func Init() {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:   "message",
		LevelKey:     "level",
		TimeKey:      "time",
		CallerKey:    "caller",
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	consoleEncoderConfig := encoderConfig
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderConfig),
			zapcore.Lock(os.Stdout),
			zapcore.InfoLevel,
		),
	}

	if logDir := os.Getenv("LOG_DIR"); logDir != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "server.log"),
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(fileWriter),
			zapcore.DebugLevel,
		))
	}

	L = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = L.Sync()
}
