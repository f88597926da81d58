// Package logger содержит настройку логгера приложения.
package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logFileName имя файла журнала внутри директории данных
const logFileName = "app.log"

// Config задает уровень и размещение журналов приложения
type Config struct {
	// Level текстовый уровень логирования: debug, info, warn, error, fatal
	Level string
	// Path явный путь к файлу журнала; имеет приоритет над Directory
	Path string
	// Directory директория данных приложения, журнал пишется в app.log внутри нее
	Directory string
}

// New создает логгер с JSON-выводом в консоль и ротируемый файл
func New(cfg Config) *zap.Logger {
	level := parseLevel(cfg.Level)

	// Настраиваем кодировщик
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	// Консольный вывод
	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	// Файловый вывод
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   resolvePath(cfg),
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}),
		level,
	)

	core := zapcore.NewTee(consoleCore, fileCore)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// parseLevel переводит текстовый уровень в zap-уровень.
// Неизвестные значения трактуются как info.
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// resolvePath выбирает путь к файлу журнала: явный путь, затем директория
// данных, затем локальная папка logs
func resolvePath(cfg Config) string {
	if cfg.Path != "" {
		return cfg.Path
	}

	if cfg.Directory != "" {
		if err := os.MkdirAll(cfg.Directory, 0755); err == nil {
			return filepath.Join(cfg.Directory, logFileName)
		}
	}

	if err := os.MkdirAll("logs", 0755); err == nil {
		return filepath.Join("logs", logFileName)
	}

	// Последний вариант: текущая директория
	return logFileName
}
