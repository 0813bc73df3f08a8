// Package logging holds the process-wide zap logger used by the engine.
//
// The default logger writes warnings and errors to stderr as JSON. Call
// Init to send logs to a rotated file or to change the level.
package logging

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultMaxSize = 100 // MB

// FileConfig configures file output with rotation.
type FileConfig struct {
	// Directory holding the log file.
	RootPath string `mapstructure:"root_path"`
	// Leave blank to disable file logging.
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxDays    int    `mapstructure:"max_days"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Config configures the global logger.
type Config struct {
	// One of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Either "json" (default) or "console".
	Format string     `mapstructure:"format"`
	Stdout bool       `mapstructure:"stdout"`
	File   FileConfig `mapstructure:"file"`
}

var global = atomic.NewPointer[zap.Logger](newDefault())

func newDefault() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.WarnLevel,
	)
	return zap.New(core).Named("textserde")
}

// L returns the global logger. It is safe for concurrent use.
func L() *zap.Logger {
	return global.Load()
}

// ReplaceGlobal installs logger and returns a function restoring the
// previous one.
func ReplaceGlobal(logger *zap.Logger) func() {
	prev := global.Swap(logger)
	return func() {
		global.Store(prev)
	}
}

// Init builds a logger from cfg and installs it globally.
func Init(cfg Config) error {
	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return errors.Wrapf(err, "invalid log level %q", cfg.Level)
		}
	}

	var outputs []zapcore.WriteSyncer
	if cfg.File.Filename != "" {
		lg, err := initFileLog(&cfg.File)
		if err != nil {
			return err
		}
		outputs = append(outputs, zapcore.AddSync(lg))
	}
	if cfg.Stdout || len(outputs) == 0 {
		outputs = append(outputs, zapcore.Lock(os.Stdout))
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	switch cfg.Format {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return errors.Newf("unknown log format %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zap.CombineWriteSyncers(outputs...), level)
	global.Store(zap.New(core, zap.AddCaller()).Named("textserde"))
	return nil
}

func initFileLog(cfg *FileConfig) (*lumberjack.Logger, error) {
	logPath := filepath.Join(cfg.RootPath, cfg.Filename)
	if st, err := os.Stat(logPath); err == nil && st.IsDir() {
		return nil, errors.Newf("can't use directory %s as log file name", logPath)
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = defaultMaxSize
	}
	return &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxDays,
		LocalTime:  true,
	}, nil
}
