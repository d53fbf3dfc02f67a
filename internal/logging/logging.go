// Package logging builds the zap logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where logs go and how much is written.
type Options struct {
	Level   string // debug | info | warn | error; default warn
	Verbose bool   // forces debug
	File    string // optional rotating log file

	// Console is the terminal sink, normally os.Stderr.
	Console io.Writer
}

// New returns a logger writing to the console at the configured level and,
// when File is set, JSON lines to a rotating file.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}
	atom := zap.NewAtomicLevelAt(level)

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.TimeKey = ""
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(opts.Console), atom),
	}

	if opts.File != "" {
		w, err := fileWriter(opts.File)
		if err != nil {
			return nil, err
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		// The file always records debug so a failed run can be replayed.
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), w, zap.NewAtomicLevelAt(zapcore.DebugLevel)))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// ParseLevel maps a config string to a zap level. Empty means warn.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.WarnLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func fileWriter(path string) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}), nil
}
