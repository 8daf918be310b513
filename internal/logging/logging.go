// Package logging configures the controller-runtime zap logger, optionally
// teeing output into a rotating file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// File describes a rotating log file. An empty Path disables it.
type File struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultFile holds the rotation settings used when only a path is given.
var DefaultFile = File{MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 14}

// Writer returns stderr, or stderr plus the rotating file when f.Path is set.
// The returned closer releases the file.
func Writer(f File) (io.Writer, io.Closer, error) {
	if f.Path == "" {
		return os.Stderr, io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	lj := &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAge:     f.MaxAgeDays,
		Compress:   true,
	}
	return zapcore.AddSync(io.MultiWriter(os.Stderr, lj)), lj, nil
}

// New builds a logr.Logger from bound zap options, writing to w.
func New(opts *zap.Options, w io.Writer) logr.Logger {
	return zap.New(zap.UseFlagOptions(opts), zap.WriteTo(w))
}
