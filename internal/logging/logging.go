// Package logging routes the standard logger to stdout and a rotating file.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/covalenthq/lumberjack"

	"github.com/alanwtom/carmodel/internal/config"
)

// NewRotatingFile returns a size-rotated log file writer.
func NewRotatingFile(path string, cfg config.LogConfig) io.WriteCloser {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

// Setup sends log output to stdout and cfg.File.  The returned writer is
// the combined stream, for components such as the HTTP request logger that
// take an explicit io.Writer; close the closer on shutdown.
func Setup(cfg config.LogConfig) (io.Writer, io.Closer) {
	file := NewRotatingFile(cfg.File, cfg)
	w := io.MultiWriter(os.Stdout, file)
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.LUTC)
	return w, file
}
