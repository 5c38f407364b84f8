package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"futures-monitor/internal/config"
)

// Init configures the global logrus logger. Logs always go to the rotated
// file when one is configured; console may be nil when the terminal is owned
// by the dashboard. The returned closer flushes the file.
func Init(cfg config.LogConfig, console io.Writer) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, fileWriter)
		closer = fileWriter
	}

	out := io.Discard
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
	}
	logrus.SetOutput(out)
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05",
		DisableColors:   console == nil,
	})
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
