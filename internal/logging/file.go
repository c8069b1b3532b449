package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig controls rotation of the optional log file.
type FileConfig struct {
	Dir        string
	Name       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns rotation defaults for a log file called name.
func DefaultFileConfig(dir, name string) FileConfig {
	return FileConfig{
		Dir:        dir,
		Name:       name,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 28,
		Compress:   true,
	}
}

var (
	fileMu     sync.Mutex
	fileWriter *lumberjack.Logger
)

// EnableFileOutput duplicates all log output into a rotated file under
// cfg.Dir. Output keeps going to stderr. Calling it again replaces the
// previous file.
func EnableFileOutput(cfg FileConfig) error {
	if cfg.Dir == "" || cfg.Name == "" {
		return fmt.Errorf("log file directory and name are required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.Name),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	fileMu.Lock()
	defer fileMu.Unlock()

	if fileWriter != nil {
		_ = fileWriter.Close()
	}
	fileWriter = lj
	log.SetOutput(io.MultiWriter(os.Stderr, lj))
	return nil
}

// CloseFileOutput restores stderr-only logging and closes the log file.
func CloseFileOutput() error {
	fileMu.Lock()
	defer fileMu.Unlock()

	log.SetOutput(os.Stderr)
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}
