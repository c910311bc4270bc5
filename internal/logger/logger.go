// Package logger configures the process-wide standard library logger with
// size-based file rotation.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log file placement and rotation
type Config struct {
	LogDir     string
	LogFile    string
	MaxSize    int  // MB per file before rotation
	MaxBackups int  // rotated files to keep
	MaxAge     int  // days to keep rotated files
	Compress   bool // gzip rotated files
	Console    bool // also write to stdout
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() *Config {
	return &Config{
		LogDir:     "logs",
		LogFile:    "meterai.log",
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
		Console:    true,
	}
}

// Setup initializes the standard library logger output
func Setup(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(cfg.LogDir, cfg.LogFile)
	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var writer io.Writer = rotator
	if cfg.Console {
		writer = io.MultiWriter(os.Stdout, rotator)
	}

	log.SetOutput(writer)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	log.Printf("📝 Logging initialized")
	log.Printf("📂 Log file: %s (rotate at %dMB, keep %d backups for %d days)",
		logPath, cfg.MaxSize, cfg.MaxBackups, cfg.MaxAge)

	return nil
}
