// Package logging builds the arbor.ILogger used throughout the master and worker
// binaries and renders a console dashboard off the event bus. There is no package-level
// singleton here: Setup returns a logger that callers thread through every constructor,
// matching the "no singletons" design note carried from the orchestration core out to the
// ambient stack.
package logging

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	"github.com/ternarybob/arbor/models"

	"github.com/ternarybob/siteharvest/internal/config"
)

// Setup constructs an arbor logger from the logging config section. processName
// distinguishes the master's and each worker's log file ("master.log", "worker-3.log").
func Setup(cfg config.LoggingConfig, processName string) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFile, hasConsole := false, false
	for _, out := range cfg.Output {
		switch out {
		case "file":
			hasFile = true
		case "stdout", "console":
			hasConsole = true
		}
	}

	if hasFile {
		logsDir := "./logs"
		if execPath, err := os.Executable(); err == nil {
			logsDir = filepath.Join(filepath.Dir(execPath), "logs")
		}
		if err := os.MkdirAll(logsDir, 0755); err == nil {
			logFile := filepath.Join(logsDir, processName+".log")
			logger = logger.WithFileWriter(writerConfig(cfg, models.LogWriterTypeFile, logFile))
		} else {
			hasConsole = true
		}
	}

	if hasConsole || !hasFile {
		logger = logger.WithConsoleWriter(writerConfig(cfg, models.LogWriterTypeConsole, ""))
	}

	logger = logger.WithMemoryWriter(writerConfig(cfg, models.LogWriterTypeMemory, ""))
	logger = logger.WithLevelFromString(cfg.Level)

	return logger
}

func writerConfig(cfg config.LoggingConfig, writerType models.LogWriterType, filename string) models.WriterConfiguration {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = "15:04:05.000"
	}

	return models.WriterConfiguration{
		Type:             writerType,
		FileName:         filename,
		TimeFormat:       timeFormat,
		DisableTimestamp: false,
		MaxSize:          100 * 1024 * 1024,
		MaxBackups:       3,
	}
}

// Stop flushes any buffered log writers before process exit.
func Stop() {
	arborcommon.Stop()
}
