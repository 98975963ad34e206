package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"labelcam/internal/config"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to rotated files and stdout/stderr.
type Logger struct {
	infoLog    *zap.SugaredLogger
	warningLog *zap.SugaredLogger
	errorLog   *zap.SugaredLogger
	files      map[string]*lumberjack.Logger
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{
		logDir: cfg.LogDirectory,
		files:  make(map[string]*lumberjack.Logger),
	}
	l.setupLoggers(os.Stdout, os.Stderr)
	return l, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	nop := zap.NewNop().Sugar()
	return &Logger{
		infoLog:    nop,
		warningLog: nop,
		errorLog:   nop,
		files:      make(map[string]*lumberjack.Logger),
	}
}

// setupLoggers builds one zap core per level, each teeing into the console
// and that level's rotated file.
func (l *Logger) setupLoggers(stdout, stderr io.Writer) {
	l.infoLog = l.newLevelLogger(InfoFile, stdout, "INFO   ")
	l.warningLog = l.newLevelLogger(WarningFile, stdout, "WARNING")
	l.errorLog = l.newLevelLogger(ErrorFile, stderr, "ERROR  ")
}

func (l *Logger) newLevelLogger(filename string, console io.Writer, prefix string) *zap.SugaredLogger {
	file := &lumberjack.Logger{
		Filename:   filepath.Join(l.logDir, filename),
		MaxSize:    10,
		MaxBackups: 3,
	}
	l.files[filename] = file

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.EncodeLevel = func(zapcore.Level, zapcore.PrimitiveArrayEncoder) {}
	encCfg.ConsoleSeparator = " "
	encoder := zapcore.NewConsoleEncoder(encCfg)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(console), zapcore.DebugLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(file), zapcore.DebugLevel),
	)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named(prefix).Sugar()
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Errorf(format, v...)
}

// Dir returns the directory holding the log files.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, ok := l.files[fileName]
	if !ok {
		return fmt.Errorf("unknown log file: %s", fileName)
	}
	// lumberjack reopens the file on the next write.
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	if err := os.Truncate(filepath.Join(l.logDir, fileName), 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to truncate log file: %w", err)
	}

	l.infoLog.Infof("File %s has been cleared.", fileName)
	return nil
}

// Close flushes and closes every log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	for _, s := range []*zap.SugaredLogger{l.infoLog, l.warningLog, l.errorLog} {
		// Sync on a console writer fails on some platforms; the files matter.
		_ = s.Sync()
	}
	for _, file := range l.files {
		err = multierr.Append(err, file.Close())
	}
	return err
}
