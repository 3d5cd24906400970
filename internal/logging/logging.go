package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDir  = "/var/log/dirsweep"
	logFile = "dirsweep.log"
)

// New creates the process logger, writing to stdout only
func New() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)
}

// NewWithFile creates the process logger, duplicating output to a
// rotated file under the standard log directory. Falls back to stdout
// when the directory cannot be created.
func NewWithFile() *log.Logger {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Printf("failed to ensure log directory %s: %v", logDir, err)
		return New()
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, logFile),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
	}
	mw := io.MultiWriter(os.Stdout, lj)
	return log.New(mw, "", log.LstdFlags|log.Lmicroseconds)
}
