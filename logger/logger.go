package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	log *logrus.Logger
}

var (
	instance *Logger
	once     sync.Once
)

// GetLogger returns a singleton logger instance
func GetLogger() *Logger {
	once.Do(func() {
		instance = setupLogger()
	})
	return instance
}

// L is shorthand for GetLogger
func L() *Logger {
	return GetLogger()
}

func setupLogger() *Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetLevel(logrus.InfoLevel)

	return &Logger{log: log}
}

// SetLevel adjusts verbosity from a level name (debug, info, warn, error).
// Unknown names keep the current level.
func (l *Logger) SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		l.Error("Unknown log level, keeping current", map[string]interface{}{
			"level": level,
		})
		return
	}
	l.log.SetLevel(parsed)
}

func (l *Logger) Info(msg string, props map[string]interface{}) {
	l.log.WithFields(logrus.Fields(props)).Info(msg)
}

func (l *Logger) Error(msg string, props map[string]interface{}) {
	l.log.WithFields(logrus.Fields(props)).Error(msg)
}

func (l *Logger) Debug(msg string, props map[string]interface{}) {
	l.log.WithFields(logrus.Fields(props)).Debug(msg)
}

// Fatal logs the message and exits non-zero.
func (l *Logger) Fatal(msg string, props map[string]interface{}) {
	l.log.WithFields(logrus.Fields(props)).Fatal(msg)
}
