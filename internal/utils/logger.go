package utils

import (
	"fmt"
	"log"
	"os"
)

// Logger writes prefixed INFO/ERROR lines for one component
type Logger struct {
	infoLog  *log.Logger
	errorLog *log.Logger
}

// NewLogger creates a logger tagged with the given component name
func NewLogger(component string) *Logger {
	return &Logger{
		infoLog:  log.New(os.Stdout, fmt.Sprintf("INFO [%s]: ", component), log.Ldate|log.Ltime),
		errorLog: log.New(os.Stderr, fmt.Sprintf("ERROR [%s]: ", component), log.Ldate|log.Ltime),
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.infoLog.Printf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.errorLog.Printf(format, v...)
}
