package logger

import (
	"io"
	"time"
)

// Logger interface defines core logging methods
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)

	// LogSQL records one statement executed against the driver, with its
	// bound parameters and elapsed time. Used by the flush planner and
	// migrate.Apply so statement order is observable per spec §5.
	LogSQL(sql string, args []any, duration time.Duration)

	// LogPhase records one flush-planner phase (insert/update/delete/link)
	// completing, with the number of statements it executed.
	LogPhase(phase string, statementCount int, duration time.Duration)

	// Configuration
	SetLevel(level LogLevel)
	GetLevel() LogLevel
	SetOutput(w io.Writer)
}
