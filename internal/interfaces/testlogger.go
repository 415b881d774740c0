package interfaces

import "fmt"

// TestLogger is a minimal Logger for tests and examples. Warnings and
// errors always print; debug and info only when verbose is set.
type TestLogger struct {
	verbose bool
	scope   string
}

// NewTestLogger creates a new test logger.
func NewTestLogger(verbose bool) *TestLogger {
	return &TestLogger{verbose: verbose}
}

func (tl *TestLogger) emit(level, msg string, fields []Field) {
	if tl.scope != "" {
		fmt.Printf("[%s] %s: %s %v\n", level, tl.scope, msg, fields)
		return
	}
	fmt.Printf("[%s] %s %v\n", level, msg, fields)
}

func (tl *TestLogger) Debug(msg string, fields ...Field) {
	if tl.verbose {
		tl.emit("DEBUG", msg, fields)
	}
}

func (tl *TestLogger) Info(msg string, fields ...Field) {
	if tl.verbose {
		tl.emit("INFO", msg, fields)
	}
}

func (tl *TestLogger) Warn(msg string, fields ...Field) {
	tl.emit("WARN", msg, fields)
}

func (tl *TestLogger) Error(msg string, fields ...Field) {
	tl.emit("ERROR", msg, fields)
}

// With returns a logger scoped by any component field present; other
// fields are not persisted, which is enough for test output.
func (tl *TestLogger) With(fields ...Field) Logger {
	child := &TestLogger{verbose: tl.verbose, scope: tl.scope}
	for _, f := range fields {
		if f.Key == "component" {
			if s, ok := f.Value.(string); ok {
				child.scope = s
			}
		}
	}
	return child
}
