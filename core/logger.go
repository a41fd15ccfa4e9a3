package core

// Logger is the app-wide logging contract. Implementations may fan
// entries out to an error reporting service; an args entry may carry
// the acting user so it can be attached to reports.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
