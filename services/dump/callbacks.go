package dump

import "time"

// Phase names a stage of a dump session.
type Phase string

const (
	PhaseAttaching Phase = "attaching"
	PhaseGating    Phase = "gating"
	PhaseProbing   Phase = "probing"
	PhaseReading   Phase = "reading"
	PhaseReleasing Phase = "releasing"
	PhaseComplete  Phase = "complete"
)

// Progress is reported at each phase change and after every block.
type Progress struct {
	Phase Phase

	Block       int // blocks finished
	TotalBlocks int
	Bytes       int
	TotalBytes  int
	Percent     int

	Elapsed time.Duration
}

// ProgressCallback must return quickly; it runs between blocks on the
// reading goroutine.
type ProgressCallback func(Progress)

// Logger is the structured logging surface a session writes to.
// Key/value pairs alternate.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
