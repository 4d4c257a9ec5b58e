package ulog

import "time"

// Parser converts the raw contents of one user log into an EventLog.
// The modification time of the file supplies the year for log formats
// that do not record it. Implementations must return an error, and no
// EventLog, for input that cannot be read structurally.
type Parser interface {
	Parse(name string, raw []byte, mtime time.Time) (*EventLog, error)
}

// Collector accumulates the statistics of many EventLogs. Add must be
// safe to call from multiple goroutines.
type Collector interface {
	Add(*EventLog)
}
