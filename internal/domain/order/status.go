package order

// Status represents the export processing state of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// StatusValues returns the full set of legal order statuses, in lifecycle order.
func StatusValues() []Status {
	return []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}
}

func (s Status) IsPending() bool    { return s == StatusPending }
func (s Status) IsProcessing() bool { return s == StatusProcessing }
func (s Status) IsCompleted() bool  { return s == StatusCompleted }
func (s Status) IsFailed() bool     { return s == StatusFailed }

// CanRetry reports whether an order in this status may enter processing.
// PROCESSING is an in-flight attempt and must never be re-dispatched;
// COMPLETED is terminal.
func (s Status) CanRetry() bool {
	return s == StatusPending || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// LogLevel represents the severity of an order audit entry
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// LogLevelValues returns the full set of legal audit severities.
func LogLevelValues() []LogLevel {
	return []LogLevel{LogLevelInfo, LogLevelWarning, LogLevelError}
}

func (l LogLevel) IsInfo() bool    { return l == LogLevelInfo }
func (l LogLevel) IsWarning() bool { return l == LogLevelWarning }
func (l LogLevel) IsError() bool   { return l == LogLevelError }

func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	}
	return false
}
