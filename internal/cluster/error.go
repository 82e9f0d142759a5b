package cluster

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrUnknownScheduler indicates an unsupported scheduler kind was requested
	ErrUnknownScheduler = errors.New("unknown scheduler kind")

	// ErrEmptyStatusText indicates the scheduler returned no status text
	ErrEmptyStatusText = errors.New("empty scheduler status text")

	// ErrQueryFailed indicates the status query command failed on the cluster
	ErrQueryFailed = errors.New("cluster status query failed")
)

// RecordError reports a node record that could not be parsed. Records failing
// to parse are skipped, not fatal: the parser returns whatever parsed cleanly
// alongside the collected record errors.
type RecordError struct {
	Scheduler SchedulerKind // Scheduler whose output was being parsed
	Record    string        // Offending record (node name or raw line)
	Reason    string        // Why the record was rejected
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s record %q skipped: %s", e.Scheduler, e.Record, e.Reason)
}

// NewRecordError creates a new RecordError
func NewRecordError(kind SchedulerKind, record string, reason string) *RecordError {
	return &RecordError{
		Scheduler: kind,
		Record:    record,
		Reason:    reason,
	}
}

// IsRecordError checks if an error is a RecordError
func IsRecordError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}
