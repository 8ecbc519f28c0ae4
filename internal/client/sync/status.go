package sync

import "time"

// Status is a process-wide sync snapshot broadcast on every state change.
type Status struct {
	LastSyncTime time.Time
	LastError    string
	PendingCount int
	Connected    bool
	InProgress   bool
}

// HasErrors reports whether the last sync operation failed.
func (s Status) HasErrors() bool {
	return s.LastError != ""
}
