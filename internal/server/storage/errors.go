package storage

import "errors"

// Common storage errors
var (
	// ErrRecordNotFound indicates that the record does not exist
	ErrRecordNotFound = errors.New("record not found")

	// ErrConflict indicates that the stored copy is newer than the incoming one
	ErrConflict = errors.New("record conflict")

	// ErrInvalidRecord indicates a record without type or id
	ErrInvalidRecord = errors.New("invalid record")
)

// ConflictError carries the stored copy that won last-update-wins.
type ConflictError struct {
	Current *Record
}

func (e *ConflictError) Error() string {
	return "record conflict: stored copy " + e.Current.Type + "/" + e.Current.ID + " is newer"
}

// Is makes errors.Is(err, ErrConflict) true.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
