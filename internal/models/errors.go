package models

import "errors"

var (
	// ErrConfiguration indicates a setup mistake (unregistered record type, missing deserializer).
	// Configuration errors are never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrDeserialization indicates a malformed record payload.
	ErrDeserialization = errors.New("deserialization error")

	// ErrEmptyID indicates a record without identifier
	ErrEmptyID = errors.New("record id is empty")

	// ErrEmptyType indicates a record without type tag
	ErrEmptyType = errors.New("record type is empty")
)
