package store

import "errors"

var (
	// ErrNilParam is returned when a required argument is nil or empty.
	ErrNilParam = errors.New("store: required parameter is nil")
	// ErrNotFound is returned when a lookup finds no matching record.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when an insert targets an already-occupied key.
	ErrDuplicate = errors.New("store: record already exists")
	// ErrAlreadyFrozen is returned inserting an outpoint already marked frozen.
	ErrAlreadyFrozen = errors.New("store: outpoint already frozen")
	// ErrSupplyExceedsCap is returned when an increment would push a
	// chroma's running supply past its registered max supply.
	ErrSupplyExceedsCap = errors.New("store: supply increment exceeds max supply")
)
