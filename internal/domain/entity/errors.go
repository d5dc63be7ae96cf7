package entity

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned by storage backends for absent keys.
var ErrKeyNotFound = errors.New("key not found")

// FetchError is a failed call to the market data API.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s returned status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError is a failed serialization or backend access on a storage slot.
type StorageError struct {
	Op  string // "save", "load", "delete" or "probe"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// InputError is user input that could not be interpreted. Callers coerce to a safe default.
type InputError struct {
	Field string
	Input string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Input, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
