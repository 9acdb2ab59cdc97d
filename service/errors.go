package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every error the service returns.
type ErrorKind int

const (
	KindValidationFailed ErrorKind = iota + 1
	KindFlagKeyExists
	KindFlagNotFound
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidationFailed:
		return "validation_failed"
	case KindFlagKeyExists:
		return "flag_key_exists"
	case KindFlagNotFound:
		return "flag_not_found"
	case KindStorage:
		return "storage_error"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrFlagKeyExists    = errors.New("flag key already exists")
	ErrFlagNotFound     = errors.New("flag not found")
	ErrStorage          = errors.New("storage operation failed")
)

// Error is implemented by every domain error.
type Error interface {
	error
	Kind() ErrorKind
}

// ValidationError reports an empty or whitespace-only required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation failed for %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Kind() ErrorKind      { return KindValidationFailed }
func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// KeyExistsError reports a key already held by another flag.
type KeyExistsError struct {
	Key        string
	ExistingID string
}

func (e *KeyExistsError) Error() string {
	return fmt.Sprintf("flag with key %q already exists (existing ID: %s)", e.Key, e.ExistingID)
}

func (e *KeyExistsError) Kind() ErrorKind      { return KindFlagKeyExists }
func (e *KeyExistsError) Is(target error) bool { return target == ErrFlagKeyExists }

// NotFoundError reports an unknown flag id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("flag %s not found", e.ID)
}

func (e *NotFoundError) Kind() ErrorKind      { return KindFlagNotFound }
func (e *NotFoundError) Is(target error) bool { return target == ErrFlagNotFound }

// StorageError wraps a repository failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage operation failed: %s", e.Op)
	}
	return fmt.Sprintf("storage operation failed: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Kind() ErrorKind      { return KindStorage }
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
func (e *StorageError) Unwrap() error        { return e.Err }

// KindOf returns the kind of a domain error, or 0 for anything else.
func KindOf(err error) ErrorKind {
	var de Error
	if errors.As(err, &de) {
		return de.Kind()
	}
	return 0
}

// storageErr wraps err as a StorageError unless it already is a domain error.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de Error
	if errors.As(err, &de) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
