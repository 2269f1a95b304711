// Package exception defines the error taxonomy of the digestor and the BatchError carrier type.
// Errors are classified as malformed input (job level), validation (row level, not retried),
// transient store failures (row level, retried) and chunk failures (lost chunks).
package exception

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// Names under which the taxonomy sentinels are registered. Configuration refers to
// retryable errors by these names.
const (
	MalformedInputException = "MalformedInputException"
	ValidationException     = "ValidationException"
	TransientStoreException = "TransientStoreException"
	ChunkFailureException   = "ChunkFailureException"
)

var (
	// ErrMalformedInput means the source cannot be parsed or lacks required columns.
	// The job fails before any chunk is dispatched.
	ErrMalformedInput = errors.New(MalformedInputException)
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New(ValidationException)
	// ErrTransientStore marks a store failure that may succeed when attempted again.
	ErrTransientStore = errors.New(TransientStoreException)
	// ErrChunkFailure marks the loss of a whole chunk (unreadable object, crashed worker).
	ErrChunkFailure = errors.New(ChunkFailureException)
)

var (
	errorRegistry = make(map[string]error)
	registryMutex sync.RWMutex
)

// RegisterErrorType registers a sentinel under name so IsErrorOfType can match it with errors.Is.
// It panics if name is empty or prototype is nil.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}
	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered reports whether name is present in the registry.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// BatchError is the error carrier used across the pipeline.
// It records the module where the failure happened and whether it may be retried or skipped.
type BatchError struct {
	// Module names the component that failed (e.g. "splitter", "upserter", "store").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped cause.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

// NewBatchError creates a new BatchError.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// NewMalformedInputError wraps cause as a non-retryable malformed input failure.
func NewMalformedInputError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, joinCause(ErrMalformedInput, cause), false, false)
}

// NewTransientError wraps cause as a retryable store failure.
func NewTransientError(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, joinCause(ErrTransientStore, cause), true, true)
}

// NewChunkFailure wraps cause as the loss of a whole chunk.
func NewChunkFailure(module, message string, cause error) *BatchError {
	return NewBatchError(module, message, joinCause(ErrChunkFailure, cause), false, false)
}

func joinCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, flatten(e.OriginalErr))
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is / errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// flatten renders errors.Join output on a single line.
func flatten(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", ": ")
}

// FieldError describes one invalid field of a record.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError lists every field that failed validation for one record.
type ValidationError struct {
	Key    string
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Reason))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// HasField reports whether field is among the invalid fields.
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// transientMarkers are driver messages that indicate contention or a dropped connection.
var transientMarkers = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"deadlock",
	"could not serialize access",
	"lock wait timeout",
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
}

// IsTransient reports whether err is worth another attempt.
// Validation and malformed input errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrMalformedInput) {
		return false
	}
	if errors.Is(err, ErrTransientStore) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var be *BatchError
	if errors.As(err, &be) && be.IsRetryable() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsErrorOfType checks err against a registered name, a message substring, or a Go type name.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	targetError, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	if ok && errors.Is(err, targetError) {
		return true
	}

	for current := err; current != nil; current = errors.Unwrap(current) {
		if strings.Contains(current.Error(), errorTypeName) {
			return true
		}
		if errType := reflect.TypeOf(current); errType != nil {
			if errType.String() == errorTypeName || (errType.Kind() == reflect.Ptr && errType.Elem().String() == errorTypeName) {
				return true
			}
		}
	}
	return false
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

func init() {
	RegisterErrorType(MalformedInputException, ErrMalformedInput)
	RegisterErrorType(ValidationException, ErrValidation)
	RegisterErrorType(TransientStoreException, ErrTransientStore)
	RegisterErrorType(ChunkFailureException, ErrChunkFailure)

	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
	RegisterErrorType("sql.ErrNoRows", sql.ErrNoRows)
	RegisterErrorType("driver.ErrBadConn", driver.ErrBadConn)
}
