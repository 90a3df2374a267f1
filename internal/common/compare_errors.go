package common

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the comparison error taxonomy.
var (
	ErrFormatParse       = errors.New("format parse failed")
	ErrContainerDecode   = errors.New("container decode failed")
	ErrWorkerUnavailable = errors.New("compare worker unavailable")
	ErrWorkerFault       = errors.New("compare worker fault")
	ErrCompareExecution  = errors.New("compare execution failed")
)

// FormatParseError reports malformed JSON, YAML or XML. The normalizer
// absorbs it and downgrades the input to plain text.
type FormatParseError struct {
	Kind string
	Err  error
}

func (e *FormatParseError) Error() string {
	return fmt.Sprintf("malformed %s: %v", e.Kind, e.Err)
}

func (e *FormatParseError) Unwrap() error { return e.Err }

func (e *FormatParseError) Is(target error) bool { return target == ErrFormatParse }

// ContainerDecodeError reports a spreadsheet, document or PDF that could not
// be decoded. It is returned to the caller of ParseFile.
type ContainerDecodeError struct {
	Kind string
	Name string
	Err  error
}

func (e *ContainerDecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s container %q: %v", e.Kind, e.Name, e.Err)
}

func (e *ContainerDecodeError) Unwrap() error { return e.Err }

func (e *ContainerDecodeError) Is(target error) bool { return target == ErrContainerDecode }

// NewContainerDecodeError creates a new container decode error
func NewContainerDecodeError(kind, name string, err error) *ContainerDecodeError {
	return &ContainerDecodeError{Kind: kind, Name: name, Err: err}
}

// WorkerUnavailableError records why the background worker could not be
// created. It is logged and never returned to compare callers.
type WorkerUnavailableError struct {
	Err error
}

func (e *WorkerUnavailableError) Error() string {
	return fmt.Sprintf("compare worker unavailable: %v", e.Err)
}

func (e *WorkerUnavailableError) Unwrap() error { return e.Err }

func (e *WorkerUnavailableError) Is(target error) bool { return target == ErrWorkerUnavailable }

// WorkerFaultError is delivered to every request pending when the worker
// crashed.
type WorkerFaultError struct {
	Message string
}

func (e *WorkerFaultError) Error() string {
	return e.Message
}

func (e *WorkerFaultError) Is(target error) bool { return target == ErrWorkerFault }

// NewWorkerFaultError creates a new worker fault error
func NewWorkerFaultError(message string) *WorkerFaultError {
	if message == "" {
		message = "worker_error"
	}
	return &WorkerFaultError{Message: message}
}

// CompareExecutionError carries the message of a failure inside the
// normalize, diff or stats steps.
type CompareExecutionError struct {
	Message string
}

func (e *CompareExecutionError) Error() string {
	return e.Message
}

func (e *CompareExecutionError) Is(target error) bool { return target == ErrCompareExecution }

// NewCompareExecutionError creates a new compare execution error
func NewCompareExecutionError(message string) *CompareExecutionError {
	if message == "" {
		message = "worker_error"
	}
	return &CompareExecutionError{Message: message}
}
