package app

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	ErrKindInput          ErrorKind = "INPUT"
	ErrKindValidation     ErrorKind = "VALIDATION"
	ErrKindMatch          ErrorKind = "MATCH"
	ErrKindWrite          ErrorKind = "WRITE"
	ErrKindGroup          ErrorKind = "GROUP"
	ErrKindTask           ErrorKind = "TASK"
	ErrKindTransientModel ErrorKind = "TRANSIENT_MODEL"
	ErrKindCancelled      ErrorKind = "CANCELLED"
	ErrKindInternal       ErrorKind = "INTERNAL"
)

// Sentinel errors that callers in other packages wrap so ClassifyError can
// recover the kind without importing them.
var (
	ErrInput      = errors.New("input error")
	ErrValidation = errors.New("validation error")
	ErrWrite      = errors.New("property write failed")
	ErrGroup      = errors.New("selection set creation failed")
	ErrTask       = errors.New("task creation failed")
	ErrTransient  = errors.New("transient model error")
)

// PipelineError is the error carried on a failed PipelineResult.
type PipelineError struct {
	Kind    ErrorKind
	Stage   PipelineStage
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Err != nil && e.Err.Error() != e.Message {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError builds a PipelineError, classifying err when kind is empty.
func NewPipelineError(kind ErrorKind, stage PipelineStage, message string, err error) *PipelineError {
	if kind == "" {
		kind = ClassifyError(err)
	}
	return &PipelineError{Kind: kind, Stage: stage, Message: message, Err: err}
}

// ClassifyError maps an error onto the taxonomy.
func ClassifyError(err error) ErrorKind {
	var pe *PipelineError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrKindCancelled
	case errors.Is(err, ErrInput):
		return ErrKindInput
	case errors.Is(err, ErrValidation):
		return ErrKindValidation
	case errors.Is(err, ErrTransient):
		return ErrKindTransientModel
	case errors.Is(err, ErrWrite):
		return ErrKindWrite
	case errors.Is(err, ErrGroup):
		return ErrKindGroup
	case errors.Is(err, ErrTask):
		return ErrKindTask
	default:
		return ErrKindInternal
	}
}

// Wrapf wraps err with a sentinel and a message, keeping both in the chain.
func Wrapf(sentinel error, err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if err == nil {
		return fmt.Errorf("%s: %w", msg, sentinel)
	}
	return fmt.Errorf("%s: %w: %w", msg, sentinel, err)
}
