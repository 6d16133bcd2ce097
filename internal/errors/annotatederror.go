package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// AnnotatedError carries the source location and slog attributes of the place where it was created.
type AnnotatedError struct {
	// msg describes what failed.
	msg string
	// pc is the program counter of the caller that created the error.
	pc uintptr
	// attrs are added to log events when the error is logged with SlogError.
	attrs []slog.Attr
	// wrapped is the underlying cause, may be nil.
	wrapped error
}

func callerPC() uintptr {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerPC and the exported constructor.
	runtime.Callers(3, pcs[:]) //nolint:mnd // see above
	return pcs[0]
}

// New creates an AnnotatedError with the given message and attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &AnnotatedError{
		msg:     msg,
		pc:      callerPC(),
		attrs:   attrs,
		wrapped: nil,
	}
}

// NewSentinel creates a plain error without other context to be detected with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// Wrap annotates err with a message describing the failed operation and optional attributes.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &AnnotatedError{
		msg:     msg,
		pc:      callerPC(),
		attrs:   attrs,
		wrapped: err,
	}
}

// Error implements error interface.
func (e *AnnotatedError) Error() string {
	if e.wrapped == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.wrapped.Error())
}

func (e *AnnotatedError) Unwrap() error {
	return e.wrapped
}

func (e *AnnotatedError) source() string {
	frames := runtime.CallersFrames([]uintptr{e.pc})
	frame, _ := frames.Next()
	return fmt.Sprintf("%s:%d", frame.File, frame.Line)
}

// LogValue formats the error for logging. The source is the location of the outermost annotation.
func (e *AnnotatedError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("message", e.Error()),
		slog.String("source", e.source()),
	}
	attrs = append(attrs, collectAttrs(e)...)
	return slog.GroupValue(attrs...)
}

// collectAttrs gathers the attributes of every AnnotatedError in the chain, outermost first.
func collectAttrs(err error) []slog.Attr {
	var attrs []slog.Attr
	for err != nil {
		var annotated *AnnotatedError
		if !errors.As(err, &annotated) {
			break
		}
		attrs = append(attrs, annotated.attrs...)
		err = annotated.wrapped
	}
	return attrs
}

// SlogError returns an attribute for logging err with its annotations under the "error" key.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	var annotated *AnnotatedError
	if errors.As(err, &annotated) && annotated == err { //nolint:errorlint // identity check on outermost error
		return slog.Any("error", annotated)
	}
	attrs := []slog.Attr{slog.String("message", err.Error())}
	attrs = append(attrs, collectAttrs(err)...)
	return slog.Attr{Key: "error", Value: slog.GroupValue(attrs...)}
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}
