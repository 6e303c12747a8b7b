// Package failure is the error taxonomy shared by every stage of a job.
// Each failure carries a Kind; the CLI maps kinds to exit codes.
package failure

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why a job did not complete.
type Kind int

const (
	KindUnknown    Kind = iota
	KindValidation      // Bad configuration or arithmetic that is caught before allocation.
	KindIO              // Missing, unreadable, corrupt or unwritable files.
	KindCapability      // Input or runtime lacks something required (stream, encoder, format).
	KindCanceled        // Interrupted by the user.
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	case KindCapability:
		return "capability"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sentinel errors. Match with errors.Is.
var (
	ErrOpenInput        = errors.New("cannot open input")
	ErrStreamInfo       = errors.New("cannot read stream info")
	ErrOutputFormat     = errors.New("cannot infer output format from extension")
	ErrOpenOutput       = errors.New("cannot open output for writing")
	ErrOutputExists     = errors.New("output already exists (use --force to overwrite)")
	ErrSamePath         = errors.New("output path must differ from input path")
	ErrNoVideoStream    = errors.New("no video stream")
	ErrEncoderNotFound  = errors.New("encoder not found")
	ErrDecoderNotFound  = errors.New("decoder not found")
	ErrEncoderRejected  = errors.New("encoder rejected configuration")
	ErrInvalidDuration  = errors.New("duration must be positive")
	ErrInvalidTarget    = errors.New("target size must be positive")
	ErrBitrateTooLow    = errors.New("target size too small for duration")
	ErrHeaderNotWritten = errors.New("header not written")
	ErrTrailerWritten   = errors.New("trailer already written")
)

// Error is a classified failure of one operation.
type Error struct {
	Kind Kind
	Op   string // What was being done, e.g. "open input".
	Path string // File involved, if any.
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithPath wraps err with a kind, operation and file path.
func WithPath(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Validation builds a validation failure from a sentinel and detail text.
func Validation(sentinel error, format string, args ...interface{}) *Error {
	return New(KindValidation, "", fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...))
}

// KindOf returns the kind of the first classified error in err's chain.
// Context cancellation is reported as KindCanceled.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Kind != KindUnknown {
		return fe.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindUnknown
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindValidation:
		return 2
	case KindIO:
		return 3
	case KindCapability:
		return 4
	case KindCanceled:
		return 130
	default:
		return 1
	}
}
