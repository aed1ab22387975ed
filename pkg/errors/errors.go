package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind classifies pipeline failures.
type Kind string

const (
	MissingColumn     Kind = "missing_column"
	EmptyResult       Kind = "empty_result"
	ConversionFailure Kind = "conversion_failure"
	EncodingFailure   Kind = "encoding_failure"
	IOFailure         Kind = "io_failure"
)

type PipelineError struct {
	Kind    Kind
	Stage   string
	Source  string
	Columns []string
	Message string
	Err     error
}

func NewPipelineError(kind Kind, msg string) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Message: msg,
	}
}

// NewPipelineErrorf creates a new PipelineError with a formatted message.
// A %w argument is kept as the wrapped error.
func NewPipelineErrorf(kind Kind, format string, args ...any) *PipelineError {
	err := fmt.Errorf(format, args...)
	return &PipelineError{
		Kind:    kind,
		Message: err.Error(),
		Err:     stderrors.Unwrap(err),
	}
}

// WrapPipelineError returns err as a PipelineError, keeping an existing one
// untouched and classifying anything else under kind.
func WrapPipelineError(kind Kind, err error) *PipelineError {
	if err == nil {
		return nil
	}

	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe
	}

	return &PipelineError{
		Kind:    kind,
		Message: err.Error(),
		Err:     err,
	}
}

func (e *PipelineError) Error() string {
	path := []string{}
	if e.Stage != "" {
		path = append(path, fmt.Sprintf("stage '%s'", e.Stage))
	}
	if e.Source != "" {
		path = append(path, fmt.Sprintf("source '%s'", e.Source))
	}
	if len(e.Columns) > 0 {
		path = append(path, fmt.Sprintf("columns [%s]", strings.Join(e.Columns, ", ")))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) AddStage(stage string) *PipelineError {
	e.Stage = stage
	return e
}

func (e *PipelineError) AddSource(source string) *PipelineError {
	e.Source = source
	return e
}

func (e *PipelineError) AddColumns(columns ...string) *PipelineError {
	e.Columns = append(e.Columns, columns...)
	return e
}

func (e *PipelineError) ToHTTPError() *httperror.HTTPError {
	status := http.StatusInternalServerError
	switch e.Kind {
	case MissingColumn, EmptyResult:
		status = http.StatusUnprocessableEntity
	case IOFailure:
		status = http.StatusBadGateway
	}
	return httperror.NewHTTPError(status, e.Error()).AddMetaValue("kind", string(e.Kind)).AddMetaValue("stage", e.Stage).AddMetaValue("source", e.Source).AddMetaValue("columns", strings.Join(e.Columns, ","))
}

func IsPipelineError(err error) bool {
	var pe *PipelineError
	return stderrors.As(err, &pe)
}

// KindOf returns the kind of the first PipelineError in err's chain.
func KindOf(err error) (Kind, bool) {
	var pe *PipelineError
	if !stderrors.As(err, &pe) {
		return "", false
	}
	return pe.Kind, true
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
