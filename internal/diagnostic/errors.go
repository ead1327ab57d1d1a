package diagnostic

import (
	"errors"
	"fmt"
)

// Sentinels for the fatal error classes. Every *Error unwraps to exactly one.
var (
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	ErrUnsupportedType      = errors.New("unsupported type")
	ErrMissingConfig        = errors.New("missing required configuration")
	ErrMalformedDefault     = errors.New("malformed default value")
)

var sentinels = map[Category]error{
	CategoryDuplicate:        ErrDuplicateDeclaration,
	CategoryTypeUnsupported:  ErrUnsupportedType,
	CategoryConfigMissing:    ErrMissingConfig,
	CategoryMalformedDefault: ErrMalformedDefault,
}

// Error is a fatal generation error. It aborts the run before any output is
// written.
type Error struct {
	Category Category
	File     string
	Line     int
	Message  string
}

func (e *Error) Error() string {
	if e.File == "" {
		return e.Message
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *Error) Unwrap() error {
	return sentinels[e.Category]
}

// Diagnostic converts the error for display alongside collected findings.
func (e *Error) Diagnostic() Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Category: e.Category,
		File:     e.File,
		Line:     e.Line,
		Message:  e.Message,
	}
}

// Errorf builds a fatal error without a source location.
func Errorf(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// At returns a copy of e located at file:line, keeping an existing location.
func (e *Error) At(file string, line int) *Error {
	if e.File != "" {
		return e
	}
	c := *e
	c.File, c.Line = file, line
	return &c
}

// Locate attaches file:line to err. A *Error in the chain is located with
// At; any other error is wrapped with the position.
func Locate(err error, file string, line int) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de.At(file, line)
	}
	if file == "" {
		return err
	}
	return fmt.Errorf("%s:%d: %w", file, line, err)
}
