package errors

import (
	"bufio"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryPage     Category = "page"
	CategoryProtocol Category = "protocol"
	CategoryCLI      Category = "cli"
)

// contextLines is the number of source lines shown around a location.
const contextLines = 5

// Location represents a position in a file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// SurfaceError is a structured error with a code, a fix suggestion and an
// optional file location.
type SurfaceError struct {
	// Code is a unique error identifier (e.g., "S001").
	Code string

	// Category is the error type (config, page, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position the error refers to.
	Location *Location

	// Context contains the lines around Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows a correct value or invocation.
	Example string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SurfaceError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SurfaceError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file location and reads the surrounding lines.
func (e *SurfaceError) WithLocation(file string, line, column int) *SurfaceError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, contextLines)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *SurfaceError) WithSuggestion(s string) *SurfaceError {
	e.Suggestion = s
	return e
}

// WithExample adds an example to the error.
func (e *SurfaceError) WithExample(ex string) *SurfaceError {
	e.Example = ex
	return e
}

// WithDetail replaces the registered explanation.
func (e *SurfaceError) WithDetail(d string) *SurfaceError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *SurfaceError) Wrap(err error) *SurfaceError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a SurfaceError from a registered error code.
func New(code string) *SurfaceError {
	template, ok := registry[code]
	if !ok {
		return &SurfaceError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &SurfaceError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new SurfaceError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *SurfaceError {
	return &SurfaceError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a SurfaceError. Errors that already
// are SurfaceErrors are returned unchanged.
func FromError(err error, code string) *SurfaceError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SurfaceError); ok {
		return se
	}
	return New(code).Wrap(err)
}

// LineColumn converts a byte offset in data to a 1-based line and column.
func LineColumn(data []byte, offset int64) (line, column int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, column = 1, 1
	for _, c := range data[:offset] {
		if c == '\n' {
			line++
			column = 1
			continue
		}
		column++
	}
	return line, column
}
