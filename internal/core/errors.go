package core

import (
	"errors"
	"fmt"
)

// Error kinds reported per file. A batch never stops on one of these; the
// file is reported and skipped.
var (
	// ErrUnsupportedFormat indicates the file extension is not .csv or .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrFileTooLarge indicates one file exceeds the per-file size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrParse indicates the content could not be loaded as tabular data.
	ErrParse = errors.New("could not parse file")

	// ErrConversion indicates serialization to the requested format failed.
	ErrConversion = errors.New("conversion failed")
)

// Lookup errors for session-scoped state.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFormat   = errors.New("invalid output format")
	ErrInvalidRequest  = errors.New("invalid request")
)

// FileError ties an error kind to the file it happened on.
type FileError struct {
	Kind     error  // ErrUnsupportedFormat, ErrFileTooLarge, ErrParse or ErrConversion
	FileName string // name of the uploaded file
	Err      error  // underlying cause, may be nil
}

func (e *FileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.FileName, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.FileName, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *FileError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newFileError(kind error, fileName string, err error) *FileError {
	return &FileError{Kind: kind, FileName: fileName, Err: err}
}

// errorKind returns a short label for a FileError kind, used in logs.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrConversion):
		return "conversion"
	default:
		return "other"
	}
}
