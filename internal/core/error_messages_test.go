package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/datasweeper/internal/table"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "unsupported format",
			err:         newFileError(ErrUnsupportedFormat, "notes.txt", nil),
			wantCode:    "FILE006",
			wantMessage: "File type is not supported",
		},
		{
			name:        "parse error",
			err:         newFileError(ErrParse, "bad.xlsx", errors.New("zip: not a valid zip file")),
			wantCode:    "FILE002",
			wantMessage: "File could not be read as a table",
		},
		{
			name:        "empty file wins over parse",
			err:         newFileError(ErrParse, "empty.csv", ErrEmptyFile),
			wantCode:    "FILE005",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "single file over the size limit",
			err:         newFileError(ErrFileTooLarge, "big.csv", nil),
			wantCode:    "FILE001",
			wantMessage: "File exceeds maximum upload size",
		},
		{
			name:        "conversion error",
			err:         newFileError(ErrConversion, "a.csv", errors.New("boom")),
			wantCode:    "CONV001",
			wantMessage: "File could not be converted",
		},
		{
			name:        "unknown column",
			err:         fmt.Errorf("select: %w", table.ErrUnknownColumn),
			wantCode:    "COL001",
			wantMessage: "Selected column does not exist",
		},
		{
			name:        "session not found",
			err:         ErrSessionNotFound,
			wantCode:    "SES001",
			wantMessage: "Your session has expired",
		},
		{
			name:        "too many uploads",
			err:         ErrTooManyUploads,
			wantCode:    "UPL002",
			wantMessage: "System is busy processing other uploads",
		},
		{
			name:        "deadline exceeded",
			err:         fmt.Errorf("ingest: %w", context.DeadlineExceeded),
			wantCode:    "UPL005",
			wantMessage: "Request timed out",
		},
		{
			name:        "request body too large by text",
			err:         errors.New("http: request body too large"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds maximum upload size",
		},
		{
			name:        "rate limit case insensitive",
			err:         errors.New("RATE LIMIT exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := newFileError(ErrUnsupportedFormat, "notes.txt", nil)
	result := FormatUserError(err)

	expected := "File type is not supported (Code: FILE006). Upload a .csv or .xlsx file"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrFileNotFound, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := newFileError(ErrConversion, "a.csv", errors.New("cell too long"))
		userErr := NewUserError(techErr)

		if userErr.Error() != "File could not be converted" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrConversion) {
			t.Error("Unwrap() should reach the error kind")
		}
	})
}

func TestFileError(t *testing.T) {
	cause := errors.New("bad zip")
	err := newFileError(ErrParse, "book.xlsx", cause)

	if got := err.Error(); got != "book.xlsx: could not parse file: bad zip" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrParse) || !errors.Is(err, cause) {
		t.Error("errors.Is should match both the kind and the cause")
	}

	var fe *FileError
	if !errors.As(fmt.Errorf("batch: %w", err), &fe) || fe.FileName != "book.xlsx" {
		t.Error("errors.As should recover the FileError")
	}
}
