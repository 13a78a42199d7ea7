package core

// error_messages.go maps technical errors to user-facing messages with a
// code for support reference.
//
// # Error Codes Reference
//
// File errors (FILE001-FILE099):
//
//	FILE001 - File too large: a file or the whole request exceeds the
//	          configured size limit
//	FILE002 - Parse error: file could not be read as a table
//	FILE004 - No file: no file was selected
//	FILE005 - Empty file: the file has no header row
//	FILE006 - Unsupported format: extension is not .csv or .xlsx
//	FILE007 - Too many files: the batch exceeds the configured file count
//
// Conversion errors (CONV001-CONV099):
//
//	CONV001 - Conversion failed: the table could not be written in the
//	          requested format
//	CONV002 - Invalid format: output format is not CSV or Excel
//
// Column errors (COL001-COL099):
//
//	COL001 - Unknown column: a selected column is not in the file
//	COL002 - Duplicate column: a column was selected twice
//
// Session errors (SES001-SES099):
//
//	SES001 - Session expired: the browser session is gone
//	SES002 - File not found: the file is no longer part of the session
//
// Upload errors (UPL001-UPL099):
//
//	UPL002 - System busy: too many batches being ingested
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// Rate limiting:
//
//	RATE001 - Too many requests
//
// Fallback:
//
//	ERR000 - Unknown error: check application logs for the technical error
//
// Sentinel errors are matched first with errors.Is, most specific first.
// Errors that only carry text (net/http, excelize) fall back to
// case-insensitive substring patterns; the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/datasweeper/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds maximum upload size",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgParse = UserMessage{
		Message: "File could not be read as a table",
		Action:  "Check that the file is a comma-separated CSV or a valid .xlsx workbook",
		Code:    "FILE002",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV or Excel file to upload",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a file with a header row",
		Code:    "FILE005",
	}
	msgUnsupported = UserMessage{
		Message: "File type is not supported",
		Action:  "Upload a .csv or .xlsx file",
		Code:    "FILE006",
	}
	msgTooManyFiles = UserMessage{
		Message: "Too many files in one upload",
		Action:  "Upload fewer files at a time",
		Code:    "FILE007",
	}
	msgConversion = UserMessage{
		Message: "File could not be converted",
		Action:  "Try the other output format or remove unusual values",
		Code:    "CONV001",
	}
	msgInvalidFormat = UserMessage{
		Message: "Unknown output format",
		Action:  "Choose CSV or Excel",
		Code:    "CONV002",
	}
	msgUnknownColumn = UserMessage{
		Message: "Selected column does not exist",
		Action:  "Reload the page and select columns again",
		Code:    "COL001",
	}
	msgDuplicateColumn = UserMessage{
		Message: "A column was selected more than once",
		Action:  "Select each column only once",
		Code:    "COL002",
	}
	msgSessionNotFound = UserMessage{
		Message: "Your session has expired",
		Action:  "Upload your files again",
		Code:    "SES001",
	}
	msgFileNotFound = UserMessage{
		Message: "File is no longer available",
		Action:  "Upload the file again",
		Code:    "SES002",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}
	msgInvalidRequest = UserMessage{
		Message: "The request could not be understood",
		Action:  "Check the request body and try again",
		Code:    "REQ001",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// sentinelMessages is checked in order with errors.Is.
// ErrEmptyFile must stay ahead of ErrParse since empty files are parse errors.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrEmptyFile, msgEmptyFile},
	{ErrUnsupportedFormat, msgUnsupported},
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrParse, msgParse},
	{ErrInvalidFormat, msgInvalidFormat},
	{ErrConversion, msgConversion},
	{ErrNoFiles, msgNoFile},
	{ErrTooManyFiles, msgTooManyFiles},
	{table.ErrUnknownColumn, msgUnknownColumn},
	{table.ErrDuplicateColumn, msgDuplicateColumn},
	{ErrSessionNotFound, msgSessionNotFound},
	{ErrFileNotFound, msgFileNotFound},
	{ErrInvalidRequest, msgInvalidRequest},
	{ErrTooManyUploads, msgBusy},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"request body too large", msgFileTooLarge},
	{"file too large", msgFileTooLarge},
	{"no file provided", msgNoFile},
	{"rate limit", msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	err := newFileError(ErrUnsupportedFormat, "notes.txt", nil)
//	msg := MapError(err)
//	// msg.Code == "FILE006"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError carries a technical error together with its user message.
// Error() returns the user message; Unwrap() the technical error.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
