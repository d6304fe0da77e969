package exchange

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable, transport independent error classification.
type ErrorCode string

const (
	CodeInvalidPath           ErrorCode = "INVALID_PATH"
	CodePathTraversal         ErrorCode = "PATH_TRAVERSAL"
	CodeFileNotFound          ErrorCode = "FILE_NOT_FOUND"
	CodePermissionDenied      ErrorCode = "PERMISSION_DENIED"
	CodeProcessingError       ErrorCode = "PROCESSING_ERROR"
	CodeDuplicateFile         ErrorCode = "DUPLICATE_FILE"
	CodeWatcherAlreadyRunning ErrorCode = "WATCHER_ALREADY_RUNNING"
	CodeWatcherNotFound       ErrorCode = "WATCHER_NOT_FOUND"
)

// FailureReason is recorded on the file log and the audit record when a document fails.
type FailureReason string

const (
	ReasonValidationFailed FailureReason = "VALIDATION_FAILED"
	ReasonProcessingError  FailureReason = "PROCESSING_ERROR"
)

// Error carries an ErrorCode. Sentinels below are wrapped with fmt.Errorf("%w: ...").
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var (
	ErrInvalidPath           = &Error{Code: CodeInvalidPath, Message: "invalid path"}
	ErrPathTraversal         = &Error{Code: CodePathTraversal, Message: "path traversal detected"}
	ErrFileNotFound          = &Error{Code: CodeFileNotFound, Message: "file or directory not found"}
	ErrPermissionDenied      = &Error{Code: CodePermissionDenied, Message: "permission denied"}
	ErrProcessing            = &Error{Code: CodeProcessingError, Message: "processing error"}
	ErrDuplicateFile         = &Error{Code: CodeDuplicateFile, Message: "file already processed (duplicate hash)"}
	ErrWatcherAlreadyRunning = &Error{Code: CodeWatcherAlreadyRunning, Message: "watcher already running"}
	ErrWatcherNotFound       = &Error{Code: CodeWatcherNotFound, Message: "watcher not found"}
)

// CodeOf returns the ErrorCode carried by err, or CodeProcessingError when err has none.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeProcessingError
}
