package upload

import "errors"

// ErrUnsupportedFileType indicates a file whose extension the chat service rejects.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// ErrFileTooLarge indicates a file above the service's upload limit.
var ErrFileTooLarge = errors.New("file exceeds upload limit")

// ErrEmptyMessage indicates a text question with no content.
var ErrEmptyMessage = errors.New("message is empty")

// ErrNothingStaged indicates Send was called with no staged recording.
var ErrNothingStaged = errors.New("no recording staged for upload")

// ErrServiceUnavailable indicates the chat service is unreachable or unhealthy.
var ErrServiceUnavailable = errors.New("chat service unavailable")

// ErrRejected indicates the service answered with success=false.
var ErrRejected = errors.New("request rejected by chat service")
