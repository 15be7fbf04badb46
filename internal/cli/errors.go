package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrInvalidCapture indicates an unknown --capture strategy.
	ErrInvalidCapture = errors.New("invalid capture strategy")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrRecordingDiscarded indicates the user discarded the recording with a second Ctrl+C.
	ErrRecordingDiscarded = errors.New("recording discarded")
)

// reportedError wraps an error whose message the command already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// MarkReported wraps err after its message was shown to the user, so the
// caller does not print it again.
func MarkReported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// Reported reports whether err was already shown to the user. Such errors
// still carry their sentinel for exit code mapping.
func Reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}
