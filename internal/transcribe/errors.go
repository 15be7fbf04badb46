package transcribe

import "errors"

// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

// ErrInvalidLanguage indicates a language code the transcription API does not know.
var ErrInvalidLanguage = errors.New("invalid language code")
