package transcribe

import (
	"fmt"
	"slices"
	"strings"
)

// languages lists the ISO 639-1 codes the transcription API accepts.
var languages = []string{
	"af", "ar", "bg", "bn", "ca", "cs", "da", "de", "el", "en", "es", "et",
	"fa", "fi", "fr", "gu", "he", "hi", "hr", "hu", "id", "it", "ja", "kn",
	"ko", "lt", "lv", "mk", "ml", "mr", "ms", "nl", "no", "pa", "pl", "pt",
	"ro", "ru", "sk", "sl", "sr", "sv", "sw", "ta", "te", "th", "tl", "tr",
	"uk", "ur", "vi", "zh",
}

// ValidateLanguage accepts an empty code (auto-detect), an ISO 639-1 code or
// a locale whose base code is known ("pt-BR", "zh_CN").
func ValidateLanguage(language string) error {
	if language == "" {
		return nil
	}
	if !slices.Contains(languages, baseCode(language)) {
		return fmt.Errorf("%q (use ISO 639-1 codes like en, fr or pt-BR): %w", language, ErrInvalidLanguage)
	}
	return nil
}

// baseCode reduces a locale to the ISO 639-1 code OpenAI accepts ("pt-BR" -> "pt").
func baseCode(language string) string {
	code := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(language), "_", "-"))
	if i := strings.Index(code, "-"); i != -1 {
		return code[:i]
	}
	return code
}
