// Package langdetect identifies the language of transcript text so the
// assistant can reply in the speaker's language.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	_ "github.com/pemistahl/lingua-go/language-models/de"
	_ "github.com/pemistahl/lingua-go/language-models/en"
	_ "github.com/pemistahl/lingua-go/language-models/es"
	_ "github.com/pemistahl/lingua-go/language-models/fr"
	_ "github.com/pemistahl/lingua-go/language-models/it"
	_ "github.com/pemistahl/lingua-go/language-models/ja"
	_ "github.com/pemistahl/lingua-go/language-models/ko"
	_ "github.com/pemistahl/lingua-go/language-models/pt"
	_ "github.com/pemistahl/lingua-go/language-models/ru"
	_ "github.com/pemistahl/lingua-go/language-models/zh"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Result is a detected language.
type Result struct {
	Code string `json:"code"` // ISO 639-1, e.g. "en"
	Name string `json:"name"` // English display name, e.g. "Japanese"
}

// English is the fallback when detection is inconclusive.
var English = Result{Code: "en", Name: "English"}

// Detection is restricted to the languages the display fonts cover; a
// smaller set also keeps lingua's confidence usable on short transcripts.
var candidates = []lingua.Language{
	lingua.English,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Russian,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// The detector loads language models lazily; building it costs tens of
// milliseconds, so it is shared process-wide.
func sharedDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidates...).
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}

// Detect identifies the language of text. Short or inconclusive input
// falls back to English.
func Detect(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return English
	}

	lang, ok := sharedDetector().DetectLanguageOf(text)
	if !ok {
		return English
	}

	code := strings.ToLower(lang.IsoCode639_1().String())
	tag, err := language.Parse(code)
	if err != nil {
		return English
	}

	return Result{
		Code: code,
		Name: display.English.Languages().Name(tag),
	}
}
