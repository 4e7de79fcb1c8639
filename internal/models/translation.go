package models

// SourceLanguage is the baseline language stories are generated in. All
// translation is relative to it; selecting it clears the cache instead of
// storing an "en" entry.
const SourceLanguage = "en"

// TranslatedQuestion mirrors a quiz question without the correct index:
// grading always happens against the source-language quiz.
type TranslatedQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// TranslationBundle holds the one cached translation. The cache holds at
// most one language at a time; switching away and back re-fetches.
type TranslationBundle struct {
	Language   string               `json:"language"`
	Story      string               `json:"translatedStory"`
	Quiz       []TranslatedQuestion `json:"translatedQuiz"`
	Flashcards []Flashcard          `json:"translatedFlashcards"`
}

type TranslateRequest struct {
	TargetLanguage string `json:"targetLanguage"`
}
