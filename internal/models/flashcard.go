package models

// Flashcard is one vocabulary card generated from the current story.
type Flashcard struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
}

type FlashcardSet struct {
	Flashcards []Flashcard `json:"flashcards"`
}

type GenerateFlashcardsRequest struct {
	Content  string `json:"content"`
	AgeGroup string `json:"ageGroup"`
}
