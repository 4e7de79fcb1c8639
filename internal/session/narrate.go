package session

import (
	"storyloom-backend/internal/models"
	"storyloom-backend/internal/narration"
)

// Speak drives the narration play/pause control. The utterance text is the
// translated story when a translation for the active language is cached,
// otherwise the source text; the controller re-picks the voice each time
// an utterance actually starts.
func (s *Session) Speak() (narration.State, error) {
	s.mu.Lock()
	if s.story == nil {
		s.mu.Unlock()
		return "", ErrNoStory
	}
	text := s.story.Content
	lang := s.language
	if s.translation != nil && s.translation.Language == lang {
		text = s.translation.Story
	}
	s.mu.Unlock()

	return s.narration.Toggle(text, lang, models.SourceLanguage)
}

// StopNarration cancels playback from any state.
func (s *Session) StopNarration() error {
	return s.narration.Stop()
}
