package session

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"storyloom-backend/internal/models"
)

// Translate switches the session's presentation language. Selecting the
// source language is a reset, not a fetch. Any other language translates
// the story body, every quiz question and option, and every flashcard
// field as independent upstream calls under one bounded errgroup, and
// commits the bundle atomically: one failed string and the previous cache
// survives untouched.
//
// The cache holds exactly one language and exists only so a failed request
// leaves the previous bundle intact. Repeating the active language still
// re-fetches; the story text may have changed underneath (library edits).
func (s *Session) Translate(ctx context.Context, gen GenerationClient, target string, limit int) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return &ValidationError{Field: "targetLanguage", Reason: "must not be empty"}
	}

	s.mu.Lock()
	if s.story == nil {
		s.mu.Unlock()
		return ErrNoStory
	}

	if target == models.SourceLanguage {
		s.translation = nil
		s.language = models.SourceLanguage
		s.narration.ForceIdle()
		s.mu.Unlock()
		return nil
	}

	if s.translating {
		s.mu.Unlock()
		return ErrTranslationBusy
	}

	epoch := s.epoch
	prevLanguage := s.language
	content := s.story.Content
	questions := s.story.Questions
	cards := s.flashcards

	s.translating = true
	s.language = target
	s.narration.ForceIdle()
	s.mu.Unlock()

	bundle := models.TranslationBundle{
		Language:   target,
		Quiz:       make([]models.TranslatedQuestion, len(questions)),
		Flashcards: make([]models.Flashcard, len(cards)),
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	g.Go(func() error {
		text, err := gen.Translate(gctx, content, target)
		if err != nil {
			return fmt.Errorf("story: %w", err)
		}
		bundle.Story = text
		return nil
	})

	for i, q := range questions {
		i, q := i, q
		bundle.Quiz[i].Options = make([]string, len(q.Options))
		g.Go(func() error {
			text, err := gen.Translate(gctx, q.Question, target)
			if err != nil {
				return fmt.Errorf("question %d: %w", i, err)
			}
			bundle.Quiz[i].Question = text
			return nil
		})
		for j, opt := range q.Options {
			i, j, opt := i, j, opt
			g.Go(func() error {
				text, err := gen.Translate(gctx, opt, target)
				if err != nil {
					return fmt.Errorf("question %d option %d: %w", i, j, err)
				}
				bundle.Quiz[i].Options[j] = text
				return nil
			})
		}
	}

	for i, card := range cards {
		i, card := i, card
		fields := []struct {
			name string
			src  string
			dst  *string
		}{
			{"word", card.Word, &bundle.Flashcards[i].Word},
			{"definition", card.Definition, &bundle.Flashcards[i].Definition},
			{"example", card.Example, &bundle.Flashcards[i].Example},
		}
		for _, f := range fields {
			f := f
			g.Go(func() error {
				text, err := gen.Translate(gctx, f.src, target)
				if err != nil {
					return fmt.Errorf("flashcard %d %s: %w", i, f.name, err)
				}
				*f.dst = text
				return nil
			})
		}
	}

	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.translating = false
	if err != nil {
		// Roll the language back so the client is not left announcing a
		// translation that never arrived.
		if s.epoch == epoch && s.language == target {
			s.language = prevLanguage
		}
		return fmt.Errorf("translate to %s: %w", target, err)
	}
	if s.epoch != epoch || s.language != target {
		// Superseded while in flight. Drop the result.
		return nil
	}
	s.translation = &bundle
	return nil
}
