package session

import "storyloom-backend/internal/models"

// StartQuiz opens the quiz view with zeroed progress. Requires a story
// that actually carries questions.
func (s *Session) StartQuiz() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.story == nil {
		return ErrNoStory
	}
	if len(s.story.Questions) == 0 {
		return ErrNoQuiz
	}
	s.quiz = models.QuizProgress{}
	s.view = ViewQuiz
	return nil
}

// SelectAnswer records a tentative choice for the current question.
// Selecting after the answer was revealed is a no-op: the recorded choice
// is frozen the moment it was graded.
func (s *Session) SelectAnswer(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.currentQuestionLocked()
	if err != nil {
		return err
	}
	if s.quiz.AnswerRevealed {
		return nil
	}
	if index < 0 || index >= len(q.Options) {
		return &ValidationError{Field: "index", Reason: "out of range"}
	}
	s.quiz.SelectedAnswer = &index
	return nil
}

// SubmitAnswer reveals the current question and scores it. The reveal flag
// doubles as the idempotency guard: a second submit changes nothing, so
// the score can increment at most once per question.
func (s *Session) SubmitAnswer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.currentQuestionLocked()
	if err != nil {
		return err
	}
	if s.quiz.AnswerRevealed {
		return nil
	}
	if s.quiz.SelectedAnswer == nil {
		return ErrNoSelection
	}
	s.quiz.AnswerRevealed = true
	if *s.quiz.SelectedAnswer == q.Correct {
		s.quiz.Score++
	}
	return nil
}

// NextQuestion moves forward after a reveal. There is no way back: the
// index only ever grows, and finishing the last question lands on the
// results view.
func (s *Session) NextQuestion() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.currentQuestionLocked(); err != nil {
		return err
	}
	if !s.quiz.AnswerRevealed {
		return ErrNotRevealed
	}
	if s.quiz.CurrentQuestion == len(s.story.Questions)-1 {
		s.view = ViewResults
		return nil
	}
	s.quiz.CurrentQuestion++
	s.quiz.SelectedAnswer = nil
	s.quiz.AnswerRevealed = false
	return nil
}

// RetryQuiz zeroes the attempt and returns to the story view, where the
// quiz can be started again.
func (s *Session) RetryQuiz() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.story == nil {
		return ErrNoStory
	}
	s.quiz = models.QuizProgress{}
	s.view = ViewStory
	return nil
}

// currentQuestionLocked resolves the question the attempt is sitting on.
// Callers hold mu.
func (s *Session) currentQuestionLocked() (*models.QuizQuestion, error) {
	if s.story == nil {
		return nil, ErrNoStory
	}
	if len(s.story.Questions) == 0 {
		return nil, ErrNoQuiz
	}
	if s.view == ViewResults || s.quiz.CurrentQuestion >= len(s.story.Questions) {
		return nil, ErrQuizFinished
	}
	return &s.story.Questions[s.quiz.CurrentQuestion], nil
}
