package models

// QuizQuestion is one multiple-choice question. Correct is a zero-based
// index into Options; 0 <= Correct < len(Options) holds for every question
// that passed boundary validation.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  int      `json:"correct"`
}

type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

type GenerateQuizRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	AgeGroup string `json:"ageGroup"`
}

// QuizProgress tracks one quiz attempt. Score increments exactly once per
// question, on the reveal transition, and CurrentQuestion never moves
// backward except through an explicit retry.
type QuizProgress struct {
	CurrentQuestion int  `json:"currentQuestion"`
	SelectedAnswer  *int `json:"selectedAnswer"`
	AnswerRevealed  bool `json:"answerRevealed"`
	Score           int  `json:"score"`
}

type SelectAnswerRequest struct {
	Index int `json:"index"`
}
