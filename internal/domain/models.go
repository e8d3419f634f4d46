package domain

import "time"

// QuestionTypeMultipleChoice is the only question discriminant the service
// stores; other types are skipped during ingest.
const QuestionTypeMultipleChoice = "MultipleChoice"

// Quiz is a stored quiz row. Questions attach through QuizQuestion links.
type Quiz struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"-"`
}

// Question is a multiple-choice prompt with exactly one correct answer,
// shareable across quizzes via links.
type Question struct {
	ID            int64
	Text          string
	CorrectAnswer string
	Options       []string
}

// QuizQuestion associates a quiz with a question. Position fixes the
// question order within the quiz.
type QuizQuestion struct {
	QuizID     int64
	QuestionID int64
	Position   int
}

// Attempt records one completed playthrough of a quiz. Append-only; removed
// only when the quiz itself is deleted.
type Attempt struct {
	ID             int64
	QuizID         int64
	Score          int
	TotalQuestions int
	OwnerID        string
	CreatedAt      time.Time
}

// AttemptSummary is the most recent score/total pair recorded for a quiz.
type AttemptSummary struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// QuestionDoc is the wire shape of one question, both in uploaded documents
// and in assembled views.
type QuestionDoc struct {
	Type               string   `json:"type"`
	Question           string   `json:"question"`
	CorrectAnswer      string   `json:"correctAnswer"`
	MultiChoiceOptions []string `json:"multiChoiceOptions"`
}

// QuizDoc is an uploaded or generated quiz document.
type QuizDoc struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Questions   []QuestionDoc `json:"questions"`
}

// QuizView is a fully assembled quiz as served to clients.
type QuizView struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	OwnerID     string        `json:"-"`
	Questions   []QuestionDoc `json:"questions"`
}

// AttemptEvent is pushed over the live feed when an attempt is recorded.
type AttemptEvent struct {
	QuizID int64 `json:"quizId"`
	Score  int   `json:"score"`
	Total  int   `json:"total"`
}
