package app

import (
	"context"
	"math/rand"

	"quizforge-service/internal/domain"
)

// DefaultMockExamSize is the question count used when the caller does not ask
// for a specific size.
const DefaultMockExamSize = 30

const (
	mockExamName        = "Mock Exam"
	mockExamDescription = "Randomized mock exam from your question pool"
)

// ComposeMockExam builds a new quiz from a uniform random sample of the
// owner's question pool: every question linked to any quiz the owner already
// has. Questions are reused through new links, never copied, so a later
// delete of the source quiz leaves them intact. Sampling never leaves the
// owner's pool.
func (s *QuizService) ComposeMockExam(ctx context.Context, ownerID string, numQuestions int) (int64, error) {
	if numQuestions <= 0 {
		numQuestions = DefaultMockExamSize
	}

	quizzes, err := s.store.ListQuizzes(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	quizIDs := make([]int64, 0, len(quizzes))
	for _, quiz := range quizzes {
		quizIDs = append(quizIDs, quiz.ID)
	}

	pool, err := s.store.QuestionIDsForQuizzes(ctx, quizIDs)
	if err != nil {
		return 0, err
	}
	if len(pool) == 0 {
		return 0, domain.ErrInsufficientData
	}

	count := min(numQuestions, len(pool))
	selected := make([]int64, 0, count)
	for _, idx := range rand.Perm(len(pool))[:count] {
		selected = append(selected, pool[idx])
	}

	var quizID int64
	err = s.store.RunInTx(ctx, func(tx Store) error {
		id, err := tx.InsertQuiz(ctx, mockExamName, mockExamDescription, ownerID)
		if err != nil {
			return err
		}
		quizID = id
		for position, questionID := range selected {
			if err := tx.InsertLink(ctx, domain.QuizQuestion{QuizID: quizID, QuestionID: questionID, Position: position}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return quizID, nil
}
