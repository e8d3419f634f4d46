package app

import (
	"context"
	"fmt"

	"quizforge-service/internal/domain"
)

// RecordAttempt appends an attempt for a quiz. Score and total are accepted
// as reported; they are not cross-checked against the quiz's question count.
func (s *QuizService) RecordAttempt(ctx context.Context, quizID int64, score, total int, ownerID string) error {
	if score < 0 || total < 0 {
		return fmt.Errorf("%w: score and total must not be negative", domain.ErrValidation)
	}
	if _, err := s.store.InsertAttempt(ctx, quizID, score, total, ownerID); err != nil {
		return err
	}
	s.feed.Publish(ownerID, domain.AttemptEvent{QuizID: quizID, Score: score, Total: total})
	return nil
}

// LatestAttempts reduces the attempt history to the most recent score per
// quiz. Rows arrive newest first and the first record seen per quiz wins, so
// recency decides, never the score value.
func (s *QuizService) LatestAttempts(ctx context.Context, ownerID string) (map[int64]domain.AttemptSummary, error) {
	attempts, err := s.store.AttemptsNewestFirst(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	latest := make(map[int64]domain.AttemptSummary, len(attempts))
	for _, attempt := range attempts {
		if _, seen := latest[attempt.QuizID]; seen {
			continue
		}
		latest[attempt.QuizID] = domain.AttemptSummary{
			Score: attempt.Score,
			Total: attempt.TotalQuestions,
		}
	}
	return latest, nil
}

// SubscribeAttempts streams attempt events recorded by the given owner. The
// caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) SubscribeAttempts(ownerID string) (<-chan domain.AttemptEvent, func()) {
	return s.feed.Subscribe(ownerID)
}
