package app

import (
	"context"
	"fmt"
	"strings"

	"quizforge-service/internal/domain"
)

// QuizStore persists quiz rows.
type QuizStore interface {
	InsertQuiz(ctx context.Context, name, description, ownerID string) (int64, error)
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, ownerID string) ([]domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID int64) error
}

// QuestionStore persists question rows. Options travel pre-encoded as the
// single text column described in domain.EncodeOptions.
type QuestionStore interface {
	InsertQuestion(ctx context.Context, text, correctAnswer, options string) (int64, error)
	QuestionsByID(ctx context.Context, ids []int64) (map[int64]domain.Question, error)
	DeleteQuestion(ctx context.Context, questionID int64) error
}

// LinkStore persists the many-to-many quiz/question association.
type LinkStore interface {
	InsertLink(ctx context.Context, link domain.QuizQuestion) error
	LinksForQuiz(ctx context.Context, quizID int64) ([]domain.QuizQuestion, error)
	QuestionIDsForQuizzes(ctx context.Context, quizIDs []int64) ([]int64, error)
	QuestionLinked(ctx context.Context, questionID int64) (bool, error)
	DeleteLinksForQuiz(ctx context.Context, quizID int64) error
}

// AttemptStore persists the append-only attempt log.
type AttemptStore interface {
	InsertAttempt(ctx context.Context, quizID int64, score, total int, ownerID string) (int64, error)
	AttemptsNewestFirst(ctx context.Context, ownerID string) ([]domain.Attempt, error)
	DeleteAttemptsForQuiz(ctx context.Context, quizID int64) error
}

// Store groups the persistence concerns behind one transactional boundary.
// RunInTx executes fn against a store bound to a single transaction; every
// multi-step write in this service goes through it.
type Store interface {
	QuizStore
	QuestionStore
	LinkStore
	AttemptStore
	RunInTx(ctx context.Context, fn func(Store) error) error
}

// QuizService contains the quiz content and assessment use cases.
type QuizService struct {
	store Store
	feed  *AttemptFeed
}

func NewQuizService(store Store) *QuizService {
	return &QuizService{store: store, feed: NewAttemptFeed()}
}

// CreateQuestion stores a single standalone question after validating the
// option list. The question is unreachable until a link points at it.
func (s *QuizService) CreateQuestion(ctx context.Context, text, correctAnswer string, options []string) (int64, error) {
	raw, err := validateQuestion(text, correctAnswer, options)
	if err != nil {
		return 0, err
	}
	return s.store.InsertQuestion(ctx, text, correctAnswer, raw)
}

// IngestQuiz creates a quiz, its questions, and the links between them from
// an uploaded or generated document, all inside one transaction. Question
// entries whose type is not MultipleChoice are skipped, not rejected.
func (s *QuizService) IngestQuiz(ctx context.Context, doc domain.QuizDoc, ownerID string) (int64, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return 0, fmt.Errorf("%w: quiz name is required", domain.ErrValidation)
	}

	var quizID int64
	err := s.store.RunInTx(ctx, func(tx Store) error {
		id, err := tx.InsertQuiz(ctx, doc.Name, doc.Description, ownerID)
		if err != nil {
			return err
		}
		quizID = id

		position := 0
		for _, q := range doc.Questions {
			if q.Type != domain.QuestionTypeMultipleChoice {
				continue
			}
			raw, err := validateQuestion(q.Question, q.CorrectAnswer, q.MultiChoiceOptions)
			if err != nil {
				return err
			}
			questionID, err := tx.InsertQuestion(ctx, q.Question, q.CorrectAnswer, raw)
			if err != nil {
				return err
			}
			if err := tx.InsertLink(ctx, domain.QuizQuestion{QuizID: quizID, QuestionID: questionID, Position: position}); err != nil {
				return err
			}
			position++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return quizID, nil
}

// AssembleQuiz reconstructs the full quiz view from its row and linked
// questions. When ownerID is non-empty and does not match the quiz owner,
// the result is ErrQuizNotFound rather than a permission error, so callers
// cannot probe for other owners' quiz IDs.
func (s *QuizService) AssembleQuiz(ctx context.Context, quizID int64, ownerID string) (domain.QuizView, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizView{}, err
	}
	if ownerID != "" && quiz.OwnerID != ownerID {
		return domain.QuizView{}, domain.ErrQuizNotFound
	}

	links, err := s.store.LinksForQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizView{}, err
	}

	ids := make([]int64, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.QuestionID)
	}
	questions, err := s.store.QuestionsByID(ctx, ids)
	if err != nil {
		return domain.QuizView{}, err
	}

	view := domain.QuizView{
		ID:          quiz.ID,
		Name:        quiz.Name,
		Description: quiz.Description,
		OwnerID:     quiz.OwnerID,
		Questions:   make([]domain.QuestionDoc, 0, len(links)),
	}
	for _, link := range links {
		q, ok := questions[link.QuestionID]
		if !ok {
			// Batch fetch omits missing rows; tolerate the gap.
			continue
		}
		view.Questions = append(view.Questions, domain.QuestionDoc{
			Type:               domain.QuestionTypeMultipleChoice,
			Question:           q.Text,
			CorrectAnswer:      q.CorrectAnswer,
			MultiChoiceOptions: q.Options,
		})
	}
	return view, nil
}

// ListQuizzes returns the caller's quizzes without their questions.
func (s *QuizService) ListQuizzes(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx, ownerID)
}

// DeleteQuiz removes a quiz, its attempts, its links, and any question left
// without links afterwards. The phases run in a fixed order (attempts, links,
// quiz, orphaned questions) so stores enforcing referential integrity never
// see a dangling reference.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID int64, ownerID string) error {
	return s.store.RunInTx(ctx, func(tx Store) error {
		quiz, err := tx.GetQuiz(ctx, quizID)
		if err != nil {
			return err
		}
		if quiz.OwnerID != ownerID {
			return domain.ErrForbidden
		}

		if err := tx.DeleteAttemptsForQuiz(ctx, quizID); err != nil {
			return err
		}

		links, err := tx.LinksForQuiz(ctx, quizID)
		if err != nil {
			return err
		}
		if err := tx.DeleteLinksForQuiz(ctx, quizID); err != nil {
			return err
		}
		if err := tx.DeleteQuiz(ctx, quizID); err != nil {
			return err
		}

		for _, link := range links {
			linked, err := tx.QuestionLinked(ctx, link.QuestionID)
			if err != nil {
				return err
			}
			if !linked {
				if err := tx.DeleteQuestion(ctx, link.QuestionID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func validateQuestion(text, correctAnswer string, options []string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: question text is required", domain.ErrValidation)
	}
	raw, err := domain.EncodeOptions(options)
	if err != nil {
		return "", err
	}
	for _, option := range options {
		if option == correctAnswer {
			return raw, nil
		}
	}
	return "", fmt.Errorf("%w: correct answer must be one of the options", domain.ErrValidation)
}
