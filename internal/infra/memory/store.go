package memory

import (
	"context"
	"sort"
	"sync"

	"quizforge-service/internal/app"
	"quizforge-service/internal/domain"
)

// Store is an in-memory implementation of app.Store, used in tests and when
// no postgres URL is configured.
type Store struct {
	mu sync.RWMutex

	nextQuizID     int64
	nextQuestionID int64
	nextAttemptID  int64

	quizzes   map[int64]domain.Quiz
	questions map[int64]storedQuestion
	links     []domain.QuizQuestion
	attempts  []domain.Attempt
}

type storedQuestion struct {
	text          string
	correctAnswer string
	options       string
}

func NewStore() *Store {
	return &Store{
		quizzes:   make(map[int64]domain.Quiz),
		questions: make(map[int64]storedQuestion),
	}
}

func (s *Store) InsertQuiz(_ context.Context, name, description, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuizID++
	id := s.nextQuizID
	s.quizzes[id] = domain.Quiz{ID: id, Name: name, Description: description, OwnerID: ownerID}
	return id, nil
}

func (s *Store) GetQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(_ context.Context, ownerID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		if ownerID != "" && quiz.OwnerID != ownerID {
			continue
		}
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, quizID)
	return nil
}

func (s *Store) InsertQuestion(_ context.Context, text, correctAnswer, options string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuestionID++
	id := s.nextQuestionID
	s.questions[id] = storedQuestion{text: text, correctAnswer: correctAnswer, options: options}
	return id, nil
}

func (s *Store) QuestionsByID(_ context.Context, ids []int64) (map[int64]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := make(map[int64]domain.Question, len(ids))
	for _, id := range ids {
		stored, ok := s.questions[id]
		if !ok {
			// Missing rows are omitted, not reported.
			continue
		}
		options, err := domain.DecodeOptions(stored.options)
		if err != nil {
			return nil, err
		}
		questions[id] = domain.Question{
			ID:            id,
			Text:          stored.text,
			CorrectAnswer: stored.correctAnswer,
			Options:       options,
		}
	}
	return questions, nil
}

func (s *Store) DeleteQuestion(_ context.Context, questionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.questions, questionID)
	return nil
}

func (s *Store) InsertLink(_ context.Context, link domain.QuizQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.links {
		if existing.QuizID == link.QuizID && existing.QuestionID == link.QuestionID {
			return nil
		}
	}
	s.links = append(s.links, link)
	return nil
}

func (s *Store) LinksForQuiz(_ context.Context, quizID int64) ([]domain.QuizQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var links []domain.QuizQuestion
	for _, link := range s.links {
		if link.QuizID == quizID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Position < links[j].Position })
	return links, nil
}

func (s *Store) QuestionIDsForQuizzes(_ context.Context, quizIDs []int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[int64]struct{}, len(quizIDs))
	for _, id := range quizIDs {
		wanted[id] = struct{}{}
	}
	seen := make(map[int64]struct{})
	var ids []int64
	for _, link := range s.links {
		if _, ok := wanted[link.QuizID]; !ok {
			continue
		}
		if _, dup := seen[link.QuestionID]; dup {
			continue
		}
		seen[link.QuestionID] = struct{}{}
		ids = append(ids, link.QuestionID)
	}
	return ids, nil
}

func (s *Store) QuestionLinked(_ context.Context, questionID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if link.QuestionID == questionID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteLinksForQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.links[:0]
	for _, link := range s.links {
		if link.QuizID != quizID {
			kept = append(kept, link)
		}
	}
	s.links = kept
	return nil
}

func (s *Store) InsertAttempt(_ context.Context, quizID int64, score, total int, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAttemptID++
	id := s.nextAttemptID
	s.attempts = append(s.attempts, domain.Attempt{
		ID:             id,
		QuizID:         quizID,
		Score:          score,
		TotalQuestions: total,
		OwnerID:        ownerID,
	})
	return id, nil
}

func (s *Store) AttemptsNewestFirst(_ context.Context, ownerID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var attempts []domain.Attempt
	for _, attempt := range s.attempts {
		if ownerID != "" && attempt.OwnerID != ownerID {
			continue
		}
		attempts = append(attempts, attempt)
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].ID > attempts[j].ID })
	return attempts, nil
}

func (s *Store) DeleteAttemptsForQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.attempts[:0]
	for _, attempt := range s.attempts {
		if attempt.QuizID != quizID {
			kept = append(kept, attempt)
		}
	}
	s.attempts = kept
	return nil
}

// RunInTx runs fn against the store directly. The in-memory store offers no
// atomicity across steps; it exists for tests and local runs.
func (s *Store) RunInTx(_ context.Context, fn func(app.Store) error) error {
	return fn(s)
}

// SetRawOptions overwrites a question's stored options column, bypassing
// validation. Test hook for exercising corruption handling.
func (s *Store) SetRawOptions(questionID int64, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.questions[questionID]; ok {
		stored.options = raw
		s.questions[questionID] = stored
	}
}
