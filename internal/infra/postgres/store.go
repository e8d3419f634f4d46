package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizforge-service/internal/app"
	"quizforge-service/internal/domain"
)

// querier is the subset of pgx shared by pools and transactions, so the same
// statement code serves both.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store implements app.Store against Postgres.
type Store struct {
	pool *pgxpool.Pool
	q    querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) InsertQuiz(ctx context.Context, name, description, ownerID string) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx,
		`INSERT INTO quizzes (name, description, owner_id) VALUES ($1, $2, $3) RETURNING id`,
		name, description, ownerID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert quiz: %w", err)
	}
	return id, nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.q.QueryRow(ctx,
		`SELECT id, name, description, owner_id FROM quizzes WHERE id = $1`,
		quizID).Scan(&quiz.ID, &quiz.Name, &quiz.Description, &quiz.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

// ListQuizzes returns the owner's quizzes; an empty ownerID lists all rows.
func (s *Store) ListQuizzes(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, name, description, owner_id FROM quizzes
		 WHERE $1 = '' OR owner_id = $1 ORDER BY id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var quiz domain.Quiz
		if err := rows.Scan(&quiz.ID, &quiz.Name, &quiz.Description, &quiz.OwnerID); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID int64) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

func (s *Store) InsertQuestion(ctx context.Context, text, correctAnswer, options string) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx,
		`INSERT INTO questions (question, correct_answer, options) VALUES ($1, $2, $3) RETURNING id`,
		text, correctAnswer, options).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return id, nil
}

func (s *Store) QuestionsByID(ctx context.Context, ids []int64) (map[int64]domain.Question, error) {
	questions := make(map[int64]domain.Question, len(ids))
	if len(ids) == 0 {
		return questions, nil
	}

	rows, err := s.q.Query(ctx,
		`SELECT id, question, correct_answer, options FROM questions WHERE id = ANY($1)`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			question domain.Question
			raw      string
		)
		if err := rows.Scan(&question.ID, &question.Text, &question.CorrectAnswer, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		question.Options, err = domain.DecodeOptions(raw)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", question.ID, err)
		}
		questions[question.ID] = question
	}
	return questions, rows.Err()
}

func (s *Store) DeleteQuestion(ctx context.Context, questionID int64) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM questions WHERE id = $1`, questionID); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

func (s *Store) InsertLink(ctx context.Context, link domain.QuizQuestion) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO quiz_questions (quiz_id, question_id, position)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (quiz_id, question_id) DO NOTHING`,
		link.QuizID, link.QuestionID, link.Position)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (s *Store) LinksForQuiz(ctx context.Context, quizID int64) ([]domain.QuizQuestion, error) {
	rows, err := s.q.Query(ctx,
		`SELECT quiz_id, question_id, position FROM quiz_questions WHERE quiz_id = $1 ORDER BY position`,
		quizID)
	if err != nil {
		return nil, fmt.Errorf("links for quiz: %w", err)
	}
	defer rows.Close()

	var links []domain.QuizQuestion
	for rows.Next() {
		var link domain.QuizQuestion
		if err := rows.Scan(&link.QuizID, &link.QuestionID, &link.Position); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (s *Store) QuestionIDsForQuizzes(ctx context.Context, quizIDs []int64) ([]int64, error) {
	if len(quizIDs) == 0 {
		return nil, nil
	}
	rows, err := s.q.Query(ctx,
		`SELECT DISTINCT question_id FROM quiz_questions WHERE quiz_id = ANY($1)`,
		quizIDs)
	if err != nil {
		return nil, fmt.Errorf("question pool: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) QuestionLinked(ctx context.Context, questionID int64) (bool, error) {
	var linked bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quiz_questions WHERE question_id = $1)`,
		questionID).Scan(&linked)
	if err != nil {
		return false, fmt.Errorf("question linked: %w", err)
	}
	return linked, nil
}

func (s *Store) DeleteLinksForQuiz(ctx context.Context, quizID int64) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM quiz_questions WHERE quiz_id = $1`, quizID); err != nil {
		return fmt.Errorf("delete links: %w", err)
	}
	return nil
}

func (s *Store) InsertAttempt(ctx context.Context, quizID int64, score, total int, ownerID string) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx,
		`INSERT INTO attempts (quiz_id, score, total_questions, owner_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		quizID, score, total, ownerID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}
	return id, nil
}

// AttemptsNewestFirst returns the owner's attempts in reverse insertion
// order; an empty ownerID returns all rows.
func (s *Store) AttemptsNewestFirst(ctx context.Context, ownerID string) ([]domain.Attempt, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, quiz_id, score, total_questions, owner_id, created_at
		 FROM attempts WHERE $1 = '' OR owner_id = $1 ORDER BY id DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var attempt domain.Attempt
		if err := rows.Scan(&attempt.ID, &attempt.QuizID, &attempt.Score, &attempt.TotalQuestions, &attempt.OwnerID, &attempt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

func (s *Store) DeleteAttemptsForQuiz(ctx context.Context, quizID int64) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM attempts WHERE quiz_id = $1`, quizID); err != nil {
		return fmt.Errorf("delete attempts: %w", err)
	}
	return nil
}

// RunInTx executes fn against a store bound to a single transaction. A store
// that is already transaction-bound reuses its transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(app.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Store{q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
