// Package postgres keeps users and pending questions in Postgres through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-service/internal/domain"
)

const uniqueViolation = "23505"

// Store implements app.Store on a pgx pool. The schema comes from the migrations package.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = "id, username, email, score, questions, correct_answers"

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Score, &u.Questions, &u.CorrectAnswers)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, username, email string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email) VALUES ($1, $2) RETURNING `+userColumns,
		username, email,
	))
	if err != nil {
		return domain.User{}, userWriteError("create user", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %q: %w", username, domain.ErrUserNotFound)
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id int64, username, email string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET username = $1, email = $2 WHERE id = $3 RETURNING `+userColumns,
		username, email, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
		}
		return domain.User{}, userWriteError("update user", err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
		}
		return domain.User{}, fmt.Errorf("delete user: %w", err)
	}
	return u, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.TriviaQuestion) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trivia_questions (secret_key, question, question_value, answer_options, correct_answer, difficulty, category, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.SecretKey, q.Question, q.Value, q.Options, q.CorrectAnswer, string(q.Difficulty), q.Category, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, key string) (domain.TriviaQuestion, error) {
	var (
		q          domain.TriviaQuestion
		difficulty string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT secret_key, question, question_value, answer_options, correct_answer, difficulty, category, created_at
		 FROM trivia_questions WHERE secret_key = $1`, key,
	).Scan(&q.SecretKey, &q.Question, &q.Value, &q.Options, &q.CorrectAnswer, &difficulty, &q.Category, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TriviaQuestion{}, fmt.Errorf("question %s: %w", key, domain.ErrQuestionNotFound)
		}
		return domain.TriviaQuestion{}, fmt.Errorf("get question: %w", err)
	}
	q.Difficulty = domain.Difficulty(difficulty)
	return q, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trivia_questions WHERE secret_key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("question %s: %w", key, domain.ErrQuestionNotFound)
	}
	return nil
}

// SettleAnswer retires the question and applies the outcome in one transaction.
// The row lock taken by DELETE makes a concurrent settlement of the same key
// see zero affected rows once this one commits.
func (s *Store) SettleAnswer(ctx context.Context, key string, userID int64, outcome domain.Outcome) (domain.User, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.User{}, fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `DELETE FROM trivia_questions WHERE secret_key = $1`, key)
	if err != nil {
		return domain.User{}, fmt.Errorf("retire question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.User{}, fmt.Errorf("question %s: %w", key, domain.ErrQuestionNotFound)
	}

	correct, points := 0, 0
	if outcome.Correct {
		correct, points = 1, outcome.Points
	}
	u, err := scanUser(tx.QueryRow(ctx,
		`UPDATE users SET questions = questions + 1, correct_answers = correct_answers + $1, score = score + $2
		 WHERE id = $3 RETURNING `+userColumns,
		correct, points, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %d: %w", userID, domain.ErrUserNotFound)
		}
		return domain.User{}, fmt.Errorf("apply answer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.User{}, fmt.Errorf("commit settlement: %w", err)
	}
	return u, nil
}

func userWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicateIdentity)
	}
	return fmt.Errorf("%s: %w", op, err)
}
