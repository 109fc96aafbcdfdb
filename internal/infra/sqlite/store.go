// Package sqlite keeps users and pending questions in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"trivia-service/internal/domain"
)

// Store implements app.Store on database/sql with the sqlite3 driver.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers; transactions stay atomic without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTables creates the users and trivia_questions tables if they don't exist.
func (s *Store) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			score INTEGER NOT NULL DEFAULT 0,
			questions INTEGER NOT NULL DEFAULT 0,
			correct_answers INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS trivia_questions (
			secret_key TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			question_value INTEGER NOT NULL DEFAULT 0,
			answer_options TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			category INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

const userColumns = "id, username, email, score, questions, correct_answers"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Score, &u.Questions, &u.CorrectAnswers)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, username, email string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email) VALUES (?, ?) RETURNING `+userColumns,
		username, email,
	)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, userWriteError("create user", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
		}
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %q: %w", username, domain.ErrUserNotFound)
		}
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id int64, username, email string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE users SET username = ?, email = ? WHERE id = ? RETURNING `+userColumns,
		username, email, id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
		}
		return domain.User{}, userWriteError("update user", err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `DELETE FROM users WHERE id = ? RETURNING `+userColumns, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
		}
		return domain.User{}, fmt.Errorf("failed to delete user: %w", err)
	}
	return u, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.TriviaQuestion) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trivia_questions (secret_key, question, question_value, answer_options, correct_answer, difficulty, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.SecretKey, q.Question, q.Value, string(options), q.CorrectAnswer, string(q.Difficulty), q.Category, q.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, key string) (domain.TriviaQuestion, error) {
	var (
		q          domain.TriviaQuestion
		options    string
		difficulty string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT secret_key, question, question_value, answer_options, correct_answer, difficulty, category, created_at
		 FROM trivia_questions WHERE secret_key = ?`, key,
	).Scan(&q.SecretKey, &q.Question, &q.Value, &options, &q.CorrectAnswer, &difficulty, &q.Category, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TriviaQuestion{}, fmt.Errorf("question %s: %w", key, domain.ErrQuestionNotFound)
		}
		return domain.TriviaQuestion{}, fmt.Errorf("failed to get question: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return domain.TriviaQuestion{}, fmt.Errorf("failed to decode options: %w", err)
	}
	q.Difficulty = domain.Difficulty(difficulty)
	return q, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trivia_questions WHERE secret_key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("question %s: %w", key, domain.ErrQuestionNotFound)
	}
	return nil
}

func (s *Store) SettleAnswer(ctx context.Context, key string, userID int64, outcome domain.Outcome) (domain.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM trivia_questions WHERE secret_key = ?`, key)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to retire question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to retire question: %w", err)
	}
	if n == 0 {
		return domain.User{}, fmt.Errorf("question %s: %w", key, domain.ErrQuestionNotFound)
	}

	correct, points := 0, 0
	if outcome.Correct {
		correct, points = 1, outcome.Points
	}
	u, err := scanUser(tx.QueryRowContext(ctx,
		`UPDATE users SET questions = questions + 1, correct_answers = correct_answers + ?, score = score + ?
		 WHERE id = ? RETURNING `+userColumns,
		correct, points, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("user %d: %w", userID, domain.ErrUserNotFound)
		}
		return domain.User{}, fmt.Errorf("failed to apply answer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.User{}, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return u, nil
}

func userWriteError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicateIdentity)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
