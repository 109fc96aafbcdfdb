package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"trivia-service/internal/domain"
	"trivia-service/internal/metrics"
)

// UserRepository stores user records.
type UserRepository interface {
	CreateUser(ctx context.Context, username, email string) (domain.User, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	// UpdateUser replaces identity fields only; counters are owned by SettleAnswer.
	UpdateUser(ctx context.Context, id int64, username, email string) (domain.User, error)
	DeleteUser(ctx context.Context, id int64) (domain.User, error)
}

// QuestionRepository stores pending questions by secret key.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q domain.TriviaQuestion) error
	GetQuestion(ctx context.Context, key string) (domain.TriviaQuestion, error)
	DeleteQuestion(ctx context.Context, key string) error
}

// AnswerLedger applies a graded answer.
type AnswerLedger interface {
	// SettleAnswer deletes the question and applies the outcome to the user as one
	// atomic unit. If the question no longer exists nothing is applied and
	// domain.ErrQuestionNotFound is returned. It returns the user after the update.
	SettleAnswer(ctx context.Context, key string, userID int64, outcome domain.Outcome) (domain.User, error)
}

// Store is everything the service needs from persistence.
type Store interface {
	UserRepository
	QuestionRepository
	AnswerLedger
}

// KeyLocker serializes reconciliation per question key.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Selector picks question parameters and option order.
type Selector interface {
	PickDifficulty(ctx context.Context) (domain.Difficulty, int, error)
	PickCategory(ctx context.Context) (int, error)
	Shuffle(options []string) []string
}

// QuestionSource fetches question content.
type QuestionSource interface {
	FetchQuestion(ctx context.Context, difficulty domain.Difficulty, category int) (domain.Content, error)
}

// TriviaService generates questions and reconciles answers against them.
type TriviaService struct {
	store    Store
	selector Selector
	source   QuestionSource
	locker   KeyLocker
	newKey   func() string
	now      func() time.Time
	log      *slog.Logger
	metrics  *metrics.Manager
}

// Option configures a TriviaService.
type Option func(*TriviaService)

// WithKeyLocker serializes submissions for the same key through l.
func WithKeyLocker(l KeyLocker) Option {
	return func(s *TriviaService) { s.locker = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *TriviaService) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(s *TriviaService) { s.metrics = m }
}

// WithKeyGenerator replaces uuid-based secret keys; used by tests.
func WithKeyGenerator(gen func() string) Option {
	return func(s *TriviaService) {
		if gen != nil {
			s.newKey = gen
		}
	}
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TriviaService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewTriviaService(store Store, selector Selector, source QuestionSource, opts ...Option) *TriviaService {
	s := &TriviaService{
		store:    store,
		selector: selector,
		source:   source,
		newKey:   uuid.NewString,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextQuestion rolls difficulty and category, fetches content and persists a
// new question under a fresh secret key. Nothing is stored on failure.
func (s *TriviaService) NextQuestion(ctx context.Context) (domain.TriviaQuestion, error) {
	var (
		difficulty domain.Difficulty
		points     int
		category   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		difficulty, points, err = s.selector.PickDifficulty(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		category, err = s.selector.PickCategory(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.ProviderError("random")
		s.log.Warn("question parameters unavailable", slog.Any("error", err))
		return domain.TriviaQuestion{}, fmt.Errorf("pick question parameters: %w", err)
	}

	content, err := s.source.FetchQuestion(ctx, difficulty, category)
	if err != nil {
		s.metrics.ProviderError("fetch")
		s.log.Warn("question fetch failed",
			slog.String("difficulty", string(difficulty)),
			slog.Int("category", category),
			slog.Any("error", err))
		return domain.TriviaQuestion{}, fmt.Errorf("fetch question: %w", err)
	}

	q := domain.TriviaQuestion{
		SecretKey:     s.newKey(),
		Question:      content.Question,
		Options:       BuildOptions(content, s.selector.Shuffle),
		CorrectAnswer: content.CorrectAnswer,
		Value:         points,
		Difficulty:    difficulty,
		Category:      category,
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return domain.TriviaQuestion{}, fmt.Errorf("store question: %w", err)
	}

	s.metrics.QuestionGenerated()
	s.log.Debug("question generated",
		slog.String("secret_key", q.SecretKey),
		slog.String("difficulty", string(difficulty)),
		slog.Int("category", category),
		slog.Int("options", len(q.Options)))
	return q, nil
}

// BuildOptions appends the correct answer to the incorrect ones and shuffles them.
func BuildOptions(c domain.Content, shuffle func([]string) []string) []string {
	options := make([]string, 0, len(c.IncorrectAnswers)+1)
	options = append(options, c.IncorrectAnswers...)
	options = append(options, c.CorrectAnswer)
	return shuffle(options)
}

// Reconcile grades a submission against its question, applies the result to
// the user and retires the question. A key is reconciled at most once; later
// submissions for it fail with domain.ErrQuestionNotFound.
func (s *TriviaService) Reconcile(ctx context.Context, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	if err := sub.Validate(); err != nil {
		s.metrics.AnswerRejected("malformed")
		return domain.AnswerResult{}, err
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, sub.SecretKey)
		if err != nil {
			return domain.AnswerResult{}, fmt.Errorf("lock question %s: %w", sub.SecretKey, err)
		}
		defer unlock()
	}

	user, err := s.store.GetUserByUsername(ctx, sub.Username)
	if err != nil {
		return domain.AnswerResult{}, s.rejectLookup(err, sub)
	}
	question, err := s.store.GetQuestion(ctx, sub.SecretKey)
	if err != nil {
		return domain.AnswerResult{}, s.rejectLookup(err, sub)
	}

	// Exact, case-sensitive comparison.
	correct := sub.Answer == question.CorrectAnswer
	outcome := domain.Outcome{Correct: correct}
	if correct {
		outcome.Points = question.Value
	}

	updated, err := s.store.SettleAnswer(ctx, question.SecretKey, user.ID, outcome)
	if err != nil {
		return domain.AnswerResult{}, s.rejectLookup(err, sub)
	}

	result := domain.AnswerResult{
		Result:     domain.ResultMessage(correct, question.CorrectAnswer),
		Username:   updated.Username,
		UserScore:  updated.Score,
		PctCorrect: domain.PercentCorrect(updated.CorrectAnswers, updated.Questions),
		Correct:    correct,
	}
	s.metrics.AnswerReconciled(correct)
	s.log.Info("answer reconciled",
		slog.String("username", updated.Username),
		slog.String("secret_key", question.SecretKey),
		slog.Bool("correct", correct),
		slog.Int("score", updated.Score),
		slog.Int("pct_correct", result.PctCorrect))
	return result, nil
}

func (s *TriviaService) rejectLookup(err error, sub domain.AnswerSubmission) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.metrics.AnswerRejected("user_not_found")
	case errors.Is(err, domain.ErrQuestionNotFound):
		s.metrics.AnswerRejected("question_not_found")
	default:
		return fmt.Errorf("reconcile %s: %w", sub.SecretKey, err)
	}
	s.log.Info("submission rejected",
		slog.String("username", sub.Username),
		slog.String("secret_key", sub.SecretKey),
		slog.Any("error", err))
	return domain.Rejected(err)
}
