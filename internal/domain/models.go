package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// User is a registered player and their running statistics.
type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Score          int    `json:"score"`
	Questions      int    `json:"questions"`
	CorrectAnswers int    `json:"correct_answers"`
}

// Difficulty is the content provider's difficulty filter.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// DifficultyFromRoll maps a d3 roll onto a difficulty tier.
func DifficultyFromRoll(roll int) (Difficulty, error) {
	switch roll {
	case 1:
		return Easy, nil
	case 2:
		return Medium, nil
	case 3:
		return Hard, nil
	}
	return "", fmt.Errorf("difficulty roll %d out of range", roll)
}

// Points is the value awarded for a correct answer at this tier.
func (d Difficulty) Points() int {
	switch d {
	case Easy:
		return 100
	case Medium:
		return 200
	case Hard:
		return 300
	}
	return 0
}

// TriviaQuestion is a pending question awaiting exactly one answer.
type TriviaQuestion struct {
	SecretKey     string     `json:"secret_key"`
	Question      string     `json:"question"`
	Options       []string   `json:"answer_options"`
	CorrectAnswer string     `json:"-"`
	Value         int        `json:"-"`
	Difficulty    Difficulty `json:"-"`
	Category      int        `json:"-"`
	CreatedAt     time.Time  `json:"-"`
}

// Content is what a question provider returns for one request.
type Content struct {
	Question         string
	CorrectAnswer    string
	IncorrectAnswers []string
}

// AnswerSubmission models an answer sent by any transport.
type AnswerSubmission struct {
	Answer    string
	Username  string
	SecretKey string
}

// Validate reports the first missing field.
func (s AnswerSubmission) Validate() error {
	switch {
	case s.Answer == "":
		return fmt.Errorf("%w: missing answer", ErrMalformedSubmission)
	case strings.TrimSpace(s.Username) == "":
		return fmt.Errorf("%w: missing username", ErrMalformedSubmission)
	case strings.TrimSpace(s.SecretKey) == "":
		return fmt.Errorf("%w: missing secret key", ErrMalformedSubmission)
	}
	return nil
}

// Outcome is the graded effect of one answer on a user.
type Outcome struct {
	Correct bool
	Points  int
}

// AnswerResult summarizes a reconciled submission.
type AnswerResult struct {
	Result     string `json:"result"`
	Username   string `json:"username"`
	UserScore  int    `json:"userScore"`
	PctCorrect int    `json:"pctCorrect"`
	Correct    bool   `json:"-"`
}

const correctMessage = "That's correct!"

// ResultMessage renders the reply text for a graded answer.
func ResultMessage(correct bool, correctAnswer string) string {
	if correct {
		return correctMessage
	}
	return fmt.Sprintf("Sorry. That's incorrect! The correct answer was %s.", correctAnswer)
}

// PercentCorrect rounds correct/questions to a whole percentage, half to even.
func PercentCorrect(correct, questions int) int {
	if questions <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(correct) / float64(questions) * 100))
}
