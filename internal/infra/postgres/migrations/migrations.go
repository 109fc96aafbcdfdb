// Package migrations holds the Postgres schema as bun migrations.
package migrations

import (
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

type userModel struct {
	bun.BaseModel `bun:"table:users"`

	ID             int64  `bun:"id,pk,autoincrement"`
	Username       string `bun:"username,notnull,unique"`
	Email          string `bun:"email,notnull,unique"`
	Score          int    `bun:"score,notnull,default:0"`
	Questions      int    `bun:"questions,notnull,default:0"`
	CorrectAnswers int    `bun:"correct_answers,notnull,default:0"`
}

type triviaQuestionModel struct {
	bun.BaseModel `bun:"table:trivia_questions"`

	SecretKey     string    `bun:"secret_key,pk"`
	Question      string    `bun:"question,notnull"`
	Value         int       `bun:"question_value,notnull,default:0"`
	Options       []string  `bun:"answer_options,array,notnull"`
	CorrectAnswer string    `bun:"correct_answer,notnull"`
	Difficulty    string    `bun:"difficulty,notnull"`
	Category      int       `bun:"category,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
