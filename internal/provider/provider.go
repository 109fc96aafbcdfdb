// Package provider fetches question content from external trivia sources.
package provider

import (
	"context"
	"fmt"
	"strings"

	"trivia-service/internal/domain"
)

// Provider returns one question of the requested difficulty and category.
type Provider interface {
	FetchQuestion(ctx context.Context, difficulty domain.Difficulty, category int) (domain.Content, error)
}

// categoryNames follows the OpenTDB category numbering.
var categoryNames = map[int]string{
	9:  "General Knowledge",
	10: "Entertainment: Books",
	11: "Entertainment: Film",
	12: "Entertainment: Music",
	13: "Entertainment: Musicals & Theatres",
	14: "Entertainment: Television",
	15: "Entertainment: Video Games",
	16: "Entertainment: Board Games",
	17: "Science & Nature",
	18: "Science: Computers",
	19: "Science: Mathematics",
	20: "Mythology",
	21: "Sports",
	22: "Geography",
	23: "History",
	24: "Politics",
	25: "Art",
	26: "Celebrities",
	27: "Animals",
	28: "Vehicles",
	29: "Entertainment: Comics",
	30: "Science: Gadgets",
	31: "Entertainment: Japanese Anime & Manga",
	32: "Entertainment: Cartoon & Animations",
}

// CategoryName returns the display name of an OpenTDB category id.
func CategoryName(id int) string {
	if name, ok := categoryNames[id]; ok {
		return name
	}
	return categoryNames[9]
}

// checkContent rejects payloads that cannot form a question.
func checkContent(c domain.Content) error {
	if strings.TrimSpace(c.Question) == "" {
		return fmt.Errorf("%w: empty question text", domain.ErrProvider)
	}
	if strings.TrimSpace(c.CorrectAnswer) == "" {
		return fmt.Errorf("%w: empty correct answer", domain.ErrProvider)
	}
	for _, a := range c.IncorrectAnswers {
		if a == c.CorrectAnswer {
			return fmt.Errorf("%w: correct answer repeated among incorrect answers", domain.ErrProvider)
		}
	}
	return nil
}
