// Package random picks question difficulty, category and option order.
package random

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trivia-service/internal/domain"
)

const (
	difficultySides = 3
	categorySides   = 24
	// categoryOffset aligns a d24 roll with OpenTDB category ids 9..32.
	categoryOffset = 8
)

// Source rolls a fair die with the given number of sides, returning 1..sides.
type Source interface {
	Roll(ctx context.Context, sides int) (int, error)
}

// Selector draws difficulty and category from a Source and shuffles options locally.
type Selector struct {
	source Source

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSelector(source Source) *Selector {
	return &Selector{
		source: source,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// PickDifficulty rolls a d3 and returns the tier and its point value.
func (s *Selector) PickDifficulty(ctx context.Context) (domain.Difficulty, int, error) {
	roll, err := s.roll(ctx, difficultySides)
	if err != nil {
		return "", 0, err
	}
	d, err := domain.DifficultyFromRoll(roll)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	return d, d.Points(), nil
}

// PickCategory rolls a d24 and shifts it onto the provider's category numbering.
func (s *Selector) PickCategory(ctx context.Context) (int, error) {
	roll, err := s.roll(ctx, categorySides)
	if err != nil {
		return 0, err
	}
	return roll + categoryOffset, nil
}

// Shuffle returns a new slice holding a uniform permutation of options.
func (s *Selector) Shuffle(options []string) []string {
	out := make([]string, len(options))
	copy(out, options)
	s.mu.Lock()
	s.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	s.mu.Unlock()
	return out
}

func (s *Selector) roll(ctx context.Context, sides int) (int, error) {
	v, err := s.source.Roll(ctx, sides)
	if err != nil {
		return 0, err
	}
	if v < 1 || v > sides {
		return 0, fmt.Errorf("%w: d%d rolled %d", domain.ErrProvider, sides, v)
	}
	return v, nil
}
