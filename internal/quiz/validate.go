package quiz

import (
	"errors"
	"fmt"

	"github.com/pavelanni/memorylane/internal/model"
)

var (
	// ErrNoQuestions is returned when a question set is empty.
	ErrNoQuestions = errors.New("no questions")
	// ErrInvalidQuestion wraps every per-question validation failure.
	ErrInvalidQuestion = errors.New("invalid question")
)

// Validate checks that a question set can drive a session.
func Validate(questions []model.Question) error {
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	seen := make(map[int]bool, len(questions))
	for i, q := range questions {
		if seen[q.ID] {
			return fmt.Errorf("%w: question %d: duplicate id %d", ErrInvalidQuestion, i, q.ID)
		}
		seen[q.ID] = true
		if q.Prompt == "" {
			return fmt.Errorf("%w: question %d: empty prompt", ErrInvalidQuestion, i)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d: need at least 2 options, got %d", ErrInvalidQuestion, i, len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("%w: question %d: correct option %d out of range [0,%d)",
				ErrInvalidQuestion, i, q.CorrectOption, len(q.Options))
		}
		for j, m := range q.Media {
			if m.Kind != model.MediaImage && m.Kind != model.MediaVideo {
				return fmt.Errorf("%w: question %d: media %d: unknown kind %q", ErrInvalidQuestion, i, j, m.Kind)
			}
		}
	}
	return nil
}
