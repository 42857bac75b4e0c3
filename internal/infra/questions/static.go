package questions

import (
	"context"

	"suquid-trivia-server/internal/domain"
)

// StaticSource serves question sets from a fixed in-memory map, useful for
// tests and the built-in demo set.
type StaticSource struct {
	sets map[string][]domain.Question
}

func NewStaticSource(sets map[string][]domain.Question) *StaticSource {
	return &StaticSource{sets: sets}
}

func (s *StaticSource) Load(_ context.Context, setID string) ([]domain.Question, error) {
	if questions, ok := s.sets[setID]; ok {
		return questions, nil
	}
	return nil, domain.ErrSetNotFound
}
