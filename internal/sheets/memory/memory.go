package memory

import (
	"context"
	"sync"

	"sakelog/internal/core"

	ports "sakelog/internal/sheets"
)

// Appended is one recorded export.
type Appended struct {
	Post    core.PostWithBeverages
	Version int64
}

// Store is an in-memory PostAppender for development and tests.
type Store struct {
	mu       sync.Mutex
	appended []Appended
}

var _ ports.PostAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) AppendPost(_ context.Context, post core.PostWithBeverages, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended = append(s.appended, Appended{Post: post, Version: version})
	return nil
}

// All returns a copy of everything appended so far.
func (s *Store) All() []Appended {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Appended, len(s.appended))
	copy(out, s.appended)
	return out
}
