package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/repository"
)

// ErrInjected is the default error returned by the failure injectors.
var ErrInjected = errors.New("injected failure")

// FailingPropertyStore wraps a PropertyStore. The first FailFirst writes fail,
// and writes to any key in FailKeys always fail. Err defaults to ErrInjected.
type FailingPropertyStore struct {
	repository.PropertyStore
	FailFirst int
	FailKeys  map[int64]bool
	Err       error

	mu     sync.Mutex
	calls  int
	writes []int64
}

func (s *FailingPropertyStore) WriteCategory(ctx context.Context, nodeKey int64, cat domain.CustomCategory) error {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if s.FailKeys[nodeKey] || n <= s.FailFirst {
		return s.err()
	}
	if err := s.PropertyStore.WriteCategory(ctx, nodeKey, cat); err != nil {
		return err
	}
	s.mu.Lock()
	s.writes = append(s.writes, nodeKey)
	s.mu.Unlock()
	return nil
}

// Calls counts WriteCategory attempts, failed ones included.
func (s *FailingPropertyStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Written lists node keys whose write reached the wrapped store.
func (s *FailingPropertyStore) Written() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.writes...)
}

func (s *FailingPropertyStore) err() error {
	if s.Err != nil {
		return s.Err
	}
	return ErrInjected
}

// FailingSelectionRepo wraps a SelectionRepository and fails UpsertSet for
// the set names in FailSets, and every FindSetByName when FailFind is set.
type FailingSelectionRepo struct {
	repository.SelectionRepository
	FailSets map[string]bool
	FailFind bool
	Err      error
}

func (r *FailingSelectionRepo) UpsertSet(ctx context.Context, folderID, name string, members []int64) (*domain.SelectionItem, error) {
	if r.FailSets[name] {
		return nil, r.err()
	}
	return r.SelectionRepository.UpsertSet(ctx, folderID, name, members)
}

func (r *FailingSelectionRepo) FindSetByName(ctx context.Context, rootName, setName string) (*domain.SelectionItem, error) {
	if r.FailFind {
		return nil, r.err()
	}
	return r.SelectionRepository.FindSetByName(ctx, rootName, setName)
}

func (r *FailingSelectionRepo) err() error {
	if r.Err != nil {
		return r.Err
	}
	return ErrInjected
}

// FailingTaskRepo wraps a TaskRepository and fails Replace or WorkingCopy.
type FailingTaskRepo struct {
	repository.TaskRepository
	FailReplace     bool
	FailWorkingCopy bool
	Err             error
}

func (r *FailingTaskRepo) WorkingCopy(ctx context.Context) (*domain.TaskTree, error) {
	if r.FailWorkingCopy {
		return nil, r.err()
	}
	return r.TaskRepository.WorkingCopy(ctx)
}

func (r *FailingTaskRepo) Replace(ctx context.Context, tree *domain.TaskTree) error {
	if r.FailReplace {
		return r.err()
	}
	return r.TaskRepository.Replace(ctx, tree)
}

func (r *FailingTaskRepo) err() error {
	if r.Err != nil {
		return r.Err
	}
	return ErrInjected
}
