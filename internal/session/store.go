package session

import (
	"sync"

	"github.com/desertthunder/onair/internal/models"
)

// Reactor is called after every commit with the state before and after it.
// prev is nil only when a reactor is replayed against a fresh state in tests.
type Reactor func(prev *models.ProgramState, next models.ProgramState)

// Store holds the single [models.ProgramState] of the process.
//
// Commits are serialized and each commit runs every reactor before the next commit starts,
// so reaction passes never interleave. Reactors must not call Set, Replace, Reset or OnChange.
type Store struct {
	commitMu sync.Mutex

	stateMu sync.RWMutex
	state   models.ProgramState

	reactors []Reactor
}

// NewStore creates a store holding [models.DefaultProgramState].
func NewStore() *Store {
	return &Store{state: models.DefaultProgramState()}
}

// Get returns a copy of the current state.
func (s *Store) Get() models.ProgramState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.Clone()
}

// Set applies mutate to a copy of the current state, commits it and runs the reactors.
// It returns the committed state.
func (s *Store) Set(mutate func(*models.ProgramState)) models.ProgramState {
	return s.commit(func(cur models.ProgramState) models.ProgramState {
		mutate(&cur)
		return cur
	})
}

// Replace commits next wholesale.
func (s *Store) Replace(next models.ProgramState) models.ProgramState {
	return s.commit(func(models.ProgramState) models.ProgramState {
		return next.Clone()
	})
}

// Reset commits [models.DefaultProgramState].
func (s *Store) Reset() models.ProgramState {
	return s.Replace(models.DefaultProgramState())
}

// OnChange registers a reactor for all later commits.
func (s *Store) OnChange(r Reactor) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	s.reactors = append(s.reactors, r)
}

func (s *Store) commit(build func(models.ProgramState) models.ProgramState) models.ProgramState {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.stateMu.Lock()
	prev := s.state.Clone()
	next := build(s.state.Clone())
	if next.Status != models.StatusTest {
		next.ShowPlaceholder = false
	}
	s.state = next
	s.stateMu.Unlock()

	for _, r := range s.reactors {
		p := prev.Clone()
		r(&p, next.Clone())
	}
	return next.Clone()
}
