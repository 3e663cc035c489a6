package common

import (
	"errors"
	"strings"
	"sync"
)

var ErrModulePaused = errors.New("module paused")

// Module names recognised by the pause guard.
const (
	ModuleClaim      = "claim"
	ModuleDistribute = "distribute"
	ModuleAdmin      = "admin"
)

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// PauseSet is a concurrency-safe PauseView toggled by operators.
type PauseSet struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewPauseSet starts with the supplied modules paused.
func NewPauseSet(modules ...string) *PauseSet {
	set := &PauseSet{paused: make(map[string]bool)}
	for _, module := range modules {
		set.Set(module, true)
	}
	return set
}

// IsPaused implements PauseView.
func (s *PauseSet) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused[normalizeModule(module)]
}

// Set pauses or resumes a module.
func (s *PauseSet) Set(module string, paused bool) {
	key := normalizeModule(module)
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if paused {
		s.paused[key] = true
		return
	}
	delete(s.paused, key)
}

// Paused lists the paused modules.
func (s *PauseSet) Paused() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.paused))
	for module := range s.paused {
		out = append(out, module)
	}
	return out
}

func normalizeModule(module string) string {
	return strings.ToLower(strings.TrimSpace(module))
}
