package app

import (
	"sync"

	"github.com/google/uuid"
)

// ClassLimiter prevents two generation runs for the same class from
// racing each other. Versions stay correct without it (the store
// retries on version conflicts), it just avoids burning attempts.
type ClassLimiter struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*sync.Mutex
}

func NewClassLimiter() *ClassLimiter {
	return &ClassLimiter{byID: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *ClassLimiter) lock(classID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.byID[classID]
	if !ok {
		m = &sync.Mutex{}
		l.byID[classID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return func() { m.Unlock() }
}
