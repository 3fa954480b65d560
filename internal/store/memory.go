// Package store persists per-resource price histories. Every backend returns
// nil, nil from Load when the resource has never been saved.
package store

import (
	"context"
	"sync"

	"github.com/fedorten/resursGraf/internal/models"
)

type Memory struct {
	mu    sync.RWMutex
	items map[string]models.History
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]models.History)}
}

func (m *Memory) Load(_ context.Context, resource string) (*models.History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.items[resource]
	if !ok {
		return nil, nil
	}
	h.Points = models.ClonePoints(h.Points)
	return &h, nil
}

func (m *Memory) Save(_ context.Context, h *models.History) error {
	cp := *h
	cp.Points = models.ClonePoints(h.Points)

	m.mu.Lock()
	m.items[h.Resource] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
