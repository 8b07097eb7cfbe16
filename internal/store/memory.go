package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

type memoryValue struct {
	value     string
	updatedAt time.Time
}

type Memory struct {
	mu     sync.RWMutex
	values map[string]memoryValue
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]memoryValue)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v.value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = memoryValue{value: value, updatedAt: time.Now()}
	return nil
}

// Entries lists the stored keys ordered by name.
func (m *Memory) Entries(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]Entry, 0, len(m.values))
	for k, v := range m.values {
		entries = append(entries, Entry{Key: k, Size: len(v.value), UpdatedAt: v.updatedAt})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	return entries, nil
}
