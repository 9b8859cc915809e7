package kv

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-memory Store. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	opts *Options
}

// NewMemory creates an empty Memory store. opts may be nil.
func NewMemory(opts *Options) *Memory {
	return &Memory{data: make(map[string][]byte), opts: opts}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.data[string(m.opts.encode(key))]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte) error {
	m.mu.Lock()
	m.data[string(m.opts.encode(key))] = bytes.Clone(value)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.data, string(m.opts.encode(key)))
	m.mu.Unlock()
	return nil
}

func (m *Memory) Scan(_ context.Context, prefix Key, opts ScanOptions) iter.Seq2[Entry, error] {
	p := string(m.opts.scanPrefix(prefix))

	// Snapshot under the read lock; the iterator runs unlocked.
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	if opts.Reverse {
		slices.Reverse(keys)
	}
	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
	}
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: m.opts.decode([]byte(k)), Value: bytes.Clone(m.data[k])}
	}
	m.mu.RUnlock()

	return func(yield func(Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *Memory) DeletePrefix(_ context.Context, prefix Key) error {
	p := string(m.opts.scanPrefix(prefix))
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
