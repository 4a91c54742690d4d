package kv

import (
	"bytes"
	"context"
	"iter"
	"sort"
	"sync"
)

// Memory is an in-memory Store implementation backed by a sorted map.
// It is safe for concurrent use and intended primarily for testing.
type Memory struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[*memWatcher]struct{}
	closed   bool
	opts     *Options
}

// memWatcher is a single Watch registration on a Memory store.
type memWatcher struct {
	prefix []byte
	ch     chan struct{}
	once   sync.Once
}

func (w *memWatcher) close() {
	w.once.Do(func() { close(w.ch) })
}

// NewMemory creates a new in-memory Store.
// Pass nil for default options.
func NewMemory(opts *Options) *Memory {
	return &Memory{
		data:     make(map[string][]byte),
		watchers: make(map[*memWatcher]struct{}),
		opts:     opts,
	}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	k := string(m.opts.encode(key))
	m.mu.RLock()
	v, ok := m.data[k]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy to prevent mutation.
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte) error {
	enc := m.opts.encode(key)
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	m.data[string(enc)] = cp
	m.notifyLocked(enc)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	enc := m.opts.encode(key)
	m.mu.Lock()
	if _, ok := m.data[string(enc)]; ok {
		delete(m.data, string(enc))
		m.notifyLocked(enc)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	prefixBytes := m.opts.watchPrefix(prefix)

	// Snapshot matching keys under read lock.
	m.mu.RLock()
	type kv struct {
		key string
		val []byte
	}
	var matches []kv
	for k, v := range m.data {
		if len(prefixBytes) == 0 || bytes.HasPrefix([]byte(k), prefixBytes) {
			cp := make([]byte, len(v))
			copy(cp, v)
			matches = append(matches, kv{k, cp})
		}
	}
	m.mu.RUnlock()

	// Sort for deterministic lexicographic order.
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].key < matches[j].key
	})

	return func(yield func(Entry, error) bool) {
		for _, kv := range matches {
			entry := Entry{
				Key:   m.opts.decode([]byte(kv.key)),
				Value: kv.val,
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (m *Memory) Watch(ctx context.Context, prefix Key) (<-chan struct{}, error) {
	w := &memWatcher{
		prefix: m.opts.watchPrefix(prefix),
		ch:     make(chan struct{}, 1),
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		w.close()
		return w.ch, nil
	}
	m.watchers[w] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers, w)
		m.mu.Unlock()
		w.close()
	}()
	return w.ch, nil
}

// notifyLocked pushes a coalesced notification to every watcher whose
// prefix matches the written key. Callers must hold m.mu.
func (m *Memory) notifyLocked(enc []byte) {
	for w := range m.watchers {
		if len(w.prefix) == 0 || bytes.HasPrefix(enc, w.prefix) {
			select {
			case w.ch <- struct{}{}:
			default: // a notification is already pending
			}
		}
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	for w := range m.watchers {
		w.close()
	}
	m.watchers = make(map[*memWatcher]struct{})
	m.mu.Unlock()
	return nil
}
