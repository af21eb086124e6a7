// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package property is a small key-value store with change subscription,
// standing in for the platform property database. The gesture recognizer
// uses it to follow the screen power state.
package property

import (
	"strconv"
	"sync"

	"golang.org/x/xerrors"
)

// Store holds string properties and notifies monitors on change.
type Store struct {
	mu       sync.Mutex
	values   map[string]string
	monitors map[string][]*Monitor
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		values:   make(map[string]string),
		monitors: make(map[string][]*Monitor),
	}
}

// Get returns the value of key, or def when unset.
func (s *Store) Get(key, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// GetInt32 returns the value of key parsed as int32, or def.
func (s *Store) GetInt32(key string, def int32) int32 {
	v := s.Get(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return def
	}
	return int32(n)
}

// Set stores key=value and wakes every monitor of key. Notification is
// lossless per monitor up to its buffer; a monitor whose buffer is full
// misses the new value and keeps its older pending ones.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	monitors := append([]*Monitor(nil), s.monitors[key]...)
	s.mu.Unlock()

	for _, m := range monitors {
		select {
		case m.ch <- value:
		default:
		}
	}
}

// Monitor subscribes to changes of key. A nil store is a configuration
// error.
func (s *Store) Monitor(key string) (*Monitor, error) {
	if s == nil {
		return nil, xerrors.New("property: no store configured")
	}
	m := &Monitor{store: s, key: key, ch: make(chan string, 8)}
	s.mu.Lock()
	s.monitors[key] = append(s.monitors[key], m)
	s.mu.Unlock()
	return m, nil
}

// Monitor delivers changed values of one key.
type Monitor struct {
	store *Store
	key   string
	ch    chan string

	once sync.Once
}

// C returns the channel carrying changed values.
func (m *Monitor) C() <-chan string { return m.ch }

// Close unsubscribes the monitor.
func (m *Monitor) Close() {
	m.once.Do(func() {
		s := m.store
		s.mu.Lock()
		list := s.monitors[m.key]
		for i, o := range list {
			if o == m {
				s.monitors[m.key] = append(list[:i], list[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(m.ch)
	})
}
