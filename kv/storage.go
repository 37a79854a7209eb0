// Package kv implements a small ordered multimap of strings.
package kv

import (
	"iter"
	"slices"
)

type Pair struct {
	Key, Value string
}

// Storage keeps pairs in insertion order and looks them up linearly. For the handful of
// query parameters a typical request carries, this beats hashing. Keys are case-sensitive.
type Storage struct {
	pairs []Pair
}

// New returns a storage with room for n pairs.
func New(n int) *Storage {
	return &Storage{pairs: make([]Pair, 0, n)}
}

// Add appends the pair, even if the key is already present.
func (s *Storage) Add(key, value string) *Storage {
	s.pairs = append(s.pairs, Pair{key, value})
	return s
}

// Set replaces the value of the key in place or appends a new pair.
func (s *Storage) Set(key, value string) *Storage {
	if i := s.index(key); i != -1 {
		s.pairs[i].Value = value
		return s
	}

	return s.Add(key, value)
}

// Get returns the latest value of the key.
func (s *Storage) Get(key string) (value string, found bool) {
	if i := s.index(key); i != -1 {
		return s.pairs[i].Value, true
	}

	return "", false
}

// Value is Get without the found flag.
func (s *Storage) Value(key string) string {
	value, _ := s.Get(key)
	return value
}

func (s *Storage) Has(key string) bool {
	return s.index(key) != -1
}

// Del removes every pair of the key.
func (s *Storage) Del(key string) *Storage {
	s.pairs = slices.DeleteFunc(s.pairs, func(p Pair) bool {
		return p.Key == key
	})

	return s
}

// Pairs iterates in insertion order.
func (s *Storage) Pairs() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, p := range s.pairs {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

func (s *Storage) Len() int {
	return len(s.pairs)
}

func (s *Storage) Empty() bool {
	return len(s.pairs) == 0
}

// Expose returns the underlying slice. It's valid until the next modification.
func (s *Storage) Expose() []Pair {
	return s.pairs
}

// Clear drops all the pairs, keeping the allocated space.
func (s *Storage) Clear() *Storage {
	s.pairs = s.pairs[:0]
	return s
}

func (s *Storage) index(key string) int {
	for i := len(s.pairs) - 1; i >= 0; i-- {
		if s.pairs[i].Key == key {
			return i
		}
	}

	return -1
}
