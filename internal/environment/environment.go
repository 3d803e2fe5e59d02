// Package environment holds the shell's variable table.
//
// Unlike a plain map[string]string, variables keep the order in which
// they were first set, so "getenv" with no arguments lists them the
// same way every time a user runs it in the same session.
package environment

import (
	"fmt"
	"io"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Store is the shell's variable table.
type Store struct {
	mu sync.RWMutex
	m  *orderedmap.OrderedMap[string, string]
}

// New returns an empty Store.
func New() *Store {
	return &Store{m: orderedmap.New[string, string]()}
}

// FromEnviron builds a Store pre-populated from a process environment
// slice such as the one returned by os.Environ.
func FromEnviron(environ []string) *Store {
	s := New()
	s.Init(environ)
	return s
}

// Init loads entries of the form "NAME=VALUE" into the store, in the
// order they appear. Entries without an '=' are ignored.
func (s *Store) Init(environ []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range environ {
		idx := strings.IndexByte(e, '=')
		if idx < 0 {
			continue
		}
		s.m.Set(e[:idx], e[idx+1:])
	}
}

// EnsureDefault sets name to value only if it is not already present.
func (s *Store) EnsureDefault(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m.Get(name); ok {
		return
	}
	s.m.Set(name, value)
}

// Exists reports whether name is currently set, even to an empty string.
func (s *Store) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m.Get(name)
	return ok
}

// Get returns the value of name, or "" if it is unset.
func (s *Store) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _ := s.m.Get(name)
	return v
}

// Set assigns value to name, appending name to iteration order the
// first time it is used.
func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Set(name, value)
}

// Remove deletes name. Removing an unset name is not an error.
func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Delete(name)
}

// Print writes one "NAME=VALUE" line per variable, in insertion order.
func (s *Store) Print(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		if _, err := fmt.Fprintf(w, "%s=%s\n", pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// Export materializes the store as a "NAME=VALUE" slice suitable for
// exec.Cmd.Env, in insertion order.
func (s *Store) Export() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key+"="+pair.Value)
	}
	return out
}

// Len returns the number of variables currently set.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Len()
}
