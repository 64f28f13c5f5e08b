package ordmap

import (
	"bytes"
	"fmt"
	"sync"
)

// Locker is the reader/writer lock a Map synchronizes on. *sync.RWMutex
// satisfies it.
type Locker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// Map is an ordered byte-key map safe for concurrent use. Readers share the
// lock, writers hold it exclusively for the whole descent and rebalance.
type Map struct {
	mu Locker
	t  *tree
}

// New returns an empty Map guarded by its own lock.
func New() *Map {
	return &Map{mu: new(sync.RWMutex), t: newTree()}
}

// NewShared returns an empty Map guarded by l. Maps built on the same lock
// form one lock domain; see PutLocked for updating several of them atomically.
func NewShared(l Locker) (*Map, error) {
	if isNil(l) {
		return nil, fmt.Errorf("shared lock is nil: %w", ErrInvalidArgument)
	}
	return &Map{mu: l, t: newTree()}, nil
}

func isNil(l Locker) bool {
	rw, ok := l.(*sync.RWMutex)
	return l == nil || ok && rw == nil
}

// Get returns the value stored under key. A nil key is never found.
// The returned slice is shared with the map and must not be modified.
func (m *Map) Get(key []byte) ([]byte, bool) {
	if key == nil {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.get(key)
}

// Put inserts key or overwrites its value. Both key and value are required;
// empty non-nil slices are accepted. Key and value are copied.
func (m *Map) Put(key, value []byte) error {
	if err := checkPut(key, value); err != nil {
		return err
	}
	k, v := bytes.Clone(key), bytes.Clone(value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.t.upsert(k, v)
	return nil
}

// Len returns the number of stored keys.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.size
}

// GetLocked is Get for callers already holding the shared lock in read or
// write mode.
func (m *Map) GetLocked(key []byte) ([]byte, bool) {
	if key == nil {
		return nil, false
	}
	return m.t.get(key)
}

// PutLocked is Put for callers already holding the shared lock in write
// mode. It reports whether a new key was inserted.
func (m *Map) PutLocked(key, value []byte) (bool, error) {
	if err := checkPut(key, value); err != nil {
		return false, err
	}
	return m.t.upsert(bytes.Clone(key), bytes.Clone(value)), nil
}

// LenLocked is Len for callers already holding the shared lock.
func (m *Map) LenLocked() int {
	return m.t.size
}

func checkPut(key, value []byte) error {
	if key == nil {
		return fmt.Errorf("put: nil key: %w", ErrInvalidArgument)
	}
	if value == nil {
		return fmt.Errorf("put: nil value: %w", ErrInvalidArgument)
	}
	return nil
}
