package ordmap

import (
	"bytes"
	"fmt"
)

// Validate walks the whole tree under the read lock and checks ordering,
// coloring, black-height and parent links. It is O(n) and meant for tests
// and offline verification.
func (m *Map) Validate() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t.validate()
}

func (t *tree) validate() error {
	if t.root == t.nil {
		if t.size != 0 {
			return fmt.Errorf("empty root with size %d: %w", t.size, ErrInvariant)
		}
		return nil
	}
	if t.root.color != black {
		return fmt.Errorf("root %q is red: %w", t.root.key, ErrInvariant)
	}
	if t.root.parent != t.nil {
		return fmt.Errorf("root %q has a parent: %w", t.root.key, ErrInvariant)
	}
	if t.nil.color != black {
		return fmt.Errorf("sentinel recolored: %w", ErrInvariant)
	}
	count := 0
	if _, err := t.check(t.root, nil, nil, &count); err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("reachable nodes %d, size %d: %w", count, t.size, ErrInvariant)
	}
	return nil
}

// check returns the black height of the subtree rooted at n. lo and hi are
// exclusive key bounds, nil meaning unbounded.
func (t *tree) check(n *node, lo, hi []byte, count *int) (int, error) {
	if n == t.nil {
		return 1, nil
	}
	*count++
	if lo != nil && bytes.Compare(n.key, lo) <= 0 {
		return 0, fmt.Errorf("key %q not above %q: %w", n.key, lo, ErrInvariant)
	}
	if hi != nil && bytes.Compare(n.key, hi) >= 0 {
		return 0, fmt.Errorf("key %q not below %q: %w", n.key, hi, ErrInvariant)
	}
	if n.color == red && n.parent.color == red {
		return 0, fmt.Errorf("red node %q under red parent: %w", n.key, ErrInvariant)
	}
	for _, c := range [...]*node{n.left, n.right} {
		if c != t.nil && c.parent != n {
			return 0, fmt.Errorf("child %q of %q has stale parent: %w", c.key, n.key, ErrInvariant)
		}
	}

	lh, err := t.check(n.left, lo, n.key, count)
	if err != nil {
		return 0, err
	}
	rh, err := t.check(n.right, n.key, hi, count)
	if err != nil {
		return 0, err
	}
	if lh != rh {
		return 0, fmt.Errorf("black height under %q: left %d, right %d: %w", n.key, lh, rh, ErrInvariant)
	}
	if n.color == black {
		lh++
	}
	return lh, nil
}
