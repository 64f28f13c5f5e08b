package ordmap

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func insertAll(t *testing.T, tr *tree, keys []string) {
	t.Helper()
	for _, k := range keys {
		tr.upsert([]byte(k), []byte("v-"+k))
		if err := tr.validate(); err != nil {
			t.Fatalf("after inserting %q: %v", k, err)
		}
	}
}

func TestTreeEmptyRootIsBlack(t *testing.T) {
	tr := newTree()
	if !tr.upsert([]byte("a"), []byte("1")) {
		t.Fatal("expected insert on empty tree")
	}
	if tr.root.color != black {
		t.Fatal("root must be black")
	}
	if tr.root.parent != tr.nil || tr.root.left != tr.nil || tr.root.right != tr.nil {
		t.Fatal("root links must point at sentinel")
	}
}

func TestTreeAscendingDescendingZigZag(t *testing.T) {
	cases := map[string][]string{
		"ascending":  {"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
		"descending": {"j", "i", "h", "g", "f", "e", "d", "c", "b", "a"},
		"zigzag-lr":  {"m", "c", "f"},
		"zigzag-rl":  {"c", "m", "f"},
		"mixed":      {"m", "c", "x", "a", "e", "d", "f", "w", "z", "y", "b"},
	}
	for name, keys := range cases {
		t.Run(name, func(t *testing.T) {
			tr := newTree()
			insertAll(t, tr, keys)
			if tr.size != len(keys) {
				t.Fatalf("size = %d, want %d", tr.size, len(keys))
			}
			for _, k := range keys {
				v, ok := tr.get([]byte(k))
				if !ok || string(v) != "v-"+k {
					t.Fatalf("get %q = %q, %v", k, v, ok)
				}
			}
		})
	}
}

func TestTreeZigZagRotatesToMiddle(t *testing.T) {
	tr := newTree()
	insertAll(t, tr, []string{"m", "c", "f"})
	if string(tr.root.key) != "f" {
		t.Fatalf("root = %q, want f", tr.root.key)
	}
	if tr.root.color != black || tr.root.left.color != red || tr.root.right.color != red {
		t.Fatal("expected black root with two red children")
	}
}

func TestTreeUncleRedRecolors(t *testing.T) {
	tr := newTree()
	insertAll(t, tr, []string{"m", "c", "x", "a"})
	// a's uncle x was red: parent and uncle turn black, grandparent (root) red
	// then forced back to black.
	if tr.root.left.color != black || tr.root.right.color != black {
		t.Fatal("expected parent and uncle recolored black")
	}
	if tr.root.left.left.color != red {
		t.Fatal("new node should stay red")
	}
}

func TestTreeOverwriteKeepsShape(t *testing.T) {
	tr := newTree()
	insertAll(t, tr, []string{"b", "a", "c"})
	root := tr.root
	if tr.upsert([]byte("a"), []byte("new")) {
		t.Fatal("overwrite reported an insert")
	}
	if tr.root != root || tr.size != 3 {
		t.Fatal("overwrite changed the structure")
	}
	if v, _ := tr.get([]byte("a")); string(v) != "new" {
		t.Fatalf("value = %q", v)
	}
}

func TestTreeRandomInsertsStayBalanced(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	tr := newTree()
	want := map[string]string{}
	for i := 0; i < 5000; i++ {
		k := fmt.Sprintf("k%06d", r.Intn(3000))
		v := fmt.Sprintf("v%d", i)
		tr.upsert([]byte(k), []byte(v))
		want[k] = v
	}
	if err := tr.validate(); err != nil {
		t.Fatal(err)
	}
	if tr.size != len(want) {
		t.Fatalf("size = %d, want %d", tr.size, len(want))
	}
	for k, v := range want {
		got, ok := tr.get([]byte(k))
		if !ok || string(got) != v {
			t.Fatalf("get %q = %q, %v; want %q", k, got, ok, v)
		}
	}
	if h := tr.height(); h > 2*log2(len(want)+1) {
		t.Fatalf("height %d exceeds red-black bound for %d keys", h, len(want))
	}
}

func TestTreeRotationOnSentinelIsNoop(t *testing.T) {
	tr := newTree()
	tr.leftRotate(tr.nil)
	tr.rightRotate(tr.nil)
	if tr.root != tr.nil {
		t.Fatal("rotation on empty tree changed root")
	}
	tr.upsert([]byte("a"), []byte("1"))
	root := tr.root
	tr.leftRotate(root)
	tr.rightRotate(root)
	if tr.root != root {
		t.Fatal("rotation without a child to promote changed root")
	}
}

func TestValidateDetectsCorruption(t *testing.T) {
	tr := newTree()
	insertAll(t, tr, []string{"b", "a", "c"})
	tr.root.left.color = black
	if err := tr.validate(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected black-height violation, got %v", err)
	}

	tr = newTree()
	insertAll(t, tr, []string{"b", "a", "c"})
	tr.root.left.key = []byte("z")
	if err := tr.validate(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected order violation, got %v", err)
	}

	tr = newTree()
	insertAll(t, tr, []string{"b"})
	tr.root.color = red
	if err := tr.validate(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected red root violation, got %v", err)
	}
}

func (t *tree) height() int {
	var h func(n *node) int
	h = func(n *node) int {
		if n == t.nil {
			return 0
		}
		return 1 + max(h(n.left), h(n.right))
	}
	return h(t.root)
}

func log2(n int) int {
	r := 0
	for n > 1 {
		n >>= 1
		r++
	}
	return r + 1
}
