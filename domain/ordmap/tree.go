package ordmap

import "bytes"

type color uint8

const (
	red   color = 0
	black color = 1
)

type node struct {
	key    []byte
	value  []byte
	color  color
	left   *node
	right  *node
	parent *node
}

// tree is the unsynchronized red-black engine. Every method assumes the
// caller holds the owning Map's lock in the proper mode.
type tree struct {
	root *node
	nil  *node // sentinel (black), shared by every empty position
	size int
}

func newTree() *tree {
	nilNode := &node{color: black}
	return &tree{root: nilNode, nil: nilNode}
}

func (t *tree) find(key []byte) *node {
	n := t.root
	for n != t.nil {
		switch c := bytes.Compare(key, n.key); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n
		}
	}
	return t.nil
}

func (t *tree) get(key []byte) ([]byte, bool) {
	n := t.find(key)
	if n == t.nil {
		return nil, false
	}
	return n.value, true
}

// upsert stores value under key and reports whether a new node was linked.
// key and value are owned by the tree after the call.
func (t *tree) upsert(key, value []byte) bool {
	if t.root == t.nil {
		t.root = &node{key: key, value: value, color: black, left: t.nil, right: t.nil, parent: t.nil}
		t.size++
		return true
	}

	y := t.nil
	x := t.root
	c := 0
	for x != t.nil {
		y = x
		c = bytes.Compare(key, x.key)
		switch {
		case c < 0:
			x = x.left
		case c > 0:
			x = x.right
		default:
			x.value = value
			return false
		}
	}

	z := &node{key: key, value: value, color: red, left: t.nil, right: t.nil, parent: y}
	if c < 0 {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return true
}

func (t *tree) leftRotate(x *node) {
	if x == t.nil || x.right == t.nil {
		return
	}
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *tree) rightRotate(y *node) {
	if y == t.nil || y.left == t.nil {
		return
	}
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.nil {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

// insertFixup walks from a freshly linked red node toward the root until no
// red node has a red parent. The sentinel is black, so the loop stops at
// the root on its own.
func (t *tree) insertFixup(z *node) {
	for z != t.root && z.parent.color == red {
		gp := z.parent.parent
		if z.parent == gp.left {
			uncle := gp.right
			if uncle.color == red {
				z.parent.color = black
				uncle.color = black
				gp.color = red
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.leftRotate(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rightRotate(z.parent.parent)
		} else {
			uncle := gp.left
			if uncle.color == red {
				z.parent.color = black
				uncle.color = black
				gp.color = red
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rightRotate(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.leftRotate(z.parent.parent)
		}
	}
	t.root.color = black
}
