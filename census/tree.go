package census

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/vocdoni/anonvote-node/types"
)

// ErrEmptySet is returned when building a tree with no leaves.
var ErrEmptySet = errors.New("census: cannot build a tree with no leaves")

// Tree is a binary SHA-256 Merkle tree whose parents hash their two children
// in sorted order, so a proof needs no left/right flags. An unpaired node at
// the end of a level is promoted unchanged to the next level.
type Tree struct {
	// levels[0] holds the leaves, levels[len-1] holds only the root.
	levels [][][]byte
	index  map[string]int
}

// Build builds a tree over leaves, in the given order. Each leaf must be
// HashLen bytes.
func Build(leaves [][]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptySet
	}
	level := make([][]byte, len(leaves))
	index := make(map[string]int, len(leaves))
	for i, l := range leaves {
		if len(l) != HashLen {
			return nil, fmt.Errorf("census: leaf %d has %d bytes, expected %d", i, len(l), HashLen)
		}
		level[i] = bytes.Clone(l)
		if _, dup := index[string(l)]; !dup {
			index[string(l)] = i
		}
	}
	levels := [][][]byte{level}
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels, index: index}, nil
}

// BuildFromVoters commits the voters and builds their tree in canonical
// order.
func BuildFromVoters(voters []types.CanonicalVoter) (*Tree, error) {
	vl := VoterLeaves(voters)
	leaves := make([][]byte, len(vl))
	for i := range vl {
		leaves[i] = vl[i].Leaf
	}
	return Build(leaves)
}

// HashPair returns SHA-256(min(a,b) || max(a,b)).
func HashPair(a, b []byte) []byte {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	h := sha256.New()
	h.Write(a)
	h.Write(b)
	return h.Sum(nil)
}

// Root returns the tree root.
func (t *Tree) Root() []byte {
	return bytes.Clone(t.levels[len(t.levels)-1][0])
}

// HexRoot returns the lowercase hex root.
func (t *Tree) HexRoot() string {
	return types.HexBytes(t.levels[len(t.levels)-1][0]).Hex()
}

// Size returns the number of leaves.
func (t *Tree) Size() int {
	return len(t.levels[0])
}

// Leaves returns a copy of the leaves in tree order.
func (t *Tree) Leaves() [][]byte {
	out := make([][]byte, len(t.levels[0]))
	for i, l := range t.levels[0] {
		out[i] = bytes.Clone(l)
	}
	return out
}

// IndexOf returns the position of leaf, or -1 if it is not in the tree.
func (t *Tree) IndexOf(leaf []byte) int {
	i, ok := t.index[string(leaf)]
	if !ok {
		return -1
	}
	return i
}

// Proof returns the sibling hashes on the path from the leaf at index to the
// root, bottom-up. Levels where the node had no sibling contribute nothing.
func (t *Tree) Proof(index int) ([][]byte, error) {
	if index < 0 || index >= t.Size() {
		return nil, fmt.Errorf("census: leaf index %d out of range [0,%d)", index, t.Size())
	}
	var siblings [][]byte
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			siblings = append(siblings, bytes.Clone(level[sibling]))
		}
		index /= 2
	}
	return siblings, nil
}

// Verify recomputes the root from leaf and proof, applying sort-then-hash at
// every step, and compares it with root.
func Verify(leaf []byte, proof [][]byte, root []byte) bool {
	if len(leaf) != HashLen || len(root) != HashLen {
		return false
	}
	node := leaf
	for _, sibling := range proof {
		if len(sibling) != HashLen {
			return false
		}
		node = HashPair(node, sibling)
	}
	return bytes.Equal(node, root)
}
