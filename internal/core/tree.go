package core

import (
	"fmt"
	"strings"

	"github.com/scigolib/omfiles/internal/utils"
)

// Handle addresses a node in a Tree.
type Handle int

// NoHandle marks the missing parent of the root.
const NoHandle Handle = -1

// MaxTreeNodes bounds the number of records a single file may declare.
const MaxTreeNodes = 1 << 20

// Node is one variable in the metadata tree.
type Node struct {
	Var      *Variable
	Span     Span // zero for synthesized legacy roots
	Parent   Handle
	Children []Handle
	Path     string
}

// Tree is an arena of decoded variable records with parent/child adjacency
// and a path index. It is built once at open time and never mutated.
type Tree struct {
	nodes  []Node
	byPath map[string]Handle
}

// RecordFetcher returns the bytes of one serialized record.
type RecordFetcher func(Span) ([]byte, error)

// NewLegacyTree wraps a single synthesized variable as a one-node tree.
func NewLegacyTree(v *Variable) *Tree {
	return &Tree{
		nodes:  []Node{{Var: v, Parent: NoHandle}},
		byPath: map[string]Handle{"": 0},
	}
}

// LoadTree decodes the record at root and, depth first, all of its
// descendants. limit is the file size; spans beyond it are corrupt.
// A record reachable twice (shared child or cycle) is rejected.
func LoadTree(fetch RecordFetcher, root Span, limit uint64) (*Tree, error) {
	t := &Tree{byPath: make(map[string]Handle)}
	seen := make(map[uint64]bool)

	var load func(span Span, parent Handle, prefix string) (Handle, error)
	load = func(span Span, parent Handle, prefix string) (Handle, error) {
		if span.Size == 0 || span.End() > limit || span.End() < span.Offset {
			return NoHandle, fmt.Errorf("%w: record span [%d,+%d) outside file of %d bytes",
				utils.ErrCorruptMetadata, span.Offset, span.Size, limit)
		}
		if seen[span.Offset] {
			return NoHandle, fmt.Errorf("%w: record at %d referenced twice", utils.ErrCorruptMetadata, span.Offset)
		}
		seen[span.Offset] = true
		if len(t.nodes) >= MaxTreeNodes {
			return NoHandle, fmt.Errorf("%w: more than %d records", utils.ErrCorruptMetadata, MaxTreeNodes)
		}

		buf, err := fetch(span)
		if err != nil {
			return NoHandle, err
		}
		v, err := DecodeVariable(buf)
		if err != nil {
			return NoHandle, utils.WrapError(fmt.Sprintf("record at offset %d", span.Offset), err)
		}

		// Paths are relative to the root, which is addressed as "".
		var path string
		switch {
		case parent == NoHandle:
		case prefix == "":
			path = v.Name
		default:
			path = prefix + "/" + v.Name
		}
		// Duplicate sibling names, empty child names and names containing
		// "/" all show up as a path that is already taken.
		if _, dup := t.byPath[path]; dup {
			return NoHandle, fmt.Errorf("%w: path %q declared twice (record at offset %d)",
				utils.ErrCorruptMetadata, path, span.Offset)
		}
		h := Handle(len(t.nodes))
		t.nodes = append(t.nodes, Node{Var: v, Span: span, Parent: parent, Path: path})
		t.byPath[path] = h

		children := make([]Handle, 0, len(v.Children))
		for _, cs := range v.Children {
			ch, err := load(cs, h, path)
			if err != nil {
				return NoHandle, err
			}
			children = append(children, ch)
		}
		t.nodes[h].Children = children
		return h, nil
	}

	if _, err := load(root, NoHandle, ""); err != nil {
		return nil, err
	}
	return t, nil
}

// Root returns the handle of the root variable.
func (t *Tree) Root() Handle {
	return 0
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node for h.
func (t *Tree) Node(h Handle) *Node {
	return &t.nodes[h]
}

// Child finds a direct child of h by name.
func (t *Tree) Child(h Handle, name string) (Handle, bool) {
	for _, c := range t.nodes[h].Children {
		if t.nodes[c].Var.Name == name {
			return c, true
		}
	}
	return NoHandle, false
}

// Lookup resolves a slash-separated path relative to the root.
// A leading slash is ignored.
func (t *Tree) Lookup(path string) (Handle, bool) {
	h, ok := t.byPath[strings.TrimPrefix(path, "/")]
	return h, ok
}

// Walk visits every node depth first in record order.
func (t *Tree) Walk(fn func(h Handle, n *Node) bool) {
	var visit func(h Handle) bool
	visit = func(h Handle) bool {
		if !fn(h, &t.nodes[h]) {
			return false
		}
		for _, c := range t.nodes[h].Children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(0)
}
