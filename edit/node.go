// Package edit implements the tree-edit state machine: a transactional
// model of a versioned hierarchical namespace, driven by path-addressed
// operations (mk, cp, mv, rm, put, res) and id-addressed operations
// (add, copy_one, copy_tree, delete, alter), with rebase/out-of-date
// checking against a repository oracle.
package edit

import "io"

// NodeID is an opaque node-branch identity, stable for the lifetime of
// an edit session. The sender assigns it at creation time for add and
// copy_one, and the receiver accepts any unique token; copy_tree and the
// path-addressed ops get a receiver-assigned id.
type NodeID string

// Kind is a node's structural type.
type Kind byte

const (
	KindUnknown Kind = iota
	KindDir
	KindFile
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Content is a node's non-structural state: kind, a base reference,
// properties, and kind-specific payload (file checksum/stream, or
// symlink target).
type Content struct {
	Kind Kind

	// Ref names the existing committed node this content is based on.
	// The zero PegPath (Rev: 0, RelPath: "") is not a valid "empty
	// base" marker — use EmptyBase to test for it.
	Ref PegPath

	Props map[string][]byte

	// Checksum is a SHA-1 digest over Stream's bytes; HasChecksum is
	// set only when Kind == KindFile.
	Checksum    [20]byte
	HasChecksum bool

	// Stream is a lazy, finite, non-restartable source of file text.
	// Present only when Kind == KindFile.
	Stream io.Reader

	// Target is the symlink target. Present only when Kind == KindSymlink.
	Target []byte
}

// EmptyBase reports whether c has no base reference (a freshly created
// node with default empty content, per mk/add).
func (c Content) EmptyBase() bool {
	return c.Ref.Rev == 0 && c.Ref.RelPath == ""
}
