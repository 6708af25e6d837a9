// Package caps implements capability negotiation for a svnwire
// connection: a thread-safe set of named boolean flags, exchanged once
// during the greeting exchange before the command dispatch loop starts.
package caps

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Well-known capability words. Advertise only the ones a server
// implementation actually supports; unrecognized words from a peer are
// stored but never acted on.
const (
	EditPipeline      = "edit-pipeline"
	SVNDiff1          = "svndiff1"
	AbsentEntries     = "absent-entries"
	Depth             = "depth"
	MergeInfo         = "mergeinfo"
	LogRevProps       = "log-revprops"
	PartialReplay     = "partial-replay"
	InheritedProps    = "inherited-props"
	EphemeralTxnProps = "ephemeral-txnprops"

	// TxnSourceCopy advertises that copy operations inside the tree-edit
	// state machine may source from the transaction currently being
	// built, not only from already-committed revisions.
	TxnSourceCopy = "txn-source-copy"

	// PermissiveMerge advertises that alter/delete preconditions accept
	// a rebase onto intervening same-branch changes instead of failing
	// out of date (see edit.Txn.Permissive).
	PermissiveMerge = "permissive-merge"
)

// Set is a thread-safe collection of capability words, each either
// present (supported/requested) or absent. It may contain words this
// package does not know about; names are matched verbatim.
type Set struct {
	db *xsync.MapOf[string, bool]
}

// Init makes s fully usable. Safe to call multiple times; subsequent
// calls are no-ops.
func (s *Set) Init() {
	if s.db == nil {
		s.db = xsync.NewMapOf[bool]()
	}
}

// Valid reports whether s has been initialized.
func (s *Set) Valid() bool {
	return s.db != nil
}

// NewSet returns an initialized, empty Set.
func NewSet() *Set {
	s := &Set{}
	s.Init()
	return s
}

// Add marks name as present.
func (s *Set) Add(name string) {
	s.Init()
	s.db.Store(name, true)
}

// Drop removes name from the set.
func (s *Set) Drop(name string) {
	if s.Valid() {
		s.db.Delete(name)
	}
}

// Has reports whether name is present in s.
func (s *Set) Has(name string) bool {
	if !s.Valid() {
		return false
	}
	v, _ := s.db.Load(name)
	return v
}

// Len returns the number of capabilities in s.
func (s *Set) Len() int {
	if !s.Valid() {
		return 0
	}
	return s.db.Size()
}

// Names returns the capability words in s, sorted.
func (s *Set) Names() []string {
	if !s.Valid() {
		return nil
	}
	names := make([]string, 0, s.db.Size())
	s.db.Range(func(name string, _ bool) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Intersect returns the capability words present in both s and other,
// the set a server and client can both rely on after negotiation.
func (s *Set) Intersect(other *Set) *Set {
	out := NewSet()
	if !s.Valid() || !other.Valid() {
		return out
	}
	s.db.Range(func(name string, _ bool) bool {
		if other.Has(name) {
			out.Add(name)
		}
		return true
	})
	return out
}
