package edit

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Change is one recorded mutation of a node-branch's own name, parent,
// or content at a given revision, as reported by Repository.History.
type Change struct {
	Rev            int64
	Name           string
	Parent         NodeID
	ContentChanged bool
}

// Repository is the commit-side oracle a Txn drives. It is declared
// here, at the consumer, rather than in package repo: Txn is the only
// caller, and repo's concrete MemRepo depends on edit's types
// already, so declaring the interface in repo would close an import
// cycle only by moving it, not avoiding it.
type Repository interface {
	// Resolve locates the node-branch at peg.
	Resolve(peg PegPath) (NodeID, error)

	// History reports changes to id's own name/parent/content at
	// revisions after since, oldest first.
	History(id NodeID, since int64) ([]Change, error)

	// Content fetches a node's content by peg path.
	Content(peg PegPath) (Content, error)

	// ContentByID fetches a node's content at a committed revision by
	// node-branch id, for the id-addressed style's copy_one/copy_tree,
	// which name sources by node-branch id rather than by path.
	ContentByID(id NodeID, rev int64) (Content, error)

	// Commit attempts to land txn as a new revision.
	Commit(txn *Txn) (int64, error)
}

// WorkingCopy is the update-side oracle: it reports its base state and
// accepts a driver closure that replays edit operations against it to
// reshape it to a new state.
type WorkingCopy interface {
	BaseRevision() (int64, error)
	Drive(drv func(*Txn) error) error
}

// node is one live or extinct node-branch tracked by a Txn.
type node struct {
	id     NodeID
	parent NodeID
	name   string
	path   string // canonical relpath within this txn

	content Content

	sinceRev    int64 // revision this node-branch's own state was last touched
	deleted     bool
	putDone     bool
	createdHere bool
}

// Txn is the in-memory tree an edit session mutates, rooted at Base and
// checked against repo for rebase/out-of-date conflicts.
type Txn struct {
	*zerolog.Logger

	Base       int64
	Permissive bool

	repo Repository

	nodes     map[NodeID]*node
	pathIndex map[string]NodeID
	children  map[NodeID]map[string]NodeID

	rootID  NodeID
	seq     uint64
	removed map[NodeID]bool // node-branches destroyed this txn, for Repository.Commit's forward merge

	done   bool
	result int64
}

// NewTxn opens a transaction founded on base, seeding its root from repo.
func NewTxn(base int64, repo Repository) (*Txn, error) {
	t := &Txn{
		Base:      base,
		repo:      repo,
		nodes:     make(map[NodeID]*node),
		pathIndex: make(map[string]NodeID),
		children:  make(map[NodeID]map[string]NodeID),
		removed:   make(map[NodeID]bool),
	}

	rootID, err := repo.Resolve(PegPath{Rev: base, RelPath: ""})
	if err != nil {
		return nil, err
	}

	t.rootID = rootID
	t.nodes[rootID] = &node{id: rootID, path: "", content: Content{Kind: KindDir}, sinceRev: base}
	t.pathIndex[""] = rootID
	t.children[rootID] = make(map[string]NodeID)
	return t, nil
}

func (t *Txn) newID(prefix string) NodeID {
	t.seq++
	return NodeID(fmt.Sprintf("%s-%d", prefix, t.seq))
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// isDescendant reports whether candidate is id or lies under id in the
// current tree, walking candidate's ancestor chain up to the root. Used
// to reject a reparent that would otherwise leave id's own subtree
// containing its new parent, which would make setPath's recursive
// children-walk loop forever.
func (t *Txn) isDescendant(id, candidate NodeID) bool {
	for cur := candidate; cur != ""; {
		if cur == id {
			return true
		}
		if cur == t.rootID {
			return false
		}
		n := t.nodes[cur]
		if n == nil {
			return false
		}
		cur = n.parent
	}
	return false
}

// setPath updates n's path (and recursively, its descendants') after a
// move or rename, keeping pathIndex consistent.
func (t *Txn) setPath(n *node, newPath string) {
	delete(t.pathIndex, n.path)
	n.path = newPath
	t.pathIndex[newPath] = n.id
	for name, cid := range t.children[n.id] {
		t.setPath(t.nodes[cid], joinPath(newPath, name))
	}
}

func (t *Txn) insertChild(parent NodeID, name string, id NodeID) {
	if t.children[parent] == nil {
		t.children[parent] = make(map[string]NodeID)
	}
	t.children[parent][name] = id
}

// splitPath splits relpath into its parent relpath and final component.
func splitPath(relpath string) (parent, name string) {
	if idx := strings.LastIndexByte(relpath, '/'); idx >= 0 {
		return relpath[:idx], relpath[idx+1:]
	}
	return "", relpath
}

// ensureLoaded returns the txn-tracked node at relpath, as committed at
// rev, lazily pulling it (and any untracked ancestors) in from repo on
// first reference. This is the "trace forward to the current
// transaction" step every path-addressed op requires before it can act.
func (t *Txn) ensureLoaded(relpath string, rev int64) (*node, error) {
	if id, ok := t.pathIndex[relpath]; ok {
		return t.nodes[id], nil
	}
	if relpath == "" {
		return t.nodes[t.rootID], nil
	}

	parentPath, name := splitPath(relpath)
	parent, err := t.ensureLoaded(parentPath, rev)
	if err != nil {
		return nil, err
	}

	id, err := t.repo.Resolve(PegPath{Rev: rev, RelPath: relpath})
	if err != nil {
		return nil, err
	}
	content, err := t.repo.Content(PegPath{Rev: rev, RelPath: relpath})
	if err != nil {
		return nil, err
	}

	n := &node{id: id, parent: parent.id, name: name, path: relpath, content: content, sinceRev: rev}
	t.nodes[id] = n
	t.pathIndex[relpath] = id
	t.children[id] = make(map[string]NodeID)
	t.insertChild(parent.id, name, id)
	return n, nil
}

// resolveNode looks up a live node-branch named by loc, tracing a
// committed peg forward to its current position in the txn if needed.
func (t *Txn) resolveNode(loc TxnPath, op string, pre Precondition) (*node, error) {
	var n *node
	if loc.Peg.InTxn() {
		id, ok := t.pathIndex[loc.Peg.RelPath]
		if !ok {
			return nil, &PreconditionViolated{Op: op, Pre: pre, Name: loc.Peg.RelPath}
		}
		n = t.nodes[id]
	} else {
		loaded, err := t.ensureLoaded(loc.Peg.RelPath, loc.Peg.Rev)
		if err != nil {
			return nil, &PreconditionViolated{Op: op, Pre: pre, Name: loc.Peg.RelPath}
		}
		n = loaded
	}
	if n == nil || n.deleted {
		return nil, &PreconditionViolated{Op: op, Pre: pre, Name: loc.Peg.RelPath}
	}
	if loc.Created == "" {
		return n, nil
	}

	childFull := joinPath(n.path, loc.Created)
	id, ok := t.pathIndex[childFull]
	if !ok {
		return nil, &PreconditionViolated{Op: op, Pre: pre, Name: childFull}
	}
	cn := t.nodes[id]
	if cn == nil || cn.deleted {
		return nil, &PreconditionViolated{Op: op, Pre: pre, Name: childFull}
	}
	return cn, nil
}

// resolveSource locates a copy source, either within the current txn or
// at a committed revision via repo (traced forward as resolveNode does).
func (t *Txn) resolveSource(op string, peg PegPath) (NodeID, Content, error) {
	if peg.InTxn() {
		id, ok := t.pathIndex[peg.RelPath]
		if !ok {
			return "", Content{}, &PreconditionViolated{Op: op, Pre: PreSourceInTxn, Name: peg.RelPath}
		}
		n := t.nodes[id]
		if n == nil || n.deleted {
			return "", Content{}, &PreconditionViolated{Op: op, Pre: PreSourceInTxn, Name: peg.RelPath}
		}
		return id, n.content, nil
	}

	n, err := t.ensureLoaded(peg.RelPath, peg.Rev)
	if err != nil {
		return "", Content{}, &PreconditionViolated{Op: op, Pre: PreSourceCommitted, Name: peg.RelPath}
	}
	return n.id, n.content, nil
}

// removeSubtree marks n and its current children extinct, recursively.
// Children already moved elsewhere are untouched (they are no longer
// reachable from n.id by the time this runs).
func (t *Txn) removeSubtree(n *node) error {
	for _, cid := range t.children[n.id] {
		if err := t.removeSubtree(t.nodes[cid]); err != nil {
			return err
		}
	}
	delete(t.pathIndex, n.path)
	delete(t.children[n.parent], n.name)
	n.deleted = true
	t.removed[n.id] = true
	return nil
}

// Complete attempts to commit the transaction. Further operations are
// rejected afterward regardless of outcome.
func (t *Txn) Complete() (int64, error) {
	if t.done {
		return 0, ErrTerminal
	}
	t.done = true

	rev, err := t.repo.Commit(t)
	if err != nil {
		return 0, err
	}
	t.result = rev
	return rev, nil
}

// Abort discards the transaction. Further operations are rejected.
func (t *Txn) Abort() error {
	if t.done {
		return ErrTerminal
	}
	t.done = true
	return nil
}

// Done reports whether complete/abort has already run.
func (t *Txn) Done() bool { return t.done }

// Removed reports the node-branch ids this transaction destroyed and did
// not resurrect, so a Repository.Commit can retract them from the prior
// revision's snapshot instead of relying solely on Walk, which only
// covers node-branches this transaction actually loaded.
func (t *Txn) Removed() []NodeID {
	ids := make([]NodeID, 0, len(t.removed))
	for id := range t.removed {
		ids = append(ids, id)
	}
	return ids
}

// Walk depth-first visits every live node-branch this transaction has
// loaded or created, root first, giving an oracle's Commit what it
// needs to materialize a new revision without reaching into Txn's
// internals. Committed node-branches the transaction never loaded are
// not visited.
func (t *Txn) Walk(fn func(path string, id NodeID, content Content)) {
	var visit func(id NodeID, path string)
	visit = func(id NodeID, path string) {
		n := t.nodes[id]
		if n == nil || n.deleted {
			return
		}
		fn(path, id, n.content)
		for name, cid := range t.children[id] {
			visit(cid, joinPath(path, name))
		}
	}
	visit(t.rootID, "")
}
