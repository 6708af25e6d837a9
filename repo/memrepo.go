// Package repo provides the repository and working-copy oracles the
// edit state machine drives: resolving peg paths, fetching content,
// reporting history for out-of-date checks, and committing a finished
// transaction.
package repo

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/svnwire/svnwire/edit"
)

// snapshot is one immutable, committed revision's tree, indexed two
// ways for the two addressing styles edit.Repository must serve. byID
// holds content with Stream always nil; a file's bytes, if any, live in
// data instead, since edit.Content.Stream is documented as lazy,
// finite, and non-restartable and must not be read more than once, but
// a committed node's content is legitimately fetched many times over
// (by Content, ContentByID, and every later Cp/CopyOne/CopyTree source).
type snapshot struct {
	rev    int64
	byPath map[string]edit.NodeID
	byID   map[edit.NodeID]edit.Content
	data   map[edit.NodeID][]byte
}

// materialize drains content.Stream (if present) into a byte slice and
// clears it from the returned Content, so the snapshot never stores a
// live, single-use reader.
func materialize(content edit.Content) (edit.Content, []byte, error) {
	if content.Kind != edit.KindFile || content.Stream == nil {
		return content, nil, nil
	}
	raw, err := io.ReadAll(content.Stream)
	if err != nil {
		return edit.Content{}, nil, err
	}
	content.Stream = nil
	return content, raw, nil
}

// withFreshStream returns content with Stream set to a new reader over
// data, so each fetch of a committed file gets an independent,
// unconsumed reader.
func withFreshStream(content edit.Content, data []byte) edit.Content {
	if data != nil {
		content.Stream = bytes.NewReader(data)
	}
	return content
}

// MemRepo is a concurrency-safe, in-memory Repository: committed
// revisions are immutable snapshots guarded by a mutex on append, plus
// an xsync.MapOf mirror of the latest revision for lock-free concurrent
// reads from connection goroutines — the same thread-safe-map-wrapper
// shape the capability store uses (see caps.Set), generalized here to
// committed-revision node storage instead of capability words.
type MemRepo struct {
	*zerolog.Logger

	mu   sync.RWMutex
	revs []snapshot

	history map[edit.NodeID][]edit.Change

	head *xsync.MapOf[string, edit.NodeID] // byPath mirror of revs[len-1]
}

// NewMemRepo returns a MemRepo seeded with an empty root at revision 0.
func NewMemRepo() *MemRepo {
	root := edit.NodeID("root")
	first := snapshot{
		rev:    0,
		byPath: map[string]edit.NodeID{"": root},
		byID:   map[edit.NodeID]edit.Content{root: {Kind: edit.KindDir}},
		data:   map[edit.NodeID][]byte{},
	}

	r := &MemRepo{
		Logger:  &log.Logger,
		revs:    []snapshot{first},
		history: make(map[edit.NodeID][]edit.Change),
		head:    xsync.NewMapOf[edit.NodeID](),
	}
	r.head.Store("", root)
	return r
}

func (r *MemRepo) snapshotAt(rev int64) (snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rev < 0 || int(rev) >= len(r.revs) {
		return snapshot{}, fmt.Errorf("repo: no such revision %d", rev)
	}
	return r.revs[rev], nil
}

// Resolve locates the node-branch at peg. peg.Rev < 0 resolves against
// the latest committed revision, matching how a txn-base is normally
// expressed once a transaction has not yet diverged from it; that case
// is served from head without taking r.mu, since head is exactly the
// byPath half of the latest snapshot and is safe for concurrent reads
// across connection goroutines.
func (r *MemRepo) Resolve(peg edit.PegPath) (edit.NodeID, error) {
	if peg.Rev < 0 {
		id, ok := r.head.Load(peg.RelPath)
		if !ok {
			return "", fmt.Errorf("repo: no such path %q at head", peg.RelPath)
		}
		return id, nil
	}
	snap, err := r.snapshotAt(peg.Rev)
	if err != nil {
		return "", err
	}
	id, ok := snap.byPath[peg.RelPath]
	if !ok {
		return "", fmt.Errorf("repo: no such path %q at r%d", peg.RelPath, peg.Rev)
	}
	return id, nil
}

// Content fetches a node's content by peg path.
func (r *MemRepo) Content(peg edit.PegPath) (edit.Content, error) {
	id, err := r.Resolve(peg)
	if err != nil {
		return edit.Content{}, err
	}
	rev := peg.Rev
	if rev < 0 {
		r.mu.RLock()
		rev = int64(len(r.revs) - 1)
		r.mu.RUnlock()
	}
	snap, err := r.snapshotAt(rev)
	if err != nil {
		return edit.Content{}, err
	}
	return withFreshStream(snap.byID[id], snap.data[id]), nil
}

// ContentByID fetches a node's content at a committed revision by id.
func (r *MemRepo) ContentByID(id edit.NodeID, rev int64) (edit.Content, error) {
	snap, err := r.snapshotAt(rev)
	if err != nil {
		return edit.Content{}, err
	}
	c, ok := snap.byID[id]
	if !ok {
		return edit.Content{}, fmt.Errorf("repo: no such node %s at r%d", id, rev)
	}
	return withFreshStream(c, snap.data[id]), nil
}

// History reports id's recorded changes after since, oldest first.
func (r *MemRepo) History(id edit.NodeID, since int64) ([]edit.Change, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []edit.Change
	for _, c := range r.history[id] {
		if c.Rev > since {
			out = append(out, c)
		}
	}
	return out, nil
}

// Commit materializes txn's final tree as a new revision. Concurrent
// commits serialize on r.mu; the txn itself was built single-threaded
// on one connection goroutine, so no additional locking is needed on
// the txn side.
//
// Txn.Walk only visits node-branches the transaction actually loaded
// (a path-addressed op traces a relpath and its ancestors forward, but
// never an untouched sibling), so the new revision cannot be rebuilt
// from Walk's output alone — that would silently drop every committed
// path the transaction never referenced. Commit instead starts from a
// copy of the previous revision's snapshot, retracts whatever the txn
// destroyed (Txn.Removed), and overlays what Walk visited on top.
func (r *MemRepo) Commit(txn *edit.Txn) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	newRev := int64(len(r.revs))
	prev := r.revs[newRev-1]

	next := snapshot{
		rev:    newRev,
		byPath: make(map[string]edit.NodeID, len(prev.byPath)),
		byID:   make(map[edit.NodeID]edit.Content, len(prev.byID)),
		data:   make(map[edit.NodeID][]byte, len(prev.data)),
	}
	oldPathByID := make(map[edit.NodeID]string, len(prev.byPath))
	for path, id := range prev.byPath {
		next.byPath[path] = id
		oldPathByID[id] = path
	}
	for id, content := range prev.byID {
		next.byID[id] = content
	}
	for id, data := range prev.data {
		next.data[id] = data
	}

	for _, id := range txn.Removed() {
		if path, ok := oldPathByID[id]; ok {
			delete(next.byPath, path)
		}
		delete(next.byID, id)
		delete(next.data, id)
	}

	var walkErr error
	txn.Walk(func(path string, id edit.NodeID, content edit.Content) {
		if walkErr != nil {
			return
		}
		if oldPath, ok := oldPathByID[id]; ok && oldPath != path {
			delete(next.byPath, oldPath)
		}
		stored, data, err := materialize(content)
		if err != nil {
			walkErr = err
			return
		}
		next.byPath[path] = id
		next.byID[id] = stored
		if data != nil {
			next.data[id] = data
		} else {
			delete(next.data, id)
		}
		r.history[id] = append(r.history[id], edit.Change{Rev: newRev})
	})
	if walkErr != nil {
		return 0, walkErr
	}

	r.revs = append(r.revs, next)
	r.head.Range(func(path string, _ edit.NodeID) bool {
		if _, ok := next.byPath[path]; !ok {
			r.head.Delete(path)
		}
		return true
	})
	for path, id := range next.byPath {
		r.head.Store(path, id)
	}

	if r.Logger != nil {
		r.Logger.Info().Int64("rev", newRev).Msg("committed transaction")
	}
	return newRev, nil
}
