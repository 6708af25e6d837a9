package edit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRepo is a minimal in-memory Repository fixture for edit tests. It
// keeps one flat snapshot of committed paths/content/history, enough to
// drive the scenarios below without a real repository filesystem.
type fakeRepo struct {
	rev      int64
	pathToID map[string]NodeID
	content  map[NodeID]Content
	history  map[NodeID][]Change

	commits []*Txn
}

func newFakeRepo() *fakeRepo {
	r := &fakeRepo{
	rev:      5,
		pathToID: map[string]NodeID{"": "root"},
		content:  map[NodeID]Content{"root": {Kind: KindDir}},
		history:  map[NodeID][]Change{},
	}
	return r
}

func (r *fakeRepo) addCommitted(path string, id NodeID, c Content) {
	r.pathToID[path] = id
	r.content[id] = c
}

func (r *fakeRepo) Resolve(peg PegPath) (NodeID, error) {
	id, ok := r.pathToID[peg.RelPath]
	if !ok {
	return "", fmt.Errorf("fakeRepo: no such path %q", peg.RelPath)
	}
	return id, nil
}

func (r *fakeRepo) Content(peg PegPath) (Content, error) {
	id, err := r.Resolve(peg)
	if err != nil {
	return Content{}, err
	}
	return r.content[id], nil
}

func (r *fakeRepo) ContentByID(id NodeID, rev int64) (Content, error) {
	c, ok := r.content[id]
	if !ok {
	return Content{}, fmt.Errorf("fakeRepo: no such node %s", id)
	}
	return c, nil
}

func (r *fakeRepo) History(id NodeID, since int64) ([]Change, error) {
	var out []Change
	for _, c := range r.history[id] {
	if c.Rev > since {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) Commit(txn *Txn) (int64, error) {
	r.rev++
	r.commits = append(r.commits, txn)
	return r.rev, nil
}

func TestMkNamePrecondition(t *testing.T) {
	repo := newFakeRepo()
	txn, err := NewTxn(5, repo)
	require.NoError(t, err)

	root := TxnPath{Peg: PegPath{Rev: -1, RelPath: ""}}
	_, err = txn.Mk(KindDir, root, "a")
	require.NoError(t, err)

	_, err = txn.Mk(KindFile, root, "a")
	var pv *PreconditionViolated
	require.ErrorAs(t, err, &pv)
	require.Equal(t, PreNameFree, pv.Pre)
}

func TestPathStyleCreateAndPopulate(t *testing.T) {
	repo := newFakeRepo()
	repo.addCommitted("trunk", "trunk-0", Content{Kind: KindDir})

	txn, err := NewTxn(5, repo)
	require.NoError(t, err)

	trunkAt5 := TxnPath{Peg: PegPath{Rev: 5, RelPath: "trunk"}}
	_, err = txn.Mk(KindFile, trunkAt5, "a")
	require.NoError(t, err)

	aLoc := TxnPath{Peg: PegPath{Rev: 5, RelPath: "trunk"}, Created: "a"}
	err = txn.Put(aLoc, Content{Kind: KindFile, Props: map[string][]byte{}, HasChecksum: true})
	require.NoError(t, err)

	rev, err := txn.Complete()
	require.NoError(t, err)
	require.Equal(t, int64(6), rev)
}

func TestPutRejectsSecondCallAndKindMismatch(t *testing.T) {
	repo := newFakeRepo()
	txn, err := NewTxn(5, repo)
	require.NoError(t, err)

	root := TxnPath{Peg: PegPath{Rev: -1, RelPath: ""}}
	_, err = txn.Mk(KindFile, root, "a")
	require.NoError(t, err)

	aLoc := TxnPath{Peg: PegPath{Rev: -1, RelPath: "a"}}
	require.NoError(t, txn.Put(aLoc, Content{Kind: KindFile}))
	require.ErrorIs(t, txn.Put(aLoc, Content{Kind: KindFile}), ErrAlreadySet)

	_, err = txn.Mk(KindDir, root, "b")
	require.NoError(t, err)
	bLoc := TxnPath{Peg: PegPath{Rev: -1, RelPath: "b"}}
	require.ErrorIs(t, txn.Put(bLoc, Content{Kind: KindFile}), ErrKindMismatch)
}

func TestIdStyleAlterMove(t *testing.T) {
	repo := newFakeRepo()
	repo.addCommitted("p", "P", Content{Kind: KindDir})
	repo.addCommitted("q", "Q", Content{Kind: KindDir})
	repo.addCommitted("p/a", "X", Content{Kind: KindFile})
	// no history entries after r5: X has not changed since r5

	txn, err := NewTxn(5, repo)
	require.NoError(t, err)

	// pull P, Q, X into the txn by touching their paths
	_, err = txn.ensureLoaded("p", 5)
	require.NoError(t, err)
	_, err = txn.ensureLoaded("q", 5)
	require.NoError(t, err)
	_, err = txn.ensureLoaded("p/a", 5)
	require.NoError(t, err)

	err = txn.Alter(5, "X", "Q", "b", Content{})
	require.NoError(t, err)

	bLoc := TxnPath{Peg: PegPath{Rev: -1, RelPath: "q/b"}}
	n, err := txn.resolveNode(bLoc, "check", PreTargetInTxn)
	require.NoError(t, err)
	require.Equal(t, NodeID("X"), n.id)
}

func TestIdStyleAlterOutOfDate(t *testing.T) {
	repo := newFakeRepo()
	repo.addCommitted("p", "P", Content{Kind: KindDir})
	repo.addCommitted("q", "Q", Content{Kind: KindDir})
	repo.addCommitted("p/a", "X", Content{Kind: KindFile})
	repo.history["X"] = []Change{{Rev: 7, Name: "a2", Parent: "P"}}

	txn, err := NewTxn(8, repo)
	require.NoError(t, err)
	_, err = txn.ensureLoaded("p", 8)
	require.NoError(t, err)
	_, err = txn.ensureLoaded("q", 8)
	require.NoError(t, err)
	_, err = txn.ensureLoaded("p/a", 8)
	require.NoError(t, err)

	err = txn.Alter(5, "X", "Q", "b", Content{})
	var ood *OutOfDate
	require.ErrorAs(t, err, &ood)
	require.Equal(t, int64(7), ood.ChangedAt)
}

func TestMvOutOfDate(t *testing.T) {
	repo := newFakeRepo()
	repo.addCommitted("p", "P", Content{Kind: KindDir})
	repo.addCommitted("q", "Q", Content{Kind: KindDir})
	repo.addCommitted("p/a", "X", Content{Kind: KindFile})
	repo.history["X"] = []Change{{Rev: 7, Name: "a2", Parent: "P"}}

	txn, err := NewTxn(8, repo)
	require.NoError(t, err)

	from := PegPath{Rev: 5, RelPath: "p/a"}
	newParent := TxnPath{Peg: PegPath{Rev: 8, RelPath: "q"}}
	err = txn.Mv(from, newParent, "b")
	var ood *OutOfDate
	require.ErrorAs(t, err, &ood)
	require.Equal(t, int64(7), ood.ChangedAt)
}

func TestRmOutOfDate(t *testing.T) {
	repo := newFakeRepo()
	repo.addCommitted("p", "P", Content{Kind: KindDir})
	repo.addCommitted("p/a", "X", Content{Kind: KindFile})
	repo.history["X"] = []Change{{Rev: 7, Name: "a2", Parent: "P"}}

	txn, err := NewTxn(8, repo)
	require.NoError(t, err)

	loc := TxnPath{Peg: PegPath{Rev: 5, RelPath: "p/a"}}
	err = txn.Rm(loc)
	var ood *OutOfDate
	require.ErrorAs(t, err, &ood)
	require.Equal(t, int64(7), ood.ChangedAt)
}

func TestAlterReparentUnderOwnDescendantRejected(t *testing.T) {
	repo := newFakeRepo()
	txn, err := NewTxn(5, repo)
	require.NoError(t, err)

	root := TxnPath{Peg: PegPath{Rev: -1, RelPath: ""}}
	a, err := txn.Mk(KindDir, root, "a")
	require.NoError(t, err)
	aLoc := TxnPath{Peg: PegPath{Rev: -1, RelPath: "a"}}
	b, err := txn.Mk(KindDir, aLoc, "b")
	require.NoError(t, err)

	err = txn.Alter(-1, a, b, "", Content{})
	require.ErrorIs(t, err, ErrCycle)

	// the tree must be untouched: "a/b" still resolves to b
	bAfter := TxnPath{Peg: PegPath{Rev: -1, RelPath: "a/b"}}
	n, err := txn.resolveNode(bAfter, "check", PreTargetInTxn)
	require.NoError(t, err)
	require.Equal(t, b, n.id)
}

func TestMvUnderOwnDescendantRejected(t *testing.T) {
	repo := newFakeRepo()
	txn, err := NewTxn(5, repo)
	require.NoError(t, err)

	root := TxnPath{Peg: PegPath{Rev: -1, RelPath: ""}}
	_, err = txn.Mk(KindDir, root, "a")
	require.NoError(t, err)
	aLoc := TxnPath{Peg: PegPath{Rev: -1, RelPath: "a"}}
	_, err = txn.Mk(KindDir, aLoc, "b")
	require.NoError(t, err)

	bLoc := TxnPath{Peg: PegPath{Rev: -1, RelPath: "a/b"}}
	err = txn.Mv(PegPath{Rev: -1, RelPath: "a"}, bLoc, "a")
	require.ErrorIs(t, err, ErrCycle)
}

func TestAlterNoOpAccepted(t *testing.T) {
	repo := newFakeRepo()
	repo.addCommitted("p/a", "X", Content{Kind: KindFile})
	repo.addCommitted("p", "P", Content{Kind: KindDir})

	txn, err := NewTxn(5, repo)
	require.NoError(t, err)
	_, err = txn.ensureLoaded("p", 5)
	require.NoError(t, err)
	_, err = txn.ensureLoaded("p/a", 5)
	require.NoError(t, err)

	require.NoError(t, txn.Alter(5, "X", "", "", Content{}))
}

func TestDeleteFreesNameForNewNode(t *testing.T) {
	repo := newFakeRepo()
	txn, err := NewTxn(5, repo)
	require.NoError(t, err)

	root := TxnPath{Peg: PegPath{Rev: -1, RelPath: ""}}
	id, err := txn.Mk(KindFile, root, "a")
	require.NoError(t, err)

	require.NoError(t, txn.Delete(-1, id))

	_, err = txn.Mk(KindFile, root, "a") // name free again after delete
	require.NoError(t, err)
}

func TestRmRecursiveLeavesMovedChildIntact(t *testing.T) {
	repo := newFakeRepo()
	txn, err := NewTxn(5, repo)
	require.NoError(t, err)

	root := TxnPath{Peg: PegPath{Rev: -1, RelPath: ""}}
	_, err = txn.Mk(KindDir, root, "dir")
	require.NoError(t, err)
	dirLoc := TxnPath{Peg: PegPath{Rev: -1, RelPath: "dir"}}
	_, err = txn.Mk(KindFile, dirLoc, "keep")
	require.NoError(t, err)
	_, err = txn.Mk(KindFile, dirLoc, "drop")
	require.NoError(t, err)

	// move "keep" out before removing "dir"
	keepLoc := PegPath{Rev: -1, RelPath: "dir/keep"}
	require.NoError(t, txn.Mv(keepLoc, root, "keep"))

	require.NoError(t, txn.Rm(dirLoc))

	keepAfter := TxnPath{Peg: PegPath{Rev: -1, RelPath: "keep"}}
	_, err = txn.resolveNode(keepAfter, "check", PreTargetInTxn)
	require.NoError(t, err)

	dropAfter := TxnPath{Peg: PegPath{Rev: -1, RelPath: "dir/drop"}}
	_, err = txn.resolveNode(dropAfter, "check", PreTargetInTxn)
	require.Error(t, err)
}

func TestCpRecursiveCopiesChildren(t *testing.T) {
	repo := newFakeRepo()
	txn, err := NewTxn(5, repo)
	require.NoError(t, err)

	root := TxnPath{Peg: PegPath{Rev: -1, RelPath: ""}}
	_, err = txn.Mk(KindDir, root, "src")
	require.NoError(t, err)
	srcLoc := TxnPath{Peg: PegPath{Rev: -1, RelPath: "src"}}
	_, err = txn.Mk(KindFile, srcLoc, "f")
	require.NoError(t, err)

	_, err = txn.Cp(PegPath{Rev: -1, RelPath: "src"}, root, "dst")
	require.NoError(t, err)

	copied := TxnPath{Peg: PegPath{Rev: -1, RelPath: "dst/f"}}
	_, err = txn.resolveNode(copied, "check", PreTargetInTxn)
	require.NoError(t, err)
}

func TestOperationsRejectedAfterTerminal(t *testing.T) {
	repo := newFakeRepo()
	txn, err := NewTxn(5, repo)
	require.NoError(t, err)
	require.NoError(t, txn.Abort())

	root := TxnPath{Peg: PegPath{Rev: -1, RelPath: ""}}
	_, err = txn.Mk(KindDir, root, "a")
	require.ErrorIs(t, err, ErrTerminal)
}

func TestDistinctMkIdentitiesAreUnique(t *testing.T) {
	repo := newFakeRepo()
	txn, err := NewTxn(5, repo)
	require.NoError(t, err)

	root := TxnPath{Peg: PegPath{Rev: -1, RelPath: ""}}
	a, err := txn.Mk(KindFile, root, "a")
	require.NoError(t, err)
	b, err := txn.Mk(KindFile, root, "b")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
