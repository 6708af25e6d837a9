package repo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/svnwire/svnwire/edit"
)

func TestNewMemRepoSeedsEmptyRoot(t *testing.T) {
	r := NewMemRepo()
	id, err := r.Resolve(edit.PegPath{Rev: 0, RelPath: ""})
	require.NoError(t, err)

	c, err := r.Content(edit.PegPath{Rev: 0, RelPath: ""})
	require.NoError(t, err)
	require.Equal(t, edit.KindDir, c.Kind)

	c2, err := r.ContentByID(id, 0)
	require.NoError(t, err)
	require.Equal(t, c, c2)
}

func TestCommitRoundTripsThroughTxn(t *testing.T) {
	r := NewMemRepo()
	txn, err := edit.NewTxn(0, r)
	require.NoError(t, err)

	root := edit.TxnPath{Peg: edit.PegPath{Rev: 0, RelPath: ""}}
	id, err := txn.Mk(edit.KindFile, root, "a")
	require.NoError(t, err)

	loc := edit.TxnPath{Peg: edit.PegPath{Rev: 0, RelPath: ""}, Created: "a"}
	require.NoError(t, txn.Put(loc, edit.Content{Kind: edit.KindFile, Props: map[string][]byte{}}))

	rev, err := txn.Complete()
	require.NoError(t, err)
	require.Equal(t, int64(1), rev)

	gotID, err := r.Resolve(edit.PegPath{Rev: rev, RelPath: "a"})
	require.NoError(t, err)
	require.Equal(t, id, gotID)

	c, err := r.ContentByID(id, rev)
	require.NoError(t, err)
	require.Equal(t, edit.KindFile, c.Kind)
}

func TestHistoryReportsCommitsAfterSince(t *testing.T) {
	r := NewMemRepo()

	txn1, err := edit.NewTxn(0, r)
	require.NoError(t, err)
	root := edit.TxnPath{Peg: edit.PegPath{Rev: 0, RelPath: ""}}
	id, err := txn1.Mk(edit.KindDir, root, "p")
	require.NoError(t, err)
	rev1, err := txn1.Complete()
	require.NoError(t, err)

	txn2, err := edit.NewTxn(rev1, r)
	require.NoError(t, err)
	pLoc := edit.TxnPath{Peg: edit.PegPath{Rev: rev1, RelPath: "p"}}
	require.NoError(t, txn2.Put(pLoc, edit.Content{Kind: edit.KindDir, Props: map[string][]byte{"k": []byte("v")}}))
	rev2, err := txn2.Complete()
	require.NoError(t, err)

	changes, err := r.History(id, 0)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.Equal(t, rev1, changes[0].Rev)
	require.Equal(t, rev2, changes[1].Rev)

	changes, err = r.History(id, rev1)
	require.NoError(t, err)
	require.Len(t, changes, 1)
}

func TestResolveUnknownRevisionFails(t *testing.T) {
	r := NewMemRepo()
	_, err := r.Resolve(edit.PegPath{Rev: 5, RelPath: ""})
	require.Error(t, err)
}
