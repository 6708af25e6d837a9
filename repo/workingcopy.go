package repo

import (
	"sync"

	"github.com/svnwire/svnwire/edit"
)

// MemWorkingCopy is a trivial in-memory WorkingCopy: it remembers only
// the revision it last synced to and opens a fresh Txn against a
// Repository for each drive. Reshaping an actual on-disk working-copy
// administrative store is out of scope; this exists so update-style
// drives have an oracle to report a base revision to and commit a new
// one against.
type MemWorkingCopy struct {
	repo edit.Repository

	mu   sync.Mutex
	base int64
}

// NewMemWorkingCopy returns a working copy checked out at base.
func NewMemWorkingCopy(repo edit.Repository, base int64) *MemWorkingCopy {
	return &MemWorkingCopy{repo: repo, base: base}
}

func (w *MemWorkingCopy) BaseRevision() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.base, nil
}

// Drive opens a Txn founded on the working copy's current base, runs
// drv against it, and on success commits it and advances the base to
// the resulting revision.
func (w *MemWorkingCopy) Drive(drv func(*edit.Txn) error) error {
	base, err := w.BaseRevision()
	if err != nil {
		return err
	}

	txn, err := edit.NewTxn(base, w.repo)
	if err != nil {
		return err
	}
	if err := drv(txn); err != nil {
		return err
	}

	rev, err := txn.Complete()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.base = rev
	w.mu.Unlock()
	return nil
}
