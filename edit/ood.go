package edit

// checkOOD enforces that a node-branch's own name, parent, and content
// must be unchanged since sinceRev, and that it must not have been
// created or deleted since then. Intervening changes to its parents or
// children never block the edit.
func (t *Txn) checkOOD(op string, n *node, sinceRev int64) error {
	if sinceRev < 0 {
		return nil // sender asserts no base constraint
	}

	changes, err := t.repo.History(n.id, sinceRev)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	last := changes[len(changes)-1]
	if t.Permissive && permissiveNullMerge(changes) {
		return nil
	}
	return &OutOfDate{Op: op, ID: n.id, SinceRev: sinceRev, ChangedAt: last.Rev}
}

// permissiveNullMerge reports whether an intervening history can be
// treated as a null merge under the permissive policy: two conflicting
// changes with identical effect may be accepted. A conservative
// reading: only a single intervening change, since without the
// caller's proposed final state in hand here there is no way to
// compare effects beyond that.
func permissiveNullMerge(changes []Change) bool {
	return len(changes) == 1
}
