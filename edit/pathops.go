package edit

// Mk creates a fresh node-branch with default empty content under
// parentLoc, named name. Preconditions: [1] parent in txn, [2] name free.
func (t *Txn) Mk(kind Kind, parentLoc TxnPath, name string) (NodeID, error) {
	if t.done {
		return "", ErrTerminal
	}
	parent, err := t.resolveNode(parentLoc, "mk", PreParentInTxn)
	if err != nil {
		return "", err
	}
	if _, exists := t.children[parent.id][name]; exists {
		return "", &PreconditionViolated{Op: "mk", Pre: PreNameFree, Name: name}
	}

	id := t.newID("mk")
	full := joinPath(parent.path, name)
	t.nodes[id] = &node{
		id: id, parent: parent.id, name: name, path: full,
		content: Content{Kind: kind}, sinceRev: t.Base, createdHere: true,
	}
	t.pathIndex[full] = id
	t.children[id] = make(map[string]NodeID)
	t.insertChild(parent.id, name, id)
	return id, nil
}

// Cp copies fromLoc (committed, or in-txn if supported) to a fresh
// node-branch under parentLoc. Preconditions: [1], [2], [3]/[4]. An
// in-txn source is copied recursively; a committed source is copied
// shallow only, and its children are not copied.
func (t *Txn) Cp(fromLoc PegPath, parentLoc TxnPath, name string) (NodeID, error) {
	if t.done {
		return "", ErrTerminal
	}
	parent, err := t.resolveNode(parentLoc, "cp", PreParentInTxn)
	if err != nil {
		return "", err
	}
	if _, exists := t.children[parent.id][name]; exists {
		return "", &PreconditionViolated{Op: "cp", Pre: PreNameFree, Name: name}
	}

	if fromLoc.InTxn() {
		srcID, ok := t.pathIndex[fromLoc.RelPath]
		if !ok {
			return "", &PreconditionViolated{Op: "cp", Pre: PreSourceInTxn, Name: fromLoc.RelPath}
		}
		return t.copySubtree(srcID, parent.id, name)
	}

	_, content, err := t.resolveSource("cp", fromLoc)
	if err != nil {
		return "", err
	}
	id := t.newID("cp")
	full := joinPath(parent.path, name)
	t.nodes[id] = &node{id: id, parent: parent.id, name: name, path: full, content: content, sinceRev: t.Base, createdHere: true}
	t.pathIndex[full] = id
	t.children[id] = make(map[string]NodeID)
	t.insertChild(parent.id, name, id)
	return id, nil
}

// copySubtree recursively copies the live subtree rooted at srcID to a
// fresh node-branch under newParent. Children are marked "copied from"
// their source simply by sharing its content at copy time; subsequent
// edits to either side are independent.
func (t *Txn) copySubtree(srcID NodeID, newParent NodeID, name string) (NodeID, error) {
	src := t.nodes[srcID]
	if src == nil || src.deleted {
		return "", &PreconditionViolated{Op: "cp", Pre: PreSourceInTxn, Name: string(srcID)}
	}

	id := t.newID("cp")
	full := joinPath(t.nodes[newParent].path, name)
	t.nodes[id] = &node{id: id, parent: newParent, name: name, path: full, content: src.content, sinceRev: t.Base, createdHere: true}
	t.pathIndex[full] = id
	t.children[id] = make(map[string]NodeID)
	t.insertChild(newParent, name, id)

	for childName, childID := range t.children[srcID] {
		if _, err := t.copySubtree(childID, id, childName); err != nil {
			return "", err
		}
	}
	return id, nil
}

// Mv moves fromLoc's node-branch to newParentLoc under name, preserving
// its identity. Preconditions: [1], [2], source traced forward via [4];
// the source is also checked out-of-date against fromLoc.Rev and
// rejected with ErrCycle if newParentLoc lies within its own subtree.
func (t *Txn) Mv(fromLoc PegPath, newParentLoc TxnPath, name string) error {
	if t.done {
		return ErrTerminal
	}
	newParent, err := t.resolveNode(newParentLoc, "mv", PreParentInTxn)
	if err != nil {
		return err
	}
	if _, exists := t.children[newParent.id][name]; exists {
		return &PreconditionViolated{Op: "mv", Pre: PreNameFree, Name: name}
	}

	var srcID NodeID
	if fromLoc.InTxn() {
		id, ok := t.pathIndex[fromLoc.RelPath]
		if !ok {
			return &PreconditionViolated{Op: "mv", Pre: PreSourceInTxn, Name: fromLoc.RelPath}
		}
		srcID = id
	} else {
		loaded, err := t.ensureLoaded(fromLoc.RelPath, fromLoc.Rev)
		if err != nil {
			return &PreconditionViolated{Op: "mv", Pre: PreSourceCommitted, Name: fromLoc.RelPath}
		}
		srcID = loaded.id
	}

	src := t.nodes[srcID]
	if src == nil || src.deleted {
		return &PreconditionViolated{Op: "mv", Pre: PreSourceInTxn, Name: string(srcID)}
	}
	if err := t.checkOOD("mv", src, fromLoc.Rev); err != nil {
		return err
	}
	if t.isDescendant(src.id, newParent.id) {
		return ErrCycle
	}

	delete(t.children[src.parent], src.name)
	src.parent = newParent.id
	src.name = name
	t.insertChild(newParent.id, name, srcID)
	t.setPath(src, joinPath(newParent.path, name))
	src.sinceRev = t.Base
	return nil
}

// Res resurrects a previously extinct node-branch at fromLoc under
// parentLoc. Preconditions: [1], [2]; the source must not already exist
// live in the txn.
func (t *Txn) Res(fromLoc PegPath, parentLoc TxnPath, name string) (NodeID, error) {
	if t.done {
		return "", ErrTerminal
	}
	parent, err := t.resolveNode(parentLoc, "res", PreParentInTxn)
	if err != nil {
		return "", err
	}
	if _, exists := t.children[parent.id][name]; exists {
		return "", &PreconditionViolated{Op: "res", Pre: PreNameFree, Name: name}
	}

	id, err := t.repo.Resolve(fromLoc)
	if err != nil {
		return "", &PreconditionViolated{Op: "res", Pre: PreSourceCommitted, Name: fromLoc.RelPath}
	}
	if existing, ok := t.nodes[id]; ok && !existing.deleted {
		return "", &PreconditionViolated{Op: "res", Pre: PreSourceInTxn, Name: string(id)}
	}

	content, err := t.repo.Content(fromLoc)
	if err != nil {
		return "", err
	}

	full := joinPath(parent.path, name)
	t.nodes[id] = &node{id: id, parent: parent.id, name: name, path: full, content: content, sinceRev: t.Base, createdHere: true}
	t.pathIndex[full] = id
	t.children[id] = make(map[string]NodeID)
	t.insertChild(parent.id, name, id)
	delete(t.removed, id)
	return id, nil
}

// Rm recursively removes loc's node-branch. Precondition: [5], checked
// out-of-date against loc.Peg.Rev.
func (t *Txn) Rm(loc TxnPath) error {
	if t.done {
		return ErrTerminal
	}
	n, err := t.resolveNode(loc, "rm", PreTargetInTxn)
	if err != nil {
		return err
	}
	if err := t.checkOOD("rm", n, loc.Peg.Rev); err != nil {
		return err
	}
	return t.removeSubtree(n)
}

// Put sets loc's content, at most once per node-branch per edit.
// Precondition: [5]; the new content's kind must match the existing
// node's kind.
func (t *Txn) Put(loc TxnPath, content Content) error {
	if t.done {
		return ErrTerminal
	}
	n, err := t.resolveNode(loc, "put", PreTargetInTxn)
	if err != nil {
		return err
	}
	if n.putDone {
		return ErrAlreadySet
	}
	if n.content.Kind != KindUnknown && content.Kind != KindUnknown && n.content.Kind != content.Kind {
		return ErrKindMismatch
	}
	n.content = content
	n.putDone = true
	return nil
}
