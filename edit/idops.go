package edit

import "errors"

// ErrDuplicateID marks an add/copy_one whose sender-chosen local id is
// already in use within this edit.
var ErrDuplicateID = errors.New("node id already used in this edit")

// Add introduces a node-branch with a fresh sender-chosen id.
func (t *Txn) Add(localID NodeID, kind Kind, newParentID NodeID, name string, content Content) error {
	if t.done {
		return ErrTerminal
	}
	parent := t.nodes[newParentID]
	if parent == nil || parent.deleted {
		return &PreconditionViolated{Op: "add", Pre: PreParentInTxn, Name: string(newParentID)}
	}
	if _, exists := t.children[newParentID][name]; exists {
		return &PreconditionViolated{Op: "add", Pre: PreNameFree, Name: name}
	}
	if _, exists := t.nodes[localID]; exists {
		return ErrDuplicateID
	}

	full := joinPath(parent.path, name)
	t.nodes[localID] = &node{id: localID, parent: newParentID, name: name, path: full, content: content, sinceRev: t.Base, createdHere: true}
	t.pathIndex[full] = localID
	t.children[localID] = make(map[string]NodeID)
	t.insertChild(newParentID, name, localID)
	return nil
}

// CopyOne non-recursively copies srcID (committed at srcRev, or the
// current txn's final state if srcRev < 0) to a fresh node-branch under
// newParentID. content, if its Kind is set, overrides the source's.
func (t *Txn) CopyOne(localID NodeID, srcRev int64, srcID NodeID, newParentID NodeID, name string, content Content) error {
	if t.done {
		return ErrTerminal
	}
	parent := t.nodes[newParentID]
	if parent == nil || parent.deleted {
		return &PreconditionViolated{Op: "copy_one", Pre: PreParentInTxn, Name: string(newParentID)}
	}
	if _, exists := t.children[newParentID][name]; exists {
		return &PreconditionViolated{Op: "copy_one", Pre: PreNameFree, Name: name}
	}
	if _, exists := t.nodes[localID]; exists {
		return ErrDuplicateID
	}

	base, err := t.sourceContent("copy_one", srcRev, srcID)
	if err != nil {
		return err
	}
	if content.Kind != KindUnknown {
		base = content
	}

	full := joinPath(parent.path, name)
	t.nodes[localID] = &node{id: localID, parent: newParentID, name: name, path: full, content: base, sinceRev: t.Base, createdHere: true}
	t.pathIndex[full] = localID
	t.children[localID] = make(map[string]NodeID)
	t.insertChild(newParentID, name, localID)
	return nil
}

// CopyTree recursively copies srcID's subtree (committed at srcRev, or
// the txn's current state if srcRev < 0) to a fresh, receiver-assigned
// node-branch under newParentID. Committed-revision sources are copied
// shallow only: the minimal Repository oracle resolves content by id,
// not a full child listing (see DESIGN.md).
func (t *Txn) CopyTree(srcRev int64, srcID NodeID, newParentID NodeID, name string) (NodeID, error) {
	if t.done {
		return "", ErrTerminal
	}
	parent := t.nodes[newParentID]
	if parent == nil || parent.deleted {
		return "", &PreconditionViolated{Op: "copy_tree", Pre: PreParentInTxn, Name: string(newParentID)}
	}
	if _, exists := t.children[newParentID][name]; exists {
		return "", &PreconditionViolated{Op: "copy_tree", Pre: PreNameFree, Name: name}
	}

	if srcRev < 0 {
		return t.copySubtree(srcID, newParentID, name)
	}

	base, err := t.sourceContent("copy_tree", srcRev, srcID)
	if err != nil {
		return "", err
	}
	id := t.newID("copy_tree")
	full := joinPath(parent.path, name)
	t.nodes[id] = &node{id: id, parent: newParentID, name: name, path: full, content: base, sinceRev: t.Base, createdHere: true}
	t.pathIndex[full] = id
	t.children[id] = make(map[string]NodeID)
	t.insertChild(newParentID, name, id)
	return id, nil
}

func (t *Txn) sourceContent(op string, srcRev int64, srcID NodeID) (Content, error) {
	if srcRev < 0 {
		src := t.nodes[srcID]
		if src == nil || src.deleted {
			return Content{}, &PreconditionViolated{Op: op, Pre: PreSourceInTxn, Name: string(srcID)}
		}
		return src.content, nil
	}
	c, err := t.repo.ContentByID(srcID, srcRev)
	if err != nil {
		return Content{}, &PreconditionViolated{Op: op, Pre: PreSourceCommitted, Name: string(srcID)}
	}
	return c, nil
}

// Delete removes the node-branch id, based on sinceRev for the OOD check.
func (t *Txn) Delete(sinceRev int64, id NodeID) error {
	if t.done {
		return ErrTerminal
	}
	n := t.nodes[id]
	if n == nil || n.deleted {
		return &PreconditionViolated{Op: "delete", Pre: PreTargetInTxn, Name: string(id)}
	}
	if err := t.checkOOD("delete", n, sinceRev); err != nil {
		return err
	}
	return t.removeSubtree(n)
}

// Alter changes id's tree position and/or content, based on sinceRev
// for the OOD check; may resurrect an extinct node-branch. A no-op
// (no move, no rename, no content) MUST be accepted. A move that would
// reparent id under its own descendant is rejected with ErrCycle.
func (t *Txn) Alter(sinceRev int64, id NodeID, newParentID NodeID, name string, content Content) error {
	if t.done {
		return ErrTerminal
	}
	n := t.nodes[id]
	if n == nil {
		return &PreconditionViolated{Op: "alter", Pre: PreTargetInTxn, Name: string(id)}
	}

	if n.deleted {
		parent := t.nodes[newParentID]
		if parent == nil || parent.deleted {
			return &PreconditionViolated{Op: "alter", Pre: PreParentInTxn, Name: string(newParentID)}
		}
		if _, exists := t.children[newParentID][name]; exists {
			return &PreconditionViolated{Op: "alter", Pre: PreNameFree, Name: name}
		}
		n.deleted = false
		delete(t.removed, n.id)
		n.parent = newParentID
		n.name = name
		n.content = content
		n.sinceRev = t.Base
		full := joinPath(parent.path, name)
		n.path = full
		t.pathIndex[full] = n.id
		if t.children[n.id] == nil {
			t.children[n.id] = make(map[string]NodeID)
		}
		t.insertChild(newParentID, name, n.id)
		return nil
	}

	if err := t.checkOOD("alter", n, sinceRev); err != nil {
		return err
	}

	moved := newParentID != "" && newParentID != n.parent
	renamed := name != "" && name != n.name
	hasContent := content.Kind != KindUnknown

	if !moved && !renamed && !hasContent {
		return nil // no-op, accepted
	}

	if moved || renamed {
		targetParent := n.parent
		if moved {
			targetParent = newParentID
		}
		targetName := n.name
		if renamed {
			targetName = name
		}
		if existing, exists := t.children[targetParent][targetName]; exists && existing != n.id {
			return &PreconditionViolated{Op: "alter", Pre: PreNameFree, Name: targetName}
		}
		if moved && t.isDescendant(n.id, targetParent) {
			return ErrCycle
		}
		delete(t.children[n.parent], n.name)
		n.parent = targetParent
		n.name = targetName
		t.insertChild(targetParent, targetName, n.id)
		t.setPath(n, joinPath(t.nodes[targetParent].path, targetName))
	}

	if hasContent {
		n.content = content
	}
	n.sinceRev = t.Base
	return nil
}
