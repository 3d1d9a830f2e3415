package outline

// Cascade policy: every delete is checked against the live portal registry.
//
// The default path needs no explicit sweep here. Each mirror subscribes to
// its source document, and delete commits dispatch Deleted events
// synchronously, so a mirror whose source block is removed transitions to
// orphaned before the deleting operation returns (PortalMirror.onSourceChange).
// Orphaned portals stay in place so the user keeps their placement context.
//
// The explicit "delete subtree including dependents" action is the one case
// where dependent portals are removed instead of orphaned; the engine calls
// deleteDependents after its own commit.

// mirrorsSourcedAt returns live mirrors whose source block is one of the
// given ids in the given document.
func (ws *Workspace) mirrorsSourcedAt(doc DocumentID, ids []BlockID) []*PortalMirror {
	set := make(map[BlockID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	var out []*PortalMirror
	for _, m := range ws.mirrors {
		if m.disposed || m.sourceDoc != doc {
			continue
		}
		if _, hit := set[m.sourceBlock]; hit {
			out = append(out, m)
		}
	}
	return out
}

// deleteDependents removes the portal blocks of every mirror sourced at one
// of the deleted ids. Portal blocks own no structural children, so a plain
// delete-with-reparent suffices; the mirror disposes itself when it observes
// its host block's deletion.
func (ws *Workspace) deleteDependents(doc DocumentID, deleted []BlockID) {
	for _, m := range ws.mirrorsSourcedAt(doc, deleted) {
		host := m.viewDoc
		if host.closed {
			continue
		}
		host.Engine().DeleteWithReparent(m.block)
	}
}
