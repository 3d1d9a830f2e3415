package outline

// EditContext carries the cursor/selection state into every mutation
// operation. There is no ambient focus state: the caller passes the active
// block, the rune offset within its text, and the active selection length.
type EditContext struct {
	Block     BlockID
	Offset    int
	Selection int
}

// CursorHint tells the caller where the cursor should land after an applied
// operation.
type CursorHint struct {
	Block  BlockID
	Offset int
}

// Outcome classifies the result of a mutation operation.
type Outcome int

const (
	// OutcomeApplied means the operation committed and the cursor hint is valid.
	OutcomeApplied Outcome = iota

	// OutcomeNoOp means the operation had nothing to do. Referencing a block
	// that no longer exists is always a no-op, never a fault.
	OutcomeNoOp

	// OutcomeRejected means the operation was refused and the tree is unchanged.
	OutcomeRejected

	// OutcomeQueued means the operation was requested during notification
	// dispatch and will be applied after the current transaction completes.
	OutcomeQueued
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNoOp:
		return "no-op"
	case OutcomeRejected:
		return "rejected"
	case OutcomeQueued:
		return "queued"
	default:
		return "unknown"
	}
}

// Result is the outcome of one mutation operation.
type Result struct {
	Outcome Outcome
	Cursor  CursorHint
	Err     error
}

func applied(block BlockID, offset int) Result {
	return Result{Outcome: OutcomeApplied, Cursor: CursorHint{Block: block, Offset: offset}}
}

func noOp() Result {
	return Result{Outcome: OutcomeNoOp}
}

func rejected(err error) Result {
	return Result{Outcome: OutcomeRejected, Err: err}
}

// Placement is the relative drop position of a move operation.
type Placement int

const (
	// PlaceBefore inserts the dragged block immediately before the target.
	PlaceBefore Placement = iota

	// PlaceAfter inserts the dragged block immediately after the target.
	PlaceAfter

	// PlaceInside appends the dragged block as the target's last child.
	PlaceInside
)

// MutationEngine implements the structural operations as atomic,
// invariant-preserving transactions over the document's block tree.
type MutationEngine struct {
	doc *Document
}

// run executes one operation as a transaction. Calls made while the document
// is dispatching change notifications are queued and applied after the
// current transaction completes, to avoid reentrant invariant violations.
func (e *MutationEngine) run(name string, fn func() Result) Result {
	d := e.doc
	if d.closed {
		return rejected(ErrDocumentClosed)
	}
	if d.dispatching {
		d.pending = append(d.pending, pendingOp{name: name, fn: fn})
		return Result{Outcome: OutcomeQueued}
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	res := e.exec(name, fn)
	for len(d.pending) > 0 {
		next := d.pending[0]
		d.pending = d.pending[1:]
		e.exec(next.name, next.fn)
	}
	return res
}

// exec wraps fn in a transaction: rejected and no-op results roll back (they
// must leave no visible mutation), applied results commit. A commit-time
// invariant failure downgrades the result to rejected.
func (e *MutationEngine) exec(name string, fn func() Result) Result {
	t := e.doc.tree
	t.begin(name)
	res := fn()
	if res.Outcome != OutcomeApplied {
		t.rollback()
		return res
	}
	if err := t.commit(); err != nil {
		return rejected(err)
	}
	return res
}

// newBlock creates and registers a fresh block inside an open transaction.
func (e *MutationEngine) newBlock(kind BlockKind, text string) *Block {
	b := &Block{
		id:       newBlockID(),
		kind:     kind,
		text:     e.doc.newCell([]byte(text)),
		expanded: true,
		version:  1,
	}
	// A freshly generated uuid cannot collide with a live or deleted id.
	_ = e.doc.tree.register(b)
	return b
}

// childEventTarget returns the block id to report a ChildrenChanged event
// against. A parent id of "" (top level) is reported as the empty id, which
// by convention refers to the document's root list.
func childEventTarget(parent BlockID) BlockID {
	return parent
}

func clampOffset(off, max int) int {
	if off < 0 {
		return 0
	}
	if off > max {
		return max
	}
	return off
}

// splitKind returns the kind for the continuation block created by a split.
// Bullets and headings continue as themselves; descriptors and portals do
// not split into a second descriptor/portal.
func splitKind(k BlockKind) BlockKind {
	switch k {
	case KindBullet, KindHeading:
		return k
	case KindDescriptor, KindPortal:
		return KindBullet
	default:
		return KindBullet
	}
}

// Split divides a block at a text offset.
//
// At end-of-text the result depends on children: a childless block gains a
// new empty sibling immediately after it, while a block with children gains a
// new empty first child instead (entering content "inside" continues under,
// not after, existing children). An interior offset moves the suffix text to
// a new sibling; the children stay attached to the original block. The
// empty-nested-block case (offset 0, empty text, non-root parent) belongs to
// Outdent and is a no-op here.
func (e *MutationEngine) Split(ctx EditContext) Result {
	return e.run("split", func() Result {
		t := e.doc.tree
		b, ok := t.Get(ctx.Block)
		if !ok {
			return noOp()
		}
		off := clampOffset(ctx.Offset, b.text.Len())

		if off == 0 && b.text.Len() == 0 && b.parent != "" {
			return noOp()
		}

		if off == b.text.Len() {
			nb := e.newBlock(splitKind(b.kind), "")
			if len(b.children) == 0 {
				sibs := t.siblingsOf(b)
				i := indexIn(sibs, b.id)
				if err := t.attach(nb.id, b.parent, i+1); err != nil {
					return rejected(err)
				}
				t.record(childEventTarget(b.parent), ChildrenChanged)
			} else {
				if err := t.attach(nb.id, b.id, 0); err != nil {
					return rejected(err)
				}
				t.record(b.id, ChildrenChanged)
			}
			return applied(nb.id, 0)
		}

		suffix, err := b.text.SplitAt(off)
		if err != nil {
			return rejected(err)
		}
		b.version++
		t.record(b.id, TextChanged)

		nb := e.newBlock(splitKind(b.kind), suffix)
		sibs := t.siblingsOf(b)
		i := indexIn(sibs, b.id)
		if err := t.attach(nb.id, b.parent, i+1); err != nil {
			return rejected(err)
		}
		t.record(childEventTarget(b.parent), ChildrenChanged)
		return applied(nb.id, 0)
	})
}

// mergeTarget resolves the block the user visually perceives as "the line
// above": the previous sibling's last visible descendant (descending into the
// last child only while expanded), or the parent when no previous sibling
// exists. Returns nil when neither exists.
func (e *MutationEngine) mergeTarget(b *Block) (target *Block, viaParent bool) {
	t := e.doc.tree
	sibs := t.siblingsOf(b)
	i := indexIn(sibs, b.id)
	if i > 0 {
		cur, ok := t.Get(sibs[i-1])
		if !ok {
			return nil, false
		}
		for cur.expanded && len(cur.children) > 0 {
			next, ok := t.Get(cur.children[len(cur.children)-1])
			if !ok {
				break
			}
			cur = next
		}
		return cur, false
	}
	if b.parent != "" {
		p, ok := t.Get(b.parent)
		if !ok {
			return nil, false
		}
		return p, true
	}
	return nil, false
}

// MergeStart merges a block into the line above it (backspace at offset 0).
//
// The block's text is appended to the merge target and the block is deleted;
// its children are reparented first, never deleted with it. With an active
// non-empty selection the structural merge is skipped entirely (selection
// deletion takes precedence; see DeleteText). A first top-level block is a
// no-op.
func (e *MutationEngine) MergeStart(ctx EditContext) Result {
	if ctx.Selection > 0 {
		return noOp()
	}
	return e.run("merge-start", func() Result {
		t := e.doc.tree
		b, ok := t.Get(ctx.Block)
		if !ok {
			return noOp()
		}
		target, viaParent := e.mergeTarget(b)
		if target == nil {
			return noOp()
		}

		// Snapshot everything needed from b before it is removed.
		srcText := b.text.String()
		srcChildren := b.Children()

		mergePoint := target.text.Len()
		target.text.Append(srcText)
		target.version++
		t.record(target.id, TextChanged)

		// Reparent before deletion.
		if len(srcChildren) > 0 {
			if viaParent {
				// Children take b's place in the parent's child list.
				pos := indexIn(target.children, b.id)
				for k, cid := range srcChildren {
					if _, _, err := t.detach(cid); err != nil {
						return rejected(err)
					}
					if err := t.attach(cid, target.id, pos+1+k); err != nil {
						return rejected(err)
					}
				}
				t.record(target.id, ChildrenChanged)
			} else {
				// Children become children of the target's parent,
				// immediately after the target.
				tSibs := t.siblingsOf(target)
				pos := indexIn(tSibs, target.id)
				for k, cid := range srcChildren {
					if _, _, err := t.detach(cid); err != nil {
						return rejected(err)
					}
					if err := t.attach(cid, target.parent, pos+1+k); err != nil {
						return rejected(err)
					}
				}
				t.record(childEventTarget(target.parent), ChildrenChanged)
			}
		}

		former := b.parent
		if _, _, err := t.detach(b.id); err != nil {
			return rejected(err)
		}
		if err := t.remove(b.id); err != nil {
			return rejected(err)
		}
		t.record(b.id, Deleted)
		t.record(childEventTarget(former), ChildrenChanged)

		return applied(target.id, mergePoint)
	})
}

// MergeEnd merges the next sibling's text into this block (delete at end of
// text). The next sibling's children become children of this block's parent,
// immediately after this block, preserving order. No next sibling is a no-op.
func (e *MutationEngine) MergeEnd(ctx EditContext) Result {
	return e.run("merge-end", func() Result {
		t := e.doc.tree
		b, ok := t.Get(ctx.Block)
		if !ok {
			return noOp()
		}
		sibs := t.siblingsOf(b)
		i := indexIn(sibs, b.id)
		if i < 0 || i+1 >= len(sibs) {
			return noOp()
		}
		src, ok := t.Get(sibs[i+1])
		if !ok {
			return noOp()
		}

		srcText := src.text.String()
		srcChildren := src.Children()

		mergePoint := b.text.Len()
		b.text.Append(srcText)
		b.version++
		t.record(b.id, TextChanged)

		if _, _, err := t.detach(src.id); err != nil {
			return rejected(err)
		}
		if len(srcChildren) > 0 {
			pos := indexIn(t.siblingsOf(b), b.id)
			for k, cid := range srcChildren {
				if _, _, err := t.detach(cid); err != nil {
					return rejected(err)
				}
				if err := t.attach(cid, b.parent, pos+1+k); err != nil {
					return rejected(err)
				}
			}
		}
		if err := t.remove(src.id); err != nil {
			return rejected(err)
		}
		t.record(src.id, Deleted)
		t.record(childEventTarget(b.parent), ChildrenChanged)

		return applied(b.id, mergePoint)
	})
}

// Indent makes the block (with its entire subtree) the last child of its
// previous sibling, which is expanded so the block stays visible. The first
// child of a parent cannot indent: no previous sibling means no-op.
func (e *MutationEngine) Indent(ctx EditContext) Result {
	return e.run("indent", func() Result {
		t := e.doc.tree
		b, ok := t.Get(ctx.Block)
		if !ok {
			return noOp()
		}
		sibs := t.siblingsOf(b)
		i := indexIn(sibs, b.id)
		if i <= 0 {
			return noOp()
		}
		prev, ok := t.Get(sibs[i-1])
		if !ok {
			return noOp()
		}
		former := b.parent
		if _, _, err := t.detach(b.id); err != nil {
			return rejected(err)
		}
		if err := t.attach(b.id, prev.id, -1); err != nil {
			return rejected(err)
		}
		prev.expanded = true
		t.record(childEventTarget(former), ChildrenChanged)
		t.record(prev.id, ChildrenChanged)
		return applied(b.id, clampOffset(ctx.Offset, b.text.Len()))
	})
}

// Outdent makes the block a sibling of its parent, immediately after the
// parent, carrying its subtree unchanged. Top-level blocks are a no-op.
func (e *MutationEngine) Outdent(ctx EditContext) Result {
	return e.run("outdent", func() Result {
		t := e.doc.tree
		b, ok := t.Get(ctx.Block)
		if !ok {
			return noOp()
		}
		if b.parent == "" {
			return noOp()
		}
		p, ok := t.Get(b.parent)
		if !ok {
			return noOp()
		}
		if _, _, err := t.detach(b.id); err != nil {
			return rejected(err)
		}
		pos := indexIn(t.siblingsOf(p), p.id)
		if err := t.attach(b.id, p.parent, pos+1); err != nil {
			return rejected(err)
		}
		t.record(p.id, ChildrenChanged)
		t.record(childEventTarget(p.parent), ChildrenChanged)
		return applied(b.id, clampOffset(ctx.Offset, b.text.Len()))
	})
}

// Move relocates a block relative to a pointer-resolved target.
//
// Depth snapping runs first: while the raw target is deeper than the dragged
// block, the effective target walks up its ancestor chain to the dragged
// block's depth, so the drop never drifts into unrelated deeper subtrees.
// Moving a block into itself or a descendant is rejected with
// ErrWouldCreateCycle and leaves the tree unchanged.
func (e *MutationEngine) Move(dragged, target BlockID, placement Placement) Result {
	return e.run("move", func() Result {
		t := e.doc.tree
		b, ok := t.Get(dragged)
		if !ok {
			return noOp()
		}
		eff, ok := t.Get(target)
		if !ok {
			return noOp()
		}

		depth := t.Depth(dragged)
		for t.Depth(eff.id) > depth {
			p, ok := t.Get(eff.parent)
			if !ok {
				break
			}
			eff = p
		}

		if eff.id == b.id || t.IsAncestor(b.id, eff.id) {
			return rejected(ErrWouldCreateCycle)
		}

		former := b.parent
		if _, _, err := t.detach(b.id); err != nil {
			return rejected(err)
		}

		switch placement {
		case PlaceInside:
			if err := t.attach(b.id, eff.id, -1); err != nil {
				return rejected(err)
			}
			eff.expanded = true
			t.record(eff.id, ChildrenChanged)
		case PlaceBefore, PlaceAfter:
			pos := indexIn(t.siblingsOf(eff), eff.id)
			if placement == PlaceAfter {
				pos++
			}
			if err := t.attach(b.id, eff.parent, pos); err != nil {
				return rejected(err)
			}
			t.record(childEventTarget(eff.parent), ChildrenChanged)
		default:
			return rejected(ErrInvalidPosition)
		}
		if former != b.parent {
			t.record(childEventTarget(former), ChildrenChanged)
		}
		return applied(b.id, 0)
	})
}

// DeleteWithReparent removes a block while promoting its children to the
// block's former parent at its former position, preserving order. A direct
// delete never silently removes a subtree; that is DeleteSubtree, a distinct
// explicit action.
func (e *MutationEngine) DeleteWithReparent(id BlockID) Result {
	return e.run("delete", func() Result {
		t := e.doc.tree
		b, ok := t.Get(id)
		if !ok {
			return noOp()
		}

		// Snapshot before removal.
		parent := b.parent
		children := b.Children()
		sibs := t.siblingsOf(b)
		pos := indexIn(sibs, b.id)

		for k, cid := range children {
			if _, _, err := t.detach(cid); err != nil {
				return rejected(err)
			}
			if err := t.attach(cid, parent, pos+1+k); err != nil {
				return rejected(err)
			}
		}
		if _, _, err := t.detach(b.id); err != nil {
			return rejected(err)
		}
		if err := t.remove(b.id); err != nil {
			return rejected(err)
		}
		t.record(b.id, Deleted)
		t.record(childEventTarget(parent), ChildrenChanged)

		switch {
		case parent != "":
			if p, ok := t.Get(parent); ok {
				return applied(parent, p.text.Len())
			}
			return applied(parent, 0)
		case len(children) > 0:
			return applied(children[0], 0)
		case pos > 0 && pos-1 < len(t.roots):
			prev := t.roots[pos-1]
			if pb, ok := t.Get(prev); ok {
				return applied(prev, pb.text.Len())
			}
			return applied(prev, 0)
		default:
			return Result{Outcome: OutcomeApplied}
		}
	})
}

// DeleteSubtree removes a block and its entire subtree. When
// includeDependents is true, portals whose source lies inside the deleted
// subtree are deleted along with it; otherwise they transition to orphaned
// and stay in place (the default, so placement context is not lost).
func (e *MutationEngine) DeleteSubtree(id BlockID, includeDependents bool) Result {
	var deleted []BlockID
	res := e.run("delete-subtree", func() Result {
		t := e.doc.tree
		b, ok := t.Get(id)
		if !ok {
			return noOp()
		}
		parent := b.parent
		ids := append([]BlockID{id}, t.Descendants(id, 0)...)

		if _, _, err := t.detach(id); err != nil {
			return rejected(err)
		}
		// Remove leaves first so every removal sees a childless block.
		for i := len(ids) - 1; i >= 0; i-- {
			cid := ids[i]
			if cid != id {
				if _, _, err := t.detach(cid); err != nil {
					return rejected(err)
				}
			}
			if err := t.remove(cid); err != nil {
				return rejected(err)
			}
		}
		for _, cid := range ids {
			t.record(cid, Deleted)
		}
		t.record(childEventTarget(parent), ChildrenChanged)
		deleted = ids

		if parent != "" {
			if p, ok := t.Get(parent); ok {
				return applied(parent, p.text.Len())
			}
		}
		return Result{Outcome: OutcomeApplied}
	})
	if res.Outcome == OutcomeApplied && includeDependents && e.doc.ws != nil {
		e.doc.ws.deleteDependents(e.doc.id, deleted)
	}
	return res
}

// CreateBlock creates a new block under parent ("" for top level) at the
// given child index (-1 appends), mirroring both create-child and
// create-sibling intents.
func (e *MutationEngine) CreateBlock(parent BlockID, index int, kind BlockKind, text string) Result {
	return e.run("create", func() Result {
		t := e.doc.tree
		if parent != "" {
			if _, ok := t.Get(parent); !ok {
				return noOp()
			}
		}
		nb := e.newBlock(kind, text)
		if err := t.attach(nb.id, parent, index); err != nil {
			return rejected(err)
		}
		t.record(childEventTarget(parent), ChildrenChanged)
		return applied(nb.id, nb.text.Len())
	})
}

// InsertText inserts text at the context offset. On a portal block the edit
// writes through to the source block's text cell; the portal never forks it.
func (e *MutationEngine) InsertText(ctx EditContext, s string) Result {
	if m := e.portalAt(ctx.Block); m != nil {
		return m.InsertText(ctx.Offset, s)
	}
	return e.run("insert-text", func() Result {
		t := e.doc.tree
		b, ok := t.Get(ctx.Block)
		if !ok {
			return noOp()
		}
		if s == "" {
			return noOp()
		}
		off := clampOffset(ctx.Offset, b.text.Len())
		if err := b.text.InsertAt(off, s); err != nil {
			return rejected(err)
		}
		b.version++
		t.record(b.id, TextChanged)
		return applied(b.id, off+len([]rune(s)))
	})
}

// DeleteText removes length runes starting at the context offset (the
// selection-deletion primitive). On a portal block the edit writes through
// to the source block.
func (e *MutationEngine) DeleteText(ctx EditContext, length int) Result {
	if m := e.portalAt(ctx.Block); m != nil {
		return m.DeleteText(ctx.Offset, length)
	}
	return e.run("delete-text", func() Result {
		t := e.doc.tree
		b, ok := t.Get(ctx.Block)
		if !ok {
			return noOp()
		}
		if length <= 0 {
			return noOp()
		}
		off := clampOffset(ctx.Offset, b.text.Len())
		if err := b.text.DeleteAt(off, length); err != nil {
			return rejected(err)
		}
		b.version++
		t.record(b.id, TextChanged)
		return applied(b.id, off)
	})
}

// SetExpanded records the display-state flag. Display state never affects
// structural invariants and emits no change notification.
func (e *MutationEngine) SetExpanded(id BlockID, expanded bool) Result {
	return e.run("set-expanded", func() Result {
		b, ok := e.doc.tree.Get(id)
		if !ok {
			return noOp()
		}
		if b.expanded == expanded {
			return noOp()
		}
		b.expanded = expanded
		b.version++
		return applied(b.id, 0)
	})
}

// SetDescriptorProps replaces the presentation properties of a descriptor
// block. Props exist on descriptors only.
func (e *MutationEngine) SetDescriptorProps(id BlockID, props DescriptorProps) Result {
	return e.run("set-props", func() Result {
		b, ok := e.doc.tree.Get(id)
		if !ok {
			return noOp()
		}
		if b.kind != KindDescriptor {
			return rejected(ErrNotADescriptor)
		}
		b.props = &DescriptorProps{Label: props.Label, Color: props.Color}
		b.version++
		return applied(b.id, 0)
	})
}

// AddTag adds a tag to a block. Duplicate tags are a no-op.
func (e *MutationEngine) AddTag(id BlockID, tag string) Result {
	return e.run("add-tag", func() Result {
		b, ok := e.doc.tree.Get(id)
		if !ok {
			return noOp()
		}
		for _, t := range b.tags {
			if t == tag {
				return noOp()
			}
		}
		b.tags = append(b.tags, tag)
		b.version++
		return applied(b.id, 0)
	})
}

// RemoveTag removes a tag from a block. Missing tags are a no-op.
func (e *MutationEngine) RemoveTag(id BlockID, tag string) Result {
	return e.run("remove-tag", func() Result {
		b, ok := e.doc.tree.Get(id)
		if !ok {
			return noOp()
		}
		for i, t := range b.tags {
			if t == tag {
				b.tags = append(b.tags[:i], b.tags[i+1:]...)
				b.version++
				return applied(b.id, 0)
			}
		}
		return noOp()
	})
}

// portalAt returns the live mirror hosted at the given block, if the block
// is a portal with a registered mirror.
func (e *MutationEngine) portalAt(id BlockID) *PortalMirror {
	b, ok := e.doc.tree.Get(id)
	if !ok || b.portal == nil || e.doc.ws == nil {
		return nil
	}
	return e.doc.ws.mirrorAt(e.doc.id, id)
}
