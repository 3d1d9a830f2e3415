package outline

// RenderNode is one projected node of a portal's rendered subtree. It names
// the source document and block so edits inside the portal can be routed to
// the source document's mutation engine.
type RenderNode struct {
	Doc      DocumentID
	Block    BlockID
	Text     string
	Kind     BlockKind
	Expanded bool
	Children []RenderNode
}

// RenderState is a portal's renderable projection, always derived from the
// current state of the source block. When the portal is not synced the
// projection degrades to a marked placeholder; it never fails the
// surrounding render pipeline.
type RenderState struct {
	Status      SyncStatus
	Text        string
	Placeholder string
	Children    []RenderNode
}

// PortalMirror is the live runtime of one portal block: it subscribes to the
// source block's change stream, tracks sync status, and routes write-through
// edits. The mirror holds no content of its own; everything it renders is
// reconstructible from the source tree.
type PortalMirror struct {
	ws      *Workspace
	viewDoc *Document
	block   BlockID // host portal block in the view document

	sourceDoc   DocumentID
	sourceBlock BlockID
	status      SyncStatus

	srcSub    SubscriptionID
	srcActive bool
	viewSub   SubscriptionID
	disposed  bool
}

// Block returns the id of the portal block hosting this mirror.
func (m *PortalMirror) Block() BlockID {
	return m.block
}

// Source returns the source document and block ids.
func (m *PortalMirror) Source() (DocumentID, BlockID) {
	return m.sourceDoc, m.sourceBlock
}

// SyncStatus returns the portal's current status. Orphaned is terminal.
func (m *PortalMirror) SyncStatus() SyncStatus {
	return m.status
}

// attach resolves the source and subscribes. Handles the initialization-time
// orphan (source already gone when the portal first subscribes); the runtime
// orphan (source deleted while live) arrives through the subscription. Both
// converge to the same orphaned state.
func (m *PortalMirror) attach() {
	if m.disposed || m.status == SyncOrphaned {
		return
	}
	src, ok := m.ws.openDoc(m.sourceDoc)
	if !ok {
		m.setStatus(SyncStale)
		return
	}
	if _, ok := src.tree.Get(m.sourceBlock); !ok {
		m.orphan()
		return
	}
	m.srcSub = src.Subscribe(m.onSourceChange)
	m.srcActive = true
	m.setStatus(SyncSynced)
}

// detachSource drops the source subscription, e.g. when the source document
// closes. Synced portals degrade to stale; orphaned stays orphaned.
func (m *PortalMirror) detachSource() {
	if m.srcActive {
		if src, ok := m.ws.openDoc(m.sourceDoc); ok {
			src.Unsubscribe(m.srcSub)
		}
		m.srcActive = false
	}
	if m.status == SyncSynced {
		m.setStatus(SyncStale)
	}
}

// onSourceChange runs synchronously inside the source document's commit.
func (m *PortalMirror) onSourceChange(ch Change) {
	if m.disposed {
		return
	}
	switch {
	case ch.Kind == Deleted && ch.Block == m.sourceBlock:
		m.orphan()
	case ch.Block == m.sourceBlock:
		m.relay(ch.Kind)
	case ch.Kind == Deleted:
		// Ancestry of a deleted block is no longer resolvable; re-render
		// conservatively.
		m.relay(ChildrenChanged)
	default:
		if src, ok := m.ws.openDoc(m.sourceDoc); ok &&
			src.tree.IsAncestor(m.sourceBlock, ch.Block) {
			m.relay(ch.Kind)
		}
	}
}

// onViewChange watches the hosting document for deletion of the portal block
// itself.
func (m *PortalMirror) onViewChange(ch Change) {
	if ch.Kind == Deleted && ch.Block == m.block {
		m.Dispose()
	}
}

// relay surfaces a source-side change as a notification on the portal block
// in the viewing document, so the rendering layer re-reads RenderState.
func (m *PortalMirror) relay(kind ChangeKind) {
	m.viewDoc.notes.publish([]Change{{Doc: m.viewDoc.id, Block: m.block, Kind: kind}})
}

// orphan transitions to the terminal orphaned state, synchronously relative
// to the delete commit that triggered it.
func (m *PortalMirror) orphan() {
	if m.status == SyncOrphaned {
		return
	}
	m.setStatus(SyncOrphaned)
	if m.srcActive {
		if src, ok := m.ws.openDoc(m.sourceDoc); ok {
			src.Unsubscribe(m.srcSub)
		}
		m.srcActive = false
	}
	m.ws.log.Info().
		Str("document", string(m.viewDoc.id)).
		Str("portal", string(m.block)).
		Str("source", string(m.sourceBlock)).
		Msg("portal orphaned")
	m.relay(ChildrenChanged)
}

// setStatus records the status on the mirror and on the host block's portal
// reference so it persists with the document.
func (m *PortalMirror) setStatus(s SyncStatus) {
	m.status = s
	if b, ok := m.viewDoc.tree.Get(m.block); ok && b.portal != nil {
		if b.portal.Status != s {
			b.portal.Status = s
			b.version++
		}
	}
}

// RenderState derives the portal's renderable projection from the current
// source state. It is safe to call in any status and on a disposed mirror.
func (m *PortalMirror) RenderState() RenderState {
	if m.disposed {
		return RenderState{Status: m.status, Placeholder: "[portal disposed]"}
	}
	switch m.status {
	case SyncStale:
		return RenderState{Status: SyncStale, Placeholder: "[source document unavailable]"}
	case SyncOrphaned:
		return RenderState{Status: SyncOrphaned, Placeholder: "[missing source]"}
	}
	src, ok := m.ws.openDoc(m.sourceDoc)
	if !ok {
		return RenderState{Status: SyncStale, Placeholder: "[source document unavailable]"}
	}
	b, ok := src.tree.Get(m.sourceBlock)
	if !ok {
		// Subscription should have caught this; degrade, never crash.
		m.orphan()
		return RenderState{Status: SyncOrphaned, Placeholder: "[missing source]"}
	}
	return RenderState{
		Status:   SyncSynced,
		Text:     b.Text(),
		Children: renderChildren(src, b),
	}
}

// renderChildren projects a block's children. Nested portal blocks render as
// leaves: their own mirrors project their subtrees, and not recursing keeps
// self-referential portals from looping.
func renderChildren(doc *Document, b *Block) []RenderNode {
	var out []RenderNode
	for _, cid := range b.children {
		c, ok := doc.tree.Get(cid)
		if !ok {
			continue
		}
		n := RenderNode{
			Doc:      doc.id,
			Block:    c.id,
			Text:     c.Text(),
			Kind:     c.kind,
			Expanded: c.expanded,
		}
		if c.kind != KindPortal {
			n.Children = renderChildren(doc, c)
		}
		out = append(out, n)
	}
	return out
}

// SourceEngine returns the source document's mutation engine for structural
// edits performed from within the portal. Structural operations act on the
// source block's real position, never on a shadow structure.
func (m *PortalMirror) SourceEngine() (*MutationEngine, error) {
	if err := m.writable(); err != nil {
		return nil, err
	}
	src, ok := m.ws.openDoc(m.sourceDoc)
	if !ok {
		return nil, ErrPortalUnavailable
	}
	return src.Engine(), nil
}

// InsertText writes text into the source block. There is exactly one
// writable cell per logical content node; the portal never forks it.
// The edit runs under the source document's transaction.
func (m *PortalMirror) InsertText(offset int, s string) Result {
	eng, err := m.SourceEngine()
	if err != nil {
		return rejected(err)
	}
	return eng.InsertText(EditContext{Block: m.sourceBlock, Offset: offset}, s)
}

// DeleteText removes text from the source block, under the source document's
// transaction.
func (m *PortalMirror) DeleteText(offset, length int) Result {
	eng, err := m.SourceEngine()
	if err != nil {
		return rejected(err)
	}
	return eng.DeleteText(EditContext{Block: m.sourceBlock, Offset: offset}, length)
}

func (m *PortalMirror) writable() error {
	switch {
	case m.disposed:
		return ErrPortalDisposed
	case m.status == SyncOrphaned:
		return ErrPortalOrphaned
	case m.status == SyncStale:
		return ErrPortalUnavailable
	}
	return nil
}

// Dispose releases the mirror's subscriptions and removes it from the
// workspace registry. Idempotent; later operations on the mirror are
// checked no-ops, never unchecked dereferences.
func (m *PortalMirror) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	if m.srcActive {
		if src, ok := m.ws.openDoc(m.sourceDoc); ok {
			src.Unsubscribe(m.srcSub)
		}
		m.srcActive = false
	}
	m.viewDoc.Unsubscribe(m.viewSub)
	m.ws.removeMirror(m)
}
