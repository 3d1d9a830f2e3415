package outline

import (
	"fmt"

	"github.com/rs/zerolog"
)

// WorkspaceOptions configures a workspace.
type WorkspaceOptions struct {
	// Store is a persistence backend. Optional; without one, documents are
	// purely in-memory.
	Store Store

	// StorePath opens the default bbolt store at the given path. Ignored
	// when Store is set.
	StorePath string

	// Logger receives invariant violations, store failures, and portal
	// transitions. Defaults to a disabled logger.
	Logger *zerolog.Logger

	// NewCell constructs text cells from their persisted encoding.
	// Defaults to the in-memory rune cell.
	NewCell CellFactory
}

type mirrorKey struct {
	doc   DocumentID
	block BlockID
}

// Workspace manages open documents and shared resources: the persistence
// store, the logger, and the registry of live portal mirrors (portals may
// cross document boundaries, so the registry lives above the documents).
type Workspace struct {
	docs    map[DocumentID]*Document
	mirrors map[mirrorKey]*PortalMirror

	store    Store
	ownStore bool
	log      zerolog.Logger
	newCell  CellFactory
}

// NewWorkspace initializes a workspace.
func NewWorkspace(options WorkspaceOptions) (*Workspace, error) {
	ws := &Workspace{
		docs:    make(map[DocumentID]*Document),
		mirrors: make(map[mirrorKey]*PortalMirror),
		log:     zerolog.Nop(),
		newCell: newRuneCell,
	}
	if options.Logger != nil {
		ws.log = *options.Logger
	}
	if options.NewCell != nil {
		ws.newCell = options.NewCell
	}
	switch {
	case options.Store != nil:
		ws.store = options.Store
	case options.StorePath != "":
		st, err := OpenStore(options.StorePath)
		if err != nil {
			return nil, err
		}
		ws.store = st
		ws.ownStore = true
	}
	return ws, nil
}

// NewDocument creates an empty document and registers it.
func (ws *Workspace) NewDocument(title string) *Document {
	d := newDocument(ws, newDocumentID(), title)
	ws.docs[d.id] = d
	return d
}

// Document returns an open document by id.
func (ws *Workspace) Document(id DocumentID) (*Document, bool) {
	d, ok := ws.docs[id]
	return d, ok
}

func (ws *Workspace) openDoc(id DocumentID) (*Document, bool) {
	d, ok := ws.docs[id]
	return d, ok
}

// OpenDocument hydrates a document from the store (or returns it if already
// open). Opening re-attaches two portal populations: mirrors hosted by the
// hydrated document, and stale mirrors elsewhere whose source is this
// document (stale -> synced, or orphaned when their source block is gone).
func (ws *Workspace) OpenDocument(id DocumentID) (*Document, error) {
	if d, ok := ws.docs[id]; ok {
		return d, nil
	}
	if ws.store == nil {
		return nil, ErrNoStore
	}
	rec, err := ws.store.LoadDocument(id)
	if err != nil {
		return nil, err
	}
	d := newDocument(ws, id, rec.Title)
	if err := d.hydrate(rec); err != nil {
		return nil, err
	}
	ws.docs[id] = d

	// Mirrors for the hydrated document's own portal blocks.
	for bid, b := range d.tree.blocks {
		if b.portal != nil {
			ws.registerMirror(d, bid, b.portal)
		}
	}
	// Stale mirrors elsewhere waiting on this document.
	for _, m := range ws.mirrors {
		if m.sourceDoc == id && m.status == SyncStale {
			m.attach()
		}
	}
	return d, nil
}

// closeDocument persists a document and detaches its portal population.
func (ws *Workspace) closeDocument(d *Document) error {
	if ws.store != nil {
		if err := ws.store.SaveDocument(d.snapshotRecord()); err != nil {
			ws.log.Error().Str("document", string(d.id)).Err(err).Msg("persist failed")
			return err
		}
	}
	for _, m := range ws.mirrors {
		switch {
		case m.viewDoc == d:
			m.Dispose()
		case m.sourceDoc == d.id:
			m.detachSource()
		}
	}
	delete(ws.docs, d.id)
	return nil
}

// Close closes all open documents and the store.
func (ws *Workspace) Close() error {
	var firstErr error
	for _, d := range ws.docs {
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if ws.store != nil && ws.ownStore {
		if err := ws.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CreatePortal creates a portal block in the viewing document under parent
// ("" for top level, index -1 appends) mirroring sourceBlock in sourceDoc,
// and returns its live mirror. The mirror subscribes immediately: a source
// that is already gone yields an orphaned portal rather than an error.
func (ws *Workspace) CreatePortal(view *Document, parent BlockID, index int, sourceDoc DocumentID, sourceBlock BlockID) (*PortalMirror, error) {
	if view.closed {
		return nil, ErrDocumentClosed
	}
	ref := &PortalRef{SourceDoc: sourceDoc, SourceBlock: sourceBlock, Status: SyncStale}
	res := view.Engine().run("create-portal", func() Result {
		t := view.tree
		if parent != "" {
			if _, ok := t.Get(parent); !ok {
				return rejected(ErrBlockNotFound)
			}
		}
		nb := view.eng.newBlock(KindPortal, "")
		nb.portal = ref
		if err := t.attach(nb.id, parent, index); err != nil {
			return rejected(err)
		}
		t.record(childEventTarget(parent), ChildrenChanged)
		return applied(nb.id, 0)
	})
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Outcome != OutcomeApplied {
		return nil, fmt.Errorf("create portal: %s", res.Outcome)
	}
	return ws.registerMirror(view, res.Cursor.Block, ref), nil
}

// registerMirror builds and attaches the runtime mirror for a portal block.
func (ws *Workspace) registerMirror(view *Document, block BlockID, ref *PortalRef) *PortalMirror {
	m := &PortalMirror{
		ws:          ws,
		viewDoc:     view,
		block:       block,
		sourceDoc:   ref.SourceDoc,
		sourceBlock: ref.SourceBlock,
		status:      ref.Status,
	}
	m.viewSub = view.Subscribe(m.onViewChange)
	ws.mirrors[mirrorKey{view.id, block}] = m
	m.attach()
	return m
}

// Mirror returns the live mirror hosted at the given portal block.
func (ws *Workspace) Mirror(doc DocumentID, block BlockID) (*PortalMirror, bool) {
	m, ok := ws.mirrors[mirrorKey{doc, block}]
	return m, ok
}

// MirrorFor resolves the live mirror for a portal block, distinguishing a
// missing block from a block of the wrong kind.
func (ws *Workspace) MirrorFor(view *Document, block BlockID) (*PortalMirror, error) {
	b, ok := view.tree.Get(block)
	if !ok {
		return nil, ErrBlockNotFound
	}
	if b.kind != KindPortal {
		return nil, ErrNotAPortal
	}
	m, ok := ws.Mirror(view.id, block)
	if !ok {
		return nil, ErrPortalDisposed
	}
	return m, nil
}

func (ws *Workspace) mirrorAt(doc DocumentID, block BlockID) *PortalMirror {
	return ws.mirrors[mirrorKey{doc, block}]
}

func (ws *Workspace) removeMirror(m *PortalMirror) {
	delete(ws.mirrors, mirrorKey{m.viewDoc.id, m.block})
}
