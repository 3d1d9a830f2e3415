package outline

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Document is the root container of one outline tree. Its top-level blocks
// have no parent. User-intent operations execute as atomic, non-yielding
// transactions; exactly one writer may hold an in-progress transaction
// against a Document at a time.
type Document struct {
	ws    *Workspace
	id    DocumentID
	title string
	tree  *BlockTree
	notes *notifier
	eng   *MutationEngine

	mu sync.Mutex

	// dispatching is true while change notifications for a committed
	// transaction are being delivered. Mutations requested by subscribers
	// during dispatch are queued here and applied after the current
	// transaction completes.
	dispatching bool
	pending     []pendingOp

	closed bool
}

type pendingOp struct {
	name string
	fn   func() Result
}

func newDocument(ws *Workspace, id DocumentID, title string) *Document {
	d := &Document{
		ws:    ws,
		id:    id,
		title: title,
		notes: newNotifier(),
	}
	d.tree = newBlockTree(d)
	d.eng = &MutationEngine{doc: d}
	return d
}

// ID returns the document's identifier.
func (d *Document) ID() DocumentID {
	return d.id
}

// Title returns the document's title.
func (d *Document) Title() string {
	return d.title
}

// Tree returns the document's block tree for read access.
func (d *Document) Tree() *BlockTree {
	return d.tree
}

// Engine returns the document's mutation engine.
func (d *Document) Engine() *MutationEngine {
	return d.eng
}

// Subscribe registers a change-notification callback. Dispatch is
// synchronous within the committing transaction; callbacks must not block
// and must not mutate the document directly (engine calls made during
// dispatch are queued, see MutationEngine).
func (d *Document) Subscribe(fn func(Change)) SubscriptionID {
	return d.notes.subscribe(fn)
}

// Unsubscribe removes a previously registered callback. Unknown ids are ignored.
func (d *Document) Unsubscribe(id SubscriptionID) {
	d.notes.unsubscribe(id)
}

// Close persists the document (when the workspace has a store), detaches all
// portal mirrors hosted by or sourced from it, and removes it from the
// workspace. Closing twice is an error.
func (d *Document) Close() error {
	if d.closed {
		return ErrDocumentClosed
	}
	if d.ws != nil {
		if err := d.ws.closeDocument(d); err != nil {
			return err
		}
	}
	d.closed = true
	return nil
}

func (d *Document) logger() zerolog.Logger {
	if d.ws != nil {
		return d.ws.log
	}
	return zerolog.Nop()
}

func (d *Document) newCell(encoded []byte) TextCell {
	if d.ws != nil && d.ws.newCell != nil {
		return d.ws.newCell(encoded)
	}
	return newRuneCell(encoded)
}

// dispatch delivers committed change events to subscribers. Called by the
// tree at the outermost commit, before the mutation call returns.
func (d *Document) dispatch(events []Change) {
	if len(events) == 0 {
		return
	}
	d.dispatching = true
	d.notes.publish(events)
	d.dispatching = false
}

// hydrate rebuilds the document's tree from a persisted record. The record
// must satisfy the structural invariants; a block whose parent is missing is
// a corruption error, never silently reattached.
func (d *Document) hydrate(rec DocumentRecord) error {
	for _, br := range rec.Blocks {
		id := BlockID(br.ID)
		if _, dup := d.tree.blocks[id]; dup {
			return fmt.Errorf("%w: duplicate block %s", ErrCorruptRecord, br.ID)
		}
		b := &Block{
			id:       id,
			kind:     kindFromString(br.Kind),
			text:     d.newCell(br.Text),
			parent:   BlockID(br.ParentID),
			expanded: br.Expanded,
			version:  br.Version,
		}
		if len(br.Tags) > 0 {
			b.tags = append([]string(nil), br.Tags...)
		}
		if br.Props != nil {
			b.props = &DescriptorProps{Label: br.Props.Label, Color: br.Props.Color}
		}
		if br.Portal != nil {
			b.portal = &PortalRef{
				SourceDoc:   DocumentID(br.Portal.SourceDocID),
				SourceBlock: BlockID(br.Portal.SourceBlockID),
				Status:      syncStatusFromString(br.Portal.SyncStatus),
			}
		}
		for _, cid := range br.ChildIDs {
			b.children = append(b.children, BlockID(cid))
		}
		d.tree.blocks[id] = b
	}
	for _, rid := range rec.RootIDs {
		d.tree.roots = append(d.tree.roots, BlockID(rid))
	}
	if err := d.tree.checkInvariants(); err != nil {
		return fmt.Errorf("%w: document %s", ErrCorruptRecord, rec.ID)
	}
	return nil
}

// snapshotRecord serializes the document into the persisted layout, walking
// the tree root-down so hydration can rebuild and verify it.
func (d *Document) snapshotRecord() DocumentRecord {
	rec := DocumentRecord{
		ID:    string(d.id),
		Title: d.title,
	}
	for _, rid := range d.tree.roots {
		rec.RootIDs = append(rec.RootIDs, string(rid))
	}
	var walk func(id BlockID)
	walk = func(id BlockID) {
		b, ok := d.tree.blocks[id]
		if !ok {
			return
		}
		br := BlockRecord{
			ID:       string(b.id),
			ParentID: string(b.parent),
			Text:     b.text.Encode(),
			Expanded: b.expanded,
			Kind:     b.kind.String(),
			Version:  b.version,
		}
		if len(b.tags) > 0 {
			br.Tags = append([]string(nil), b.tags...)
		}
		if b.props != nil {
			br.Props = &PropsRecord{Label: b.props.Label, Color: b.props.Color}
		}
		if b.portal != nil {
			br.Portal = &PortalRecord{
				SourceDocID:   string(b.portal.SourceDoc),
				SourceBlockID: string(b.portal.SourceBlock),
				SyncStatus:    b.portal.Status.String(),
			}
		}
		for _, cid := range b.children {
			br.ChildIDs = append(br.ChildIDs, string(cid))
		}
		rec.Blocks = append(rec.Blocks, br)
		for _, cid := range b.children {
			walk(cid)
		}
	}
	for _, rid := range d.tree.roots {
		walk(rid)
	}
	return rec
}
