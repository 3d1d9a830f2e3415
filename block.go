package outline

import "github.com/google/uuid"

// BlockID uniquely identifies a block within a document. Ids are opaque,
// stable, and never reused after deletion.
type BlockID string

// DocumentID uniquely identifies a document within a workspace.
type DocumentID string

func newBlockID() BlockID {
	return BlockID(uuid.NewString())
}

func newDocumentID() DocumentID {
	return DocumentID(uuid.NewString())
}

// BlockKind distinguishes the fixed set of block variants. The set is closed;
// operations match it exhaustively.
type BlockKind int

const (
	// KindBullet is a plain content block.
	KindBullet BlockKind = iota

	// KindDescriptor is a structurally ordinary child used for
	// categorization, e.g. a "%Template" marker.
	KindDescriptor

	// KindHeading is a content block rendered as a heading.
	KindHeading

	// KindPortal live-mirrors another block's subtree. Its rendered children
	// are a projection of the source block's children, never owned.
	KindPortal
)

// String returns the persisted name of the kind.
func (k BlockKind) String() string {
	switch k {
	case KindBullet:
		return "bullet"
	case KindDescriptor:
		return "descriptor"
	case KindHeading:
		return "heading"
	case KindPortal:
		return "portal"
	default:
		return "unknown"
	}
}

func kindFromString(s string) BlockKind {
	switch s {
	case "descriptor":
		return KindDescriptor
	case "heading":
		return KindHeading
	case "portal":
		return KindPortal
	default:
		return KindBullet
	}
}

// SyncStatus describes a portal's relationship to its source block.
type SyncStatus int

const (
	// SyncSynced means the source block exists and change notifications are live.
	SyncSynced SyncStatus = iota

	// SyncStale means the source document is not currently open. Reserved
	// for cross-document portals; re-resolved when the document opens.
	SyncStale

	// SyncOrphaned means the source block no longer exists. Terminal.
	SyncOrphaned
)

// String returns the persisted name of the status.
func (s SyncStatus) String() string {
	switch s {
	case SyncSynced:
		return "synced"
	case SyncStale:
		return "stale"
	case SyncOrphaned:
		return "orphaned"
	default:
		return "unknown"
	}
}

func syncStatusFromString(s string) SyncStatus {
	switch s {
	case "stale":
		return SyncStale
	case "orphaned":
		return SyncOrphaned
	default:
		return SyncSynced
	}
}

// DescriptorProps carries descriptor-specific presentation fields.
type DescriptorProps struct {
	Label string
	Color string
}

// PortalRef identifies the source of a portal block.
type PortalRef struct {
	SourceDoc   DocumentID
	SourceBlock BlockID
	Status      SyncStatus
}

// Block is a single node of the outline tree. Structural fields (parent,
// children) are owned by the BlockTree and mutated only inside its
// transactions; accessors return copies.
type Block struct {
	id       BlockID
	kind     BlockKind
	text     TextCell
	parent   BlockID // "" for top-level blocks
	children []BlockID
	expanded bool
	tags     []string
	version  uint64

	props  *DescriptorProps // kind == KindDescriptor
	portal *PortalRef       // kind == KindPortal
}

// ID returns the block's identifier.
func (b *Block) ID() BlockID {
	return b.id
}

// Kind returns the block's variant tag.
func (b *Block) Kind() BlockKind {
	return b.kind
}

// Text returns the current text content.
func (b *Block) Text() string {
	return b.text.String()
}

// TextLen returns the text length in runes.
func (b *Block) TextLen() int {
	return b.text.Len()
}

// Parent returns the parent id, or "" for a top-level block.
func (b *Block) Parent() BlockID {
	return b.parent
}

// Children returns a copy of the ordered child id list.
func (b *Block) Children() []BlockID {
	out := make([]BlockID, len(b.children))
	copy(out, b.children)
	return out
}

// Expanded reports the persisted display-state flag.
func (b *Block) Expanded() bool {
	return b.expanded
}

// Tags returns a copy of the block's tags.
func (b *Block) Tags() []string {
	out := make([]string, len(b.tags))
	copy(out, b.tags)
	return out
}

// Version returns the per-block mutation counter.
func (b *Block) Version() uint64 {
	return b.version
}

// Props returns descriptor properties, or nil for non-descriptor blocks.
func (b *Block) Props() *DescriptorProps {
	if b.props == nil {
		return nil
	}
	p := *b.props
	return &p
}

// Portal returns the portal reference, or nil for non-portal blocks.
func (b *Block) Portal() *PortalRef {
	if b.portal == nil {
		return nil
	}
	p := *b.portal
	return &p
}

// clone copies the block's structural and metadata state for transaction
// snapshots. The text cell is shared: cells are owned by the logical block
// and survive rollback of structural changes.
func (b *Block) clone() *Block {
	c := *b
	c.children = make([]BlockID, len(b.children))
	copy(c.children, b.children)
	if b.tags != nil {
		c.tags = make([]string, len(b.tags))
		copy(c.tags, b.tags)
	}
	if b.props != nil {
		p := *b.props
		c.props = &p
	}
	if b.portal != nil {
		p := *b.portal
		c.portal = &p
	}
	return &c
}
