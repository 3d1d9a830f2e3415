// Package outline provides a hierarchical outline document: an ordered tree
// of text-bearing blocks with structural editing (split, merge, indent,
// outdent, move, delete) and portals that live-mirror another block's
// subtree with bidirectional synchronization.
package outline

import "errors"

// Tree structure errors
var (
	// ErrBlockNotFound indicates that a block id does not resolve to a live block.
	ErrBlockNotFound = errors.New("block not found")

	// ErrWouldCreateCycle indicates that a move or indent would make a block
	// its own descendant. The tree is left unchanged.
	ErrWouldCreateCycle = errors.New("move would create a cycle")

	// ErrInvalidPosition indicates that a child index or placement is out of bounds.
	ErrInvalidPosition = errors.New("position out of bounds")

	// ErrInvariantViolation indicates an internal consistency failure detected
	// at commit time. The transaction is rolled back, never committed.
	ErrInvariantViolation = errors.New("tree invariant violation")

	// ErrDuplicateBlock indicates an attempt to register an id that is already
	// live or was previously deleted. Deleted ids are never resurrected.
	ErrDuplicateBlock = errors.New("block id already used")
)

// Text errors
var (
	// ErrInvalidOffset indicates a rune offset outside the cell's bounds.
	ErrInvalidOffset = errors.New("text offset out of bounds")
)

// Transaction errors
var (
	// ErrNoTransaction indicates that there is no active transaction.
	ErrNoTransaction = errors.New("no active transaction")

	// ErrTransactionPoisoned indicates that a transaction was poisoned by an
	// inner rollback and has been discarded.
	ErrTransactionPoisoned = errors.New("transaction was poisoned by inner rollback")
)

// Document and workspace errors
var (
	// ErrDocumentNotFound indicates that a document id is not open and not in the store.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentClosed indicates an operation on a closed document.
	ErrDocumentClosed = errors.New("document is closed")

	// ErrNoStore indicates that a persistence operation was requested but the
	// workspace was opened without a store.
	ErrNoStore = errors.New("no store configured")
)

// Portal errors
var (
	// ErrNotAPortal indicates that the block exists but is not of portal kind.
	ErrNotAPortal = errors.New("block is not a portal")

	// ErrNotADescriptor indicates that the block exists but is not of
	// descriptor kind.
	ErrNotADescriptor = errors.New("block is not a descriptor")

	// ErrPortalDisposed indicates an operation on a disposed portal mirror.
	ErrPortalDisposed = errors.New("portal has been disposed")

	// ErrPortalOrphaned indicates a write through a portal whose source block
	// no longer exists.
	ErrPortalOrphaned = errors.New("portal source no longer exists")

	// ErrPortalUnavailable indicates a write through a portal whose source
	// document is not currently open.
	ErrPortalUnavailable = errors.New("portal source document not open")
)

// Storage errors
var (
	// ErrCorruptRecord indicates that a persisted document record fails
	// structural validation and cannot be hydrated.
	ErrCorruptRecord = errors.New("corrupt document record")
)
