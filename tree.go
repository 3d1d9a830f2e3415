package outline

// BlockTree owns the full block set of one document. It enforces the
// structural invariants: the parent/children relation is mutually consistent,
// parent edges form a forest, and each id maps to at most one live block.
// All structural changes go through a transaction, which either fully commits
// or fully rejects; readers never observe a half-applied state.
type BlockTree struct {
	doc *Document

	blocks map[BlockID]*Block
	roots  []BlockID

	// deleted records every id that has ever been removed. Deleted ids are
	// never resurrected.
	deleted map[BlockID]struct{}

	txn *txnState
}

// txnState holds the state of an active transaction. Transactions nest:
// inner levels only track depth, and an inner rollback poisons the outermost
// commit.
type txnState struct {
	depth    int
	name     string
	poisoned bool

	// Pre-transaction state for rollback.
	preBlocks  map[BlockID]*Block
	preRoots   []BlockID
	preDeleted map[BlockID]struct{}

	// Change events buffered for dispatch at the outermost commit.
	events []Change
}

func newBlockTree(doc *Document) *BlockTree {
	return &BlockTree{
		doc:     doc,
		blocks:  make(map[BlockID]*Block),
		deleted: make(map[BlockID]struct{}),
	}
}

// Get returns the live block with the given id.
func (t *BlockTree) Get(id BlockID) (*Block, bool) {
	b, ok := t.blocks[id]
	return b, ok
}

// Roots returns a copy of the ordered top-level block ids.
func (t *BlockTree) Roots() []BlockID {
	out := make([]BlockID, len(t.roots))
	copy(out, t.roots)
	return out
}

// ChildrenOf returns a copy of the ordered child ids of the given block.
// An unknown id yields nil.
func (t *BlockTree) ChildrenOf(id BlockID) []BlockID {
	b, ok := t.blocks[id]
	if !ok {
		return nil
	}
	return b.Children()
}

// AncestorsOf returns the chain of ancestor ids from the block's parent up
// to its top-level ancestor. An unknown or top-level id yields nil.
func (t *BlockTree) AncestorsOf(id BlockID) []BlockID {
	var out []BlockID
	b, ok := t.blocks[id]
	if !ok {
		return nil
	}
	for b.parent != "" {
		out = append(out, b.parent)
		p, ok := t.blocks[b.parent]
		if !ok {
			break
		}
		b = p
	}
	return out
}

// IsAncestor reports whether a is a strict ancestor of b.
func (t *BlockTree) IsAncestor(a, b BlockID) bool {
	if a == b {
		return false
	}
	cur, ok := t.blocks[b]
	if !ok {
		return false
	}
	for cur.parent != "" {
		if cur.parent == a {
			return true
		}
		p, ok := t.blocks[cur.parent]
		if !ok {
			return false
		}
		cur = p
	}
	return false
}

// Depth returns the nesting depth of a block: 0 for top-level blocks.
func (t *BlockTree) Depth(id BlockID) int {
	return len(t.AncestorsOf(id))
}

// Descendants returns the ids of the block's subtree (excluding the block
// itself) in depth-first child order, descending at most maxDepth levels.
// maxDepth <= 0 means unlimited.
func (t *BlockTree) Descendants(id BlockID, maxDepth int) []BlockID {
	b, ok := t.blocks[id]
	if !ok {
		return nil
	}
	var out []BlockID
	var walk func(b *Block, depth int)
	walk = func(b *Block, depth int) {
		if maxDepth > 0 && depth > maxDepth {
			return
		}
		for _, cid := range b.children {
			out = append(out, cid)
			if c, ok := t.blocks[cid]; ok {
				walk(c, depth+1)
			}
		}
	}
	walk(b, 1)
	return out
}

// Len returns the number of live blocks.
func (t *BlockTree) Len() int {
	return len(t.blocks)
}

// Transactions

// begin opens a transaction level. The first level snapshots the tree for
// rollback; nested levels only increment depth.
func (t *BlockTree) begin(name string) {
	if t.txn != nil {
		t.txn.depth++
		return
	}
	pre := make(map[BlockID]*Block, len(t.blocks))
	for id, b := range t.blocks {
		pre[id] = b.clone()
	}
	preRoots := make([]BlockID, len(t.roots))
	copy(preRoots, t.roots)
	preDeleted := make(map[BlockID]struct{}, len(t.deleted))
	for id := range t.deleted {
		preDeleted[id] = struct{}{}
	}
	t.txn = &txnState{
		depth:      1,
		name:       name,
		preBlocks:  pre,
		preRoots:   preRoots,
		preDeleted: preDeleted,
	}
}

// commit closes one transaction level. The outermost commit verifies the
// structural invariants: on failure the whole transaction rolls back and the
// buffered events are discarded, on success the events are dispatched
// synchronously before commit returns.
func (t *BlockTree) commit() error {
	if t.txn == nil {
		return ErrNoTransaction
	}
	t.txn.depth--
	if t.txn.depth > 0 {
		return nil
	}

	txn := t.txn
	if txn.poisoned {
		t.rollbackToPre()
		t.txn = nil
		return ErrTransactionPoisoned
	}

	if err := t.checkInvariants(); err != nil {
		if t.doc != nil {
			log := t.doc.logger()
			log.Error().
				Str("document", string(t.doc.id)).
				Str("operation", txn.name).
				Err(err).
				Msg("invariant violation, transaction rejected")
		}
		t.rollbackToPre()
		t.txn = nil
		return ErrInvariantViolation
	}

	events := txn.events
	t.txn = nil
	if t.doc != nil {
		t.doc.dispatch(events)
	}
	return nil
}

// rollback discards the current transaction level. An inner rollback poisons
// the outermost commit.
func (t *BlockTree) rollback() error {
	if t.txn == nil {
		return ErrNoTransaction
	}
	t.txn.poisoned = true
	t.txn.depth--
	if t.txn.depth == 0 {
		t.rollbackToPre()
		t.txn = nil
	}
	return nil
}

func (t *BlockTree) rollbackToPre() {
	t.blocks = t.txn.preBlocks
	t.roots = t.txn.preRoots
	t.deleted = t.txn.preDeleted
}

// record buffers a change event for dispatch at commit.
func (t *BlockTree) record(id BlockID, kind ChangeKind) {
	if t.txn == nil {
		return
	}
	var docID DocumentID
	if t.doc != nil {
		docID = t.doc.id
	}
	t.txn.events = append(t.txn.events, Change{Doc: docID, Block: id, Kind: kind})
}

// Mutators. All require an open transaction; they maintain the mutual
// parent/children consistency locally and rely on the commit-time check to
// catch anything they miss.

// register adds a brand-new block. The id must never have been used.
func (t *BlockTree) register(b *Block) error {
	if _, live := t.blocks[b.id]; live {
		return ErrDuplicateBlock
	}
	if _, dead := t.deleted[b.id]; dead {
		return ErrDuplicateBlock
	}
	t.blocks[b.id] = b
	return nil
}

// siblingsOf returns the child list containing id: the parent's children, or
// the root list for a top-level block. The returned slice is live.
func (t *BlockTree) siblingsOf(b *Block) []BlockID {
	if b.parent == "" {
		return t.roots
	}
	p, ok := t.blocks[b.parent]
	if !ok {
		return nil
	}
	return p.children
}

// indexIn returns the position of id within list, or -1.
func indexIn(list []BlockID, id BlockID) int {
	for i, c := range list {
		if c == id {
			return i
		}
	}
	return -1
}

// attach links a block under parent at the given child index. parent == ""
// attaches at top level. index == -1 appends.
func (t *BlockTree) attach(id, parent BlockID, index int) error {
	b, ok := t.blocks[id]
	if !ok {
		return ErrBlockNotFound
	}
	if parent == "" {
		if index < 0 || index > len(t.roots) {
			index = len(t.roots)
		}
		t.roots = insertAt(t.roots, index, id)
		b.parent = ""
		return nil
	}
	p, ok := t.blocks[parent]
	if !ok {
		return ErrBlockNotFound
	}
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	p.children = insertAt(p.children, index, id)
	b.parent = parent
	p.version++
	return nil
}

// detach unlinks a block from its parent (or the root list) without deleting
// it. Returns the former parent and the former index.
func (t *BlockTree) detach(id BlockID) (BlockID, int, error) {
	b, ok := t.blocks[id]
	if !ok {
		return "", 0, ErrBlockNotFound
	}
	if b.parent == "" {
		i := indexIn(t.roots, id)
		if i < 0 {
			return "", 0, ErrInvariantViolation
		}
		t.roots = removeAt(t.roots, i)
		return "", i, nil
	}
	p, ok := t.blocks[b.parent]
	if !ok {
		return "", 0, ErrInvariantViolation
	}
	i := indexIn(p.children, id)
	if i < 0 {
		return "", 0, ErrInvariantViolation
	}
	p.children = removeAt(p.children, i)
	p.version++
	parent := b.parent
	b.parent = ""
	return parent, i, nil
}

// remove deletes a block from the registry. The block must already be
// detached and childless: reparenting precedes deletion, never the reverse.
func (t *BlockTree) remove(id BlockID) error {
	b, ok := t.blocks[id]
	if !ok {
		return ErrBlockNotFound
	}
	if len(b.children) != 0 {
		return ErrInvariantViolation
	}
	delete(t.blocks, id)
	t.deleted[id] = struct{}{}
	return nil
}

// checkInvariants verifies structural consistency of the whole tree:
// mutual parent/children agreement, single-parent, and acyclicity.
func (t *BlockTree) checkInvariants() error {
	referenced := make(map[BlockID]BlockID, len(t.blocks))
	for _, id := range t.roots {
		b, ok := t.blocks[id]
		if !ok {
			return ErrInvariantViolation
		}
		if b.parent != "" {
			return ErrInvariantViolation
		}
		if _, dup := referenced[id]; dup {
			return ErrInvariantViolation
		}
		referenced[id] = ""
	}
	for pid, p := range t.blocks {
		for _, cid := range p.children {
			c, ok := t.blocks[cid]
			if !ok {
				return ErrInvariantViolation
			}
			if c.parent != pid {
				return ErrInvariantViolation
			}
			if _, dup := referenced[cid]; dup {
				return ErrInvariantViolation
			}
			referenced[cid] = pid
		}
	}
	for id, b := range t.blocks {
		if b.parent == "" {
			if indexIn(t.roots, id) < 0 {
				return ErrInvariantViolation
			}
		} else if referenced[id] != b.parent {
			return ErrInvariantViolation
		}
		// Acyclicity: walking up must terminate within the block count.
		steps := 0
		cur := b
		for cur.parent != "" {
			steps++
			if steps > len(t.blocks) {
				return ErrInvariantViolation
			}
			next, ok := t.blocks[cur.parent]
			if !ok {
				return ErrInvariantViolation
			}
			cur = next
		}
	}
	return nil
}

func insertAt(list []BlockID, i int, id BlockID) []BlockID {
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = id
	return list
}

func removeAt(list []BlockID, i int) []BlockID {
	return append(list[:i], list[i+1:]...)
}
