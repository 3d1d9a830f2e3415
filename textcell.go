package outline

// TextCell is the replicated character sequence owned by a block. The merge
// algorithm for concurrent edits lives behind this interface; the tree layer
// treats the cell as an opaque sequence of Unicode scalar values addressed by
// rune offset. Implementations are not required to be goroutine-safe; all
// access goes through the owning document's transaction boundary.
type TextCell interface {
	// String returns the current content.
	String() string

	// Len returns the content length in runes.
	Len() int

	// Append appends text at the end of the sequence.
	Append(s string)

	// InsertAt inserts text before the rune at offset.
	// Offset may equal Len (append position).
	InsertAt(offset int, s string) error

	// DeleteAt removes length runes starting at offset. Length is clamped
	// to the end of the sequence.
	DeleteAt(offset, length int) error

	// SplitAt truncates the cell to [0, offset) and returns the removed
	// suffix [offset, end) as text for a new cell.
	SplitAt(offset int) (string, error)

	// Encode returns the cell's native persisted encoding.
	Encode() []byte
}

// CellFactory constructs a TextCell from its persisted encoding. A nil
// encoding means an empty cell.
type CellFactory func(encoded []byte) TextCell

// runeCell is the default in-memory TextCell. It stores plain runes and
// encodes as UTF-8; a replicated deployment swaps in a CRDT-backed cell via
// WorkspaceOptions.NewCell.
type runeCell struct {
	runes []rune
}

func newRuneCell(encoded []byte) TextCell {
	return &runeCell{runes: []rune(string(encoded))}
}

func (c *runeCell) String() string {
	return string(c.runes)
}

func (c *runeCell) Len() int {
	return len(c.runes)
}

func (c *runeCell) Append(s string) {
	c.runes = append(c.runes, []rune(s)...)
}

func (c *runeCell) InsertAt(offset int, s string) error {
	if offset < 0 || offset > len(c.runes) {
		return ErrInvalidOffset
	}
	ins := []rune(s)
	out := make([]rune, 0, len(c.runes)+len(ins))
	out = append(out, c.runes[:offset]...)
	out = append(out, ins...)
	out = append(out, c.runes[offset:]...)
	c.runes = out
	return nil
}

func (c *runeCell) DeleteAt(offset, length int) error {
	if offset < 0 || offset > len(c.runes) {
		return ErrInvalidOffset
	}
	if length <= 0 {
		return nil
	}
	end := offset + length
	if end > len(c.runes) {
		end = len(c.runes)
	}
	c.runes = append(c.runes[:offset], c.runes[end:]...)
	return nil
}

func (c *runeCell) SplitAt(offset int) (string, error) {
	if offset < 0 || offset > len(c.runes) {
		return "", ErrInvalidOffset
	}
	suffix := string(c.runes[offset:])
	c.runes = c.runes[:offset]
	return suffix, nil
}

func (c *runeCell) Encode() []byte {
	return []byte(string(c.runes))
}
