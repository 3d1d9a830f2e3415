package outline

import (
	"testing"
)

// newTestDoc builds an in-memory workspace with one document.
func newTestDoc(t *testing.T) (*Workspace, *Document) {
	t.Helper()
	ws, err := NewWorkspace(WorkspaceOptions{})
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	return ws, ws.NewDocument("test")
}

// addBlock creates a block and fails the test on anything but applied.
func addBlock(t *testing.T, d *Document, parent BlockID, text string) BlockID {
	t.Helper()
	res := d.Engine().CreateBlock(parent, -1, KindBullet, text)
	if res.Outcome != OutcomeApplied {
		t.Fatalf("CreateBlock(%q) = %v, err %v", text, res.Outcome, res.Err)
	}
	return res.Cursor.Block
}

// shape is a comparable projection of a subtree for go-cmp diffs.
type shape struct {
	Text     string
	Children []shape
}

func shapeOf(tr *BlockTree) []shape {
	var walk func(ids []BlockID) []shape
	walk = func(ids []BlockID) []shape {
		var out []shape
		for _, id := range ids {
			b, ok := tr.Get(id)
			if !ok {
				continue
			}
			out = append(out, shape{Text: b.Text(), Children: walk(b.Children())})
		}
		return out
	}
	return walk(tr.Roots())
}

// sh is shorthand for building expected shapes.
func sh(text string, children ...shape) shape {
	return shape{Text: text, Children: children}
}
