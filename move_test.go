package outline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMovePlacements(t *testing.T) {
	build := func(t *testing.T) (*Document, BlockID, BlockID) {
		_, d := newTestDoc(t)
		a := addBlock(t, d, "", "A")
		addBlock(t, d, "", "B")
		c := addBlock(t, d, "", "C")
		return d, a, c
	}

	t.Run("before", func(t *testing.T) {
		d, a, c := build(t)
		if res := d.Engine().Move(c, a, PlaceBefore); res.Outcome != OutcomeApplied {
			t.Fatalf("Move = %v, err %v", res.Outcome, res.Err)
		}
		want := []shape{sh("C"), sh("A"), sh("B")}
		if diff := cmp.Diff(want, shapeOf(d.Tree())); diff != "" {
			t.Errorf("tree mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("after", func(t *testing.T) {
		d, a, c := build(t)
		if res := d.Engine().Move(c, a, PlaceAfter); res.Outcome != OutcomeApplied {
			t.Fatalf("Move = %v, err %v", res.Outcome, res.Err)
		}
		want := []shape{sh("A"), sh("C"), sh("B")}
		if diff := cmp.Diff(want, shapeOf(d.Tree())); diff != "" {
			t.Errorf("tree mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("into", func(t *testing.T) {
		d, a, c := build(t)
		if res := d.Engine().Move(c, a, PlaceInside); res.Outcome != OutcomeApplied {
			t.Fatalf("Move = %v, err %v", res.Outcome, res.Err)
		}
		want := []shape{sh("A", sh("C")), sh("B")}
		if diff := cmp.Diff(want, shapeOf(d.Tree())); diff != "" {
			t.Errorf("tree mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestMoveSubtreeTravels(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")
	addBlock(t, d, a, "A1")
	b := addBlock(t, d, "", "B")

	if res := d.Engine().Move(a, b, PlaceInside); res.Outcome != OutcomeApplied {
		t.Fatalf("Move = %v", res.Outcome)
	}
	want := []shape{sh("B", sh("A", sh("A1")))}
	if diff := cmp.Diff(want, shapeOf(d.Tree())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveDepthSnapping(t *testing.T) {
	// Dragging Child1 while the pointer passes over Grandchild (one level
	// deeper) snaps the effective target up to Sibling, the ancestor at
	// Child1's own depth.
	_, d := newTestDoc(t)
	parent := addBlock(t, d, "", "Parent")
	child1 := addBlock(t, d, parent, "Child1")
	addBlock(t, d, parent, "Child2")
	other := addBlock(t, d, "", "Other")
	sibling := addBlock(t, d, other, "Sibling")
	grandchild := addBlock(t, d, sibling, "Grandchild")

	res := d.Engine().Move(child1, grandchild, PlaceAfter)
	if res.Outcome != OutcomeApplied {
		t.Fatalf("Move = %v, err %v", res.Outcome, res.Err)
	}

	// Child1 lands after Sibling under Other, never inside Sibling's subtree.
	want := []shape{
		sh("Parent", sh("Child2")),
		sh("Other", sh("Sibling", sh("Grandchild")), sh("Child1")),
	}
	if diff := cmp.Diff(want, shapeOf(d.Tree())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveCycleRejected(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")
	b := addBlock(t, d, a, "B")
	c := addBlock(t, d, b, "C")

	tests := []struct {
		name      string
		target    BlockID
		placement Placement
	}{
		{"into_self", a, PlaceInside},
		{"into_child", b, PlaceInside},
		{"into_grandchild", c, PlaceInside},
		{"after_descendant", c, PlaceAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := shapeOf(d.Tree())
			res := d.Engine().Move(a, tt.target, tt.placement)
			if res.Outcome != OutcomeRejected {
				t.Fatalf("Move = %v, want rejected", res.Outcome)
			}
			if !errors.Is(res.Err, ErrWouldCreateCycle) {
				t.Fatalf("err = %v, want ErrWouldCreateCycle", res.Err)
			}
			if diff := cmp.Diff(before, shapeOf(d.Tree())); diff != "" {
				t.Errorf("tree changed by rejected move (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMoveMissingIsNoOp(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")

	if res := d.Engine().Move("gone", a, PlaceAfter); res.Outcome != OutcomeNoOp {
		t.Errorf("Move(missing dragged) = %v, want no-op", res.Outcome)
	}
	if res := d.Engine().Move(a, "gone", PlaceAfter); res.Outcome != OutcomeNoOp {
		t.Errorf("Move(missing target) = %v, want no-op", res.Outcome)
	}
}
