package outline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIndent(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")
	b := addBlock(t, d, "", "B")
	addBlock(t, d, b, "C")

	res := d.Engine().Indent(EditContext{Block: b, Offset: 1})
	if res.Outcome != OutcomeApplied {
		t.Fatalf("Indent = %v, err %v", res.Outcome, res.Err)
	}

	// B moves with its whole subtree under the previous sibling.
	want := []shape{sh("A", sh("B", sh("C")))}
	if diff := cmp.Diff(want, shapeOf(d.Tree())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	pa, _ := d.Tree().Get(a)
	if !pa.Expanded() {
		t.Error("new parent not expanded; indented block would be hidden")
	}
}

func TestIndentAppendsAsLastChild(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")
	addBlock(t, d, a, "A1")
	b := addBlock(t, d, "", "B")

	res := d.Engine().Indent(EditContext{Block: b})
	if res.Outcome != OutcomeApplied {
		t.Fatalf("Indent = %v, err %v", res.Outcome, res.Err)
	}

	want := []shape{sh("A", sh("A1"), sh("B"))}
	if diff := cmp.Diff(want, shapeOf(d.Tree())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestIndentFirstChildIsNoOp(t *testing.T) {
	_, d := newTestDoc(t)
	p := addBlock(t, d, "", "P")
	c := addBlock(t, d, p, "C")

	before := shapeOf(d.Tree())
	res := d.Engine().Indent(EditContext{Block: c})
	if res.Outcome != OutcomeNoOp {
		t.Fatalf("Indent(first child) = %v, want no-op", res.Outcome)
	}
	if diff := cmp.Diff(before, shapeOf(d.Tree())); diff != "" {
		t.Errorf("tree changed by no-op (-want +got):\n%s", diff)
	}
}

func TestOutdent(t *testing.T) {
	_, d := newTestDoc(t)
	p := addBlock(t, d, "", "P")
	addBlock(t, d, p, "A")
	b := addBlock(t, d, p, "B")
	addBlock(t, d, b, "C")
	addBlock(t, d, p, "D")

	res := d.Engine().Outdent(EditContext{Block: b, Offset: 1})
	if res.Outcome != OutcomeApplied {
		t.Fatalf("Outdent = %v, err %v", res.Outcome, res.Err)
	}

	// B lands immediately after its former parent, subtree unchanged;
	// D stays behind under P.
	want := []shape{sh("P", sh("A"), sh("D")), sh("B", sh("C"))}
	if diff := cmp.Diff(want, shapeOf(d.Tree())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestOutdentTopLevelIsNoOp(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")

	res := d.Engine().Outdent(EditContext{Block: a})
	if res.Outcome != OutcomeNoOp {
		t.Errorf("Outdent(top level) = %v, want no-op", res.Outcome)
	}
}

func TestIndentOutdentRoundTrip(t *testing.T) {
	_, d := newTestDoc(t)
	addBlock(t, d, "", "A")
	b := addBlock(t, d, "", "B")
	addBlock(t, d, b, "C")

	before := shapeOf(d.Tree())
	if res := d.Engine().Indent(EditContext{Block: b}); res.Outcome != OutcomeApplied {
		t.Fatalf("Indent: %v", res.Outcome)
	}
	if res := d.Engine().Outdent(EditContext{Block: b}); res.Outcome != OutcomeApplied {
		t.Fatalf("Outdent: %v", res.Outcome)
	}
	if diff := cmp.Diff(before, shapeOf(d.Tree())); diff != "" {
		t.Errorf("round-trip did not restore tree (-want +got):\n%s", diff)
	}
}
