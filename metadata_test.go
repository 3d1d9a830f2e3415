package outline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTags(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")
	eng := d.Engine()

	if res := eng.AddTag(a, "todo"); res.Outcome != OutcomeApplied {
		t.Fatalf("AddTag = %v", res.Outcome)
	}
	if res := eng.AddTag(a, "urgent"); res.Outcome != OutcomeApplied {
		t.Fatalf("AddTag = %v", res.Outcome)
	}
	if res := eng.AddTag(a, "todo"); res.Outcome != OutcomeNoOp {
		t.Errorf("duplicate AddTag = %v, want no-op", res.Outcome)
	}

	b, _ := d.Tree().Get(a)
	if diff := cmp.Diff([]string{"todo", "urgent"}, b.Tags()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	if res := eng.RemoveTag(a, "todo"); res.Outcome != OutcomeApplied {
		t.Fatalf("RemoveTag = %v", res.Outcome)
	}
	if res := eng.RemoveTag(a, "todo"); res.Outcome != OutcomeNoOp {
		t.Errorf("repeat RemoveTag = %v, want no-op", res.Outcome)
	}
	b, _ = d.Tree().Get(a)
	if diff := cmp.Diff([]string{"urgent"}, b.Tags()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestTagsStayOnPrefixAfterSplit(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "hello")
	d.Engine().AddTag(a, "kept")

	res := d.Engine().Split(EditContext{Block: a, Offset: 2})
	if res.Outcome != OutcomeApplied {
		t.Fatalf("Split = %v", res.Outcome)
	}

	prefix, _ := d.Tree().Get(a)
	if diff := cmp.Diff([]string{"kept"}, prefix.Tags()); diff != "" {
		t.Errorf("prefix tags mismatch (-want +got):\n%s", diff)
	}
	suffix, _ := d.Tree().Get(res.Cursor.Block)
	if len(suffix.Tags()) != 0 {
		t.Errorf("suffix tags = %v, want none", suffix.Tags())
	}
}

func TestSetDescriptorProps(t *testing.T) {
	_, d := newTestDoc(t)
	res := d.Engine().CreateBlock("", -1, KindDescriptor, "%Template")
	if res.Outcome != OutcomeApplied {
		t.Fatalf("CreateBlock = %v", res.Outcome)
	}
	desc := res.Cursor.Block

	res = d.Engine().SetDescriptorProps(desc, DescriptorProps{Label: "Template", Color: "#88c"})
	if res.Outcome != OutcomeApplied {
		t.Fatalf("SetDescriptorProps = %v, err %v", res.Outcome, res.Err)
	}
	b, _ := d.Tree().Get(desc)
	props := b.Props()
	if props == nil || props.Label != "Template" || props.Color != "#88c" {
		t.Errorf("props = %+v", props)
	}

	bullet := addBlock(t, d, "", "plain")
	res = d.Engine().SetDescriptorProps(bullet, DescriptorProps{Label: "x"})
	if res.Outcome != OutcomeRejected || !errors.Is(res.Err, ErrNotADescriptor) {
		t.Errorf("non-descriptor = %v, err %v, want rejected ErrNotADescriptor", res.Outcome, res.Err)
	}

	if res := d.Engine().SetDescriptorProps("gone", DescriptorProps{}); res.Outcome != OutcomeNoOp {
		t.Errorf("missing block = %v, want no-op", res.Outcome)
	}
}
