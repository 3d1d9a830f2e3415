package outline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChangeNotifications(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")
	b := addBlock(t, d, a, "B")

	var got []Change
	d.Subscribe(func(ch Change) { got = append(got, ch) })

	tests := []struct {
		name string
		run  func() Result
		want []Change
	}{
		{
			name: "insert_text",
			run:  func() Result { return d.Engine().InsertText(EditContext{Block: b, Offset: 1}, "x") },
			want: []Change{{Doc: d.ID(), Block: b, Kind: TextChanged}},
		},
		{
			name: "create_top_level",
			run:  func() Result { return d.Engine().CreateBlock("", -1, KindBullet, "C") },
			// Empty Block refers to the document's top-level list.
			want: []Change{{Doc: d.ID(), Block: "", Kind: ChildrenChanged}},
		},
		{
			name: "delete",
			run:  func() Result { return d.Engine().DeleteWithReparent(b) },
			want: []Change{
				{Doc: d.ID(), Block: b, Kind: Deleted},
				{Doc: d.ID(), Block: a, Kind: ChildrenChanged},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			if res := tt.run(); res.Outcome != OutcomeApplied {
				t.Fatalf("outcome = %v, err %v", res.Outcome, res.Err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNoEventsOnNoOpOrRejected(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")
	b := addBlock(t, d, a, "B")

	fired := 0
	d.Subscribe(func(Change) { fired++ })

	if res := d.Engine().Split(EditContext{Block: "gone"}); res.Outcome != OutcomeNoOp {
		t.Fatalf("split missing = %v", res.Outcome)
	}
	if res := d.Engine().Move(a, b, PlaceInside); res.Outcome != OutcomeRejected {
		t.Fatalf("cyclic move = %v", res.Outcome)
	}
	if fired != 0 {
		t.Errorf("fired %d events, want 0", fired)
	}
}

func TestUnsubscribe(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")

	fired := 0
	id := d.Subscribe(func(Change) { fired++ })
	d.Unsubscribe(id)

	d.Engine().InsertText(EditContext{Block: a}, "x")
	if fired != 0 {
		t.Errorf("fired %d events after unsubscribe, want 0", fired)
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")
	b := addBlock(t, d, "", "B")

	var first, second SubscriptionID
	firstFired, secondFired := 0, 0
	first = d.Subscribe(func(Change) {
		firstFired++
		d.Unsubscribe(second)
	})
	second = d.Subscribe(func(Change) { secondFired++ })
	_ = first

	// One commit with two events: the second subscriber must stop receiving
	// as soon as it is removed, even mid-dispatch.
	res := d.Engine().Move(b, a, PlaceInside)
	if res.Outcome != OutcomeApplied {
		t.Fatalf("move: %v", res.Outcome)
	}
	if firstFired < 2 {
		t.Errorf("first subscriber fired %d, want >= 2", firstFired)
	}
	if secondFired != 0 {
		t.Errorf("second subscriber fired %d, want 0", secondFired)
	}
}

func TestMutationDuringDispatchIsQueued(t *testing.T) {
	_, d := newTestDoc(t)
	a := addBlock(t, d, "", "A")

	var queuedRes Result
	reacted := false
	d.Subscribe(func(ch Change) {
		if reacted || ch.Kind != TextChanged {
			return
		}
		reacted = true
		// A mutation requested inside dispatch must not run reentrantly.
		queuedRes = d.Engine().CreateBlock(a, -1, KindBullet, "reaction")
		if _, ok := d.Tree().Get(a); !ok {
			t.Error("tree unreadable during dispatch")
		}
		if len(d.Tree().ChildrenOf(a)) != 0 {
			t.Error("queued mutation applied during dispatch")
		}
	})

	res := d.Engine().InsertText(EditContext{Block: a}, "!")
	if res.Outcome != OutcomeApplied {
		t.Fatalf("insert: %v", res.Outcome)
	}
	if queuedRes.Outcome != OutcomeQueued {
		t.Fatalf("reentrant call outcome = %v, want queued", queuedRes.Outcome)
	}

	// By the time the outer call returns, the queued mutation has been applied.
	kids := d.Tree().ChildrenOf(a)
	if len(kids) != 1 {
		t.Fatalf("children after drain = %d, want 1", len(kids))
	}
	got, ok := d.Tree().Get(kids[0])
	if !ok || got.Text() != "reaction" {
		t.Errorf("queued block text = %q, want %q", got.Text(), "reaction")
	}
}
