package outline

// ChangeKind classifies a change notification.
type ChangeKind int

const (
	// TextChanged means the block's text content changed.
	TextChanged ChangeKind = iota

	// ChildrenChanged means the block's child list changed (membership or order).
	ChildrenChanged

	// Deleted means the block was removed. Its id will never refer to a
	// live block again.
	Deleted
)

// String returns a human-readable name for the change kind.
func (k ChangeKind) String() string {
	switch k {
	case TextChanged:
		return "text-changed"
	case ChildrenChanged:
		return "children-changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one entry of a document's change-notification stream. A
// ChildrenChanged event with an empty Block id refers to the document's
// top-level block list.
type Change struct {
	Doc   DocumentID
	Block BlockID
	Kind  ChangeKind
}

// SubscriptionID identifies a registered subscriber within one document.
type SubscriptionID int

// notifier fans change events out to subscribers. Dispatch is synchronous
// within the committing transaction; subscribers must not re-enter the
// mutation engine during dispatch (the engine queues such calls and applies
// them after the current transaction completes).
type notifier struct {
	subs   map[SubscriptionID]func(Change)
	order  []SubscriptionID
	nextID SubscriptionID
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[SubscriptionID]func(Change))}
}

func (n *notifier) subscribe(fn func(Change)) SubscriptionID {
	n.nextID++
	id := n.nextID
	n.subs[id] = fn
	n.order = append(n.order, id)
	return id
}

func (n *notifier) unsubscribe(id SubscriptionID) {
	delete(n.subs, id)
	for i, s := range n.order {
		if s == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// publish delivers events to subscribers in registration order. Subscribers
// that unsubscribe during dispatch stop receiving events immediately.
func (n *notifier) publish(events []Change) {
	for _, ev := range events {
		// Snapshot the order: a subscriber may dispose itself mid-dispatch.
		ids := make([]SubscriptionID, len(n.order))
		copy(ids, n.order)
		for _, id := range ids {
			if fn, ok := n.subs[id]; ok {
				fn(ev)
			}
		}
	}
}
