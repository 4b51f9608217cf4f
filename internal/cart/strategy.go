package cart

import "context"

// MutationOp names the store operation a persistence write corresponds to.
type MutationOp string

const (
	OpAdd         MutationOp = "add"
	OpSetQuantity MutationOp = "set_quantity"
	OpRemove      MutationOp = "remove"
	OpClear       MutationOp = "clear"
)

// Mutation describes one committed store change for the persistence layer.
// Item is the post-mutation entry for add/set ops and the removed entry for
// remove; it is nil for clear.
type Mutation struct {
	Op       MutationOp
	Key      string
	Item     *LineItem
	Quantity int
}

// Strategy is the persistence medium behind a cart store. The store applies
// mutations in memory first and calls Persist with the full resulting
// collection; implementations may write the delta (remote APIs) or rewrite
// the snapshot (local storage). A Persist error rolls the in-memory change
// back.
type Strategy interface {
	// Kind names the medium for logs and metrics ("local", "remote").
	Kind() string

	// Load returns the persisted collection, or an empty slice when none
	// exists yet.
	Load(ctx context.Context) ([]LineItem, error)

	// Persist records one mutation. items is the complete collection after
	// the mutation was applied.
	Persist(ctx context.Context, mut Mutation, items []LineItem) error
}
