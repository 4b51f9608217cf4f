package cart

import (
	"context"
	"sync"
	"time"

	"github.com/kiranakart/cart-engine/pkg/errors"
	"github.com/kiranakart/cart-engine/pkg/logger"
	"github.com/kiranakart/cart-engine/pkg/metrics"
)

// MutationState tracks where a key's most recent mutation stands.
type MutationState string

const (
	StateIdle       MutationState = "idle"
	StatePending    MutationState = "pending"
	StateCommitted  MutationState = "committed"
	StateRolledBack MutationState = "rolled_back"
)

// Store holds the in-memory cart collection and pushes every mutation through
// the active persistence strategy. Mutations apply optimistically: the memory
// change lands first, the strategy write follows, and a failed write restores
// the prior state of the affected line only, so concurrent commits on other
// keys survive a rollback.
//
// Concurrency: mutations on the same key queue behind a per-key lock;
// different keys proceed in parallel. Collection-wide operations (clear,
// reconcile, strategy swap) exclude all per-key mutations.
type Store struct {
	mu     sync.RWMutex
	syncMu sync.RWMutex
	keys   *keyedLocks

	items  []LineItem
	index  map[string]int
	states map[string]MutationState

	strategy Strategy
	logg     *logger.Logger
	metrics  *metrics.CartMetrics
}

// lineSnapshot captures one line's state before a mutation so a failed
// persistence write can restore exactly that line.
type lineSnapshot struct {
	key     string
	existed bool
	item    LineItem
	pos     int
}

// NewStore builds a store over the given strategy. The strategy is required;
// logger and metrics are optional.
func NewStore(strategy Strategy, logg *logger.Logger, m *metrics.CartMetrics) (*Store, error) {
	if strategy == nil {
		return nil, errors.New(errors.CodeInternal, "cart store requires a persistence strategy")
	}
	return &Store{
		keys:     newKeyedLocks(),
		index:    make(map[string]int),
		states:   make(map[string]MutationState),
		strategy: strategy,
		logg:     logg,
		metrics:  m,
	}, nil
}

// Hydrate replaces the in-memory collection from the strategy's persisted
// state. Called once at session start and after strategy swaps.
func (s *Store) Hydrate(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	items, err := s.strategy.Load(ctx)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "loading persisted cart")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAllLocked(items)
	return nil
}

// Add inserts the item or, when its key is already present, folds the
// incoming quantity into the existing line. A merge refreshes the snapshot
// fields from the incoming item since they carry fresher catalog data.
func (s *Store) Add(ctx context.Context, item LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	s.syncMu.RLock()
	defer s.syncMu.RUnlock()
	release := s.keys.acquire(item.ID)
	defer release()

	s.mu.Lock()
	snap := s.snapshotLineLocked(item.ID)
	if pos, ok := s.index[item.ID]; ok {
		merged := item
		merged.Quantity = s.items[pos].Quantity + item.Quantity
		s.items[pos] = merged
		item = merged
	} else {
		s.index[item.ID] = len(s.items)
		s.items = append(s.items, item)
	}
	s.states[item.ID] = StatePending
	mut := Mutation{Op: OpAdd, Key: item.ID, Item: &item, Quantity: item.Quantity}
	resulting := cloneItems(s.items)
	s.mu.Unlock()

	return s.commit(ctx, mut, resulting, func() { s.restoreLineLocked(snap) })
}

// SetQuantity pins the line's quantity. Zero or negative removes the line.
// Setting a key that is not present is a no-op.
func (s *Store) SetQuantity(ctx context.Context, key string, quantity int) error {
	return s.mutateLine(ctx, key, func(current int) int { return quantity })
}

// Increment raises the line's quantity by one.
func (s *Store) Increment(ctx context.Context, key string) error {
	return s.mutateLine(ctx, key, func(current int) int { return current + 1 })
}

// Decrement lowers the line's quantity by one; dropping below one removes
// the line.
func (s *Store) Decrement(ctx context.Context, key string) error {
	return s.mutateLine(ctx, key, func(current int) int { return current - 1 })
}

// Remove deletes the line if present; removing an absent key is a no-op.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.mutateLine(ctx, key, func(current int) int { return 0 })
}

// mutateLine applies a quantity transition to an existing line under the
// key's lock. A resulting quantity below one removes the line.
func (s *Store) mutateLine(ctx context.Context, key string, next func(current int) int) error {
	s.syncMu.RLock()
	defer s.syncMu.RUnlock()
	release := s.keys.acquire(key)
	defer release()

	s.mu.Lock()
	pos, ok := s.index[key]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLineLocked(key)

	quantity := next(s.items[pos].Quantity)
	var mut Mutation
	if quantity < 1 {
		removed := s.items[pos]
		s.removeAtLocked(pos)
		mut = Mutation{Op: OpRemove, Key: key, Item: &removed}
	} else {
		s.items[pos].Quantity = quantity
		updated := s.items[pos]
		mut = Mutation{Op: OpSetQuantity, Key: key, Item: &updated, Quantity: quantity}
	}
	s.states[key] = StatePending
	resulting := cloneItems(s.items)
	s.mu.Unlock()

	return s.commit(ctx, mut, resulting, func() { s.restoreLineLocked(snap) })
}

// Clear empties the collection. Excludes all per-key mutations while it runs.
func (s *Store) Clear(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return nil
	}
	prevItems := cloneItems(s.items)
	s.items = nil
	s.index = make(map[string]int)
	mut := Mutation{Op: OpClear}
	s.mu.Unlock()

	// exclusive syncMu means no concurrent per-key commits to preserve
	return s.commit(ctx, mut, nil, func() { s.setAllLocked(prevItems) })
}

// commit persists the applied mutation and runs restore under the state lock
// when the write fails.
func (s *Store) commit(ctx context.Context, mut Mutation, items []LineItem, restore func()) error {
	start := time.Now()
	err := s.strategy.Persist(ctx, mut, items)
	s.metrics.ObservePersist(s.strategy.Kind(), time.Since(start))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		restore()
		if mut.Key != "" {
			s.states[mut.Key] = StateRolledBack
		}
		s.metrics.IncMutation(string(mut.Op), "rolled_back")
		s.metrics.IncRollback()
		if s.logg != nil {
			s.logg.Error(ctx, "cart mutation rolled back: "+string(mut.Op), err)
		}
		return errors.Wrap(errors.CodeDependency, err, "persisting cart mutation")
	}

	if mut.Key != "" {
		s.states[mut.Key] = StateCommitted
	}
	s.metrics.IncMutation(string(mut.Op), "committed")
	return nil
}

// Reconcile merges the in-memory collection with the target strategy's
// persisted one, uploads the differences, and makes the target the active
// strategy. Per-key mutations are excluded for the duration. The merge sums
// quantities for keys present on both sides and preserves everything else,
// so running it twice against the same target changes nothing.
func (s *Store) Reconcile(ctx context.Context, target Strategy) error {
	if target == nil {
		return errors.New(errors.CodeInternal, "reconcile requires a target strategy")
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	// Reconciling onto the strategy already in use would sum the collection
	// with its own persisted copy. A retried sync must change nothing.
	if s.strategy == target {
		return nil
	}

	remote, err := target.Load(ctx)
	if err != nil {
		s.metrics.IncSync("failed")
		return errors.Wrap(errors.CodeDependency, err, "loading target cart for reconciliation")
	}

	s.mu.RLock()
	local := cloneItems(s.items)
	s.mu.RUnlock()

	merged := mergeCollections(local, remote)
	for _, mut := range planUpload(merged, remote) {
		start := time.Now()
		err := target.Persist(ctx, mut, merged)
		s.metrics.ObservePersist(target.Kind(), time.Since(start))
		if err != nil {
			s.metrics.IncSync("failed")
			return errors.Wrap(errors.CodeDependency, err, "uploading reconciled cart line")
		}
	}

	s.mu.Lock()
	s.setAllLocked(merged)
	s.mu.Unlock()
	s.strategy = target

	s.metrics.IncSync("committed")
	if s.logg != nil {
		s.logg.Info(ctx, "cart reconciled onto "+target.Kind()+" strategy")
	}
	return nil
}

// SwapStrategy replaces the active strategy and rehydrates from it. Used on
// logout, where the session falls back to the device-local cart without
// merging.
func (s *Store) SwapStrategy(ctx context.Context, target Strategy) error {
	if target == nil {
		return errors.New(errors.CodeInternal, "swap requires a target strategy")
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	items, err := target.Load(ctx)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "loading cart from new strategy")
	}

	s.mu.Lock()
	s.setAllLocked(items)
	s.mu.Unlock()
	s.strategy = target
	return nil
}

// Items returns a copy of the collection in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Get returns the line for a key.
func (s *Store) Get(key string) (LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[key]
	if !ok {
		return LineItem{}, false
	}
	return s.items[pos], true
}

// IsInCart reports whether the key is present.
func (s *Store) IsInCart(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// QuantityOf returns the line's quantity, zero when absent.
func (s *Store) QuantityOf(key string) int {
	item, ok := s.Get(key)
	if !ok {
		return 0
	}
	return item.Quantity
}

// Count returns the number of distinct lines.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// IsUpdating reports whether the key has a mutation awaiting its
// persistence write.
func (s *Store) IsUpdating(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[key] == StatePending
}

// HasPending reports whether any key has a mutation awaiting its
// persistence write.
func (s *Store) HasPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, state := range s.states {
		if state == StatePending {
			return true
		}
	}
	return false
}

// State returns the key's last mutation state.
func (s *Store) State(key string) MutationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[key]
	if !ok {
		return StateIdle
	}
	return state
}

// Strategy returns the active persistence strategy.
func (s *Store) Strategy() Strategy {
	s.syncMu.RLock()
	defer s.syncMu.RUnlock()
	return s.strategy
}

// snapshotLineLocked captures one line for rollback. Caller holds mu.
func (s *Store) snapshotLineLocked(key string) lineSnapshot {
	pos, ok := s.index[key]
	if !ok {
		return lineSnapshot{key: key, pos: len(s.items)}
	}
	return lineSnapshot{key: key, existed: true, item: s.items[pos], pos: pos}
}

// restoreLineLocked undoes a single line's mutation. Caller holds mu. Only
// the snapshotted line is touched; commits on other keys stay intact.
func (s *Store) restoreLineLocked(snap lineSnapshot) {
	pos, present := s.index[snap.key]

	if !snap.existed {
		// the mutation added the line; take it back out
		if present {
			s.removeAtLocked(pos)
		}
		return
	}

	if present {
		s.items[pos] = snap.item
		return
	}

	// the mutation removed the line; reinsert at its prior position
	at := snap.pos
	if at > len(s.items) {
		at = len(s.items)
	}
	s.items = append(s.items, LineItem{})
	copy(s.items[at+1:], s.items[at:])
	s.items[at] = snap.item
	for i := at; i < len(s.items); i++ {
		s.index[s.items[i].ID] = i
	}
}

// removeAtLocked deletes the entry at pos and reindexes the tail. Caller
// holds mu.
func (s *Store) removeAtLocked(pos int) {
	key := s.items[pos].ID
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	delete(s.index, key)
	for i := pos; i < len(s.items); i++ {
		s.index[s.items[i].ID] = i
	}
}

// setAllLocked replaces the collection wholesale. Caller holds mu.
func (s *Store) setAllLocked(items []LineItem) {
	s.items = cloneItems(items)
	s.index = make(map[string]int, len(items))
	for i, item := range s.items {
		s.index[item.ID] = i
	}
}
