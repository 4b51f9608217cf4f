package cartremote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kiranakart/cart-engine/internal/cart"
	"github.com/kiranakart/cart-engine/pkg/redis"
)

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	failSet bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errors.New("connection reset")
	}
	f.data[key] = value.(string)
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeKV) CartKey(ownerID string) string {
	return "kk:cart:" + ownerID
}

func item(productID string, qty int) cart.LineItem {
	return cart.LineItem{
		ID:        productID + ":v1",
		ProductID: productID,
		VariantID: "v1",
		Name:      "Item " + productID,
		Price:     decimal.NewFromInt(50),
		MRP:       decimal.NewFromInt(60),
		Stock:     20,
		MOQ:       1,
		Quantity:  qty,
	}
}

func mustStore(t *testing.T, kv *fakeKV, owner string) *Store {
	t.Helper()
	store, err := New(kv, owner, time.Hour, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestLoadMissingRecordIsEmpty(t *testing.T) {
	t.Parallel()
	store := mustStore(t, newFakeKV(), "user-1")

	items, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart, got %+v", items)
	}
}

func TestAddThenFetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := mustStore(t, newFakeKV(), "user-1")

	line := item("p1", 2)
	mut := cart.Mutation{Op: cart.OpAdd, Key: line.ID, Item: &line, Quantity: 2}
	if err := store.Persist(ctx, mut, nil); err != nil {
		t.Fatalf("persist: %v", err)
	}

	items, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("unexpected record %+v", items)
	}
}

func TestSetQuantityUpsertsLine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := mustStore(t, newFakeKV(), "user-1")

	line := item("p1", 2)
	_ = store.Persist(ctx, cart.Mutation{Op: cart.OpAdd, Key: line.ID, Item: &line}, nil)

	line.Quantity = 6
	if err := store.Persist(ctx, cart.Mutation{Op: cart.OpSetQuantity, Key: line.ID, Item: &line, Quantity: 6}, nil); err != nil {
		t.Fatalf("set quantity: %v", err)
	}

	items, _ := store.Load(ctx)
	if len(items) != 1 || items[0].Quantity != 6 {
		t.Fatalf("expected quantity 6, got %+v", items)
	}
}

func TestRemoveAbsentKeyIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := newFakeKV()
	store := mustStore(t, kv, "user-1")

	if err := store.Persist(ctx, cart.Mutation{Op: cart.OpRemove, Key: "ghost:v1"}, nil); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if len(kv.data) != 0 {
		t.Fatal("no record should be written for a no-op remove")
	}
}

func TestRemovingLastLineDeletesRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := newFakeKV()
	store := mustStore(t, kv, "user-1")

	line := item("p1", 1)
	_ = store.Persist(ctx, cart.Mutation{Op: cart.OpAdd, Key: line.ID, Item: &line}, nil)

	if err := store.Persist(ctx, cart.Mutation{Op: cart.OpRemove, Key: line.ID, Item: &line}, nil); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(kv.data) != 0 {
		t.Fatal("emptied record should be deleted, not stored as []")
	}
}

func TestClearDeletesRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := newFakeKV()
	store := mustStore(t, kv, "user-1")

	line := item("p1", 3)
	_ = store.Persist(ctx, cart.Mutation{Op: cart.OpAdd, Key: line.ID, Item: &line}, nil)

	if err := store.Persist(ctx, cart.Mutation{Op: cart.OpClear}, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(kv.data) != 0 {
		t.Fatal("clear should delete the record")
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := newFakeKV()

	first := mustStore(t, kv, "user-1")
	second := mustStore(t, kv, "user-2")

	line := item("p1", 2)
	_ = first.Persist(ctx, cart.Mutation{Op: cart.OpAdd, Key: line.ID, Item: &line}, nil)

	items, err := second.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("user-2 should not see user-1's cart, got %+v", items)
	}
}

func TestPersistFailureSurfacesDependencyError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := newFakeKV()
	kv.failSet = true
	store := mustStore(t, kv, "user-1")

	line := item("p1", 2)
	err := store.Persist(ctx, cart.Mutation{Op: cart.OpAdd, Key: line.ID, Item: &line}, nil)
	if err == nil {
		t.Fatal("expected write failure to surface")
	}
}

func TestCorruptRecordIsDiscarded(t *testing.T) {
	t.Parallel()
	kv := newFakeKV()
	kv.data["kk:cart:user-1"] = "{broken"
	store := mustStore(t, kv, "user-1")

	items, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("corrupt record should be discarded, got %+v", items)
	}
}
