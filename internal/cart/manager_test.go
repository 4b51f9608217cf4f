package cart

import (
	"context"
	"sync"
	"testing"
	"time"
)

type strategyBank struct {
	mu    sync.Mutex
	built map[string]*stubStrategy
	kind  string
}

func newStrategyBank(kind string) *strategyBank {
	return &strategyBank{built: make(map[string]*stubStrategy), kind: kind}
}

func (b *strategyBank) factory() StrategyFactory {
	return func(ownerID string) Strategy {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.built[ownerID]; ok {
			return s
		}
		s := &stubStrategy{kind: b.kind}
		b.built[ownerID] = s
		return s
	}
}

func (b *strategyBank) get(ownerID string) *stubStrategy {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.built[ownerID]
}

func mustManager(t *testing.T, local, remote *strategyBank, idle time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(local.factory(), remote.factory(), idle, nil, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestManagerSessionReusesEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := mustManager(t, newStrategyBank("local"), newStrategyBank("remote"), 0)

	first, err := m.Session(ctx, "device-1")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	second, err := m.Session(ctx, "device-1")
	if err != nil {
		t.Fatalf("session again: %v", err)
	}
	if first != second {
		t.Fatal("same device should get the same engine")
	}
	if m.SessionCount() != 1 {
		t.Fatalf("expected one session, got %d", m.SessionCount())
	}
}

func TestManagerSessionRequiresDeviceID(t *testing.T) {
	t.Parallel()
	m := mustManager(t, newStrategyBank("local"), newStrategyBank("remote"), 0)
	if _, err := m.Session(context.Background(), ""); err == nil {
		t.Fatal("expected validation error for empty device id")
	}
}

func TestManagerSessionHydratesFromLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	local := newStrategyBank("local")
	local.built["device-1"] = &stubStrategy{kind: "local", items: []LineItem{testItem("p1", "v1", 3)}}
	m := mustManager(t, local, newStrategyBank("remote"), 0)

	svc, err := m.Session(ctx, "device-1")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if got := svc.QuantityOf("p1:v1"); got != 3 {
		t.Fatalf("guest session should hydrate the device snapshot, got %d", got)
	}
}

func TestManagerLoginMergesGuestCart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	local := newStrategyBank("local")
	local.built["device-1"] = &stubStrategy{kind: "local", items: []LineItem{testItem("p1", "v1", 2)}}
	remote := newStrategyBank("remote")
	remote.built["user-9"] = &stubStrategy{kind: "remote", items: []LineItem{testItem("p1", "v1", 3), testItem("p2", "v1", 1)}}
	m := mustManager(t, local, remote, 0)

	svc, err := m.Login(ctx, "device-1", "user-9")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if got := svc.QuantityOf("p1:v1"); got != 5 {
		t.Fatalf("login should sum shared keys, got %d", got)
	}
	if got := svc.QuantityOf("p2:v1"); got != 1 {
		t.Fatalf("login should adopt remote lines, got %d", got)
	}
	if m.UserID("device-1") != "user-9" {
		t.Fatalf("session should be marked authenticated, got %q", m.UserID("device-1"))
	}

	// subsequent mutations land on the remote medium
	if err := svc.Remove(ctx, "p2:v1"); err != nil {
		t.Fatalf("remove after login: %v", err)
	}
	persisted := remote.get("user-9").persisted()
	for _, item := range persisted {
		if item.ID == "p2:v1" {
			t.Fatal("remove should have reached the remote medium")
		}
	}
}

// forwardingStrategy delegates to a shared backend through a fresh wrapper
// value per factory call, the way production factories build a new strategy
// for every request.
type forwardingStrategy struct {
	backend *stubStrategy
}

func (f *forwardingStrategy) Kind() string { return f.backend.Kind() }

func (f *forwardingStrategy) Load(ctx context.Context) ([]LineItem, error) {
	return f.backend.Load(ctx)
}

func (f *forwardingStrategy) Persist(ctx context.Context, mut Mutation, items []LineItem) error {
	return f.backend.Persist(ctx, mut, items)
}

func TestManagerRepeatedLoginDoesNotReMerge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	local := newStrategyBank("local")
	local.built["device-1"] = &stubStrategy{kind: "local", items: []LineItem{testItem("p1", "v1", 2)}}
	remoteBackend := &stubStrategy{kind: "remote", items: []LineItem{testItem("p1", "v1", 3), testItem("p2", "v1", 1)}}
	remoteFor := func(string) Strategy { return &forwardingStrategy{backend: remoteBackend} }

	m, err := NewManager(local.factory(), remoteFor, 0, nil, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := m.Login(ctx, "device-1", "user-9"); err != nil {
		t.Fatalf("first login: %v", err)
	}
	svc, err := m.Login(ctx, "device-1", "user-9")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if got := svc.QuantityOf("p1:v1"); got != 5 {
		t.Fatalf("repeated login must not double quantities, got %d", got)
	}
	if got := svc.QuantityOf("p2:v1"); got != 1 {
		t.Fatalf("remote-only line should stay at 1, got %d", got)
	}
	for _, item := range remoteBackend.persisted() {
		if item.ID == "p1:v1" && item.Quantity != 5 {
			t.Fatalf("remote medium should keep quantity 5, got %d", item.Quantity)
		}
	}
}

func TestManagerLogoutFallsBackToLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	local := newStrategyBank("local")
	local.built["device-1"] = &stubStrategy{kind: "local", items: []LineItem{testItem("p1", "v1", 2)}}
	remote := newStrategyBank("remote")
	m := mustManager(t, local, remote, 0)

	if _, err := m.Login(ctx, "device-1", "user-9"); err != nil {
		t.Fatalf("login: %v", err)
	}

	svc, err := m.Logout(ctx, "device-1")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if m.UserID("device-1") != "" {
		t.Fatal("logout should drop the authenticated owner")
	}
	// the guest view reflects whatever the device snapshot holds
	if got := svc.QuantityOf("p1:v1"); got != 2 {
		t.Fatalf("expected device snapshot quantity 2, got %d", got)
	}
}

func TestManagerEvictIdleDropsStaleSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := mustManager(t, newStrategyBank("local"), newStrategyBank("remote"), time.Minute)

	if _, err := m.Session(ctx, "device-1"); err != nil {
		t.Fatalf("session: %v", err)
	}

	if n := m.EvictIdle(time.Now()); n != 0 {
		t.Fatalf("fresh session must not be evicted, got %d", n)
	}
	if n := m.EvictIdle(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("stale session should be evicted, got %d", n)
	}
	if m.SessionCount() != 0 {
		t.Fatalf("expected zero sessions, got %d", m.SessionCount())
	}
}
