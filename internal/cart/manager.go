package cart

import (
	"context"
	"sync"
	"time"

	"github.com/kiranakart/cart-engine/pkg/errors"
	"github.com/kiranakart/cart-engine/pkg/logger"
	"github.com/kiranakart/cart-engine/pkg/metrics"
)

// StrategyFactory builds the persistence strategy for one owner: a device ID
// for guest sessions, a user ID for authenticated ones.
type StrategyFactory func(ownerID string) Strategy

// Manager owns one cart engine per device session and moves sessions between
// the guest (device-local) and authenticated (remote) persistence modes.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	localFor    StrategyFactory
	remoteFor   StrategyFactory
	idleTimeout time.Duration

	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

type session struct {
	svc      Service
	store    *Store
	userID   string
	lastSeen time.Time
}

// NewManager wires the session registry. Both factories are required; a zero
// idle timeout disables eviction.
func NewManager(local, remote StrategyFactory, idleTimeout time.Duration, logg *logger.Logger, m *metrics.CartMetrics) (*Manager, error) {
	if local == nil || remote == nil {
		return nil, errors.New(errors.CodeInternal, "cart manager requires local and remote strategy factories")
	}
	return &Manager{
		sessions:    make(map[string]*session),
		localFor:    local,
		remoteFor:   remote,
		idleTimeout: idleTimeout,
		logg:        logg,
		metrics:     m,
	}, nil
}

// Session returns the device's cart engine, creating a guest session backed
// by the device-local strategy on first use.
func (m *Manager) Session(ctx context.Context, deviceID string) (Service, error) {
	if deviceID == "" {
		return nil, errors.New(errors.CodeValidation, "device id is required")
	}

	m.mu.Lock()
	sess, ok := m.sessions[deviceID]
	if ok {
		sess.lastSeen = time.Now()
		m.mu.Unlock()
		return sess.svc, nil
	}
	m.mu.Unlock()

	store, err := NewStore(m.localFor(deviceID), m.logg, m.metrics)
	if err != nil {
		return nil, err
	}
	if err := store.Hydrate(ctx); err != nil {
		return nil, err
	}
	svc, err := NewService(store, m.logg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another request may have won the race
	if existing, ok := m.sessions[deviceID]; ok {
		existing.lastSeen = time.Now()
		return existing.svc, nil
	}
	m.sessions[deviceID] = &session{svc: svc, store: store, lastSeen: time.Now()}
	return svc, nil
}

// Login reconciles the device's guest cart onto the user's remote cart and
// switches the session to the remote strategy. Quantities for lines present
// on both sides are summed.
func (m *Manager) Login(ctx context.Context, deviceID, userID string) (Service, error) {
	if userID == "" {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}

	// A repeated login for the same user must not re-merge: the session is
	// already persisting through the user's remote cart.
	m.mu.Lock()
	if sess, ok := m.sessions[deviceID]; ok && sess.userID == userID {
		sess.lastSeen = time.Now()
		svc := sess.svc
		m.mu.Unlock()
		return svc, nil
	}
	m.mu.Unlock()

	svc, err := m.Session(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := svc.Sync(ctx, m.remoteFor(userID)); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if sess, ok := m.sessions[deviceID]; ok {
		sess.userID = userID
		sess.lastSeen = time.Now()
	}
	m.mu.Unlock()

	if m.logg != nil {
		ctx = m.logg.WithDeviceID(ctx, deviceID)
		m.logg.Info(m.logg.WithUserID(ctx, userID), "cart session authenticated")
	}
	return svc, nil
}

// Logout drops the session back to the device-local strategy. The remote
// cart keeps its state server-side; the guest view starts from whatever the
// device snapshot holds.
func (m *Manager) Logout(ctx context.Context, deviceID string) (Service, error) {
	svc, err := m.Session(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := svc.SwitchStrategy(ctx, m.localFor(deviceID)); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if sess, ok := m.sessions[deviceID]; ok {
		sess.userID = ""
		sess.lastSeen = time.Now()
	}
	m.mu.Unlock()
	return svc, nil
}

// UserID returns the authenticated owner of the device session, empty for
// guests.
func (m *Manager) UserID(deviceID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[deviceID]; ok {
		return sess.userID
	}
	return ""
}

// EvictIdle drops sessions not touched within the idle timeout and returns
// how many were removed. State stays persisted; the next request for the
// device rebuilds and rehydrates the engine.
func (m *Manager) EvictIdle(now time.Time) int {
	if m.idleTimeout <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for deviceID, sess := range m.sessions {
		if now.Sub(sess.lastSeen) > m.idleTimeout {
			delete(m.sessions, deviceID)
			evicted++
		}
	}
	return evicted
}

// StartEvictor runs idle eviction on the given interval until the context is
// cancelled.
func (m *Manager) StartEvictor(ctx context.Context, interval time.Duration) {
	if m.idleTimeout <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := m.EvictIdle(now); n > 0 && m.logg != nil {
					m.logg.Debug(ctx, "evicted idle cart sessions")
				}
			}
		}
	}()
}

// SessionCount reports the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
