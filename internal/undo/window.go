// Package undo offers a single short-lived window in which a destructive
// action can be taken back. Arming a new window silently discards any
// pending one; windows never stack.
package undo

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LexForumLab/lexforum/client/internal/cache"
)

// DefaultTTL is how long a window stays revertable when the caller does not
// say otherwise.
const DefaultTTL = 5 * time.Second

// ErrMissingStore indicates the manager was constructed without a cache store.
var ErrMissingStore = errors.New("undo: cache store is required")

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Store  *cache.Store
	Logger *zap.Logger
	// OnExpire runs when a window expires or is committed, with its label.
	// The UI uses it to dismiss the undo affordance. Optional.
	OnExpire func(label string)
}

type window struct {
	snapshot cache.SnapshotSet
	label    string
	expires  time.Time
	// restore runs after the snapshot restore, for state outside the cache
	// store (drafts). Optional.
	restore func()
	epoch   uint64
}

// Manager holds at most one live undo window. A single timer is rescheduled
// on every Arm; firing it is equivalent to Commit.
type Manager struct {
	store    *cache.Store
	logger   *zap.Logger
	onExpire func(string)

	mu      sync.Mutex
	current *window
	timer   *time.Timer
	epoch   uint64
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, ErrMissingStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: cfg.Store, logger: logger, onExpire: cfg.OnExpire}, nil
}

// Arm opens a window over the snapshot, replacing any pending one. The
// extra callback, if non-nil, runs on revert after the cache restore; use
// it for state the snapshot cannot carry. A non-positive ttl uses
// DefaultTTL.
func (m *Manager) Arm(snapshot cache.SnapshotSet, label string, ttl time.Duration, extra func()) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.logger.Debug("replacing pending undo window", zap.String("label", m.current.label))
	}
	m.epoch++
	m.current = &window{
		snapshot: snapshot,
		label:    label,
		expires:  time.Now().Add(ttl),
		restore:  extra,
		epoch:    m.epoch,
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	epoch := m.epoch
	m.timer = time.AfterFunc(ttl, func() { m.expire(epoch) })
}

// Active returns the pending window's label. ok is false when no window is
// live; callers must check it before offering the undo action.
func (m *Manager) Active() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", false
	}
	return m.current.label, true
}

// Revert restores the window's snapshot and clears the window. Reverting
// when no window is live is a no-op and reports false; a second Revert
// therefore leaves state exactly as the first left it.
func (m *Manager) Revert() bool {
	m.mu.Lock()
	taken := m.current
	m.current = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	if taken == nil {
		return false
	}
	m.store.RestoreSnapshot(taken.snapshot)
	if taken.restore != nil {
		taken.restore()
	}
	m.logger.Info("undo window reverted", zap.String("label", taken.label))
	return true
}

// Commit permanently discards the pending window's snapshot.
func (m *Manager) Commit() {
	m.mu.Lock()
	taken := m.current
	m.current = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	if taken != nil && m.onExpire != nil {
		m.onExpire(taken.label)
	}
}

// expire commits the window the timer was armed for, and only that one. A
// window armed after the timer fired must survive.
func (m *Manager) expire(epoch uint64) {
	m.mu.Lock()
	if m.current == nil || m.current.epoch != epoch {
		m.mu.Unlock()
		return
	}
	taken := m.current
	m.current = nil
	m.timer = nil
	m.mu.Unlock()

	m.logger.Debug("undo window expired", zap.String("label", taken.label))
	if m.onExpire != nil {
		m.onExpire(taken.label)
	}
}
