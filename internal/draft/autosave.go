package draft

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounce is how long input must stay quiet before an autosave fires.
const DefaultDebounce = 800 * time.Millisecond

// AutosaverConfig configures an Autosaver.
type AutosaverConfig struct {
	Store    *Store
	Debounce time.Duration
	Logger   *zap.Logger
	// OnWarning surfaces persistence failures to the UI. Optional.
	OnWarning func(error)
	// OnSaved receives the persisted record, carrying any newly allocated
	// identity. Optional.
	OnSaved func(Record)
}

// Autosaver debounces draft edits into storage writes. Every edit resets a
// single timer; the write fires only once input settles, so a burst of rapid
// edits produces one persisted record reflecting the final state.
// Persistence failures are surfaced as warnings and never disturb the
// in-memory draft being edited.
type Autosaver struct {
	store     *Store
	debounce  time.Duration
	logger    *zap.Logger
	onWarning func(error)
	onSaved   func(Record)

	mu      sync.Mutex
	timer   *time.Timer
	pending Record
	dirty   bool
}

// NewAutosaver returns an Autosaver. A zero debounce uses DefaultDebounce.
func NewAutosaver(cfg AutosaverConfig) (*Autosaver, error) {
	if cfg.Store == nil {
		return nil, ErrMissingStorage
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autosaver{
		store:     cfg.Store,
		debounce:  debounce,
		logger:    logger,
		onWarning: cfg.OnWarning,
		onSaved:   cfg.OnSaved,
	}, nil
}

// Edit replaces the pending draft state and resets the debounce timer.
func (a *Autosaver) Edit(record Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = record
	a.dirty = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, a.fire)
}

// Flush persists any pending state immediately, cancelling the timer. Call
// it before publishing or navigating away.
func (a *Autosaver) Flush(ctx context.Context) {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	record, dirty := a.pending, a.dirty
	a.dirty = false
	a.mu.Unlock()
	if dirty {
		a.save(ctx, record)
	}
}

// Stop cancels any scheduled save without persisting.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.dirty = false
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	record, dirty := a.pending, a.dirty
	a.dirty = false
	a.timer = nil
	a.mu.Unlock()
	if !dirty {
		return
	}
	a.save(context.Background(), record)
}

func (a *Autosaver) save(ctx context.Context, record Record) {
	saved, err := a.store.Save(ctx, record)
	if err != nil {
		a.logger.Warn("draft autosave failed", zap.String("draft_id", record.ID), zap.Error(err))
		if a.onWarning != nil {
			a.onWarning(err)
		}
		return
	}
	if saved.ID != "" {
		// Keep the allocated identity so the next debounce updates the same
		// record instead of creating a new one.
		a.mu.Lock()
		if a.pending.ID == "" {
			a.pending.ID = saved.ID
			a.pending.CreatedAtSeconds = saved.CreatedAtSeconds
		}
		a.mu.Unlock()
	}
	if a.onSaved != nil {
		a.onSaved(saved)
	}
}
