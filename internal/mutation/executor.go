package mutation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LexForumLab/lexforum/client/internal/cache"
	"github.com/LexForumLab/lexforum/client/internal/identity"
	"github.com/LexForumLab/lexforum/client/internal/resource"
)

var (
	errMissingStore     = errors.New("cache store is required")
	errMissingAllocator = errors.New("temporary identity allocator is required")
	errMissingName      = errors.New("operation name is required")
	errMissingKeys      = errors.New("operation must touch at least one cache key")
	errMissingApply     = errors.New("operation apply function is required")
	errMissingCall      = errors.New("operation network call is required")
	errMissingTarget    = errors.New("operation target identity is required")
)

// ExecutorError carries a dotted operation code alongside the cause.
type ExecutorError struct {
	code string
	err  error
}

func (e *ExecutorError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ExecutorError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code.
func (e *ExecutorError) Code() string {
	return e.code
}

func newExecutorError(operation, reason string, cause error) error {
	return &ExecutorError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// State labels a step of the mutation lifecycle.
type State string

const (
	// StateCreated is the initial state of a mutation context.
	StateCreated State = "created"
	// StateOptimisticApplied means the speculative patch is in the cache.
	StateOptimisticApplied State = "optimistic_applied"
	// StateNetworkPending means the network call has been issued.
	StateNetworkPending State = "network_pending"
	// StateSucceeded means the backend confirmed the mutation.
	StateSucceeded State = "succeeded"
	// StateFailed means the mutation was rolled back.
	StateFailed State = "failed"
	// StateSettled is terminal: the pending flag has been cleared.
	StateSettled State = "settled"
)

// Strategy selects the reconciliation applied when the backend confirms.
type Strategy string

const (
	// StrategyCreate inserts a placeholder row and swaps in the confirmed one.
	StrategyCreate Strategy = "create"
	// StrategyUpdate replaces the row at its server identity.
	StrategyUpdate Strategy = "update"
	// StrategyDelete removes the row at its server identity.
	StrategyDelete Strategy = "delete"
)

// Operation describes one state-changing call against the backend. Call
// sites supply only the three moving parts: the optimistic patch, the
// network call, and (via Strategy and Less) the reconciliation.
type Operation struct {
	// Name is the dotted operation code used in errors, logs and the journal.
	Name string
	// Kind is the resource the operation mutates.
	Kind resource.Kind
	// Strategy selects reconciliation behavior.
	Strategy Strategy
	// EntityID is the target row for updates and deletes. Ignored for creates.
	EntityID identity.EntityID
	// Keys lists every cache entry the optimistic patch touches.
	Keys []cache.Key
	// Apply installs the optimistic patch. For creates, tempID is the
	// freshly allocated temporary identity to insert under.
	Apply func(store *cache.Store, tempID identity.EntityID) error
	// Call performs exactly one network round trip. Deletes return a nil
	// entity on acknowledgement.
	Call func(ctx context.Context, tempID identity.EntityID) (resource.Entity, error)
	// Less re-sorts collections during reconciliation. Nil keeps positions.
	Less resource.LessFunc
	// OnSuccess runs after a successful settlement. Optional.
	OnSuccess func(resource.Entity)
	// OnFailure runs after a rollback. Optional.
	OnFailure func(error)
}

// Outcome reports a settled mutation.
type Outcome struct {
	State  State
	Entity resource.Entity
	Err    error
}

// RecordInput is handed to the Recorder when a mutation settles.
type RecordInput struct {
	Operation   string
	Kind        resource.Kind
	EntityID    identity.EntityID
	TemporaryID identity.EntityID
	Outcome     string
	ErrorDetail string
	StartedAt   time.Time
	SettledAt   time.Time
}

// Recorder persists settled mutations. Recording is best effort and must
// never block or fail a settlement.
type Recorder interface {
	Record(ctx context.Context, input RecordInput) error
}

// Context tracks one mutation from creation to settlement. Never reused.
type Context struct {
	operation string
	strategy  Strategy
	tempID    identity.EntityID
	pendingID identity.EntityID
	snapshot  cache.SnapshotSet
	state     State
	settled   bool
	startedAt time.Time
}

// TemporaryID returns the identity allocated for a creation, or zero.
func (c *Context) TemporaryID() identity.EntityID {
	return c.tempID
}

// State returns the context's current lifecycle state.
func (c *Context) State() State {
	return c.state
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	Store     *cache.Store
	Allocator *identity.TempAllocator
	Clock     func() time.Time
	Logger    *zap.Logger
	Recorder  Recorder
}

// Executor runs mutations through the optimistic-apply, network-call,
// settle-or-rollback lifecycle. One Executor serves all resources.
type Executor struct {
	store     *cache.Store
	allocator *identity.TempAllocator
	clock     func() time.Time
	logger    *zap.Logger
	recorder  Recorder

	pendingMu sync.Mutex
	pending   map[identity.EntityID]int

	// applyMu serializes the snapshot-and-apply phase across mutations.
	// A mutation that snapshots between another's snapshot and patch would
	// capture a state missing that patch and erase it on rollback.
	applyMu sync.Mutex
}

// NewExecutor validates the configuration and returns an Executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Store == nil {
		return nil, newExecutorError("mutation.executor.new", "missing_store", errMissingStore)
	}
	if cfg.Allocator == nil {
		return nil, newExecutorError("mutation.executor.new", "missing_allocator", errMissingAllocator)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		store:     cfg.Store,
		allocator: cfg.Allocator,
		clock:     clock,
		logger:    logger,
		recorder:  cfg.Recorder,
		pending:   make(map[identity.EntityID]int),
	}, nil
}

// Pending reports whether any mutation touching the identity is unsettled.
// UI collaborators key their per-row "saving" indicator off this.
func (e *Executor) Pending(id identity.EntityID) bool {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.pending[id] > 0
}

// Execute runs the operation to settlement. The optimistic patch is applied
// before the network call; on failure every touched cache entry is restored
// verbatim from its pre-mutation snapshot. A mutation is not cancellable
// once its network call is issued; ctx cancellation surfaces as a failure.
func (e *Executor) Execute(ctx context.Context, op Operation) (Outcome, error) {
	if err := validateOperation(op); err != nil {
		return Outcome{State: StateFailed, Err: err}, err
	}

	mctx := &Context{
		operation: op.Name,
		strategy:  op.Strategy,
		state:     StateCreated,
		startedAt: e.clock().UTC(),
	}
	if op.Strategy == StrategyCreate {
		mctx.tempID = e.allocator.Next()
		mctx.pendingID = mctx.tempID
	} else {
		mctx.pendingID = op.EntityID
	}

	e.applyMu.Lock()
	mctx.snapshot = e.store.Snapshot(op.Keys...)
	e.markPending(mctx.pendingID)
	applyErr := op.Apply(e.store, mctx.tempID)
	if applyErr != nil {
		e.store.RestoreSnapshot(mctx.snapshot)
	}
	e.applyMu.Unlock()
	if applyErr != nil {
		return e.settleFailure(ctx, op, mctx,
			newExecutorError(op.Name, "optimistic_apply_failed", applyErr))
	}
	mctx.state = StateOptimisticApplied

	mctx.state = StateNetworkPending
	confirmed, err := op.Call(ctx, mctx.tempID)
	if err != nil {
		e.store.RestoreSnapshot(mctx.snapshot)
		e.logger.Warn("mutation rolled back",
			zap.String("operation", op.Name),
			zap.String("resource", op.Kind.String()),
			zap.Error(err))
		return e.settleFailure(ctx, op, mctx, err)
	}
	mctx.state = StateSucceeded

	if err := e.reconcile(op, mctx, confirmed); err != nil {
		// Identity invariants are guarded by construction; a violation here
		// means cached state was already corrupt. Fail loudly, do not
		// attempt a rollback that could compound it.
		e.logger.Error("reconciliation invariant violated",
			zap.String("operation", op.Name),
			zap.String("resource", op.Kind.String()),
			zap.Error(err))
		return e.settleFailure(ctx, op, mctx, err)
	}

	return e.settleSuccess(ctx, op, mctx, confirmed)
}

func validateOperation(op Operation) error {
	if strings.TrimSpace(op.Name) == "" {
		return newExecutorError("mutation.execute", "missing_name", errMissingName)
	}
	if len(op.Keys) == 0 {
		return newExecutorError(op.Name, "missing_keys", errMissingKeys)
	}
	if op.Apply == nil {
		return newExecutorError(op.Name, "missing_apply", errMissingApply)
	}
	if op.Call == nil {
		return newExecutorError(op.Name, "missing_call", errMissingCall)
	}
	if op.Strategy != StrategyCreate && op.EntityID.IsZero() {
		return newExecutorError(op.Name, "missing_target", errMissingTarget)
	}
	return nil
}

func (e *Executor) settleSuccess(ctx context.Context, op Operation, mctx *Context, confirmed resource.Entity) (Outcome, error) {
	e.settle(mctx)
	e.record(ctx, op, mctx, "succeeded", "")
	observeSettlement(op.Kind, "succeeded")
	if op.OnSuccess != nil {
		op.OnSuccess(confirmed)
	}
	return Outcome{State: StateSettled, Entity: confirmed}, nil
}

func (e *Executor) settleFailure(ctx context.Context, op Operation, mctx *Context, cause error) (Outcome, error) {
	e.settle(mctx)
	e.record(ctx, op, mctx, "failed", cause.Error())
	observeSettlement(op.Kind, "failed")
	observeRollback(op.Kind)
	if op.OnFailure != nil {
		op.OnFailure(cause)
	}
	return Outcome{State: StateSettled, Err: cause}, cause
}

// settle clears the pending flag exactly once per mutation context.
func (e *Executor) settle(mctx *Context) {
	if mctx.settled {
		return
	}
	mctx.settled = true
	mctx.state = StateSettled
	e.clearPending(mctx.pendingID)
}

func (e *Executor) record(ctx context.Context, op Operation, mctx *Context, outcome, detail string) {
	if e.recorder == nil {
		return
	}
	input := RecordInput{
		Operation:   op.Name,
		Kind:        op.Kind,
		EntityID:    op.EntityID,
		TemporaryID: mctx.tempID,
		Outcome:     outcome,
		ErrorDetail: detail,
		StartedAt:   mctx.startedAt,
		SettledAt:   e.clock().UTC(),
	}
	if err := e.recorder.Record(ctx, input); err != nil {
		e.logger.Warn("mutation journal write failed",
			zap.String("operation", op.Name),
			zap.Error(err))
	}
}

func (e *Executor) markPending(id identity.EntityID) {
	e.pendingMu.Lock()
	e.pending[id]++
	e.pendingMu.Unlock()
}

func (e *Executor) clearPending(id identity.EntityID) {
	e.pendingMu.Lock()
	if e.pending[id] > 1 {
		e.pending[id]--
	} else {
		delete(e.pending, id)
	}
	e.pendingMu.Unlock()
}
