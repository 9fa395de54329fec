package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LexForumLab/lexforum/client/internal/cache"
	"github.com/LexForumLab/lexforum/client/internal/identity"
	"github.com/LexForumLab/lexforum/client/internal/resource"
)

const reminderDueSeconds = int64(1740819600) // 2025-03-01T09:00Z

type recordedJournal struct {
	mu      sync.Mutex
	inputs  []RecordInput
	failErr error
}

func (j *recordedJournal) Record(_ context.Context, input RecordInput) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inputs = append(j.inputs, input)
	return j.failErr
}

func newTestExecutor(t *testing.T, recorder Recorder) (*Executor, *cache.Store) {
	t.Helper()
	store := cache.NewStore(cache.StoreConfig{})
	executor, err := NewExecutor(ExecutorConfig{
		Store:     store,
		Allocator: identity.NewTempAllocator(),
		Clock:     func() time.Time { return time.Unix(1740000000, 0) },
		Recorder:  recorder,
	})
	if err != nil {
		t.Fatalf("unexpected executor error: %v", err)
	}
	return executor, store
}

func seedReminderList(store *cache.Store, key cache.Key, reminders ...resource.Reminder) {
	items := make([]resource.Entity, 0, len(reminders))
	for _, r := range reminders {
		items = append(items, r)
	}
	store.Write(key, func(any, bool) any {
		return cache.Collection{Items: items, Total: len(items)}
	})
}

func createReminderOperation(key cache.Key, confirmedID int64) Operation {
	payload := resource.ReminderPayload{Title: "File appeal", DueAtSeconds: reminderDueSeconds}
	return Operation{
		Name:     "reminders.create",
		Kind:     resource.KindReminder,
		Strategy: StrategyCreate,
		Keys:     []cache.Key{key},
		Less:     resource.Less(resource.KindReminder),
		Apply: func(store *cache.Store, tempID identity.EntityID) error {
			placeholder, err := resource.Materialize(payload, tempID, 1740000000)
			if err != nil {
				return err
			}
			store.Write(key, func(old any, present bool) any {
				collection, _ := old.(cache.Collection)
				return collection.InsertSorted(placeholder, resource.Less(resource.KindReminder))
			})
			return nil
		},
		Call: func(context.Context, identity.EntityID) (resource.Entity, error) {
			return resource.Reminder{
				EntityID:         identity.EntityID(confirmedID),
				Title:            payload.Title,
				DueAtSeconds:     payload.DueAtSeconds,
				CreatedAtSeconds: 1740000001,
			}, nil
		},
	}
}

func TestExecuteCreateReconcilesTemporaryIdentity(t *testing.T) {
	executor, store := newTestExecutor(t, nil)
	key := cache.NewKey(resource.KindReminder, nil)
	seedReminderList(store, key)

	var observedTemp identity.EntityID
	op := createReminderOperation(key, 42)
	baseApply := op.Apply
	op.Apply = func(store *cache.Store, tempID identity.EntityID) error {
		observedTemp = tempID
		if err := baseApply(store, tempID); err != nil {
			return err
		}
		value, _ := store.Read(key)
		collection := value.(cache.Collection)
		if collection.IndexOfID(tempID) < 0 {
			t.Fatalf("expected optimistic row under temporary identity")
		}
		return nil
	}

	outcome, err := executor.Execute(context.Background(), op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.State != StateSettled {
		t.Fatalf("expected settled outcome, got %s", outcome.State)
	}

	value, ok := store.Read(key)
	if !ok {
		t.Fatalf("expected cached collection")
	}
	collection := value.(cache.Collection)
	if len(collection.Items) != 1 || collection.Total != 1 {
		t.Fatalf("expected exactly one row, got %d (total %d)", len(collection.Items), collection.Total)
	}
	confirmed := collection.Items[0].(resource.Reminder)
	if confirmed.EntityID != 42 {
		t.Fatalf("expected server identity 42, got %s", confirmed.EntityID)
	}
	if confirmed.Title != "File appeal" || confirmed.DueAtSeconds != reminderDueSeconds {
		t.Fatalf("field values not preserved: %#v", confirmed)
	}
	if collection.IndexOfID(observedTemp) >= 0 {
		t.Fatalf("temporary identity %s must be retired", observedTemp)
	}
	if executor.Pending(observedTemp) {
		t.Fatalf("pending flag must clear after settlement")
	}
}

func TestExecuteFailureRestoresEveryTouchedEntry(t *testing.T) {
	executor, store := newTestExecutor(t, nil)
	listKey := cache.NewKey(resource.KindReminder, nil)
	countKey := cache.NewKey(resource.KindReminder, map[string]string{"view": "badge"})
	seedReminderList(store, listKey, resource.Reminder{EntityID: 1, Title: "Existing", DueAtSeconds: 50})
	store.Write(countKey, func(any, bool) any { return 1 })

	before, _ := store.Read(listKey)
	beforeCount, _ := store.Read(countKey)

	networkErr := errors.New("gateway timeout")
	var failureSeen error
	op := createReminderOperation(listKey, 42)
	op.Keys = []cache.Key{listKey, countKey}
	baseApply := op.Apply
	op.Apply = func(store *cache.Store, tempID identity.EntityID) error {
		if err := baseApply(store, tempID); err != nil {
			return err
		}
		store.Write(countKey, func(old any, present bool) any { return old.(int) + 1 })
		return nil
	}
	op.Call = func(context.Context, identity.EntityID) (resource.Entity, error) {
		return nil, networkErr
	}
	op.OnFailure = func(err error) { failureSeen = err }

	_, err := executor.Execute(context.Background(), op)
	if !errors.Is(err, networkErr) {
		t.Fatalf("expected network error surfaced, got %v", err)
	}
	if !errors.Is(failureSeen, networkErr) {
		t.Fatalf("expected failure callback, got %v", failureSeen)
	}

	after, _ := store.Read(listKey)
	afterCollection := after.(cache.Collection)
	beforeCollection := before.(cache.Collection)
	if len(afterCollection.Items) != len(beforeCollection.Items) || afterCollection.Total != beforeCollection.Total {
		t.Fatalf("rollback incomplete: before %#v, after %#v", beforeCollection, afterCollection)
	}
	afterCount, _ := store.Read(countKey)
	if afterCount.(int) != beforeCount.(int) {
		t.Fatalf("aggregate count not restored: before %v, after %v", beforeCount, afterCount)
	}
}

func TestExecuteApplyFailureRollsBackAndCodesError(t *testing.T) {
	executor, store := newTestExecutor(t, nil)
	key := cache.NewKey(resource.KindReminder, nil)
	seedReminderList(store, key)

	applyErr := errors.New("corrupt view")
	op := createReminderOperation(key, 42)
	op.Apply = func(store *cache.Store, tempID identity.EntityID) error {
		store.Write(key, func(any, bool) any { return cache.Collection{Total: 99} })
		return applyErr
	}

	_, err := executor.Execute(context.Background(), op)
	if !errors.Is(err, applyErr) {
		t.Fatalf("expected apply error surfaced, got %v", err)
	}
	var execErr *ExecutorError
	if !errors.As(err, &execErr) || execErr.Code() != "reminders.create.optimistic_apply_failed" {
		t.Fatalf("expected coded executor error, got %v", err)
	}
	value, _ := store.Read(key)
	if value.(cache.Collection).Total != 0 {
		t.Fatalf("expected rollback of partial apply")
	}
}

func TestExecutePendingFlagVisibleDuringNetworkCall(t *testing.T) {
	executor, store := newTestExecutor(t, nil)
	key := cache.NewKey(resource.KindReminder, nil)
	seedReminderList(store, key)

	op := createReminderOperation(key, 42)
	baseCall := op.Call
	op.Call = func(ctx context.Context, tempID identity.EntityID) (resource.Entity, error) {
		if !executor.Pending(tempID) {
			t.Fatalf("expected pending flag while network call is in flight")
		}
		return baseCall(ctx, tempID)
	}

	if _, err := executor.Execute(context.Background(), op); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecuteRapidTogglesSettleToLastIntent(t *testing.T) {
	executor, store := newTestExecutor(t, nil)
	key := cache.NewKey(resource.KindReminder, nil)
	seedReminderList(store, key, resource.Reminder{EntityID: 7, Title: "Call client", DueAtSeconds: 100})

	toggleOperation := func(done bool, release <-chan struct{}) Operation {
		return Operation{
			Name:     "reminders.toggle_done",
			Kind:     resource.KindReminder,
			Strategy: StrategyUpdate,
			EntityID: 7,
			Keys:     []cache.Key{key},
			Apply: func(store *cache.Store, _ identity.EntityID) error {
				store.Write(key, func(old any, present bool) any {
					collection := old.(cache.Collection)
					index := collection.IndexOfID(7)
					row := collection.Items[index].(resource.Reminder)
					row.Done = done
					return collection.ReplaceAt(index, row, nil)
				})
				return nil
			},
			Call: func(context.Context, identity.EntityID) (resource.Entity, error) {
				<-release
				return resource.Reminder{EntityID: 7, Title: "Call client", DueAtSeconds: 100, Done: done}, nil
			},
		}
	}

	firstRelease := make(chan struct{})
	secondRelease := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	firstApplied := make(chan struct{})
	go func() {
		defer wg.Done()
		op := toggleOperation(true, firstRelease)
		baseApply := op.Apply
		op.Apply = func(store *cache.Store, tempID identity.EntityID) error {
			defer close(firstApplied)
			return baseApply(store, tempID)
		}
		if _, err := executor.Execute(context.Background(), op); err != nil {
			t.Errorf("first toggle failed: %v", err)
		}
	}()

	<-firstApplied
	secondApplied := make(chan struct{})
	go func() {
		defer wg.Done()
		op := toggleOperation(false, secondRelease)
		baseApply := op.Apply
		op.Apply = func(store *cache.Store, tempID identity.EntityID) error {
			defer close(secondApplied)
			return baseApply(store, tempID)
		}
		if _, err := executor.Execute(context.Background(), op); err != nil {
			t.Errorf("second toggle failed: %v", err)
		}
	}()

	<-secondApplied
	close(firstRelease)
	close(secondRelease)
	wg.Wait()

	value, _ := store.Read(key)
	collection := value.(cache.Collection)
	row := collection.Items[collection.IndexOfID(7)].(resource.Reminder)
	if row.Done {
		t.Fatalf("expected final state to match last user intent (done=false), got %#v", row)
	}
	if executor.Pending(7) {
		t.Fatalf("pending flag must be clear after both settlements")
	}
}

// A rollback restores the snapshot verbatim, so the snapshot must never be
// captured between another mutation's snapshot and its optimistic patch.
// Here the second create tries to start while the first is still inside its
// apply; its later rollback must leave the first create's row intact.
func TestExecuteConcurrentRollbackPreservesOtherMutationsRow(t *testing.T) {
	executor, store := newTestExecutor(t, nil)
	key := cache.NewKey(resource.KindReminder, nil)
	seedReminderList(store, key)

	firstEntered := make(chan struct{})
	firstRelease := make(chan struct{})
	firstApplied := make(chan struct{})
	secondSettled := make(chan struct{})

	first := createReminderOperation(key, 42)
	baseApply := first.Apply
	first.Apply = func(store *cache.Store, tempID identity.EntityID) error {
		close(firstEntered)
		<-firstRelease
		if err := baseApply(store, tempID); err != nil {
			return err
		}
		close(firstApplied)
		return nil
	}
	first.Call = func(context.Context, identity.EntityID) (resource.Entity, error) {
		<-secondSettled
		return resource.Reminder{
			EntityID:         identity.EntityID(42),
			Title:            "File appeal",
			DueAtSeconds:     reminderDueSeconds,
			CreatedAtSeconds: 1740000001,
		}, nil
	}

	rejection := errors.New("quota exhausted")
	second := createReminderOperation(key, 99)
	second.Call = func(context.Context, identity.EntityID) (resource.Entity, error) {
		<-firstApplied
		return nil, rejection
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := executor.Execute(context.Background(), first); err != nil {
			t.Errorf("unexpected first-create error: %v", err)
		}
	}()
	<-firstEntered
	go func() {
		defer wg.Done()
		defer close(secondSettled)
		if _, err := executor.Execute(context.Background(), second); !errors.Is(err, rejection) {
			t.Errorf("expected rejection from second create, got %v", err)
		}
	}()
	// Give the second Execute time to reach its snapshot before the first
	// apply is released.
	time.Sleep(50 * time.Millisecond)
	close(firstRelease)
	wg.Wait()

	value, ok := store.Read(key)
	if !ok {
		t.Fatalf("expected cached collection")
	}
	collection := value.(cache.Collection)
	if len(collection.Items) != 1 || collection.Total != 1 {
		t.Fatalf("expected exactly one confirmed row, got %d (total %d)", len(collection.Items), collection.Total)
	}
	if got := collection.Items[0].ID(); got != identity.EntityID(42) {
		t.Fatalf("expected confirmed identity 42, got %s", got)
	}
}

func TestExecuteCreateSkipsInsertWhenRefetchDeliveredConfirmedRow(t *testing.T) {
	executor, store := newTestExecutor(t, nil)
	key := cache.NewKey(resource.KindReminder, nil)
	seedReminderList(store, key)

	op := createReminderOperation(key, 42)
	baseCall := op.Call
	op.Call = func(ctx context.Context, tempID identity.EntityID) (resource.Entity, error) {
		// A concurrent refetch lands while the create is network-pending,
		// already containing the confirmed row.
		store.Write(key, func(old any, present bool) any {
			collection := old.(cache.Collection)
			return collection.InsertSorted(resource.Reminder{
				EntityID:     42,
				Title:        "File appeal",
				DueAtSeconds: reminderDueSeconds,
			}, resource.Less(resource.KindReminder))
		})
		return baseCall(ctx, tempID)
	}

	if _, err := executor.Execute(context.Background(), op); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, _ := store.Read(key)
	collection := value.(cache.Collection)
	if collection.CountID(42) != 1 {
		t.Fatalf("expected exactly one row with server identity 42, got %d", collection.CountID(42))
	}
}

func TestExecuteRecordsSettlementInJournal(t *testing.T) {
	journal := &recordedJournal{}
	executor, store := newTestExecutor(t, journal)
	key := cache.NewKey(resource.KindReminder, nil)
	seedReminderList(store, key)

	if _, err := executor.Execute(context.Background(), createReminderOperation(key, 42)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	journal.mu.Lock()
	defer journal.mu.Unlock()
	if len(journal.inputs) != 1 {
		t.Fatalf("expected one journal record, got %d", len(journal.inputs))
	}
	record := journal.inputs[0]
	if record.Operation != "reminders.create" || record.Outcome != "succeeded" {
		t.Fatalf("unexpected journal record: %#v", record)
	}
	if !record.TemporaryID.IsTemporary() {
		t.Fatalf("expected temporary identity recorded, got %s", record.TemporaryID)
	}
}

func TestExecuteJournalFailureDoesNotFailSettlement(t *testing.T) {
	journal := &recordedJournal{failErr: errors.New("disk full")}
	executor, store := newTestExecutor(t, journal)
	key := cache.NewKey(resource.KindReminder, nil)
	seedReminderList(store, key)

	if _, err := executor.Execute(context.Background(), createReminderOperation(key, 42)); err != nil {
		t.Fatalf("journal failure must not fail settlement: %v", err)
	}
}

func TestExecuteValidatesOperations(t *testing.T) {
	executor, _ := newTestExecutor(t, nil)
	key := cache.NewKey(resource.KindReminder, nil)

	tests := []struct {
		name   string
		mutate func(op *Operation)
	}{
		{name: "missing name", mutate: func(op *Operation) { op.Name = " " }},
		{name: "missing keys", mutate: func(op *Operation) { op.Keys = nil }},
		{name: "missing apply", mutate: func(op *Operation) { op.Apply = nil }},
		{name: "missing call", mutate: func(op *Operation) { op.Call = nil }},
		{name: "update without target", mutate: func(op *Operation) {
			op.Strategy = StrategyUpdate
			op.EntityID = 0
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			op := createReminderOperation(key, 42)
			tc.mutate(&op)
			if _, err := executor.Execute(context.Background(), op); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestNewExecutorRequiresDependencies(t *testing.T) {
	if _, err := NewExecutor(ExecutorConfig{Allocator: identity.NewTempAllocator()}); err == nil {
		t.Fatalf("expected missing store error")
	}
	if _, err := NewExecutor(ExecutorConfig{Store: cache.NewStore(cache.StoreConfig{})}); err == nil {
		t.Fatalf("expected missing allocator error")
	}
}
