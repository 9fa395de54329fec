package draft

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/LexForumLab/lexforum/client/internal/storage"
)

type sequenceProvider struct {
	next int
}

func (p *sequenceProvider) NewDraftID() (string, error) {
	p.next++
	return fmt.Sprintf("draft-%04d", p.next), nil
}

func newTestStore(t *testing.T, backend storage.Store, clock func() time.Time) *Store {
	t.Helper()
	if clock == nil {
		clock = func() time.Time { return time.Unix(1740000000, 0) }
	}
	store, err := NewStore(StoreConfig{Storage: backend, IDs: &sequenceProvider{}, Clock: clock})
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	return store
}

func TestSaveAllocatesIdentityAndTimestamps(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, storage.NewMemoryStore(), nil)

	saved, err := store.Save(ctx, Record{Title: "Motion to dismiss", Content: "Draft body"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected allocated identity")
	}
	if saved.CreatedAtSeconds != 1740000000 || saved.ModifiedAtSeconds != 1740000000 {
		t.Fatalf("unexpected timestamps: %#v", saved)
	}

	loaded, err := store.Load(ctx, saved.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(loaded, saved) {
		t.Fatalf("round trip mismatch: saved %#v, loaded %#v", saved, loaded)
	}
}

func TestSaveEmptyRecordDeletesStoredCopy(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, storage.NewMemoryStore(), nil)

	saved, err := store.Save(ctx, Record{Title: "Keep me"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	emptied := saved
	emptied.Title = "   "
	if _, err := store.Save(ctx, emptied); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Load(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stored copy deleted, got %v", err)
	}
}

func TestSaveEmptyNewRecordPersistsNothing(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	store := newTestStore(t, backend, nil)

	if _, err := store.Save(ctx, Record{Attachments: []string{" "}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keys, err := backend.Keys(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty storage, got %v", keys)
	}
}

func TestListOrdersByMostRecentlyModified(t *testing.T) {
	ctx := context.Background()
	now := int64(1740000000)
	store := newTestStore(t, storage.NewMemoryStore(), func() time.Time {
		now++
		return time.Unix(now, 0)
	})

	first, err := store.Save(ctx, Record{Title: "Oldest"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.Save(ctx, Record{Title: "Middle"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first.Content = "touched again"
	if _, err := store.Save(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}
	if records[0].ID != first.ID || records[1].ID != second.ID {
		t.Fatalf("expected most recently modified first, got %v then %v", records[0].ID, records[1].ID)
	}
}

func TestDeleteAbsentRecordIsNoOp(t *testing.T) {
	store := newTestStore(t, storage.NewMemoryStore(), nil)
	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLegacySlotAdoptedOnce(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	if err := backend.Set(ctx, legacySlotKey, []byte(`{"title":"Old draft","content":"carried over"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store := newTestStore(t, backend, nil)
	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one adopted record, got %d", len(records))
	}
	adopted := records[0]
	if adopted.Title != "Old draft" || adopted.Content != "carried over" || !adopted.Legacy {
		t.Fatalf("unexpected adopted record: %#v", adopted)
	}
	if _, err := backend.Get(ctx, legacySlotKey); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("expected legacy slot cleared, got %v", err)
	}

	// A stray reappearance of the slot must not produce a second adoption.
	if err := backend.Set(ctx, legacySlotKey, []byte(`{"title":"Old draft","content":"carried over"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondStore := newTestStore(t, backend, nil)
	records, err = secondStore.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected adoption to run at most once, got %d records", len(records))
	}
}

func TestEmptyLegacySlotIsDropped(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	if err := backend.Set(ctx, legacySlotKey, []byte(`{"title":"","content":"  "}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store := newTestStore(t, backend, nil)
	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no adopted record, got %d", len(records))
	}
	if _, err := backend.Get(ctx, legacySlotKey); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("expected legacy slot cleared, got %v", err)
	}
}

func TestNewStoreValidatesConfig(t *testing.T) {
	if _, err := NewStore(StoreConfig{IDs: &sequenceProvider{}}); !errors.Is(err, ErrMissingStorage) {
		t.Fatalf("expected missing storage error, got %v", err)
	}
	if _, err := NewStore(StoreConfig{Storage: storage.NewMemoryStore()}); !errors.Is(err, ErrMissingProvider) {
		t.Fatalf("expected missing provider error, got %v", err)
	}
}
