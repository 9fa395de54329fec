package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LexForumLab/lexforum/client/internal/identity"
	"github.com/LexForumLab/lexforum/client/internal/storage"
)

const (
	recordKeyPrefix = "draft:"
	// legacySlotKey is where the old client kept its one and only draft.
	legacySlotKey = "draft"
)

var (
	// ErrNotFound indicates no draft exists under the identity.
	ErrNotFound = errors.New("draft: record not found")
	// ErrMissingStorage indicates the store was constructed without a backend.
	ErrMissingStorage = errors.New("draft: storage backend is required")
	// ErrMissingProvider indicates the store was constructed without an ID provider.
	ErrMissingProvider = errors.New("draft: identity provider is required")
)

// StoreConfig configures a Store.
type StoreConfig struct {
	Storage storage.Store
	IDs     identity.DraftIDProvider
	Clock   func() time.Time
	Logger  *zap.Logger
}

// Store persists draft records in key-value storage, one record per key.
// On first access it adopts any record left behind by the old single-slot
// format into the multi-draft layout.
type Store struct {
	storage storage.Store
	ids     identity.DraftIDProvider
	clock   func() time.Time
	logger  *zap.Logger

	mu       sync.Mutex
	migrated bool
}

// NewStore validates the configuration and returns a Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Storage == nil {
		return nil, ErrMissingStorage
	}
	if cfg.IDs == nil {
		return nil, ErrMissingProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{storage: cfg.Storage, ids: cfg.IDs, clock: clock, logger: logger}, nil
}

// Load returns the record stored under the identity, or ErrNotFound.
func (s *Store) Load(ctx context.Context, draftID string) (Record, error) {
	if err := s.ensureMigrated(ctx); err != nil {
		return Record{}, err
	}
	return s.read(ctx, draftID)
}

// Save persists the record, allocating an identity for new drafts. An empty
// record is not persisted; any stored copy is deleted instead. The returned
// record carries the allocated identity and refreshed timestamps.
func (s *Store) Save(ctx context.Context, record Record) (Record, error) {
	if err := s.ensureMigrated(ctx); err != nil {
		return Record{}, err
	}
	if record.IsEmpty() {
		if record.ID != "" {
			if err := s.storage.Remove(ctx, recordKeyPrefix+record.ID); err != nil {
				return Record{}, fmt.Errorf("draft: delete empty record: %w", err)
			}
		}
		return Record{}, nil
	}

	now := s.clock().UTC().Unix()
	if record.ID == "" {
		draftID, err := s.ids.NewDraftID()
		if err != nil {
			return Record{}, fmt.Errorf("draft: allocate identity: %w", err)
		}
		record.ID = draftID
		record.CreatedAtSeconds = now
	}
	if record.CreatedAtSeconds == 0 {
		record.CreatedAtSeconds = now
	}
	record.ModifiedAtSeconds = now

	encoded, err := json.Marshal(record)
	if err != nil {
		return Record{}, fmt.Errorf("draft: encode record: %w", err)
	}
	if err := s.storage.Set(ctx, recordKeyPrefix+record.ID, encoded); err != nil {
		return Record{}, fmt.Errorf("draft: persist record: %w", err)
	}
	return record, nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (s *Store) Delete(ctx context.Context, draftID string) error {
	if err := s.ensureMigrated(ctx); err != nil {
		return err
	}
	if err := s.storage.Remove(ctx, recordKeyPrefix+draftID); err != nil {
		return fmt.Errorf("draft: delete record: %w", err)
	}
	return nil
}

// List returns every stored record, most recently modified first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	if err := s.ensureMigrated(ctx); err != nil {
		return nil, err
	}
	keys, err := s.storage.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("draft: list keys: %w", err)
	}
	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, recordKeyPrefix) {
			continue
		}
		record, readErr := s.read(ctx, strings.TrimPrefix(key, recordKeyPrefix))
		if errors.Is(readErr, ErrNotFound) {
			continue
		}
		if readErr != nil {
			return nil, readErr
		}
		records = append(records, record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ModifiedAtSeconds != records[j].ModifiedAtSeconds {
			return records[i].ModifiedAtSeconds > records[j].ModifiedAtSeconds
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

func (s *Store) read(ctx context.Context, draftID string) (Record, error) {
	encoded, err := s.storage.Get(ctx, recordKeyPrefix+draftID)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("draft: read record: %w", err)
	}
	var record Record
	if err := json.Unmarshal(encoded, &record); err != nil {
		return Record{}, fmt.Errorf("draft: decode record %s: %w", draftID, err)
	}
	return record, nil
}

// legacyRecord is the old single-slot payload: title and content only.
type legacyRecord struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ensureMigrated adopts the legacy single-slot draft, once. If a previous
// migration already produced a legacy-flagged record, the slot is only
// cleared.
func (s *Store) ensureMigrated(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrated {
		return nil
	}

	encoded, err := s.storage.Get(ctx, legacySlotKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		s.migrated = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("draft: read legacy slot: %w", err)
	}

	adopted, err := s.legacyAlreadyAdopted(ctx)
	if err != nil {
		return err
	}
	if !adopted {
		var legacy legacyRecord
		if err := json.Unmarshal(encoded, &legacy); err != nil {
			// An unreadable slot is dropped rather than blocking every
			// draft operation behind it.
			s.logger.Warn("discarding unreadable legacy draft", zap.Error(err))
		} else if err := s.adoptLegacy(ctx, legacy); err != nil {
			return err
		}
	}

	if err := s.storage.Remove(ctx, legacySlotKey); err != nil {
		return fmt.Errorf("draft: clear legacy slot: %w", err)
	}
	s.migrated = true
	return nil
}

func (s *Store) legacyAlreadyAdopted(ctx context.Context) (bool, error) {
	keys, err := s.storage.Keys(ctx)
	if err != nil {
		return false, fmt.Errorf("draft: list keys: %w", err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, recordKeyPrefix) {
			continue
		}
		record, readErr := s.read(ctx, strings.TrimPrefix(key, recordKeyPrefix))
		if readErr != nil {
			continue
		}
		if record.Legacy {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) adoptLegacy(ctx context.Context, legacy legacyRecord) error {
	record := Record{Title: legacy.Title, Content: legacy.Content, Legacy: true}
	if record.IsEmpty() {
		return nil
	}
	draftID, err := s.ids.NewDraftID()
	if err != nil {
		return fmt.Errorf("draft: allocate identity: %w", err)
	}
	now := s.clock().UTC().Unix()
	record.ID = draftID
	record.CreatedAtSeconds = now
	record.ModifiedAtSeconds = now
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("draft: encode adopted record: %w", err)
	}
	if err := s.storage.Set(ctx, recordKeyPrefix+draftID, encoded); err != nil {
		return fmt.Errorf("draft: persist adopted record: %w", err)
	}
	s.logger.Info("adopted legacy draft", zap.String("draft_id", draftID))
	return nil
}
