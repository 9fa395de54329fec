package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LexForumLab/lexforum/client/internal/mutation"
	"github.com/LexForumLab/lexforum/client/internal/resource"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	j, err := New(db)
	require.NoError(t, err)
	return j
}

func settlement(operation string, settledAt time.Time, outcome string) mutation.RecordInput {
	return mutation.RecordInput{
		Operation:   operation,
		Kind:        resource.KindReminder,
		EntityID:    7,
		TemporaryID: -1,
		Outcome:     outcome,
		StartedAt:   settledAt.Add(-time.Second),
		SettledAt:   settledAt,
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("", nil)
	assert.Error(t, err)
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, settlement("reminders.create", base, "succeeded")))
	require.NoError(t, j.Record(ctx, settlement("reminders.toggle_done", base.Add(time.Minute), "failed")))

	records, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "reminders.toggle_done", records[0].Operation)
	assert.Equal(t, "failed", records[0].Outcome)
	assert.Equal(t, "reminders.create", records[1].Operation)
	assert.Equal(t, "reminders", records[1].Resource)
	assert.Equal(t, int64(-1), records[1].TemporaryID)
}

func TestRecentHonorsLimit(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, settlement("reminders.create", base.Add(time.Duration(i)*time.Second), "succeeded")))
	}

	records, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestPruneRemovesOldSettlements(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, settlement("reminders.create", base, "succeeded")))
	require.NoError(t, j.Record(ctx, settlement("reminders.create", base.Add(time.Hour), "succeeded")))

	removed, err := j.Prune(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	records, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, base.Add(time.Hour).Unix(), records[0].SettledAt.Unix())
}

func TestNewRequiresDatabase(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrMissingDatabase)
}
