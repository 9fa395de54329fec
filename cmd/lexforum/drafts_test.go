package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/LexForumLab/lexforum/client/internal/config"
	"github.com/LexForumLab/lexforum/client/internal/draft"
	"github.com/LexForumLab/lexforum/client/internal/identity"
	"github.com/LexForumLab/lexforum/client/internal/storage"
)

func newDraftTestApp(t *testing.T) *app {
	t.Helper()
	drafts, err := draft.NewStore(draft.StoreConfig{
		Storage: storage.NewMemoryStore(),
		IDs:     identity.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("draft store: %v", err)
	}
	return &app{
		cfg:    config.AppConfig{AutosaveDelay: 20 * time.Millisecond},
		logger: zap.NewNop(),
		drafts: drafts,
	}
}

func TestComposeDraftPersistsSettledInput(t *testing.T) {
	a := newDraftTestApp(t)
	var out bytes.Buffer
	in := strings.NewReader("first line\nsecond line\n")

	if err := a.composeDraft(context.Background(), draft.Record{Title: "Appeal notes"}, in, &out); err != nil {
		t.Fatalf("compose: %v", err)
	}

	records, err := a.drafts.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one draft, got %d", len(records))
	}
	if records[0].Title != "Appeal notes" {
		t.Fatalf("unexpected title %q", records[0].Title)
	}
	if records[0].Content != "first line\nsecond line" {
		t.Fatalf("unexpected content %q", records[0].Content)
	}
	if !strings.Contains(out.String(), "saved draft "+records[0].ID) {
		t.Fatalf("expected save confirmation, got %q", out.String())
	}
}

func TestComposeDraftWithEmptyInputPersistsNothing(t *testing.T) {
	a := newDraftTestApp(t)
	var out bytes.Buffer

	if err := a.composeDraft(context.Background(), draft.Record{}, strings.NewReader(""), &out); err != nil {
		t.Fatalf("compose: %v", err)
	}
	records, err := a.drafts.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no drafts, got %d", len(records))
	}
	if !strings.Contains(out.String(), "nothing persisted") {
		t.Fatalf("expected empty-draft notice, got %q", out.String())
	}
}
