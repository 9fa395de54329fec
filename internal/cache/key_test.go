package cache

import (
	"testing"

	"github.com/LexForumLab/lexforum/client/internal/resource"
)

func TestNewKeyIsOrderInsensitive(t *testing.T) {
	first := NewKey(resource.KindReminder, map[string]string{"page": "2", "status": "open"})
	second := NewKey(resource.KindReminder, map[string]string{"status": "open", "page": "2"})
	if first != second {
		t.Fatalf("expected identical keys, got %q and %q", first, second)
	}
}

func TestNewKeyDistinguishesFilterValues(t *testing.T) {
	open := NewKey(resource.KindReminder, map[string]string{"status": "open"})
	done := NewKey(resource.KindReminder, map[string]string{"status": "done"})
	if open == done {
		t.Fatalf("expected distinct keys for distinct filters")
	}
}

func TestNewKeyDistinguishesResources(t *testing.T) {
	reminders := NewKey(resource.KindReminder, nil)
	comments := NewKey(resource.KindComment, nil)
	if reminders == comments {
		t.Fatalf("expected distinct keys for distinct resources")
	}
}

func TestNewKeyDropsEmptyParameters(t *testing.T) {
	bare := NewKey(resource.KindComment, nil)
	padded := NewKey(resource.KindComment, map[string]string{"cursor": "", "q": "  "})
	if bare != padded {
		t.Fatalf("expected empty parameters to canonicalize away, got %q and %q", bare, padded)
	}
}

func TestNewKeyCanonicalText(t *testing.T) {
	key := NewKey(resource.KindComment, map[string]string{"topic": "12", "page": "1"})
	if key.String() != "comments?page=1&topic=12" {
		t.Fatalf("unexpected canonical form: %q", key)
	}
}
