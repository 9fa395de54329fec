// Package draft persists unfinished user compositions across sessions and
// autosaves them as the user types.
package draft

import "strings"

// Record is one saved composition. ID is client-generated and stable for
// the life of the draft.
type Record struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Content           string   `json:"content"`
	Category          string   `json:"category"`
	Attachments       []string `json:"attachments,omitempty"`
	CreatedAtSeconds  int64    `json:"created_at_s"`
	ModifiedAtSeconds int64    `json:"modified_at_s"`
	// Legacy marks a record adopted from the old single-slot format.
	Legacy bool `json:"legacy,omitempty"`
}

// IsEmpty reports whether every user-authored field is blank. Empty drafts
// are never persisted; saving one deletes any stored copy.
func (r Record) IsEmpty() bool {
	if strings.TrimSpace(r.Title) != "" {
		return false
	}
	if strings.TrimSpace(r.Content) != "" {
		return false
	}
	if strings.TrimSpace(r.Category) != "" {
		return false
	}
	for _, attachment := range r.Attachments {
		if strings.TrimSpace(attachment) != "" {
			return false
		}
	}
	return true
}
