package cache

import (
	"sort"

	"github.com/LexForumLab/lexforum/client/internal/identity"
	"github.com/LexForumLab/lexforum/client/internal/resource"
)

// Collection is the cached value of a list query: an ordered page of
// entities plus the backend's total row count for the filter.
//
// Collections are treated as immutable once stored. Updaters build a new
// Collection (usually via Clone) instead of mutating rows in place; that is
// what lets snapshots be held and restored verbatim.
type Collection struct {
	Items []resource.Entity
	Total int
}

// Clone returns a Collection whose item slice is independent of the receiver.
func (c Collection) Clone() Collection {
	items := make([]resource.Entity, len(c.Items))
	copy(items, c.Items)
	return Collection{Items: items, Total: c.Total}
}

// IndexOfID returns the position of the row with the given identity, or -1.
func (c Collection) IndexOfID(id identity.EntityID) int {
	for i, item := range c.Items {
		if item.ID() == id {
			return i
		}
	}
	return -1
}

// InsertSorted returns a copy of the collection with the entity inserted at
// its ordered position and the total incremented. A nil less appends.
func (c Collection) InsertSorted(entity resource.Entity, less resource.LessFunc) Collection {
	next := c.Clone()
	next.Items = append(next.Items, entity)
	if less != nil {
		sort.SliceStable(next.Items, func(i, j int) bool {
			return less(next.Items[i], next.Items[j])
		})
	}
	next.Total = c.Total + 1
	return next
}

// RemoveByID returns a copy of the collection without the identified row and
// with the total decremented. Removing an absent identity is a no-op.
func (c Collection) RemoveByID(id identity.EntityID) Collection {
	index := c.IndexOfID(id)
	if index < 0 {
		return c
	}
	next := c.Clone()
	next.Items = append(next.Items[:index], next.Items[index+1:]...)
	next.Total = c.Total - 1
	return next
}

// ReplaceAt returns a copy of the collection with the row at index swapped
// for the entity, re-sorted when less is non-nil.
func (c Collection) ReplaceAt(index int, entity resource.Entity, less resource.LessFunc) Collection {
	if index < 0 || index >= len(c.Items) {
		return c
	}
	next := c.Clone()
	next.Items[index] = entity
	if less != nil {
		sort.SliceStable(next.Items, func(i, j int) bool {
			return less(next.Items[i], next.Items[j])
		})
	}
	return next
}

// CountID reports how many rows carry the given identity. Anything above one
// is an invariant violation upstream.
func (c Collection) CountID(id identity.EntityID) int {
	count := 0
	for _, item := range c.Items {
		if item.ID() == id {
			count++
		}
	}
	return count
}
