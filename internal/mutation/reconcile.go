package mutation

import (
	"errors"
	"fmt"

	"github.com/LexForumLab/lexforum/client/internal/cache"
	"github.com/LexForumLab/lexforum/client/internal/identity"
	"github.com/LexForumLab/lexforum/client/internal/resource"
)

var (
	// ErrDuplicateServerIdentity indicates two rows sharing a server identity.
	ErrDuplicateServerIdentity = errors.New("mutation: duplicate server identity")
	// ErrTemporaryIdentityRetained indicates a temporary row survived reconciliation.
	ErrTemporaryIdentityRetained = errors.New("mutation: temporary identity retained")
	// ErrUnconfirmedEntity indicates the backend returned an entity without a server identity.
	ErrUnconfirmedEntity = errors.New("mutation: confirmed entity lacks server identity")
)

// reconcile merges the confirmed result into every cache entry the mutation
// touched. After it returns without error, no entry contains the retired
// temporary identity and no entry holds two rows with the same server
// identity.
func (e *Executor) reconcile(op Operation, mctx *Context, confirmed resource.Entity) error {
	switch op.Strategy {
	case StrategyCreate:
		return e.reconcileCreate(op, mctx, confirmed)
	case StrategyUpdate:
		return e.reconcileUpdate(op, confirmed)
	case StrategyDelete:
		e.reconcileDelete(op)
		return nil
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrUnconfirmedEntity, op.Strategy)
	}
}

func (e *Executor) reconcileCreate(op Operation, mctx *Context, confirmed resource.Entity) error {
	if confirmed == nil || confirmed.ID().IsZero() || confirmed.ID().IsTemporary() {
		return fmt.Errorf("%w: operation %s", ErrUnconfirmedEntity, op.Name)
	}
	tempID := mctx.tempID
	for _, key := range op.Keys {
		e.store.Write(key, func(old any, present bool) any {
			if !present {
				return old
			}
			switch value := old.(type) {
			case cache.Collection:
				return settleCreatedRow(value, tempID, confirmed, op.Less)
			case resource.Entity:
				if value.ID() == tempID {
					return confirmed
				}
				return old
			default:
				return old
			}
		})
	}
	return e.verifyIdentities(op.Keys, confirmed.ID(), tempID)
}

// settleCreatedRow swaps the temporary row for the confirmed one. Membership
// is checked by server identity before any insert: if a concurrent refetch
// already delivered the confirmed row, the temporary row is simply dropped.
func settleCreatedRow(collection cache.Collection, tempID identity.EntityID, confirmed resource.Entity, less resource.LessFunc) cache.Collection {
	confirmedIndex := collection.IndexOfID(confirmed.ID())
	tempIndex := collection.IndexOfID(tempID)
	switch {
	case confirmedIndex >= 0 && tempIndex >= 0:
		return collection.RemoveByID(tempID)
	case confirmedIndex >= 0:
		return collection
	case tempIndex >= 0:
		return collection.ReplaceAt(tempIndex, confirmed, less)
	default:
		// Entry was invalidated and refetched without either row; inserting
		// here would resurrect data the fresh fetch chose not to include.
		return collection
	}
}

func (e *Executor) reconcileUpdate(op Operation, confirmed resource.Entity) error {
	if confirmed == nil || confirmed.ID().IsZero() || confirmed.ID().IsTemporary() {
		return fmt.Errorf("%w: operation %s", ErrUnconfirmedEntity, op.Name)
	}
	for _, key := range op.Keys {
		e.store.Write(key, func(old any, present bool) any {
			if !present {
				return old
			}
			switch value := old.(type) {
			case cache.Collection:
				index := value.IndexOfID(confirmed.ID())
				if index < 0 {
					return old
				}
				return value.ReplaceAt(index, confirmed, op.Less)
			case resource.Entity:
				if value.ID() == confirmed.ID() {
					return confirmed
				}
				return old
			default:
				return old
			}
		})
	}
	return e.verifyIdentities(op.Keys, confirmed.ID(), 0)
}

func (e *Executor) reconcileDelete(op Operation) {
	for _, key := range op.Keys {
		e.store.Write(key, func(old any, present bool) any {
			if !present {
				return old
			}
			switch value := old.(type) {
			case cache.Collection:
				return value.RemoveByID(op.EntityID)
			case resource.Entity:
				if value.ID() == op.EntityID {
					return nil
				}
				return old
			default:
				return old
			}
		})
	}
}

// verifyIdentities asserts the post-reconciliation invariants. Violations
// can only arise from corruption that predates this mutation, so they are
// surfaced as errors rather than repaired in place.
func (e *Executor) verifyIdentities(keys []cache.Key, serverID, tempID identity.EntityID) error {
	for _, key := range keys {
		value, ok := e.store.Read(key)
		if !ok {
			continue
		}
		collection, isCollection := value.(cache.Collection)
		if !isCollection {
			continue
		}
		if collection.CountID(serverID) > 1 {
			return fmt.Errorf("%w: id %s in entry %s", ErrDuplicateServerIdentity, serverID, key)
		}
		if !tempID.IsZero() && collection.IndexOfID(tempID) >= 0 {
			return fmt.Errorf("%w: id %s in entry %s", ErrTemporaryIdentityRetained, tempID, key)
		}
	}
	return nil
}
