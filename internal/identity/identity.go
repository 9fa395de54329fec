package identity

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidServerID indicates that a server-assigned identifier is not positive.
	ErrInvalidServerID = errors.New("identity: invalid server id")
	// ErrInvalidTemporaryID indicates that a temporary identifier is not negative.
	ErrInvalidTemporaryID = errors.New("identity: invalid temporary id")
)

// EntityID identifies a domain entity held in cached collections.
//
// Server-assigned identities are strictly positive. Temporary identities,
// minted locally before the backend acknowledges a creation, are strictly
// negative so the two spaces can never collide. The zero value means
// "no identity" and is only valid as a placeholder in creation payloads.
type EntityID int64

// NewServerID validates a backend-assigned identifier and returns an EntityID.
func NewServerID(value int64) (EntityID, error) {
	if value <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidServerID, value)
	}
	return EntityID(value), nil
}

// IsTemporary reports whether the identity was minted locally.
func (id EntityID) IsTemporary() bool {
	return id < 0
}

// IsServer reports whether the identity was assigned by the backend.
func (id EntityID) IsServer() bool {
	return id > 0
}

// IsZero reports whether the identity is the "no identity" placeholder.
func (id EntityID) IsZero() bool {
	return id == 0
}

// Int64 exposes the raw identifier value.
func (id EntityID) Int64() int64 {
	return int64(id)
}

// String renders the identity for logs and error messages.
func (id EntityID) String() string {
	if id.IsTemporary() {
		return fmt.Sprintf("temp(%d)", int64(id))
	}
	return fmt.Sprintf("%d", int64(id))
}

// TempAllocator mints temporary entity identities. Identities are strictly
// decreasing negative values, so every allocation is distinguishable from
// every earlier one and from the entire server identity space.
type TempAllocator struct {
	mu   sync.Mutex
	last int64
}

// NewTempAllocator constructs an allocator starting above -1.
func NewTempAllocator() *TempAllocator {
	return &TempAllocator{}
}

// Next returns a fresh temporary identity. Never returns the same value twice.
func (a *TempAllocator) Next() EntityID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last--
	return EntityID(a.last)
}
