package identity

import "github.com/google/uuid"

// DraftIDProvider issues identifiers for locally persisted drafts.
type DraftIDProvider interface {
	NewDraftID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs a DraftIDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() DraftIDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewDraftID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
