package resource

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LexForumLab/lexforum/client/internal/identity"
)

// ErrInvalidWirePayload indicates that a backend response could not be decoded.
var ErrInvalidWirePayload = errors.New("resource: invalid wire payload")

type reminderWire struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	DueAtSeconds     int64  `json:"due_at_s"`
	Done             bool   `json:"done"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

type bankAccountWire struct {
	ID               int64  `json:"id"`
	HolderName       string `json:"holder_name"`
	IBAN             string `json:"iban"`
	BankName         string `json:"bank_name"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

type withdrawalWire struct {
	ID               int64  `json:"id"`
	AmountCents      int64  `json:"amount_cents"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

type commentWire struct {
	ID               int64  `json:"id"`
	TopicID          int64  `json:"topic_id"`
	AuthorName       string `json:"author_name"`
	Body             string `json:"body"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

type notificationWire struct {
	ID               int64  `json:"id"`
	Body             string `json:"body"`
	Read             bool   `json:"read"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

type chatMessageWire struct {
	ID               int64  `json:"id"`
	ThreadID         int64  `json:"thread_id"`
	Body             string `json:"body"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

// DecodeEntity parses a confirmed entity from its backend wire form. The
// backend never returns temporary identities, so the id must be positive.
func DecodeEntity(kind Kind, data []byte) (Entity, error) {
	switch kind {
	case KindReminder:
		var wire reminderWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		id, err := identity.NewServerID(wire.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		return Reminder{
			EntityID:         id,
			Title:            wire.Title,
			DueAtSeconds:     wire.DueAtSeconds,
			Done:             wire.Done,
			CreatedAtSeconds: wire.CreatedAtSeconds,
		}, nil
	case KindBankAccount:
		var wire bankAccountWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		id, err := identity.NewServerID(wire.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		return BankAccount{
			EntityID:         id,
			HolderName:       wire.HolderName,
			IBAN:             wire.IBAN,
			BankName:         wire.BankName,
			CreatedAtSeconds: wire.CreatedAtSeconds,
		}, nil
	case KindWithdrawal:
		var wire withdrawalWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		id, err := identity.NewServerID(wire.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		return WithdrawalRequest{
			EntityID:         id,
			AmountCents:      wire.AmountCents,
			Currency:         wire.Currency,
			Status:           WithdrawalStatus(wire.Status),
			CreatedAtSeconds: wire.CreatedAtSeconds,
		}, nil
	case KindComment:
		var wire commentWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		id, err := identity.NewServerID(wire.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		return Comment{
			EntityID:         id,
			TopicID:          wire.TopicID,
			AuthorName:       wire.AuthorName,
			Body:             wire.Body,
			CreatedAtSeconds: wire.CreatedAtSeconds,
		}, nil
	case KindNotification:
		var wire notificationWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		id, err := identity.NewServerID(wire.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		return Notification{
			EntityID:         id,
			Body:             wire.Body,
			Read:             wire.Read,
			CreatedAtSeconds: wire.CreatedAtSeconds,
		}, nil
	case KindChatMessage:
		var wire chatMessageWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		id, err := identity.NewServerID(wire.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		return ChatMessage{
			EntityID:         id,
			ThreadID:         wire.ThreadID,
			Body:             wire.Body,
			CreatedAtSeconds: wire.CreatedAtSeconds,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// EncodeEntity renders an entity into its backend wire form.
func EncodeEntity(entity Entity) (json.RawMessage, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: nil entity", ErrInvalidWirePayload)
	}
	switch e := entity.(type) {
	case Reminder:
		return json.Marshal(reminderWire{
			ID:               e.EntityID.Int64(),
			Title:            e.Title,
			DueAtSeconds:     e.DueAtSeconds,
			Done:             e.Done,
			CreatedAtSeconds: e.CreatedAtSeconds,
		})
	case BankAccount:
		return json.Marshal(bankAccountWire{
			ID:               e.EntityID.Int64(),
			HolderName:       e.HolderName,
			IBAN:             e.IBAN,
			BankName:         e.BankName,
			CreatedAtSeconds: e.CreatedAtSeconds,
		})
	case WithdrawalRequest:
		return json.Marshal(withdrawalWire{
			ID:               e.EntityID.Int64(),
			AmountCents:      e.AmountCents,
			Currency:         e.Currency,
			Status:           string(e.Status),
			CreatedAtSeconds: e.CreatedAtSeconds,
		})
	case Comment:
		return json.Marshal(commentWire{
			ID:               e.EntityID.Int64(),
			TopicID:          e.TopicID,
			AuthorName:       e.AuthorName,
			Body:             e.Body,
			CreatedAtSeconds: e.CreatedAtSeconds,
		})
	case Notification:
		return json.Marshal(notificationWire{
			ID:               e.EntityID.Int64(),
			Body:             e.Body,
			Read:             e.Read,
			CreatedAtSeconds: e.CreatedAtSeconds,
		})
	case ChatMessage:
		return json.Marshal(chatMessageWire{
			ID:               e.EntityID.Int64(),
			ThreadID:         e.ThreadID,
			Body:             e.Body,
			CreatedAtSeconds: e.CreatedAtSeconds,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported entity type %T", ErrInvalidWirePayload, entity)
	}
}

// DecodePayload parses a mutation payload for the given kind and validates it.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	var payload Payload
	switch kind {
	case KindReminder:
		var p ReminderPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		payload = p
	case KindBankAccount:
		var p BankAccountPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		payload = p
	case KindWithdrawal:
		var p WithdrawalPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		payload = p
	case KindComment:
		var p CommentPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		payload = p
	case KindNotification:
		var p NotificationPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		payload = p
	case KindChatMessage:
		var p ChatMessagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWirePayload, err)
		}
		payload = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}
