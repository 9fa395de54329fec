package resource

import (
	"fmt"
	"strings"

	"github.com/LexForumLab/lexforum/client/internal/identity"
)

// Payload is implemented by every mutation request body. Payloads are
// validated at the API boundary before any optimistic state is touched.
type Payload interface {
	Kind() Kind
	Validate() error
}

// ReminderPayload carries the writable fields of a reminder.
type ReminderPayload struct {
	Title        string `json:"title"`
	DueAtSeconds int64  `json:"due_at_s"`
	Done         bool   `json:"done"`
}

// Kind returns KindReminder.
func (p ReminderPayload) Kind() Kind { return KindReminder }

// Validate checks the payload against boundary rules.
func (p ReminderPayload) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: reminder title is required", ErrInvalidPayload)
	}
	if len(p.Title) > maxTextLength {
		return fmt.Errorf("%w: reminder title exceeds %d characters", ErrInvalidPayload, maxTextLength)
	}
	if p.DueAtSeconds <= 0 {
		return fmt.Errorf("%w: reminder due time must be positive", ErrInvalidPayload)
	}
	return nil
}

// BankAccountPayload carries the writable fields of a bank account.
type BankAccountPayload struct {
	HolderName string `json:"holder_name"`
	IBAN       string `json:"iban"`
	BankName   string `json:"bank_name"`
}

// Kind returns KindBankAccount.
func (p BankAccountPayload) Kind() Kind { return KindBankAccount }

// Validate checks the payload against boundary rules.
func (p BankAccountPayload) Validate() error {
	if strings.TrimSpace(p.HolderName) == "" {
		return fmt.Errorf("%w: account holder name is required", ErrInvalidPayload)
	}
	iban := strings.ReplaceAll(strings.TrimSpace(p.IBAN), " ", "")
	if len(iban) < 15 || len(iban) > 34 {
		return fmt.Errorf("%w: iban length out of range", ErrInvalidPayload)
	}
	return nil
}

// WithdrawalPayload carries the writable fields of a withdrawal request.
type WithdrawalPayload struct {
	AmountCents int64            `json:"amount_cents"`
	Currency    string           `json:"currency"`
	Status      WithdrawalStatus `json:"status,omitempty"`
}

// Kind returns KindWithdrawal.
func (p WithdrawalPayload) Kind() Kind { return KindWithdrawal }

// Validate checks the payload against boundary rules.
func (p WithdrawalPayload) Validate() error {
	if p.AmountCents <= 0 {
		return fmt.Errorf("%w: withdrawal amount must be positive", ErrInvalidPayload)
	}
	if len(strings.TrimSpace(p.Currency)) != 3 {
		return fmt.Errorf("%w: currency must be a three-letter code", ErrInvalidPayload)
	}
	switch p.Status {
	case "", WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusRejected:
		return nil
	default:
		return fmt.Errorf("%w: unknown withdrawal status %q", ErrInvalidPayload, p.Status)
	}
}

// CommentPayload carries the writable fields of a forum comment.
type CommentPayload struct {
	TopicID    int64  `json:"topic_id"`
	AuthorName string `json:"author_name"`
	Body       string `json:"body"`
}

// Kind returns KindComment.
func (p CommentPayload) Kind() Kind { return KindComment }

// Validate checks the payload against boundary rules.
func (p CommentPayload) Validate() error {
	if p.TopicID <= 0 {
		return fmt.Errorf("%w: comment topic is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.Body) == "" {
		return fmt.Errorf("%w: comment body is required", ErrInvalidPayload)
	}
	if len(p.Body) > maxTextLength {
		return fmt.Errorf("%w: comment body exceeds %d characters", ErrInvalidPayload, maxTextLength)
	}
	return nil
}

// NotificationPayload carries the writable fields of a notification.
type NotificationPayload struct {
	Body string `json:"body"`
	Read bool   `json:"read"`
}

// Kind returns KindNotification.
func (p NotificationPayload) Kind() Kind { return KindNotification }

// Validate checks the payload against boundary rules.
func (p NotificationPayload) Validate() error {
	if strings.TrimSpace(p.Body) == "" {
		return fmt.Errorf("%w: notification body is required", ErrInvalidPayload)
	}
	return nil
}

// ChatMessagePayload carries the writable fields of a chat message.
type ChatMessagePayload struct {
	ThreadID int64  `json:"thread_id"`
	Body     string `json:"body"`
}

// Kind returns KindChatMessage.
func (p ChatMessagePayload) Kind() Kind { return KindChatMessage }

// Validate checks the payload against boundary rules.
func (p ChatMessagePayload) Validate() error {
	if p.ThreadID <= 0 {
		return fmt.Errorf("%w: chat thread is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.Body) == "" {
		return fmt.Errorf("%w: chat message body is required", ErrInvalidPayload)
	}
	return nil
}

// Materialize builds the entity a payload describes under the given identity
// and creation time. Used for optimistic placeholder rows and by the dev
// backend when it accepts a create.
func Materialize(payload Payload, id identity.EntityID, nowSeconds int64) (Entity, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	switch p := payload.(type) {
	case ReminderPayload:
		return Reminder{
			EntityID:         id,
			Title:            p.Title,
			DueAtSeconds:     p.DueAtSeconds,
			Done:             p.Done,
			CreatedAtSeconds: nowSeconds,
		}, nil
	case BankAccountPayload:
		return BankAccount{
			EntityID:         id,
			HolderName:       p.HolderName,
			IBAN:             p.IBAN,
			BankName:         p.BankName,
			CreatedAtSeconds: nowSeconds,
		}, nil
	case WithdrawalPayload:
		status := p.Status
		if status == "" {
			status = WithdrawalStatusPending
		}
		return WithdrawalRequest{
			EntityID:         id,
			AmountCents:      p.AmountCents,
			Currency:         strings.ToUpper(strings.TrimSpace(p.Currency)),
			Status:           status,
			CreatedAtSeconds: nowSeconds,
		}, nil
	case CommentPayload:
		return Comment{
			EntityID:         id,
			TopicID:          p.TopicID,
			AuthorName:       p.AuthorName,
			Body:             p.Body,
			CreatedAtSeconds: nowSeconds,
		}, nil
	case NotificationPayload:
		return Notification{
			EntityID:         id,
			Body:             p.Body,
			Read:             p.Read,
			CreatedAtSeconds: nowSeconds,
		}, nil
	case ChatMessagePayload:
		return ChatMessage{
			EntityID:         id,
			ThreadID:         p.ThreadID,
			Body:             p.Body,
			CreatedAtSeconds: nowSeconds,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported payload type %T", ErrInvalidPayload, payload)
	}
}

// Amend applies a payload onto an existing entity, preserving its identity
// and creation time. Used for optimistic update patches.
func Amend(existing Entity, payload Payload) (Entity, error) {
	if existing == nil {
		return nil, fmt.Errorf("%w: nil entity", ErrInvalidPayload)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if existing.Kind() != payload.Kind() {
		return nil, fmt.Errorf("%w: payload kind %s does not match entity kind %s",
			ErrInvalidPayload, payload.Kind(), existing.Kind())
	}
	createdAt := createdAtSeconds(existing)
	return Materialize(payload, existing.ID(), createdAt)
}

func createdAtSeconds(entity Entity) int64 {
	switch e := entity.(type) {
	case Reminder:
		return e.CreatedAtSeconds
	case BankAccount:
		return e.CreatedAtSeconds
	case WithdrawalRequest:
		return e.CreatedAtSeconds
	case Comment:
		return e.CreatedAtSeconds
	case Notification:
		return e.CreatedAtSeconds
	case ChatMessage:
		return e.CreatedAtSeconds
	default:
		return 0
	}
}
