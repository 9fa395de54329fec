package resource

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LexForumLab/lexforum/client/internal/identity"
)

const maxTextLength = 10000

var (
	// ErrUnknownKind indicates that a resource name is not part of the catalogue.
	ErrUnknownKind = errors.New("resource: unknown kind")
	// ErrInvalidPayload indicates that a mutation payload failed boundary validation.
	ErrInvalidPayload = errors.New("resource: invalid payload")
)

// Kind enumerates the backend resources the engine mutates.
type Kind string

const (
	// KindReminder covers consultation and deadline reminders.
	KindReminder Kind = "reminders"
	// KindBankAccount covers payout bank accounts.
	KindBankAccount Kind = "bank-accounts"
	// KindWithdrawal covers lawyer earnings withdrawal requests.
	KindWithdrawal Kind = "withdrawals"
	// KindComment covers forum comments.
	KindComment Kind = "comments"
	// KindNotification covers in-app notifications.
	KindNotification Kind = "notifications"
	// KindChatMessage covers consultation chat messages.
	KindChatMessage Kind = "chat-messages"
)

// ParseKind validates a raw resource name and returns the matching Kind.
func ParseKind(rawInput string) (Kind, error) {
	trimmed := Kind(strings.ToLower(strings.TrimSpace(rawInput)))
	switch trimmed {
	case KindReminder, KindBankAccount, KindWithdrawal, KindComment, KindNotification, KindChatMessage:
		return trimmed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, rawInput)
	}
}

// String returns the resource name used in cache keys and request paths.
func (k Kind) String() string {
	return string(k)
}

// Entity is implemented by every domain record held in cached collections.
type Entity interface {
	Kind() Kind
	ID() identity.EntityID
}

// Reminder models a consultation or deadline reminder.
type Reminder struct {
	EntityID         identity.EntityID
	Title            string
	DueAtSeconds     int64
	Done             bool
	CreatedAtSeconds int64
}

// Kind returns KindReminder.
func (r Reminder) Kind() Kind { return KindReminder }

// ID returns the reminder's identity.
func (r Reminder) ID() identity.EntityID { return r.EntityID }

// BankAccount models a payout bank account.
type BankAccount struct {
	EntityID         identity.EntityID
	HolderName       string
	IBAN             string
	BankName         string
	CreatedAtSeconds int64
}

// Kind returns KindBankAccount.
func (a BankAccount) Kind() Kind { return KindBankAccount }

// ID returns the account's identity.
func (a BankAccount) ID() identity.EntityID { return a.EntityID }

// WithdrawalStatus enumerates the lifecycle of a withdrawal request.
type WithdrawalStatus string

const (
	// WithdrawalStatusPending marks a request awaiting review.
	WithdrawalStatusPending WithdrawalStatus = "pending"
	// WithdrawalStatusApproved marks an approved request.
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	// WithdrawalStatusRejected marks a rejected request.
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// WithdrawalRequest models a lawyer earnings withdrawal.
type WithdrawalRequest struct {
	EntityID         identity.EntityID
	AmountCents      int64
	Currency         string
	Status           WithdrawalStatus
	CreatedAtSeconds int64
}

// Kind returns KindWithdrawal.
func (w WithdrawalRequest) Kind() Kind { return KindWithdrawal }

// ID returns the request's identity.
func (w WithdrawalRequest) ID() identity.EntityID { return w.EntityID }

// Comment models a forum comment.
type Comment struct {
	EntityID         identity.EntityID
	TopicID          int64
	AuthorName       string
	Body             string
	CreatedAtSeconds int64
}

// Kind returns KindComment.
func (c Comment) Kind() Kind { return KindComment }

// ID returns the comment's identity.
func (c Comment) ID() identity.EntityID { return c.EntityID }

// Notification models an in-app notification.
type Notification struct {
	EntityID         identity.EntityID
	Body             string
	Read             bool
	CreatedAtSeconds int64
}

// Kind returns KindNotification.
func (n Notification) Kind() Kind { return KindNotification }

// ID returns the notification's identity.
func (n Notification) ID() identity.EntityID { return n.EntityID }

// ChatMessage models a consultation chat message.
type ChatMessage struct {
	EntityID         identity.EntityID
	ThreadID         int64
	Body             string
	CreatedAtSeconds int64
}

// Kind returns KindChatMessage.
func (m ChatMessage) Kind() Kind { return KindChatMessage }

// ID returns the message's identity.
func (m ChatMessage) ID() identity.EntityID { return m.EntityID }
