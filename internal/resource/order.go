package resource

// LessFunc orders two entities of the same kind within a cached collection.
type LessFunc func(a, b Entity) bool

// Less returns the collection ordering for the given kind. Reminders sort by
// due time, chat and forum threads read oldest-first, feeds read newest-first.
// Ties break on identity so re-sorts are stable across reconciliation.
func Less(kind Kind) LessFunc {
	switch kind {
	case KindReminder:
		return func(a, b Entity) bool {
			left, _ := a.(Reminder)
			right, _ := b.(Reminder)
			if left.DueAtSeconds != right.DueAtSeconds {
				return left.DueAtSeconds < right.DueAtSeconds
			}
			return a.ID() < b.ID()
		}
	case KindBankAccount:
		return createdAscending
	case KindComment, KindChatMessage:
		return createdAscending
	case KindWithdrawal, KindNotification:
		return createdDescending
	default:
		return func(a, b Entity) bool { return a.ID() < b.ID() }
	}
}

func createdAscending(a, b Entity) bool {
	left := createdAtSeconds(a)
	right := createdAtSeconds(b)
	if left != right {
		return left < right
	}
	return a.ID() < b.ID()
}

func createdDescending(a, b Entity) bool {
	left := createdAtSeconds(a)
	right := createdAtSeconds(b)
	if left != right {
		return left > right
	}
	return a.ID() > b.ID()
}
