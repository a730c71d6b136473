package session

// Event describes one committed state transition. The snapshot is an
// immutable copy: consumers must redact it per recipient (Redact) before
// delivery, never forward it raw.
type Event struct {
	SessionID      string
	ConversationID string
	ChangedFields  []string
	Snapshot       *Session
}

// Notifier receives committed state-change events. Implementations must
// not block: delivery transport (socket, push, poll) is the consumer's
// concern and runs outside the engine's concurrency domain.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }
