package store

import (
	"sync"

	"phone-sim-demo/backend/conversation/models"
)

// Event types published to subscribers
const (
	EventMessageAppended = "message_appended"
	EventMessageUpdated  = "message_updated"
	EventMessagesRemoved = "messages_removed"
	EventLogTruncated    = "log_truncated"
	EventTyping          = "typing"
	EventMoodChanged     = "mood_changed"
)

// Event describes one observable change to a conversation log
type Event struct {
	Type      string           `json:"type"`
	ContactID string           `json:"contact_id"`
	Message   *models.Message  `json:"message,omitempty"`
	Removed   []models.Message `json:"removed,omitempty"`
	Typing    bool             `json:"typing,omitempty"`
	Mood      string           `json:"mood,omitempty"`
}

// Store holds the per-contact conversation logs. It is the only shared
// mutable resource in the pipeline: the delivery scheduler, the user send
// path, the claim-flip timer and multi-select deletes all write to it
// concurrently. Every mutation is expressed as a transform of the current
// log value, never as a replacement computed from a stale snapshot.
type Store struct {
	mu   sync.RWMutex
	logs map[string][]models.Message

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		logs: make(map[string][]models.Message),
		subs: make(map[int]chan Event),
	}
}

// Update applies fn to the current log of contactID while holding the
// write lock. fn must be pure: it receives the current log and returns the
// new one. This is the composing-update contract every writer goes through.
func (s *Store) Update(contactID string, fn func([]models.Message) []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[contactID] = fn(s.logs[contactID])
}

// Append adds a message to the end of the contact's log
func (s *Store) Append(contactID string, msg models.Message) error {
	s.Update(contactID, func(log []models.Message) []models.Message {
		return append(log, msg)
	})
	s.publish(Event{Type: EventMessageAppended, ContactID: contactID, Message: &msg})
	return nil
}

// UpdateMessage applies fn to the message with the given ID, if present.
// Returns true when a message was updated.
func (s *Store) UpdateMessage(contactID, messageID string, fn func(models.Message) models.Message) bool {
	var updated *models.Message
	s.Update(contactID, func(log []models.Message) []models.Message {
		out := make([]models.Message, len(log))
		for i, m := range log {
			if m.ID == messageID {
				m = fn(m)
				updated = &m
			}
			out[i] = m
		}
		return out
	})
	if updated == nil {
		return false
	}
	s.publish(Event{Type: EventMessageUpdated, ContactID: contactID, Message: updated})
	return true
}

// RemoveMessages deletes every message whose ID is in ids
func (s *Store) RemoveMessages(contactID string, ids []string) []models.Message {
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	var removed []models.Message
	s.Update(contactID, func(log []models.Message) []models.Message {
		out := make([]models.Message, 0, len(log))
		for _, m := range log {
			if _, ok := idSet[m.ID]; ok {
				removed = append(removed, m)
				continue
			}
			out = append(out, m)
		}
		return out
	})

	if len(removed) > 0 {
		s.publish(Event{Type: EventMessagesRemoved, ContactID: contactID, Removed: removed})
	}
	return removed
}

// TruncateTrailingModelTurn removes every trailing model-authored message
// up to (and not including) the most recent user message, returning the
// removed messages in their original order. If the log holds no user
// message at all it is cleared entirely.
func (s *Store) TruncateTrailingModelTurn(contactID string) []models.Message {
	var removed []models.Message
	s.Update(contactID, func(log []models.Message) []models.Message {
		cut := len(log)
		for cut > 0 && !log[cut-1].IsSelf {
			cut--
		}
		removed = append([]models.Message(nil), log[cut:]...)
		return append([]models.Message(nil), log[:cut]...)
	})

	if len(removed) > 0 {
		s.publish(Event{Type: EventLogTruncated, ContactID: contactID, Removed: removed})
	}
	return removed
}

// Messages returns a copy of the contact's log
func (s *Store) Messages(contactID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.logs[contactID]...)
}

// HasUserTurn reports whether any user-authored message exists in the log
func (s *Store) HasUserTurn(contactID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.logs[contactID] {
		if m.IsSelf {
			return true
		}
	}
	return false
}

// Load replaces the contact's log wholesale. Only used for hydration at
// startup, before any writer is running.
func (s *Store) Load(contactID string, log []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[contactID] = append([]models.Message(nil), log...)
}

// Notify publishes a non-log event (typing indicator, mood change) to
// subscribers through the same observation point as log changes
func (s *Store) Notify(event Event) {
	s.publish(event)
}

// Subscribe registers a new event listener. The returned function
// unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 64)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish fans an event out to all subscribers, dropping it for any
// subscriber whose buffer is full rather than blocking a writer
func (s *Store) publish(event Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
