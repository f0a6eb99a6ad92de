package service

import (
	"phone-sim-demo/backend/conversation/models"
	"phone-sim-demo/backend/conversation/repository"
	"phone-sim-demo/backend/conversation/store"
	"phone-sim-demo/backend/pkg/logger"
)

// ConversationService owns the in-memory conversation store and keeps the
// message archive in sync with it. The store is the source of truth for a
// running process; the archive only hydrates it at startup.
type ConversationService struct {
	store *store.Store
	repo  repository.MessageRepository
	log   *logger.Logger

	stopPersist func()
}

func NewConversationService(st *store.Store, repo repository.MessageRepository, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store: st,
		repo:  repo,
		log:   log,
	}
}

// Store exposes the underlying conversation store
func (s *ConversationService) Store() *store.Store {
	return s.store
}

// Hydrate loads every archived conversation into the store. Must be called
// before any writers start.
func (s *ConversationService) Hydrate() error {
	if s.repo == nil {
		return nil
	}
	contactIDs, err := s.repo.ContactIDs()
	if err != nil {
		return err
	}
	for _, contactID := range contactIDs {
		messages, err := s.repo.GetByContact(contactID)
		if err != nil {
			return err
		}
		s.store.Load(contactID, messages)
	}
	s.log.Info("conversation store hydrated", "contacts", len(contactIDs))
	return nil
}

// StartPersistence subscribes to store events and mirrors log changes into
// the archive. Persistence failures are logged and do not interrupt the
// pipeline.
func (s *ConversationService) StartPersistence() {
	if s.repo == nil {
		return
	}
	events, cancel := s.store.Subscribe()
	s.stopPersist = cancel

	go func() {
		for event := range events {
			s.persist(event)
		}
	}()
}

// StopPersistence stops mirroring store events
func (s *ConversationService) StopPersistence() {
	if s.stopPersist != nil {
		s.stopPersist()
		s.stopPersist = nil
	}
}

func (s *ConversationService) persist(event store.Event) {
	var err error
	switch event.Type {
	case store.EventMessageAppended:
		err = s.repo.Save(event.ContactID, event.Message)
	case store.EventMessageUpdated:
		err = s.repo.Update(event.ContactID, event.Message)
	case store.EventMessagesRemoved, store.EventLogTruncated:
		ids := make([]string, 0, len(event.Removed))
		for _, m := range event.Removed {
			ids = append(ids, m.ID)
		}
		err = s.repo.DeleteByMessageIDs(event.ContactID, ids)
	default:
		// typing / mood events are transient, never archived
		return
	}
	if err != nil {
		s.log.LogError(err, "failed to persist conversation event",
			"event_type", event.Type,
			"contact_id", event.ContactID,
		)
	}
}

// History returns a page of the contact's log. A limit of 0 returns the
// whole log.
func (s *ConversationService) History(contactID string, limit, offset int) ([]models.Message, int) {
	all := s.store.Messages(contactID)
	total := len(all)

	if offset >= total {
		return []models.Message{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total
}

// EditMessageText replaces the text of one message
func (s *ConversationService) EditMessageText(contactID, messageID, text string) bool {
	return s.store.UpdateMessage(contactID, messageID, func(m models.Message) models.Message {
		m.Text = text
		return m
	})
}
