package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	contactmodels "phone-sim-demo/backend/contact/models"
	contactservice "phone-sim-demo/backend/contact/service"
	convmodels "phone-sim-demo/backend/conversation/models"
	"phone-sim-demo/backend/conversation/store"
	loreservice "phone-sim-demo/backend/lore/service"
	apperrors "phone-sim-demo/backend/pkg/errors"
	"phone-sim-demo/backend/pkg/logger"
	"phone-sim-demo/backend/shared/observability"

	"github.com/google/uuid"
)

// Generator produces raw reply text for a composed request. The gateway
// client satisfies this; tests substitute their own.
type Generator interface {
	Generate(ctx context.Context, req *GenerationRequest) (string, error)
}

// TurnResult summarizes one accepted turn.
type TurnResult struct {
	TurnID    string `json:"turn_id"`
	Mood      string `json:"mood,omitempty"`
	Fragments int    `json:"fragments"`
}

// delivery identifies one in-flight background drip.
type delivery struct {
	cancel context.CancelFunc
}

// Service drives the full response pipeline for a contact: compose,
// generate, segment, then drip the fragments into the conversation.
// Composition through segmentation runs synchronously so callers see
// pipeline failures directly; delivery runs in the background and is
// cancelled when a newer turn arrives for the same contact.
type Service struct {
	store     *store.Store
	contacts  *contactservice.ContactService
	lore      *loreservice.LoreService
	composer  *Composer
	generator Generator
	segmenter *Segmenter
	scheduler *Scheduler
	claims    *ClaimScheduler
	moods     MoodStore
	metrics   *observability.PipelineMetrics
	log       *logger.Logger

	mu     sync.Mutex
	active map[string]*delivery
	wg     sync.WaitGroup
}

// ServiceOptions wires a pipeline service together.
type ServiceOptions struct {
	Store     *store.Store
	Contacts  *contactservice.ContactService
	Lore      *loreservice.LoreService
	Composer  *Composer
	Generator Generator
	Segmenter *Segmenter
	Scheduler *Scheduler
	Claims    *ClaimScheduler
	Moods     MoodStore
	Metrics   *observability.PipelineMetrics
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		store:     opts.Store,
		contacts:  opts.Contacts,
		lore:      opts.Lore,
		composer:  opts.Composer,
		generator: opts.Generator,
		segmenter: opts.Segmenter,
		scheduler: opts.Scheduler,
		claims:    opts.Claims,
		moods:     opts.Moods,
		metrics:   opts.Metrics,
		log:       logger.GetGlobal().WithComponent("pipeline"),
		active:    make(map[string]*delivery),
	}
}

// SendMessage records a user-authored message without invoking the
// model. Payment-like messages get an auto-claim scheduled.
func (s *Service) SendMessage(contactID string, msg convmodels.Message) (*convmodels.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.IsSelf = true
	if msg.IsPaymentLike() && msg.ClaimStatus == "" {
		msg.ClaimStatus = convmodels.ClaimUnclaimed
	}
	if err := s.store.Append(contactID, msg); err != nil {
		return nil, err
	}
	if s.claims != nil {
		s.claims.Schedule(contactID, msg)
	}
	return &msg, nil
}

// SubmitTurn records an optional user message and then runs one model
// turn. Any in-flight delivery for the contact is superseded.
func (s *Service) SubmitTurn(ctx context.Context, contactID string, userMsg *convmodels.Message) (*TurnResult, error) {
	if userMsg != nil {
		if _, err := s.SendMessage(contactID, *userMsg); err != nil {
			return nil, err
		}
	}
	return s.runTurn(ctx, contactID)
}

// Regenerate discards the trailing model turn and produces a fresh one
// from the same user turn. When nothing in the log is a user turn the
// call is a no-op and the model is never invoked.
func (s *Service) Regenerate(ctx context.Context, contactID string) (*TurnResult, error) {
	s.cancelActive(contactID)
	s.store.TruncateTrailingModelTurn(contactID)
	if !s.store.HasUserTurn(contactID) {
		s.log.Debug("regenerate without user turn ignored", "contactId", contactID)
		return &TurnResult{}, nil
	}
	return s.runTurn(ctx, contactID)
}

func (s *Service) runTurn(ctx context.Context, contactID string) (*TurnResult, error) {
	s.cancelActive(contactID)

	turnID := uuid.New().String()
	log := s.log.WithContactID(contactID).WithTurnID(turnID)
	s.metrics.TurnsStarted.Add(ctx, 1)

	contact, err := s.contacts.GetContact(contactID)
	if err != nil {
		s.metrics.RecordTurnFailed(ctx, codeOf(err))
		return nil, err
	}

	result, err := s.generateAndDeliver(ctx, contactID, contact, log)
	if err != nil {
		return nil, err
	}
	result.TurnID = turnID
	return result, nil
}

func (s *Service) generateAndDeliver(ctx context.Context, contactID string, contact *contactmodels.Contact, log *logger.Logger) (*TurnResult, error) {
	lore, err := s.lore.Select(contact.Name)
	if err != nil {
		log.Warn("lore selection failed, continuing without world info", "error", err)
		lore = nil
	}
	forbidden, err := s.lore.ForbiddenWords()
	if err != nil {
		log.Warn("forbidden word lookup failed", "error", err)
		forbidden = nil
	}

	req, err := s.composer.Compose(contact, s.contacts.Profile(), s.store.Messages(contactID), lore, forbidden)
	if err != nil {
		s.metrics.RecordTurnFailed(ctx, CodeMissingPersona)
		return nil, err
	}

	typing := func(on bool) {
		s.store.Notify(store.Event{Type: store.EventTyping, ContactID: contactID, Typing: on})
	}
	typing(true)

	start := time.Now()
	raw, err := s.generator.Generate(ctx, req)
	s.metrics.RecordGatewayLatency(ctx, time.Since(start))
	if err != nil {
		typing(false)
		s.metrics.RecordTurnFailed(ctx, codeOf(err))
		log.Error("generation failed", "error", err)
		return nil, err
	}

	seg := s.segmenter.Segment(raw)
	if seg.Mood != "" {
		if err := s.moods.SetMood(ctx, contactID, seg.Mood); err != nil {
			log.Warn("mood update failed", "error", err)
		}
		s.store.Notify(store.Event{Type: store.EventMoodChanged, ContactID: contactID, Mood: seg.Mood})
	}

	if len(seg.Fragments) == 0 {
		// A reply with nothing worth saying is a valid silent turn.
		typing(false)
		log.Info("turn produced no deliverable fragments")
		return &TurnResult{Mood: seg.Mood}, nil
	}

	deliveryCtx, cancel := context.WithCancel(context.Background())
	d := &delivery{cancel: cancel}
	s.mu.Lock()
	s.active[contactID] = d
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			if s.active[contactID] == d {
				delete(s.active, contactID)
			}
			s.mu.Unlock()
			typing(false)
		}()

		delivered, err := s.scheduler.Deliver(deliveryCtx, s.store, contactID, seg.Fragments)
		s.metrics.FragmentsDelivered.Add(context.Background(), int64(delivered))
		if err != nil {
			s.metrics.DeliveriesCancelled.Add(context.Background(), 1)
			log.Debug("delivery stopped early", "delivered", delivered, "error", err)
			return
		}
		log.Debug("delivery finished", "delivered", delivered)
	}()

	return &TurnResult{Mood: seg.Mood, Fragments: len(seg.Fragments)}, nil
}

// cancelActive supersedes the in-flight delivery for a contact, if any.
func (s *Service) cancelActive(contactID string) {
	s.mu.Lock()
	if d, ok := s.active[contactID]; ok {
		d.cancel()
		delete(s.active, contactID)
	}
	s.mu.Unlock()
}

// DeleteMessages removes the given messages from the log, dropping any
// pending auto-claim flip for them first.
func (s *Service) DeleteMessages(contactID string, messageIDs []string) []convmodels.Message {
	if s.claims != nil {
		for _, id := range messageIDs {
			s.claims.Cancel(id)
		}
	}
	return s.store.RemoveMessages(contactID, messageIDs)
}

// Mood returns the contact's current status-bar mood.
func (s *Service) Mood(ctx context.Context, contactID string) (string, error) {
	return s.moods.GetMood(ctx, contactID)
}

// Shutdown cancels all in-flight deliveries and waits for them.
func (s *Service) Shutdown() {
	s.mu.Lock()
	for id, d := range s.active {
		d.cancel()
		delete(s.active, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
	if s.claims != nil {
		s.claims.Shutdown()
	}
}

func codeOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeGatewayUnavailable
}
