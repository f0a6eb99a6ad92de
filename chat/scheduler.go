package chat

import (
	"context"
	"math/rand"
	"time"

	convmodels "phone-sim-demo/backend/conversation/models"

	"github.com/google/uuid"
)

// Appender receives delivered fragments one at a time. The conversation
// store satisfies this.
type Appender interface {
	Append(contactID string, msg convmodels.Message) error
}

// Scheduler drips segmented fragments into a conversation with a
// randomized pause before each one, so a multi-bubble reply lands the
// way a person typing would send it.
type Scheduler struct {
	// DelayBase and DelayRand bound the pre-fragment pause:
	// each delay is DelayBase plus a uniform draw from [0, DelayRand).
	DelayBase time.Duration
	DelayRand time.Duration
}

func NewScheduler(base, jitter time.Duration) *Scheduler {
	if base <= 0 {
		base = 800 * time.Millisecond
	}
	if jitter <= 0 {
		jitter = 1200 * time.Millisecond
	}
	return &Scheduler{DelayBase: base, DelayRand: jitter}
}

// delay draws one pre-fragment pause from [DelayBase, DelayBase+DelayRand).
func (s *Scheduler) delay() time.Duration {
	return s.DelayBase + time.Duration(rand.Int63n(int64(s.DelayRand)))
}

// Deliver appends fragments in order, pausing before each one. It stops
// at the first context cancellation or append failure and reports how
// many fragments actually landed. Fragments already delivered are never
// retracted.
func (s *Scheduler) Deliver(ctx context.Context, dst Appender, contactID string, fragments []string) (int, error) {
	delivered := 0
	for _, fragment := range fragments {
		timer := time.NewTimer(s.delay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return delivered, ctx.Err()
		case <-timer.C:
		}

		msg := convmodels.Message{
			ID:        uuid.New().String(),
			Kind:      convmodels.KindText,
			Text:      fragment,
			IsSelf:    false,
			Timestamp: time.Now(),
		}
		if err := dst.Append(contactID, msg); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}
