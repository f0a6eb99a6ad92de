package chat

import (
	"context"
	"math/rand"
	"sync"
	"time"

	convmodels "phone-sim-demo/backend/conversation/models"
	"phone-sim-demo/backend/conversation/store"
	"phone-sim-demo/backend/pkg/logger"
)

// ClaimScheduler flips user-sent red packets and transfers to claimed
// after a short randomized pause, simulating the contact accepting them.
// One pending task exists per message; deleting the message or shutting
// down cancels it.
type ClaimScheduler struct {
	store *store.Store
	log   *logger.Logger

	DelayBase time.Duration
	DelayRand time.Duration

	mu      sync.Mutex
	pending map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewClaimScheduler(st *store.Store, base, jitter time.Duration) *ClaimScheduler {
	if base <= 0 {
		base = 2000 * time.Millisecond
	}
	if jitter <= 0 {
		jitter = 1500 * time.Millisecond
	}
	return &ClaimScheduler{
		store:     st,
		log:       logger.GetGlobal().WithComponent("claims"),
		DelayBase: base,
		DelayRand: jitter,
		pending:   make(map[string]context.CancelFunc),
	}
}

// Schedule queues an auto-claim for a payment-like user message. Other
// kinds are ignored.
func (c *ClaimScheduler) Schedule(contactID string, msg convmodels.Message) {
	if !msg.IsPaymentLike() || !msg.IsSelf {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if prev, ok := c.pending[msg.ID]; ok {
		prev()
	}
	c.pending[msg.ID] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.pending, msg.ID)
			c.mu.Unlock()
		}()

		delay := c.DelayBase + time.Duration(rand.Int63n(int64(c.DelayRand)))
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		updated := c.store.UpdateMessage(contactID, msg.ID, func(m convmodels.Message) convmodels.Message {
			if m.ClaimStatus == convmodels.ClaimUnclaimed {
				m.ClaimStatus = convmodels.ClaimClaimed
			}
			return m
		})
		if updated {
			c.log.Debug("payment auto-claimed", "contactId", contactID, "messageId", msg.ID)
		}
	}()
}

// Cancel drops the pending claim for a message, if any.
func (c *ClaimScheduler) Cancel(messageID string) {
	c.mu.Lock()
	if cancel, ok := c.pending[messageID]; ok {
		cancel()
		delete(c.pending, messageID)
	}
	c.mu.Unlock()
}

// Shutdown cancels every pending claim and waits for the workers.
func (c *ClaimScheduler) Shutdown() {
	c.mu.Lock()
	for id, cancel := range c.pending {
		cancel()
		delete(c.pending, id)
	}
	c.mu.Unlock()
	c.wg.Wait()
}
