package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phone-sim-demo/backend/conversation/models"
)

func msg(id string, isSelf bool) models.Message {
	return models.Message{ID: id, Kind: models.KindText, Text: id, IsSelf: isSelf, Timestamp: time.Now()}
}

func TestAppendAndMessages(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append("c1", msg("a", true)))
	require.NoError(t, s.Append("c1", msg("b", false)))
	require.NoError(t, s.Append("c2", msg("x", true)))

	got := s.Messages("c1")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Len(t, s.Messages("c2"), 1)
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append("c1", msg("a", true)))

	got := s.Messages("c1")
	got[0].Text = "mutated"

	assert.Equal(t, "a", s.Messages("c1")[0].Text)
}

func TestConcurrentComposingUpdates(t *testing.T) {
	s := NewStore()
	payment := msg("pay-1", true)
	payment.Kind = models.KindRedPacket
	payment.ClaimStatus = models.ClaimUnclaimed
	require.NoError(t, s.Append("c1", payment))

	// One writer appends a user message while another flips the claim
	// status of the payment message; neither update may be lost.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Append("c1", msg("user-2", true))
	}()
	go func() {
		defer wg.Done()
		s.UpdateMessage("c1", "pay-1", func(m models.Message) models.Message {
			m.ClaimStatus = models.ClaimClaimed
			return m
		})
	}()
	wg.Wait()

	log := s.Messages("c1")
	require.Len(t, log, 2)
	assert.Equal(t, models.ClaimClaimed, log[0].ClaimStatus)
	assert.Equal(t, "user-2", log[1].ID)
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	s := NewStore()
	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			s.Append("c1", msg(fmt.Sprintf("m-%d", i), i%2 == 0))
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Messages("c1"), writers)
}

func TestTruncateTrailingModelTurn(t *testing.T) {
	s := NewStore()
	s.Append("c1", msg("u1", true))
	s.Append("c1", msg("a1", false))
	s.Append("c1", msg("u2", true))
	s.Append("c1", msg("a2", false))
	s.Append("c1", msg("a3", false))

	removed := s.TruncateTrailingModelTurn("c1")

	require.Len(t, removed, 2)
	assert.Equal(t, "a2", removed[0].ID)
	assert.Equal(t, "a3", removed[1].ID)

	log := s.Messages("c1")
	require.Len(t, log, 3)
	assert.Equal(t, "u2", log[2].ID)
}

func TestTruncateStopsAtUserMessage(t *testing.T) {
	s := NewStore()
	s.Append("c1", msg("u1", true))

	removed := s.TruncateTrailingModelTurn("c1")
	assert.Empty(t, removed)
	assert.Len(t, s.Messages("c1"), 1)
}

func TestTruncateClearsLogWithoutUserTurn(t *testing.T) {
	s := NewStore()
	s.Append("c1", msg("a1", false))
	s.Append("c1", msg("a2", false))

	removed := s.TruncateTrailingModelTurn("c1")
	assert.Len(t, removed, 2)
	assert.Empty(t, s.Messages("c1"))
	assert.False(t, s.HasUserTurn("c1"))
}

func TestRemoveMessages(t *testing.T) {
	s := NewStore()
	s.Append("c1", msg("a", true))
	s.Append("c1", msg("b", false))
	s.Append("c1", msg("c", true))

	removed := s.RemoveMessages("c1", []string{"a", "c"})
	require.Len(t, removed, 2)

	log := s.Messages("c1")
	require.Len(t, log, 1)
	assert.Equal(t, "b", log[0].ID)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	s := NewStore()
	events, cancel := s.Subscribe()
	defer cancel()

	s.Append("c1", msg("a", true))

	select {
	case ev := <-events:
		assert.Equal(t, EventMessageAppended, ev.Type)
		assert.Equal(t, "c1", ev.ContactID)
		require.NotNil(t, ev.Message)
		assert.Equal(t, "a", ev.Message.ID)
	case <-time.After(time.Second):
		t.Fatal("expected an append event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := NewStore()
	events, cancel := s.Subscribe()
	cancel()

	s.Append("c1", msg("a", true))

	_, open := <-events
	assert.False(t, open, "channel should be closed after unsubscribe")
}
