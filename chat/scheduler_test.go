package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	convmodels "phone-sim-demo/backend/conversation/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAppender struct {
	mu   sync.Mutex
	msgs []convmodels.Message
	fail bool
}

func (r *recordingAppender) Append(contactID string, msg convmodels.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("append rejected")
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingAppender) snapshot() []convmodels.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]convmodels.Message(nil), r.msgs...)
}

func TestSchedulerDefaultDelays(t *testing.T) {
	s := NewScheduler(0, 0)
	assert.Equal(t, 800*time.Millisecond, s.DelayBase)
	assert.Equal(t, 1200*time.Millisecond, s.DelayRand)
}

func TestSchedulerDelayStaysInBounds(t *testing.T) {
	s := NewScheduler(800*time.Millisecond, 1200*time.Millisecond)
	for i := 0; i < 200; i++ {
		d := s.delay()
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.Less(t, d, 2000*time.Millisecond)
	}
}

func TestDeliverAppendsInOrder(t *testing.T) {
	s := NewScheduler(time.Millisecond, time.Millisecond)
	dst := &recordingAppender{}

	delivered, err := s.Deliver(context.Background(), dst, "c-1", []string{"第一", "第二", "第三"})
	require.NoError(t, err)
	assert.Equal(t, 3, delivered)

	msgs := dst.snapshot()
	require.Len(t, msgs, 3)
	assert.Equal(t, "第一", msgs[0].Text)
	assert.Equal(t, "第三", msgs[2].Text)
	for _, m := range msgs {
		assert.Equal(t, convmodels.KindText, m.Kind)
		assert.False(t, m.IsSelf)
		assert.NotEmpty(t, m.ID)
	}
}

func TestDeliverCancellation(t *testing.T) {
	s := NewScheduler(50*time.Millisecond, time.Millisecond)
	dst := &recordingAppender{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	delivered, err := s.Deliver(ctx, dst, "c-1", []string{"一", "二", "三"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, delivered)
	assert.Empty(t, dst.snapshot())
}

func TestDeliverStopsMidway(t *testing.T) {
	s := NewScheduler(5*time.Millisecond, time.Millisecond)
	dst := &recordingAppender{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// let roughly two fragments land, then pull the plug
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	delivered, err := s.Deliver(ctx, dst, "c-1", []string{"一一", "二二", "三三", "四四", "五五", "六六", "七七", "八八"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, delivered, 8)
	assert.Len(t, dst.snapshot(), delivered)
}

func TestDeliverAppendFailureAborts(t *testing.T) {
	s := NewScheduler(time.Millisecond, time.Millisecond)
	dst := &recordingAppender{fail: true}

	delivered, err := s.Deliver(context.Background(), dst, "c-1", []string{"一", "二"})
	require.Error(t, err)
	assert.Zero(t, delivered)
}
