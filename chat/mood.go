package chat

import (
	"context"
	"fmt"
	"time"

	"phone-sim-demo/backend/pkg/cache"
	"phone-sim-demo/backend/shared/redis"
)

// MoodStore keeps the latest status-bar mood per contact. Moods are
// display state, not conversation history, so they live outside the
// message log.
type MoodStore interface {
	SetMood(ctx context.Context, contactID, mood string) error
	GetMood(ctx context.Context, contactID string) (string, error)
}

const moodTTL = 7 * 24 * time.Hour

func moodKey(contactID string) string {
	return fmt.Sprintf("mood:%s", contactID)
}

// RedisMoodStore backs moods with redis so they survive restarts and
// are visible to every server instance.
type RedisMoodStore struct {
	client *redis.Client
}

func NewRedisMoodStore(client *redis.Client) *RedisMoodStore {
	return &RedisMoodStore{client: client}
}

func (s *RedisMoodStore) SetMood(ctx context.Context, contactID, mood string) error {
	return s.client.Set(ctx, moodKey(contactID), mood, moodTTL)
}

func (s *RedisMoodStore) GetMood(ctx context.Context, contactID string) (string, error) {
	return s.client.Get(ctx, moodKey(contactID))
}

// CacheMoodStore is the in-process fallback used when redis is disabled.
type CacheMoodStore struct {
	cache *cache.Cache
}

func NewCacheMoodStore() *CacheMoodStore {
	return &CacheMoodStore{cache: cache.NewCache(cache.Options{
		DefaultExpiration: moodTTL,
		CleanupInterval:   time.Hour,
	})}
}

func (s *CacheMoodStore) SetMood(_ context.Context, contactID, mood string) error {
	s.cache.Set(moodKey(contactID), mood)
	return nil
}

func (s *CacheMoodStore) GetMood(_ context.Context, contactID string) (string, error) {
	v, ok := s.cache.Get(moodKey(contactID))
	if !ok {
		return "", nil
	}
	mood, _ := v.(string)
	return mood, nil
}
