package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizforge-service/internal/domain"
)

// ViewLoader assembles a quiz view from the backing store.
type ViewLoader interface {
	AssembleQuiz(ctx context.Context, quizID int64, ownerID string) (domain.QuizView, error)
}

// ViewCache keeps assembled quiz views in Redis and falls back to the loader
// on a miss. Entries carry the owner so a cached hit still honors tenant
// scoping: a wrong-owner read degrades to not-found, never to a leak.
type ViewCache struct {
	client *redis.Client
	loader ViewLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewViewCache(client *redis.Client, loader ViewLoader, ttl time.Duration) *ViewCache {
	return &ViewCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

type cachedView struct {
	OwnerID string          `json:"ownerId"`
	View    domain.QuizView `json:"view"`
}

func (c *ViewCache) Get(ctx context.Context, quizID int64, ownerID string) (domain.QuizView, error) {
	key := c.key(quizID)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		return unwrapView(raw, ownerID)
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			return raw, nil
		}

		view, err := c.loader.AssembleQuiz(ctx, quizID, "")
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(cachedView{OwnerID: view.OwnerID, View: view})
		if err != nil {
			return nil, fmt.Errorf("marshal view: %w", err)
		}
		_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		return raw, nil
	})
	if err != nil {
		return domain.QuizView{}, err
	}
	return unwrapView(result.([]byte), ownerID)
}

// Invalidate drops the cached view, typically after the quiz was deleted.
func (c *ViewCache) Invalidate(ctx context.Context, quizID int64) error {
	return c.client.Del(ctx, c.key(quizID)).Err()
}

func (c *ViewCache) key(quizID int64) string {
	return "quiz:view:" + strconv.FormatInt(quizID, 10)
}

// Misses for different quiz keys run concurrently, so jitter comes from the
// goroutine-safe package-level generator.
func (c *ViewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}

func unwrapView(raw []byte, ownerID string) (domain.QuizView, error) {
	var entry cachedView
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.QuizView{}, fmt.Errorf("unmarshal cached view: %w", err)
	}
	if ownerID != "" && entry.OwnerID != ownerID {
		return domain.QuizView{}, domain.ErrQuizNotFound
	}
	view := entry.View
	view.OwnerID = entry.OwnerID
	return view, nil
}
