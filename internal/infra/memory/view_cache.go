package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizforge-service/internal/domain"
)

// ViewLoader assembles a quiz view from the backing store.
type ViewLoader interface {
	AssembleQuiz(ctx context.Context, quizID int64, ownerID string) (domain.QuizView, error)
}

// ViewCache caches assembled quiz views with a TTL, used when Redis is not
// configured. Entries remember their owner so scoped reads stay scoped.
type ViewCache struct {
	loader ViewLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[int64]cachedView
}

type cachedView struct {
	view      domain.QuizView
	expiresAt time.Time
}

func (e cachedView) live(now time.Time) bool {
	return e.expiresAt.IsZero() || e.expiresAt.After(now)
}

func NewViewCache(loader ViewLoader, ttl time.Duration) *ViewCache {
	return &ViewCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[int64]cachedView),
	}
}

func (c *ViewCache) Get(ctx context.Context, quizID int64, ownerID string) (domain.QuizView, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[quizID]; ok && entry.live(now) {
		c.mu.RUnlock()
		return scopeView(entry.view, ownerID)
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[quizID]; ok && entry.live(now) {
			c.mu.RUnlock()
			return entry.view, nil
		}
		c.mu.RUnlock()

		view, err := c.loader.AssembleQuiz(ctx, quizID, "")
		if err != nil {
			return domain.QuizView{}, err
		}

		// A non-positive TTL leaves expiresAt zero: cached without expiry,
		// same as the redis cache.
		var expiresAt time.Time
		if c.ttl > 0 {
			expiresAt = now.Add(c.ttlWithJitter())
		}

		c.mu.Lock()
		c.cache[quizID] = cachedView{view: view, expiresAt: expiresAt}
		c.mu.Unlock()
		return view, nil
	})
	if err != nil {
		return domain.QuizView{}, err
	}
	return scopeView(result.(domain.QuizView), ownerID)
}

// Invalidate drops the cached view, typically after the quiz was deleted.
func (c *ViewCache) Invalidate(_ context.Context, quizID int64) error {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.mu.Unlock()
	return nil
}

func (c *ViewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations; the package-level generator is
	// goroutine-safe across concurrent misses
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}

func scopeView(view domain.QuizView, ownerID string) (domain.QuizView, error) {
	if ownerID != "" && view.OwnerID != ownerID {
		return domain.QuizView{}, domain.ErrQuizNotFound
	}
	return view, nil
}
