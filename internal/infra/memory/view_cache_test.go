package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizforge-service/internal/domain"
)

func TestViewCacheCachesUntilExpiry(t *testing.T) {
	loader := &countingLoader{views: map[int64]domain.QuizView{1: sampleView()}}
	cache := NewViewCache(loader, time.Minute)

	now := time.Now()
	cache.clock = func() time.Time { return now }

	view, err := cache.Get(context.Background(), 1, "owner-1")
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if view.Name != "Capitals" || loader.calls != 1 {
		t.Fatalf("unexpected view %+v, loader calls=%d", view, loader.calls)
	}

	if _, err := cache.Get(context.Background(), 1, "owner-1"); err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}

	// Advance past the TTL including its jitter headroom.
	now = now.Add(2 * time.Minute)
	if _, err := cache.Get(context.Background(), 1, "owner-1"); err != nil {
		t.Fatalf("expired get: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

func TestViewCacheScopesCachedHits(t *testing.T) {
	loader := &countingLoader{views: map[int64]domain.QuizView{1: sampleView()}}
	cache := NewViewCache(loader, time.Minute)

	if _, err := cache.Get(context.Background(), 1, "owner-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := cache.Get(context.Background(), 1, "owner-2"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not-found for foreign owner on cached hit, got %v", err)
	}
}

func TestViewCacheInvalidate(t *testing.T) {
	loader := &countingLoader{views: map[int64]domain.QuizView{1: sampleView()}}
	cache := NewViewCache(loader, time.Minute)

	if _, err := cache.Get(context.Background(), 1, "owner-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if err := cache.Invalidate(context.Background(), 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := cache.Get(context.Background(), 1, "owner-1"); err != nil {
		t.Fatalf("reload after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestViewCacheMissPropagatesError(t *testing.T) {
	loader := &countingLoader{views: map[int64]domain.QuizView{}}
	cache := NewViewCache(loader, time.Minute)

	if _, err := cache.Get(context.Background(), 7, "owner-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not-found from loader, got %v", err)
	}
}

func TestViewCacheZeroTTLCachesForever(t *testing.T) {
	loader := &countingLoader{views: map[int64]domain.QuizView{1: sampleView()}}
	cache := NewViewCache(loader, 0)

	now := time.Now()
	cache.clock = func() time.Time { return now }

	if _, err := cache.Get(context.Background(), 1, "owner-1"); err != nil {
		t.Fatalf("get view: %v", err)
	}

	now = now.Add(24 * time.Hour)
	if _, err := cache.Get(context.Background(), 1, "owner-1"); err != nil {
		t.Fatalf("get after a day: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected entry without expiry, loader calls=%d", loader.calls)
	}
}

func TestViewCacheConcurrentMisses(t *testing.T) {
	views := make(map[int64]domain.QuizView)
	for id := int64(1); id <= 64; id++ {
		view := sampleView()
		view.ID = id
		views[id] = view
	}
	loader := &countingLoader{views: views}
	cache := NewViewCache(loader, time.Minute)

	var wg sync.WaitGroup
	for id := int64(1); id <= 64; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			view, err := cache.Get(context.Background(), id, "owner-1")
			if err != nil {
				t.Errorf("get %d: %v", id, err)
				return
			}
			if view.ID != id {
				t.Errorf("get %d: wrong view %+v", id, view)
			}
		}(id)
	}
	wg.Wait()
}

type countingLoader struct {
	mu    sync.Mutex
	views map[int64]domain.QuizView
	calls int
}

func (l *countingLoader) AssembleQuiz(_ context.Context, quizID int64, _ string) (domain.QuizView, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if view, ok := l.views[quizID]; ok {
		return view, nil
	}
	return domain.QuizView{}, domain.ErrQuizNotFound
}

func sampleView() domain.QuizView {
	return domain.QuizView{
		ID:          1,
		Name:        "Capitals",
		Description: "european capitals",
		OwnerID:     "owner-1",
		Questions: []domain.QuestionDoc{
			{
				Type:               domain.QuestionTypeMultipleChoice,
				Question:           "Capital of France?",
				CorrectAnswer:      "Paris",
				MultiChoiceOptions: []string{"Paris", "London", "Berlin", "Madrid"},
			},
		},
	}
}
