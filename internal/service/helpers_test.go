package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/posts-service/internal/domain"
	"github.com/tazhibayda/posts-service/internal/repo"
	"github.com/tazhibayda/posts-service/internal/service"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type published struct {
	key   string
	event any
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(_ context.Context, _, key string, event any, _ string) error {
	r.mu.Lock()
	r.events = append(r.events, published{key: key, event: event})
	r.mu.Unlock()
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.key)
	}
	return out
}

// countingStore records how often the status flip is attempted.
type countingStore struct {
	*repo.MemStore
	mu          sync.Mutex
	markCalls   int
	markFlipped int
}

func (c *countingStore) MarkExpired(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ok, err := c.MemStore.MarkExpired(ctx, id)
	c.mu.Lock()
	c.markCalls++
	if ok {
		c.markFlipped++
	}
	c.mu.Unlock()
	return ok, err
}

type testEnv struct {
	Svc   *service.Posts
	Store *countingStore
	Clock *clock
	Pub   *recorder
	Ctx   context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := &countingStore{MemStore: repo.NewMemStore()}
	clk := &clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	pub := &recorder{}
	svc := service.NewPosts(store, pub, "posts.events", 280)
	svc.Now = clk.Now
	return &testEnv{Svc: svc, Store: store, Clock: clk, Pub: pub, Ctx: context.Background()}
}

func (e *testEnv) post(t *testing.T, owner primitive.ObjectID, topic domain.Topic, minutes int) *domain.Post {
	t.Helper()
	p, err := e.Svc.Create(e.Ctx, owner, service.CreatePostInput{
		Title: "title", Body: "body", Topic: string(topic), ExpirationMinutes: minutes,
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func (e *testEnv) stored(t *testing.T, id primitive.ObjectID) *domain.Post {
	t.Helper()
	p, err := e.Store.FindPostByID(e.Ctx, id)
	if err != nil {
		t.Fatalf("find post: %v", err)
	}
	return p
}
