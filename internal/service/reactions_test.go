package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/posts-service/internal/domain"
	"github.com/tazhibayda/posts-service/internal/queue"
	"github.com/tazhibayda/posts-service/internal/repo"
	"github.com/tazhibayda/posts-service/internal/service"
)

func TestLike(t *testing.T) {
	env := newTestEnv(t)
	owner, alice, bob := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	p := env.post(t, owner, domain.TopicTech, 10)

	n, err := env.Svc.Like(env.Ctx, p.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = env.Svc.Like(env.Ctx, p.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = env.Svc.Like(env.Ctx, p.ID, alice)
	require.ErrorIs(t, err, service.ErrDuplicateReaction)
	assert.Equal(t, "You already liked this post", service.MessageOf(err))

	_, err = env.Svc.Like(env.Ctx, p.ID, owner)
	require.ErrorIs(t, err, service.ErrSelfReaction)
	assert.Equal(t, "You cannot like your own post", service.MessageOf(err))

	assert.ElementsMatch(t, []primitive.ObjectID{alice, bob}, env.stored(t, p.ID).Likes)
	assert.Equal(t, []string{queue.KeyPostCreated, queue.KeyPostReacted, queue.KeyPostReacted}, env.Pub.keys())
}

func TestDislike(t *testing.T) {
	env := newTestEnv(t)
	owner, alice := primitive.NewObjectID(), primitive.NewObjectID()
	p := env.post(t, owner, domain.TopicPolitics, 10)

	n, err := env.Svc.Dislike(env.Ctx, p.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = env.Svc.Dislike(env.Ctx, p.ID, alice)
	require.ErrorIs(t, err, service.ErrDuplicateReaction)
	assert.Equal(t, "You already disliked this post", service.MessageOf(err))

	_, err = env.Svc.Dislike(env.Ctx, p.ID, owner)
	require.ErrorIs(t, err, service.ErrSelfReaction)
	assert.Equal(t, "You cannot dislike your own post", service.MessageOf(err))
}

func TestLikeAndDislikeAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	alice := primitive.NewObjectID()
	p := env.post(t, primitive.NewObjectID(), domain.TopicSport, 10)

	_, err := env.Svc.Like(env.Ctx, p.ID, alice)
	require.NoError(t, err)
	_, err = env.Svc.Dislike(env.Ctx, p.ID, alice)
	require.NoError(t, err)

	got := env.stored(t, p.ID)
	assert.True(t, got.LikedBy(alice))
	assert.True(t, got.DislikedBy(alice))
	assert.Equal(t, 2, got.Activity())
}

func TestReactionOnExpiredPost(t *testing.T) {
	env := newTestEnv(t)
	owner, alice := primitive.NewObjectID(), primitive.NewObjectID()
	p := env.post(t, owner, domain.TopicHealth, 1)
	env.Clock.Advance(2 * time.Minute)

	// expiry is reported before the self-reaction check
	_, err := env.Svc.Like(env.Ctx, p.ID, owner)
	require.ErrorIs(t, err, service.ErrPostExpired)

	_, err = env.Svc.Dislike(env.Ctx, p.ID, alice)
	require.ErrorIs(t, err, service.ErrPostExpired)

	_, err = env.Svc.Comment(env.Ctx, p.ID, alice, "too late")
	require.ErrorIs(t, err, service.ErrPostExpired)

	got := env.stored(t, p.ID)
	assert.Equal(t, domain.StatusExpired, got.Status)
	assert.Empty(t, got.Likes)
	assert.Empty(t, got.Dislikes)
	assert.Empty(t, got.Comments)
	assert.Equal(t, 1, env.Store.markFlipped)
}

func TestReactionUnknownPost(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Svc.Like(env.Ctx, primitive.NewObjectID(), primitive.NewObjectID())
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestComment(t *testing.T) {
	env := newTestEnv(t)
	owner, alice := primitive.NewObjectID(), primitive.NewObjectID()
	p := env.post(t, owner, domain.TopicTech, 10)

	c, err := env.Svc.Comment(env.Ctx, p.ID, alice, "  nice post  ")
	require.NoError(t, err)
	assert.Equal(t, "nice post", c.Text)
	assert.Equal(t, alice, c.UserID)
	assert.Equal(t, env.Clock.Now(), c.Timestamp)

	// repeat comments and comments by the owner are allowed
	_, err = env.Svc.Comment(env.Ctx, p.ID, alice, "again")
	require.NoError(t, err)
	_, err = env.Svc.Comment(env.Ctx, p.ID, owner, "thanks")
	require.NoError(t, err)

	got := env.stored(t, p.ID)
	require.Len(t, got.Comments, 3)
	assert.Equal(t, "thanks", got.Comments[2].Text)

	_, err = env.Svc.Comment(env.Ctx, p.ID, alice, "   ")
	require.ErrorIs(t, err, service.ErrValidation)

	_, err = env.Svc.Comment(env.Ctx, p.ID, alice, strings.Repeat("ж", 281))
	require.ErrorIs(t, err, service.ErrValidation)

	_, err = env.Svc.Comment(env.Ctx, p.ID, alice, strings.Repeat("ж", 280))
	require.NoError(t, err)
}

func TestConcurrentLikesAreAllCounted(t *testing.T) {
	env := newTestEnv(t)
	p := env.post(t, primitive.NewObjectID(), domain.TopicTech, 10)

	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Svc.Like(env.Ctx, p.ID, primitive.NewObjectID())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, env.stored(t, p.ID).Likes, n)
}

func TestConcurrentDuplicateLikeCountsOnce(t *testing.T) {
	env := newTestEnv(t)
	alice := primitive.NewObjectID()
	p := env.post(t, primitive.NewObjectID(), domain.TopicTech, 10)

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, dup := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Svc.Like(env.Ctx, p.ID, alice)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case service.ReasonOf(err) == service.ReasonDuplicateReaction:
				dup++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
	assert.Len(t, env.stored(t, p.ID).Likes, 1)
}

// racingStore lets another writer win between the check and the guarded update.
type racingStore struct {
	*repo.MemStore
	race func(ctx context.Context, id primitive.ObjectID)
}

func (r *racingStore) AddReaction(ctx context.Context, id primitive.ObjectID, re domain.Reaction, uid primitive.ObjectID, now time.Time) (*domain.Post, error) {
	r.race(ctx, id)
	return r.MemStore.AddReaction(ctx, id, re, uid, now)
}

func TestReactionLostRaceReportsReason(t *testing.T) {
	mem := repo.NewMemStore()
	clk := &clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	alice := primitive.NewObjectID()
	store := &racingStore{MemStore: mem}
	svc := service.NewPosts(store, nil, "posts.events", 0)
	svc.Now = clk.Now
	ctx := context.Background()

	p, err := svc.Create(ctx, primitive.NewObjectID(), service.CreatePostInput{Title: "t", Body: "b", Topic: "Tech", ExpirationMinutes: 5})
	require.NoError(t, err)

	t.Run("same user won", func(t *testing.T) {
		store.race = func(ctx context.Context, id primitive.ObjectID) {
			_, _ = mem.AddReaction(ctx, id, domain.ReactionLike, alice, clk.Now())
		}
		_, err := svc.Like(ctx, p.ID, alice)
		require.ErrorIs(t, err, service.ErrDuplicateReaction)
	})

	t.Run("post expired", func(t *testing.T) {
		store.race = func(ctx context.Context, id primitive.ObjectID) { _, _ = mem.MarkExpired(ctx, id) }
		_, err := svc.Dislike(ctx, p.ID, primitive.NewObjectID())
		require.ErrorIs(t, err, service.ErrPostExpired)
	})
}

func TestExpiryScenario(t *testing.T) {
	env := newTestEnv(t)
	owner, alice := primitive.NewObjectID(), primitive.NewObjectID()
	p := env.post(t, owner, domain.TopicTech, 1)

	n, err := env.Svc.Like(env.Ctx, p.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	env.Clock.Advance(61 * time.Second)

	_, err = env.Svc.Like(env.Ctx, p.ID, primitive.NewObjectID())
	require.ErrorIs(t, err, service.ErrPostExpired)

	expired, err := env.Svc.ExpiredByTopic(env.Ctx, "Tech")
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, p.ID, expired[0].ID)
	assert.Len(t, expired[0].Likes, 1)
}
