package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/posts-service/internal/domain"
	"github.com/tazhibayda/posts-service/internal/log"
	"github.com/tazhibayda/posts-service/internal/metrics"
	"github.com/tazhibayda/posts-service/internal/queue"
	"github.com/tazhibayda/posts-service/internal/repo"
)

// MaxExpirationMinutes bounds the lifetime of a post to one year.
const MaxExpirationMinutes = 365 * 24 * 60

// PostStore is the document store behind the post services. Reaction and
// comment writes are single conditional updates; see repo.Store.
type PostStore interface {
	CreatePost(ctx context.Context, p *domain.Post) error
	FindPostByID(ctx context.Context, id primitive.ObjectID) (*domain.Post, error)
	ListPostsByTopic(ctx context.Context, topic domain.Topic) ([]domain.Post, error)
	ListPostsByTopicAndStatus(ctx context.Context, topic domain.Topic, status domain.Status) ([]domain.Post, error)
	MarkExpired(ctx context.Context, id primitive.ObjectID) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	AddReaction(ctx context.Context, id primitive.ObjectID, r domain.Reaction, uid primitive.ObjectID, now time.Time) (*domain.Post, error)
	AddComment(ctx context.Context, id primitive.ObjectID, c domain.Comment, now time.Time) (*domain.Post, error)
}

type Posts struct {
	Store         PostStore
	Events        queue.Publisher
	Exchange      string
	CommentMaxLen int
	Now           func() time.Time
}

func NewPosts(store PostStore, pub queue.Publisher, exchange string, commentMaxLen int) *Posts {
	if pub == nil {
		pub = queue.NewNoop()
	}
	return &Posts{
		Store:         store,
		Events:        pub,
		Exchange:      exchange,
		CommentMaxLen: commentMaxLen,
		Now:           time.Now,
	}
}

func (s *Posts) now() time.Time { return s.Now().UTC() }

// ParseID turns a path id into an ObjectID. Malformed ids cannot name a post,
// so they are reported as NotFound.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return id, nil
}

func ParseTopic(s string) (domain.Topic, error) {
	t, ok := domain.ParseTopic(s)
	if !ok {
		return "", reject(ReasonValidation, "topic must be one of Politics, Health, Sport, Tech")
	}
	return t, nil
}

type CreatePostInput struct {
	Title             string
	Body              string
	Topic             string
	ExpirationMinutes int
}

func (s *Posts) Create(ctx context.Context, owner primitive.ObjectID, in CreatePostInput) (*domain.Post, error) {
	title, body := strings.TrimSpace(in.Title), strings.TrimSpace(in.Body)
	if title == "" {
		return nil, reject(ReasonValidation, "title is required")
	}
	if body == "" {
		return nil, reject(ReasonValidation, "body is required")
	}
	topic, err := ParseTopic(in.Topic)
	if err != nil {
		return nil, err
	}
	if in.ExpirationMinutes <= 0 || in.ExpirationMinutes > MaxExpirationMinutes {
		return nil, reject(ReasonValidation, "expiration must be between 1 and %d minutes", MaxExpirationMinutes)
	}

	now := s.now()
	p := &domain.Post{
		Title:          title,
		Body:           body,
		Topic:          topic,
		CreatedAt:      now,
		ExpirationTime: now.Add(time.Duration(in.ExpirationMinutes) * time.Minute),
		Status:         domain.StatusLive,
		OwnerID:        owner,
		Likes:          []primitive.ObjectID{},
		Dislikes:       []primitive.ObjectID{},
		Comments:       []domain.Comment{},
	}
	if err := s.Store.CreatePost(ctx, p); err != nil {
		return nil, storeError("create post", err)
	}
	metrics.PostsCreated.Inc()
	s.publish(ctx, queue.KeyPostCreated, queue.PostCreated{
		PostID: p.ID.Hex(), OwnerID: owner.Hex(), Topic: string(topic), ExpiresAt: p.ExpirationTime,
	})
	return p, nil
}

func (s *Posts) ListByTopic(ctx context.Context, topic string) ([]domain.Post, error) {
	t, err := ParseTopic(topic)
	if err != nil {
		return nil, err
	}
	posts, err := s.Store.ListPostsByTopic(ctx, t)
	if err != nil {
		return nil, storeError("list posts", err)
	}
	return posts, nil
}

// EnsureCurrentStatus is the gate every reaction passes through. It returns
// the post while it is live. Once the post is expired by time it persists the
// Expired status (only the first caller writes) and returns ErrPostExpired.
func (s *Posts) EnsureCurrentStatus(ctx context.Context, id primitive.ObjectID) (*domain.Post, error) {
	p, err := s.Store.FindPostByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError("find post", err)
	}
	if !domain.IsExpired(s.now(), p.ExpirationTime, p.Status) {
		return p, nil
	}
	if p.Status == domain.StatusLive {
		flipped, err := s.Store.MarkExpired(ctx, p.ID)
		if err != nil {
			return nil, storeError("mark expired", err)
		}
		if flipped {
			metrics.PostsExpired.WithLabelValues("access").Inc()
			log.Ctx(ctx).Info("post expired", zap.String("post_id", p.ID.Hex()), zap.Time("expiration_time", p.ExpirationTime))
			s.publish(ctx, queue.KeyPostExpired, queue.PostExpired{
				PostID: p.ID.Hex(), OwnerID: p.OwnerID.Hex(), Topic: string(p.Topic),
			})
		}
	}
	return nil, ErrPostExpired
}

func (s *Posts) publish(ctx context.Context, key string, event any) {
	if err := s.Events.Publish(ctx, s.Exchange, key, event, log.RequestID(ctx)); err != nil {
		log.Ctx(ctx).Warn("publish event", zap.String("key", key), zap.Error(err))
	}
}
