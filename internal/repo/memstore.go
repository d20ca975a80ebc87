package repo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/posts-service/internal/domain"
)

// MemStore is an in-process document store with the same conditional-update
// semantics as Store. Every method works on copies, so callers never share
// memory with the store.
type MemStore struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]*domain.Post
	order []primitive.ObjectID
	users map[string]*domain.User
}

func NewMemStore() *MemStore {
	return &MemStore{
		posts: make(map[primitive.ObjectID]*domain.Post),
		users: make(map[string]*domain.User),
	}
}

func (m *MemStore) Ping(context.Context) error { return nil }

func clonePost(p *domain.Post) *domain.Post {
	c := *p
	c.Likes = append([]primitive.ObjectID{}, p.Likes...)
	c.Dislikes = append([]primitive.ObjectID{}, p.Dislikes...)
	c.Comments = append([]domain.Comment{}, p.Comments...)
	return &c
}

func (m *MemStore) CreatePost(ctx context.Context, p *domain.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalizePost(p)
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[p.ID] = clonePost(p)
	m.order = append(m.order, p.ID)
	return nil
}

func (m *MemStore) FindPostByID(ctx context.Context, id primitive.ObjectID) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePost(p), nil
}

// ListPostsByTopic returns posts in insertion order, which matches the
// created_at/_id order of Store when ids are generated here.
func (m *MemStore) ListPostsByTopic(ctx context.Context, topic domain.Topic) ([]domain.Post, error) {
	return m.filter(ctx, func(p *domain.Post) bool { return p.Topic == topic })
}

func (m *MemStore) ListPostsByTopicAndStatus(ctx context.Context, topic domain.Topic, status domain.Status) ([]domain.Post, error) {
	return m.filter(ctx, func(p *domain.Post) bool { return p.Topic == topic && p.Status == status })
}

func (m *MemStore) filter(ctx context.Context, keep func(*domain.Post) bool) ([]domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Post{}
	for _, id := range m.order {
		if p := m.posts[id]; p != nil && keep(p) {
			out = append(out, *clonePost(p))
		}
	}
	return out, nil
}

func (m *MemStore) MarkExpired(ctx context.Context, id primitive.ObjectID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.Status != domain.StatusLive {
		return false, nil
	}
	p.Status = domain.StatusExpired
	return true, nil
}

func (m *MemStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.posts {
		if p.Status == domain.StatusLive && !p.ExpirationTime.After(now) {
			p.Status = domain.StatusExpired
			n++
		}
	}
	return n, nil
}

func live(p *domain.Post, now time.Time) bool {
	return p.Status == domain.StatusLive && p.ExpirationTime.After(now)
}

func (m *MemStore) AddReaction(ctx context.Context, id primitive.ObjectID, r domain.Reaction, uid primitive.ObjectID, now time.Time) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || !live(p, now) || p.OwnerID == uid {
		return nil, nil
	}
	switch r {
	case domain.ReactionDislike:
		if p.DislikedBy(uid) {
			return nil, nil
		}
		p.Dislikes = append(p.Dislikes, uid)
	default:
		if p.LikedBy(uid) {
			return nil, nil
		}
		p.Likes = append(p.Likes, uid)
	}
	return clonePost(p), nil
}

func (m *MemStore) AddComment(ctx context.Context, id primitive.ObjectID, c domain.Comment, now time.Time) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || !live(p, now) {
		return nil, nil
	}
	p.Comments = append(p.Comments, c)
	return clonePost(p), nil
}

func (m *MemStore) CreateUser(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return ErrEmailExists
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	c := *u
	m.users[u.Email] = &c
	return nil
}

func (m *MemStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}
