package service

import (
	"context"

	"github.com/tazhibayda/posts-service/internal/domain"
)

// MostActive returns the post of topic with the most likes plus dislikes, or
// nil when the topic has no posts. Ties go to the post fetched first, which is
// the earliest created.
func (s *Posts) MostActive(ctx context.Context, topic string) (*domain.Post, error) {
	posts, err := s.ListByTopic(ctx, topic)
	if err != nil {
		return nil, err
	}
	var best *domain.Post
	for i := range posts {
		if best == nil || posts[i].Activity() > best.Activity() {
			best = &posts[i]
		}
	}
	return best, nil
}

// ExpiredByTopic filters on the persisted status only. A post whose time has
// passed but which nobody has touched since is still Live here until an access
// or the sweeper flips it.
func (s *Posts) ExpiredByTopic(ctx context.Context, topic string) ([]domain.Post, error) {
	t, err := ParseTopic(topic)
	if err != nil {
		return nil, err
	}
	posts, err := s.Store.ListPostsByTopicAndStatus(ctx, t, domain.StatusExpired)
	if err != nil {
		return nil, storeError("list expired posts", err)
	}
	return posts, nil
}
