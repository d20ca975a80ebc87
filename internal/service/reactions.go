package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/posts-service/internal/domain"
	"github.com/tazhibayda/posts-service/internal/metrics"
	"github.com/tazhibayda/posts-service/internal/queue"
)

// Like adds actor to the post's likes and returns the new like count.
func (s *Posts) Like(ctx context.Context, id, actor primitive.ObjectID) (int, error) {
	return s.react(ctx, id, actor, domain.ReactionLike)
}

// Dislike mirrors Like on the dislike set. Likes and dislikes are independent.
func (s *Posts) Dislike(ctx context.Context, id, actor primitive.ObjectID) (int, error) {
	return s.react(ctx, id, actor, domain.ReactionDislike)
}

func (s *Posts) react(ctx context.Context, id, actor primitive.ObjectID, r domain.Reaction) (n int, err error) {
	defer func() { countReaction(string(r), err) }()

	p, err := s.EnsureCurrentStatus(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := checkReaction(p, actor, r); err != nil {
		return 0, err
	}

	updated, err := s.Store.AddReaction(ctx, id, r, actor, s.now())
	if err != nil {
		return 0, storeError("add reaction", err)
	}
	if updated == nil {
		// the guarded update lost a race; report what changed underneath us
		p, err := s.EnsureCurrentStatus(ctx, id)
		if err != nil {
			return 0, err
		}
		if err := checkReaction(p, actor, r); err != nil {
			return 0, err
		}
		return 0, storeError("add reaction", errors.New("conditional update matched no document"))
	}

	n = len(updated.Likes)
	if r == domain.ReactionDislike {
		n = len(updated.Dislikes)
	}
	s.publish(ctx, queue.KeyPostReacted, queue.PostReacted{
		PostID: id.Hex(), OwnerID: updated.OwnerID.Hex(), ActorID: actor.Hex(), Kind: string(r), Count: n,
	})
	return n, nil
}

func checkReaction(p *domain.Post, actor primitive.ObjectID, r domain.Reaction) error {
	verb, has := "like", p.LikedBy
	if r == domain.ReactionDislike {
		verb, has = "dislike", p.DislikedBy
	}
	if p.OwnerID == actor {
		return reject(ReasonSelfReaction, "You cannot %s your own post", verb)
	}
	if has(actor) {
		return reject(ReasonDuplicateReaction, "You already %sd this post", verb)
	}
	return nil
}

// Comment appends a comment by actor. A user may comment any number of times,
// including on their own post.
func (s *Posts) Comment(ctx context.Context, id, actor primitive.ObjectID, text string) (c *domain.Comment, err error) {
	defer func() { countReaction("comment", err) }()

	if _, err := s.EnsureCurrentStatus(ctx, id); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, reject(ReasonValidation, "comment is required")
	}
	if s.CommentMaxLen > 0 && utf8.RuneCountInString(text) > s.CommentMaxLen {
		return nil, reject(ReasonValidation, "comment must be at most %d characters", s.CommentMaxLen)
	}

	now := s.now()
	c = &domain.Comment{UserID: actor, Text: text, Timestamp: now}
	updated, err := s.Store.AddComment(ctx, id, *c, now)
	if err != nil {
		return nil, storeError("add comment", err)
	}
	if updated == nil {
		if _, err := s.EnsureCurrentStatus(ctx, id); err != nil {
			return nil, err
		}
		return nil, storeError("add comment", errors.New("conditional update matched no document"))
	}

	s.publish(ctx, queue.KeyPostReacted, queue.PostReacted{
		PostID: id.Hex(), OwnerID: updated.OwnerID.Hex(), ActorID: actor.Hex(), Kind: "comment", Count: len(updated.Comments),
	})
	return c, nil
}

func countReaction(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(ReasonOf(err))
	}
	metrics.Reactions.WithLabelValues(kind, outcome).Inc()
}
