package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/posts-service/internal/domain"
)

func reactionField(r domain.Reaction) string {
	if r == domain.ReactionDislike {
		return "dislikes"
	}
	return "likes"
}

// reaction sets and comments must be arrays, never null, or $addToSet/$push fail.
func normalizePost(p *domain.Post) {
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	if p.Dislikes == nil {
		p.Dislikes = []primitive.ObjectID{}
	}
	if p.Comments == nil {
		p.Comments = []domain.Comment{}
	}
}

func (s *Store) CreatePost(ctx context.Context, p *domain.Post) (err error) {
	sp, ctx := startSpan(ctx, "post.insert", tracer.Tag("topic", p.Topic))
	defer func() { finish(sp, err) }()

	normalizePost(p)
	res, err := s.colPosts.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (s *Store) FindPostByID(ctx context.Context, id primitive.ObjectID) (_ *domain.Post, err error) {
	sp, ctx := startSpan(ctx, "post.find_by_id", tracer.Tag("post_id", id.Hex()))
	defer func() { finish(sp, err) }()

	var p domain.Post
	err = s.colPosts.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPostsByTopic returns posts in fetch order: created_at, then _id, ascending.
func (s *Store) ListPostsByTopic(ctx context.Context, topic domain.Topic) (_ []domain.Post, err error) {
	sp, ctx := startSpan(ctx, "post.list_by_topic", tracer.Tag("topic", topic))
	defer func() { finish(sp, err) }()

	return s.findPosts(ctx, bson.M{"topic": topic})
}

func (s *Store) ListPostsByTopicAndStatus(ctx context.Context, topic domain.Topic, status domain.Status) (_ []domain.Post, err error) {
	sp, ctx := startSpan(ctx, "post.list_by_topic_status", tracer.Tag("topic", topic), tracer.Tag("status", status))
	defer func() { finish(sp, err) }()

	return s.findPosts(ctx, bson.M{"topic": topic, "status": status})
}

func (s *Store) findPosts(ctx context.Context, filter bson.M) ([]domain.Post, error) {
	cur, err := s.colPosts.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Post{}
	for cur.Next(ctx) {
		var p domain.Post
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, cur.Err()
}

// MarkExpired flips a Live post to Expired. It reports false when the post
// was already Expired (or is gone), so only the first caller observes the flip.
func (s *Store) MarkExpired(ctx context.Context, id primitive.ObjectID) (_ bool, err error) {
	sp, ctx := startSpan(ctx, "post.mark_expired", tracer.Tag("post_id", id.Hex()))
	defer func() { finish(sp, err) }()

	res, err := s.colPosts.UpdateOne(ctx,
		bson.M{"_id": id, "status": domain.StatusLive},
		bson.M{"$set": bson.M{"status": domain.StatusExpired}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ExpireDue flips every Live post whose expiration_time has passed.
func (s *Store) ExpireDue(ctx context.Context, now time.Time) (_ int64, err error) {
	sp, ctx := startSpan(ctx, "post.expire_due")
	defer func() { finish(sp, err) }()

	res, err := s.colPosts.UpdateMany(ctx,
		bson.M{"status": domain.StatusLive, "expiration_time": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"status": domain.StatusExpired}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// AddReaction adds uid to the like or dislike set in a single conditional
// update. The guard rejects expired posts, the owner and repeat reactions; a
// nil post with a nil error means the guard did not match.
func (s *Store) AddReaction(ctx context.Context, id primitive.ObjectID, r domain.Reaction, uid primitive.ObjectID, now time.Time) (_ *domain.Post, err error) {
	sp, ctx := startSpan(ctx, "post.add_reaction", tracer.Tag("post_id", id.Hex()), tracer.Tag("reaction", r))
	defer func() { finish(sp, err) }()

	field := reactionField(r)
	var p domain.Post
	err = s.colPosts.FindOneAndUpdate(ctx,
		bson.M{
			"_id":             id,
			"status":          domain.StatusLive,
			"expiration_time": bson.M{"$gt": now},
			"owner_id":        bson.M{"$ne": uid},
			field:             bson.M{"$ne": uid},
		},
		bson.M{"$addToSet": bson.M{field: uid}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AddComment appends c while the post is still live. A nil post with a nil
// error means the post expired (or vanished) between the check and the write.
func (s *Store) AddComment(ctx context.Context, id primitive.ObjectID, c domain.Comment, now time.Time) (_ *domain.Post, err error) {
	sp, ctx := startSpan(ctx, "post.add_comment", tracer.Tag("post_id", id.Hex()))
	defer func() { finish(sp, err) }()

	var p domain.Post
	err = s.colPosts.FindOneAndUpdate(ctx,
		bson.M{
			"_id":             id,
			"status":          domain.StatusLive,
			"expiration_time": bson.M{"$gt": now},
		},
		bson.M{"$push": bson.M{"comments": c}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
