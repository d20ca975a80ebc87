package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusLive    Status = "Live"
	StatusExpired Status = "Expired"
)

type Topic string

const (
	TopicPolitics Topic = "Politics"
	TopicHealth   Topic = "Health"
	TopicSport    Topic = "Sport"
	TopicTech     Topic = "Tech"
)

var topics = map[Topic]struct{}{
	TopicPolitics: {},
	TopicHealth:   {},
	TopicSport:    {},
	TopicTech:     {},
}

// ParseTopic reports whether s names one of the supported topics.
// Matching is exact: "tech" is not "Tech".
func ParseTopic(s string) (Topic, bool) {
	t := Topic(s)
	_, ok := topics[t]
	return t, ok
}

type Comment struct {
	UserID    primitive.ObjectID `bson:"user_id" json:"user"`
	Text      string             `bson:"comment" json:"comment"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

type Post struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title          string               `bson:"title" json:"title"`
	Body           string               `bson:"body" json:"body"`
	Topic          Topic                `bson:"topic" json:"topic"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	ExpirationTime time.Time            `bson:"expiration_time" json:"expiration_time"`
	Status         Status               `bson:"status" json:"status"`
	OwnerID        primitive.ObjectID   `bson:"owner_id" json:"owner"`
	Likes          []primitive.ObjectID `bson:"likes" json:"likes"`
	Dislikes       []primitive.ObjectID `bson:"dislikes" json:"dislikes"`
	Comments       []Comment            `bson:"comments" json:"comments"`
}

// Activity is the ranking score used by the most-active query.
func (p *Post) Activity() int { return len(p.Likes) + len(p.Dislikes) }

func (p *Post) LikedBy(uid primitive.ObjectID) bool    { return contains(p.Likes, uid) }
func (p *Post) DislikedBy(uid primitive.ObjectID) bool { return contains(p.Dislikes, uid) }

func contains(ids []primitive.ObjectID, uid primitive.ObjectID) bool {
	for _, id := range ids {
		if id == uid {
			return true
		}
	}
	return false
}

// Reaction selects which of the two reaction sets an operation targets.
type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)
