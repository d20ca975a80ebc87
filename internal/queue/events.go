package queue

import "time"

// Routing keys on the posts exchange.
const (
	KeyPostCreated = "post.created"
	KeyPostExpired = "post.expired"
	KeyPostReacted = "post.reacted"
)

type PostCreated struct {
	PostID    string    `json:"post_id"`
	OwnerID   string    `json:"owner_id"`
	Topic     string    `json:"topic"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PostExpired struct {
	PostID  string `json:"post_id"`
	OwnerID string `json:"owner_id"`
	Topic   string `json:"topic"`
}

// PostReacted is emitted for likes, dislikes and comments; Kind is one of
// "like", "dislike", "comment".
type PostReacted struct {
	PostID  string `json:"post_id"`
	OwnerID string `json:"owner_id"`
	ActorID string `json:"actor_id"`
	Kind    string `json:"kind"`
	Count   int    `json:"count"`
}
