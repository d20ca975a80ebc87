package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/tazhibayda/posts-service/internal/log"
	"github.com/tazhibayda/posts-service/internal/metrics"
	"github.com/tazhibayda/posts-service/internal/queue"
)

// Sender delivers one notification to a post owner.
type Sender interface {
	Send(ctx context.Context, ownerID, subject, body string) error
}

// LogSender writes notifications to the log instead of a mailbox.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, ownerID, subject, body string) error {
	log.Ctx(ctx).Info("notify", zap.String("owner_id", ownerID), zap.String("subject", subject), zap.String("body", body))
	return nil
}

type Notifier struct {
	Sender Sender
}

func New(s Sender) *Notifier {
	if s == nil {
		s = LogSender{}
	}
	return &Notifier{Sender: s}
}

type message struct {
	owner, subject, body string
}

// Handle turns one post event into an owner notification. Malformed bodies
// are dropped; only a failed send is returned so the message is requeued.
func (n *Notifier) Handle(ctx context.Context, d queue.Delivery) error {
	if d.RequestID != "" {
		ctx = log.WithRequestID(ctx, d.RequestID)
	}

	msg, err := decode(d)
	if err != nil {
		metrics.NotificationsHandled.WithLabelValues(d.RoutingKey, "malformed").Inc()
		log.Ctx(ctx).Error("drop event", zap.String("key", d.RoutingKey), zap.Error(err))
		return nil
	}
	if msg == nil {
		metrics.NotificationsHandled.WithLabelValues(d.RoutingKey, "ignored").Inc()
		return nil
	}

	if err := n.Sender.Send(ctx, msg.owner, msg.subject, msg.body); err != nil {
		metrics.NotificationsHandled.WithLabelValues(d.RoutingKey, "failed").Inc()
		return fmt.Errorf("send %s: %w", d.RoutingKey, err)
	}
	metrics.NotificationsHandled.WithLabelValues(d.RoutingKey, "sent").Inc()
	return nil
}

func decode(d queue.Delivery) (*message, error) {
	switch d.RoutingKey {
	case queue.KeyPostCreated:
		var e queue.PostCreated
		if err := json.Unmarshal(d.Body, &e); err != nil {
			return nil, err
		}
		return &message{
			owner:   e.OwnerID,
			subject: "Post published",
			body:    fmt.Sprintf("Your %s post %s is live until %s.", e.Topic, e.PostID, e.ExpiresAt.Format("2006-01-02 15:04 MST")),
		}, nil
	case queue.KeyPostExpired:
		var e queue.PostExpired
		if err := json.Unmarshal(d.Body, &e); err != nil {
			return nil, err
		}
		return &message{
			owner:   e.OwnerID,
			subject: "Post expired",
			body:    fmt.Sprintf("Your %s post %s has expired and no longer accepts reactions.", e.Topic, e.PostID),
		}, nil
	case queue.KeyPostReacted:
		var e queue.PostReacted
		if err := json.Unmarshal(d.Body, &e); err != nil {
			return nil, err
		}
		// owners commenting on their own post are not news to them
		if e.ActorID == e.OwnerID {
			return nil, nil
		}
		return &message{
			owner:   e.OwnerID,
			subject: "New " + e.Kind,
			body:    fmt.Sprintf("Post %s got a new %s (%d total).", e.PostID, e.Kind, e.Count),
		}, nil
	}
	return nil, nil
}
