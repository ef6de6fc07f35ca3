// Package notify delivers user notifications without blocking the action
// that triggered them. Notices are queued, persisted by a worker and pushed
// to the recipient's live connections.
package notify

import (
	"context"
	"log/slog"

	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/websocket"
)

const defaultQueueSize = 256

type Persister interface {
	Create(ctx context.Context, n model.Notification) (*model.Notification, error)
}

type Pusher interface {
	SendToUser(communityID, userID string, msg websocket.Message)
}

type Dispatcher struct {
	store  Persister
	pusher Pusher
	logger *slog.Logger
	queue  chan model.Notification
	done   chan struct{}
}

func NewDispatcher(store Persister, pusher Pusher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		pusher: pusher,
		logger: logger,
		queue:  make(chan model.Notification, defaultQueueSize),
		done:   make(chan struct{}),
	}
}

// Notify enqueues n. Self-notifications are skipped. When the queue is
// full the notice is dropped and logged.
func (d *Dispatcher) Notify(n model.Notification) {
	if n.RecipientID == "" || n.RecipientID == n.ActorID {
		return
	}
	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification queue full, dropping", "type", n.Type, "recipient_id", n.RecipientID)
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		case <-ctx.Done():
			d.flush()
			return
		}
	}
}

// Wait blocks until Run has returned.
func (d *Dispatcher) Wait() {
	<-d.done
}

func (d *Dispatcher) flush() {
	ctx := context.Background()
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n model.Notification) {
	saved, err := d.store.Create(ctx, n)
	if err != nil {
		d.logger.Warn("persist notification", "type", n.Type, "recipient_id", n.RecipientID, "error", err)
		return
	}
	if d.pusher != nil {
		d.pusher.SendToUser(saved.CommunityID, saved.RecipientID, websocket.NewMessage("notification", "created", saved.ID, map[string]any{
			"type":          string(saved.Type),
			"title":         saved.Title,
			"resource_type": saved.ResourceType,
			"resource_id":   saved.ResourceID,
		}))
	}
}
