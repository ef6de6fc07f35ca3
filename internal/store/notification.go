package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/mutualaid/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationCols = `id, recipient_id, community_id, type, title, body, resource_type,
	resource_id, actor_id, read_at, created_at`

func (s *NotificationStore) Create(ctx context.Context, n model.Notification) (*model.Notification, error) {
	n.ID = uuid.NewString()
	n.CreatedAt = now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		n.ID, n.RecipientID, n.CommunityID, n.Type, n.Title, n.Body, n.ResourceType,
		n.ResourceID, n.ActorID, n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

func (s *NotificationStore) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE recipient_id = ? ORDER BY created_at DESC LIMIT ?`,
		recipientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.CommunityID, &n.Type, &n.Title, &n.Body,
			&n.ResourceType, &n.ResourceID, &n.ActorID, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ReadAt = timePtr(readAt)
		out = append(out, n)
	}
	return out, rows.Err()
}
