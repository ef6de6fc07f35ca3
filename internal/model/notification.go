package model

import "time"

type NotificationType string

const (
	NotifyQuestClaimed           NotificationType = "quest_claimed"
	NotifyPartyJoined            NotificationType = "party_joined"
	NotifyQuestPendingValidation NotificationType = "quest_pending_validation"
	NotifyQuestValidated         NotificationType = "quest_validated"
	NotifyQuestCompleted         NotificationType = "quest_completed"
)

type Notification struct {
	ID           string           `json:"id"`
	RecipientID  string           `json:"recipient_id"`
	CommunityID  string           `json:"community_id"`
	Type         NotificationType `json:"type"`
	Title        string           `json:"title"`
	Body         string           `json:"body"`
	ResourceType string           `json:"resource_type"`
	ResourceID   string           `json:"resource_id"`
	ActorID      string           `json:"actor_id"`
	ReadAt       *time.Time       `json:"read_at"`
	CreatedAt    time.Time        `json:"created_at"`
}
