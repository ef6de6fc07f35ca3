package model

import "time"

type QuestStatus string

const (
	QuestOpen              QuestStatus = "open"
	QuestClaimed           QuestStatus = "claimed"
	QuestInProgress        QuestStatus = "in_progress"
	QuestPendingValidation QuestStatus = "pending_validation"
	QuestCompleted         QuestStatus = "completed"
	// Reserved for moderation and expiry paths outside the engine.
	QuestExpired   QuestStatus = "expired"
	QuestCancelled QuestStatus = "cancelled"
)

// Quest is a unit of community contribution. Validation and reward values
// are copied at creation so later ruleset edits never change it.
type Quest struct {
	ID                  string           `json:"id"`
	CommunityID         string           `json:"community_id"`
	CreatedBy           string           `json:"created_by"`
	PostID              *string          `json:"post_id"`
	GuildID             *string          `json:"guild_id"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	Difficulty          string           `json:"difficulty"`
	Status              QuestStatus      `json:"status"`
	ValidationMethod    ValidationMethod `json:"validation_method"`
	ValidationThreshold int              `json:"validation_threshold"`
	ValidationCount     int              `json:"validation_count"`
	SkillDomains        []string         `json:"skill_domains"`
	XPReward            int              `json:"xp_reward"`
	MaxPartySize        int              `json:"max_party_size"`
	IsEmergency         bool             `json:"is_emergency"`
	ScheduledFor        *time.Time       `json:"scheduled_for"`
	RulesetID           *string          `json:"ruleset_id"`
	QuestTypeID         *string          `json:"quest_type_id"`
	CompletedAt         *time.Time       `json:"completed_at"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

type Party struct {
	ID        string    `json:"id"`
	QuestID   string    `json:"quest_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type PartyMember struct {
	PartyID  string    `json:"party_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type QuestValidation struct {
	ID          string    `json:"id"`
	QuestID     string    `json:"quest_id"`
	ValidatorID string    `json:"validator_id"`
	Approved    bool      `json:"approved"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}
