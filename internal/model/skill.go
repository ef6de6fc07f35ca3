package model

import "time"

type SkillProgress struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Domain          string    `json:"domain"`
	TotalXP         int       `json:"total_xp"`
	Level           int       `json:"level"`
	QuestsCompleted int       `json:"quests_completed"`
	LastActivityAt  time.Time `json:"last_activity_at"`
}

// Renown is a user's accumulated reputation.
type Renown struct {
	UserID    string    `json:"user_id"`
	Total     float64   `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}
