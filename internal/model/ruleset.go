package model

import "time"

type RulesetStatus string

const (
	RulesetDraft  RulesetStatus = "draft"
	RulesetActive RulesetStatus = "active"
	RulesetSunset RulesetStatus = "sunset"
)

type ValidationMethod string

const (
	ValidationSelfReport               ValidationMethod = "self_report"
	ValidationPeerConfirm              ValidationMethod = "peer_confirm"
	ValidationPhotoAndPeer             ValidationMethod = "photo_and_peer"
	ValidationCommunityVote            ValidationMethod = "community_vote"
	ValidationCommunityVoteAndEvidence ValidationMethod = "community_vote_and_evidence"
)

type RecognitionType string

const (
	RecognitionXP                RecognitionType = "xp"
	RecognitionNarrative         RecognitionType = "narrative"
	RecognitionBadge             RecognitionType = "badge"
	RecognitionEndorsementPrompt RecognitionType = "endorsement_prompt"
	RecognitionNone              RecognitionType = "none"
)

type Visibility string

const (
	VisibilityPrivate     Visibility = "private"
	VisibilityOptIn       Visibility = "opt_in"
	VisibilitySummaryOnly Visibility = "summary_only"
)

type ThresholdType string

const (
	ThresholdPoints          ThresholdType = "points"
	ThresholdQuestsCompleted ThresholdType = "quests_completed"
	ThresholdEndorsements    ThresholdType = "endorsements"
	ThresholdTimeInCommunity ThresholdType = "time_in_community"
	ThresholdComposite       ThresholdType = "composite"
)

type SourceType string

const (
	SourceQuestCompletion     SourceType = "quest_completion"
	SourceEndorsementGiven    SourceType = "endorsement_given"
	SourceEndorsementReceived SourceType = "endorsement_received"
	SourceMentoring           SourceType = "mentoring"
)

// Ruleset is a community's game design. At most one per community is active.
type Ruleset struct {
	ID                    string        `json:"id"`
	CommunityID           string        `json:"community_id"`
	Name                  string        `json:"name"`
	Description           string        `json:"description"`
	ValueStatement        string        `json:"value_statement"`
	DesignRationale       string        `json:"design_rationale"`
	Status                RulesetStatus `json:"status"`
	Version               int           `json:"version"`
	SunsetAt              time.Time     `json:"sunset_at"`
	PreviousVersionID     *string       `json:"previous_version_id"`
	TemplateID            *string       `json:"template_id"`
	SubmittedProposalID   *string       `json:"submitted_proposal_id"`
	ActivatedByProposalID *string       `json:"activated_by_proposal_id"`
	CreatedBy             string        `json:"created_by"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// Locked reports whether the draft has been submitted for governance.
func (r *Ruleset) Locked() bool {
	return r.SubmittedProposalID != nil
}

type QuestType struct {
	ID                  string           `json:"id"`
	RulesetID           string           `json:"ruleset_id"`
	Slug                string           `json:"slug"`
	Label               string           `json:"label"`
	Description         string           `json:"description"`
	ValidationMethod    ValidationMethod `json:"validation_method"`
	ValidationThreshold int              `json:"validation_threshold"`
	RecognitionType     RecognitionType  `json:"recognition_type"`
	BaseRecognition     int              `json:"base_recognition"`
	NarrativePrompt     string           `json:"narrative_prompt"`
	CooldownHours       int              `json:"cooldown_hours"`
	MaxPartySize        int              `json:"max_party_size"`
	SortOrder           int              `json:"sort_order"`
}

type SkillDomain struct {
	ID                string     `json:"id"`
	RulesetID         string     `json:"ruleset_id"`
	Slug              string     `json:"slug"`
	Label             string     `json:"label"`
	Description       string     `json:"description"`
	Examples          []string   `json:"examples"`
	VisibilityDefault Visibility `json:"visibility_default"`
	SortOrder         int        `json:"sort_order"`
}

type RecognitionTier struct {
	ID                     string         `json:"id"`
	RulesetID              string         `json:"ruleset_id"`
	TierNumber             int            `json:"tier_number"`
	Name                   string         `json:"name"`
	ThresholdType          ThresholdType  `json:"threshold_type"`
	ThresholdValue         int            `json:"threshold_value"`
	AdditionalRequirements map[string]any `json:"additional_requirements"`
	Unlocks                []string       `json:"unlocks"`
}

type RecognitionSource struct {
	ID         string     `json:"id"`
	RulesetID  string     `json:"ruleset_id"`
	SourceType SourceType `json:"source_type"`
	Amount     float64    `json:"amount"`
	MaxPerDay  *int       `json:"max_per_day"`
}

// RulesetChildren groups the four child collections of a ruleset.
type RulesetChildren struct {
	QuestTypes         []QuestType         `json:"quest_types"`
	SkillDomains       []SkillDomain       `json:"skill_domains"`
	RecognitionTiers   []RecognitionTier   `json:"recognition_tiers"`
	RecognitionSources []RecognitionSource `json:"recognition_sources"`
}

// RulesetCounts holds live child-row counts used by the guardrails.
type RulesetCounts struct {
	QuestTypes       int
	SkillDomains     int
	RecognitionTiers int
}
