// Package guardrail holds the platform-wide bounds no community ruleset may
// exceed. Every function is pure and returns all violations it finds.
package guardrail

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/mutualaid/internal/model"
)

const (
	MaxQuestTypes        = 20
	MaxSkillDomains      = 15
	MinRecognitionTiers  = 2
	MaxRecognitionTiers  = 7
	MinSunsetMonths      = 3
	MaxSunsetYears       = 2
	MaxRecognitionPerDay = 500
	MaxPartySize         = 10

	MaxValidationThreshold = 100
	MaxBaseRecognition     = 1000
	MaxCooldownHours       = 168
	MaxExamples            = 10
	MaxUnlocks             = 10
	MaxTierThreshold       = 10000
)

// Violation is a single failed bound.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Join concatenates violation messages for display.
func Join(vs []Violation) string {
	msgs := make([]string, len(vs))
	for i, v := range vs {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "; ")
}

// Candidate is the ruleset-level shape checked before submission.
type Candidate struct {
	SunsetAt         time.Time
	QuestTypeCount   int
	SkillDomainCount int
	TierCount        int
}

// ValidateRuleset checks the sunset window and child-collection counts.
func ValidateRuleset(c Candidate, now time.Time) []Violation {
	var vs []Violation

	if c.SunsetAt.Before(now.AddDate(0, MinSunsetMonths, 0)) {
		vs = append(vs, Violation{"sunset_at", "Game design must last at least 3 months"})
	}
	if c.SunsetAt.After(now.AddDate(MaxSunsetYears, 0, 0)) {
		vs = append(vs, Violation{"sunset_at", "Game design cannot exceed 2 years"})
	}
	if c.QuestTypeCount > MaxQuestTypes {
		vs = append(vs, Violation{"quest_types", fmt.Sprintf("Maximum %d quest types allowed", MaxQuestTypes)})
	}
	if c.SkillDomainCount > MaxSkillDomains {
		vs = append(vs, Violation{"skill_domains", fmt.Sprintf("Maximum %d skill domains allowed", MaxSkillDomains)})
	}
	if c.TierCount < MinRecognitionTiers {
		vs = append(vs, Violation{"recognition_tiers", fmt.Sprintf("At least %d recognition tiers required", MinRecognitionTiers)})
	}
	if c.TierCount > MaxRecognitionTiers {
		vs = append(vs, Violation{"recognition_tiers", fmt.Sprintf("Maximum %d recognition tiers allowed", MaxRecognitionTiers)})
	}
	return vs
}

// ValidateVisibilityDefault reports whether v is an allowed default.
// "public" is never allowed.
func ValidateVisibilityDefault(v model.Visibility) bool {
	switch v {
	case model.VisibilityPrivate, model.VisibilityOptIn, model.VisibilitySummaryOnly:
		return true
	}
	return false
}

func ValidateRecognitionAmount(amount float64, maxPerDay *int) []Violation {
	var vs []Violation
	if amount < 0 {
		vs = append(vs, Violation{"amount", "Recognition amount cannot be negative"})
	}
	if maxPerDay != nil {
		if *maxPerDay > MaxRecognitionPerDay {
			vs = append(vs, Violation{"max_per_day", fmt.Sprintf("Daily recognition cap cannot exceed %d", MaxRecognitionPerDay)})
		}
		if *maxPerDay < 0 {
			vs = append(vs, Violation{"max_per_day", "Daily recognition cap cannot be negative"})
		}
	}
	return vs
}

// ValidateQuestPricing checks the values a quest copies from its ruleset at
// creation time.
func ValidateQuestPricing(method model.ValidationMethod, threshold, amount, maxPartySize int) []Violation {
	var vs []Violation
	if !validMethod(method) {
		vs = append(vs, Violation{"validation_method", "Invalid validation method"})
	}
	if threshold < 0 || threshold > MaxValidationThreshold {
		vs = append(vs, Violation{"validation_threshold", fmt.Sprintf("Validation threshold must be between 0 and %d", MaxValidationThreshold)})
	}
	if amount < 0 || amount > MaxBaseRecognition {
		vs = append(vs, Violation{"xp_reward", fmt.Sprintf("Recognition reward must be between 0 and %d", MaxBaseRecognition)})
	}
	if maxPartySize < 1 || maxPartySize > MaxPartySize {
		vs = append(vs, Violation{"max_party_size", fmt.Sprintf("Party size must be between 1 and %d", MaxPartySize)})
	}
	return vs
}

func validMethod(m model.ValidationMethod) bool {
	switch m {
	case model.ValidationSelfReport, model.ValidationPeerConfirm, model.ValidationPhotoAndPeer,
		model.ValidationCommunityVote, model.ValidationCommunityVoteAndEvidence:
		return true
	}
	return false
}

func validRecognitionType(t model.RecognitionType) bool {
	switch t {
	case model.RecognitionXP, model.RecognitionNarrative, model.RecognitionBadge,
		model.RecognitionEndorsementPrompt, model.RecognitionNone:
		return true
	}
	return false
}

func validThresholdType(t model.ThresholdType) bool {
	switch t {
	case model.ThresholdPoints, model.ThresholdQuestsCompleted, model.ThresholdEndorsements,
		model.ThresholdTimeInCommunity, model.ThresholdComposite:
		return true
	}
	return false
}

func validSourceType(t model.SourceType) bool {
	switch t {
	case model.SourceQuestCompletion, model.SourceEndorsementGiven,
		model.SourceEndorsementReceived, model.SourceMentoring:
		return true
	}
	return false
}
