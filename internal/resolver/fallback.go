package resolver

import (
	"time"

	"github.com/dukerupert/mutualaid/internal/model"
)

// FallbackID identifies the built-in ruleset in resolved snapshots.
const FallbackID = "classic-fallback"

var fallbackQuestTypes = []model.QuestType{
	{Slug: "spark", Label: "Spark", Description: "Quick, simple tasks like picking up litter or checking on a neighbor", ValidationMethod: model.ValidationSelfReport, ValidationThreshold: 0, BaseRecognition: 5, MaxPartySize: 1},
	{Slug: "ember", Label: "Ember", Description: "Tasks needing one peer to confirm, like helping someone move a couch", ValidationMethod: model.ValidationPeerConfirm, ValidationThreshold: 1, BaseRecognition: 15, MaxPartySize: 1},
	{Slug: "flame", Label: "Flame", Description: "Substantial tasks with photo evidence, like repairing a fence", ValidationMethod: model.ValidationPhotoAndPeer, ValidationThreshold: 1, BaseRecognition: 35, MaxPartySize: 1},
	{Slug: "blaze", Label: "Blaze", Description: "Multi-person efforts requiring 3+ community votes to validate", ValidationMethod: model.ValidationCommunityVote, ValidationThreshold: 3, BaseRecognition: 75, MaxPartySize: 5},
	{Slug: "inferno", Label: "Inferno", Description: "Major projects spanning weeks with documented outcomes", ValidationMethod: model.ValidationCommunityVoteAndEvidence, ValidationThreshold: 5, BaseRecognition: 150, MaxPartySize: 5},
}

var fallbackSkillDomains = []model.SkillDomain{
	{Slug: "craft", Label: "Craft", Description: "Building, repairing, and creating physical things", Examples: []string{"Home repair", "Woodworking", "Electrical", "Plumbing", "Sewing"}},
	{Slug: "green", Label: "Green", Description: "Nurturing growing things and stewarding the environment", Examples: []string{"Gardening", "Landscaping", "Composting", "Urban farming"}},
	{Slug: "care", Label: "Care", Description: "Supporting people through presence and attention", Examples: []string{"Childcare", "Eldercare", "Pet care", "Crisis support", "Tutoring"}},
	{Slug: "bridge", Label: "Bridge", Description: "Moving people and things where they need to go", Examples: []string{"Transportation", "Moving help", "Delivery", "Errands"}},
	{Slug: "signal", Label: "Signal", Description: "Connecting people through information and technology", Examples: []string{"Tech help", "Communications", "Translation", "Teaching"}},
	{Slug: "hearth", Label: "Hearth", Description: "Gathering people together through food and fellowship", Examples: []string{"Cooking", "Meal prep", "Event hosting", "Community gathering"}},
	{Slug: "weave", Label: "Weave", Description: "Coordinating people and processes toward shared goals", Examples: []string{"Coordination", "Project management", "Conflict resolution", "Governance"}},
}

var fallbackTiers = []model.RecognitionTier{
	{TierNumber: 1, Name: "Newcomer", ThresholdValue: 0, Unlocks: []string{"Browse, post needs, respond, receive help"}},
	{TierNumber: 2, Name: "Neighbor", ThresholdValue: 0, Unlocks: []string{"Post offers, create quests, join parties, earn skill XP"}},
	{TierNumber: 3, Name: "Pillar", ThresholdValue: 50, AdditionalRequirements: map[string]any{"vouches_required": 2}, Unlocks: []string{"Create guilds, moderate, propose seasonal quests"}},
	{TierNumber: 4, Name: "Keeper", ThresholdValue: 200, Unlocks: []string{"Governance council, propose rule changes, mentor"}},
	{TierNumber: 5, Name: "Founder", ThresholdValue: 500, Unlocks: []string{"Cross-neighborhood coordination, system governance"}},
}

var fallbackSources = []model.RecognitionSource{
	{SourceType: model.SourceQuestCompletion, Amount: 1},
	{SourceType: model.SourceEndorsementGiven, Amount: 0.5},
	{SourceType: model.SourceEndorsementReceived, Amount: 1},
}

// Fallback builds the hardcoded ruleset used when a community has none
// active. Each call returns a fresh value.
func Fallback(communityID string, now time.Time) *Resolved {
	r := &Resolved{
		Ruleset: model.Ruleset{
			ID:          FallbackID,
			CommunityID: communityID,
			Name:        "Classic",
			Status:      model.RulesetActive,
			Version:     1,
			SunsetAt:    now.AddDate(2, 0, 0),
		},
		IsFallback: true,
	}

	for i, qt := range fallbackQuestTypes {
		qt.ID = FallbackID + "-" + qt.Slug
		qt.RulesetID = FallbackID
		qt.RecognitionType = model.RecognitionXP
		qt.SortOrder = i
		r.QuestTypes = append(r.QuestTypes, qt)
	}
	for i, sd := range fallbackSkillDomains {
		sd.ID = FallbackID + "-" + sd.Slug
		sd.RulesetID = FallbackID
		sd.VisibilityDefault = model.VisibilityPrivate
		sd.SortOrder = i
		r.SkillDomains = append(r.SkillDomains, sd)
	}
	for _, rt := range fallbackTiers {
		rt.RulesetID = FallbackID
		rt.ThresholdType = model.ThresholdPoints
		r.RecognitionTiers = append(r.RecognitionTiers, rt)
	}
	for _, rs := range fallbackSources {
		rs.RulesetID = FallbackID
		r.RecognitionSources = append(r.RecognitionSources, rs)
	}

	// Share nothing with the package-level tables.
	return r.clone()
}
