package resolver

import (
	"maps"
	"slices"

	"github.com/dukerupert/mutualaid/internal/model"
)

// Resolved is a read-only snapshot of the rules that apply to a community.
// Callers receive their own copy and may not affect other readers.
type Resolved struct {
	Ruleset            model.Ruleset             `json:"ruleset"`
	IsFallback         bool                      `json:"is_fallback"`
	QuestTypes         []model.QuestType         `json:"quest_types"`
	SkillDomains       []model.SkillDomain       `json:"skill_domains"`
	RecognitionTiers   []model.RecognitionTier   `json:"recognition_tiers"`
	RecognitionSources []model.RecognitionSource `json:"recognition_sources"`
}

// QuestType looks up a quest type by slug.
func (r *Resolved) QuestType(slug string) (model.QuestType, bool) {
	for _, qt := range r.QuestTypes {
		if qt.Slug == slug {
			return qt, true
		}
	}
	return model.QuestType{}, false
}

func (r *Resolved) HasSkillDomain(slug string) bool {
	for _, sd := range r.SkillDomains {
		if sd.Slug == slug {
			return true
		}
	}
	return false
}

// Source looks up the recognition source for t.
func (r *Resolved) Source(t model.SourceType) (model.RecognitionSource, bool) {
	for _, rs := range r.RecognitionSources {
		if rs.SourceType == t {
			return rs, true
		}
	}
	return model.RecognitionSource{}, false
}

func (r *Resolved) clone() *Resolved {
	out := *r
	out.Ruleset = cloneRuleset(r.Ruleset)
	out.QuestTypes = slices.Clone(r.QuestTypes)
	out.SkillDomains = make([]model.SkillDomain, len(r.SkillDomains))
	for i, sd := range r.SkillDomains {
		sd.Examples = slices.Clone(sd.Examples)
		out.SkillDomains[i] = sd
	}
	out.RecognitionTiers = make([]model.RecognitionTier, len(r.RecognitionTiers))
	for i, rt := range r.RecognitionTiers {
		rt.Unlocks = slices.Clone(rt.Unlocks)
		rt.AdditionalRequirements = maps.Clone(rt.AdditionalRequirements)
		out.RecognitionTiers[i] = rt
	}
	out.RecognitionSources = make([]model.RecognitionSource, len(r.RecognitionSources))
	for i, rs := range r.RecognitionSources {
		if rs.MaxPerDay != nil {
			n := *rs.MaxPerDay
			rs.MaxPerDay = &n
		}
		out.RecognitionSources[i] = rs
	}
	return &out
}

func cloneRuleset(r model.Ruleset) model.Ruleset {
	dup := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := *s
		return &v
	}
	r.PreviousVersionID = dup(r.PreviousVersionID)
	r.TemplateID = dup(r.TemplateID)
	r.SubmittedProposalID = dup(r.SubmittedProposalID)
	r.ActivatedByProposalID = dup(r.ActivatedByProposalID)
	return r
}
