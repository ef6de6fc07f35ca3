package quest

import (
	"context"
	"slices"

	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/model"
)

// Post is the board collaborator's summary of a request for help.
type Post struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Urgency     string `json:"urgency"`
}

var categoryDomains = map[string][]string{
	"home_repair":    {"craft"},
	"yard_garden":    {"green"},
	"childcare":      {"care"},
	"pet_care":       {"care"},
	"transportation": {"bridge"},
	"tech_help":      {"signal"},
	"cooking_meals":  {"hearth"},
	"tutoring":       {"signal", "care"},
	"moving":         {"bridge", "craft"},
	"errands":        {"bridge"},
	"companionship":  {"care", "hearth"},
}

// DomainsForCategory maps a board category to skill domain slugs.
func DomainsForCategory(category string) []string {
	if d, ok := categoryDomains[category]; ok {
		return slices.Clone(d)
	}
	return []string{"weave"}
}

// CreateFromPost turns a board post into a quest priced by the community's
// ruleset. Urgent posts get the second quest type by sort order.
func (e *Engine) CreateFromPost(ctx context.Context, actor auth.AuthContext, post Post) (*model.Quest, error) {
	rules, err := e.resolver.Resolve(ctx, actor.CommunityID)
	if err != nil {
		return nil, err
	}

	var domains []string
	for _, d := range DomainsForCategory(post.Category) {
		if rules.HasSkillDomain(d) {
			domains = append(domains, d)
		}
	}
	if len(domains) == 0 && len(rules.SkillDomains) > 0 {
		domains = []string{rules.SkillDomains[0].Slug}
	}

	types := slices.Clone(rules.QuestTypes)
	slices.SortStableFunc(types, func(a, b model.QuestType) int { return a.SortOrder - b.SortOrder })
	var difficulty string
	switch {
	case len(types) == 0:
	case post.Urgency == "high" && len(types) > 1:
		difficulty = types[1].Slug
	default:
		difficulty = types[0].Slug
	}

	in := CreateInput{
		Title:        post.Title,
		Description:  post.Description,
		Difficulty:   difficulty,
		SkillDomains: domains,
		IsEmergency:  post.Urgency == "high",
	}
	if post.ID != "" {
		id := post.ID
		in.PostID = &id
	}
	return e.Create(ctx, actor, in)
}
