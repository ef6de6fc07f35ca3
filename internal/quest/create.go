package quest

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dukerupert/mutualaid/internal/apperr"
	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/guardrail"
	"github.com/dukerupert/mutualaid/internal/model"
)

type CreateInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Difficulty   string     `json:"difficulty"`
	SkillDomains []string   `json:"skill_domains"`
	MaxPartySize *int       `json:"max_party_size"`
	IsEmergency  bool       `json:"is_emergency"`
	ScheduledFor *time.Time `json:"scheduled_for"`
	PostID       *string    `json:"post_id"`
	GuildID      *string    `json:"guild_id"`
}

func validateInput(in CreateInput) error {
	var msgs []string
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Title)); n < 5 || n > 100 {
		msgs = append(msgs, "Title must be between 5 and 100 characters")
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Description)); n < 10 || n > 2000 {
		msgs = append(msgs, "Description must be between 10 and 2000 characters")
	}
	if in.Difficulty == "" {
		msgs = append(msgs, "Difficulty is required")
	}
	if n := len(in.SkillDomains); n < 1 || n > 3 {
		msgs = append(msgs, "Choose between 1 and 3 skill domains")
	} else {
		seen := map[string]bool{}
		for _, d := range in.SkillDomains {
			if seen[d] {
				msgs = append(msgs, "Skill domains must be distinct")
				break
			}
			seen[d] = true
		}
	}
	if in.MaxPartySize != nil && (*in.MaxPartySize < 1 || *in.MaxPartySize > guardrail.MaxPartySize) {
		msgs = append(msgs, fmt.Sprintf("Party size must be between 1 and %d", guardrail.MaxPartySize))
	}
	for _, id := range []*string{in.PostID, in.GuildID} {
		if id != nil {
			if _, err := uuid.Parse(*id); err != nil {
				msgs = append(msgs, "Invalid reference id")
				break
			}
		}
	}
	if len(msgs) > 0 {
		return apperr.Invalid(strings.Join(msgs, "; "))
	}
	return nil
}

// Create prices a new quest from the community's resolved ruleset. The
// validation method, threshold and reward are copied onto the quest.
func (e *Engine) Create(ctx context.Context, actor auth.AuthContext, in CreateInput) (*model.Quest, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	rules, err := e.resolver.Resolve(ctx, actor.CommunityID)
	if err != nil {
		return nil, err
	}
	qt, ok := rules.QuestType(in.Difficulty)
	if !ok {
		return nil, apperr.Invalid(fmt.Sprintf("Unknown difficulty %q", in.Difficulty))
	}
	for _, d := range in.SkillDomains {
		if !rules.HasSkillDomain(d) {
			return nil, apperr.Invalid(fmt.Sprintf("Unknown skill domain %q", d))
		}
	}

	partySize := qt.MaxPartySize
	if in.MaxPartySize != nil {
		partySize = *in.MaxPartySize
	}
	if vs := guardrail.ValidateQuestPricing(qt.ValidationMethod, qt.ValidationThreshold, qt.BaseRecognition, partySize); len(vs) > 0 {
		e.logger.Warn("ruleset prices quest outside guardrails", "ruleset_id", rules.Ruleset.ID, "quest_type", qt.Slug, "violations", guardrail.Join(vs))
		return nil, apperr.Invalid("Guardrail violations: " + guardrail.Join(vs))
	}

	q := &model.Quest{
		CommunityID:         actor.CommunityID,
		CreatedBy:           actor.UserID,
		PostID:              in.PostID,
		GuildID:             in.GuildID,
		Title:               strings.TrimSpace(in.Title),
		Description:         strings.TrimSpace(in.Description),
		Difficulty:          qt.Slug,
		ValidationMethod:    qt.ValidationMethod,
		ValidationThreshold: qt.ValidationThreshold,
		SkillDomains:        in.SkillDomains,
		XPReward:            qt.BaseRecognition,
		MaxPartySize:        partySize,
		IsEmergency:         in.IsEmergency,
		ScheduledFor:        in.ScheduledFor,
	}
	if !rules.IsFallback {
		rulesetID, questTypeID := rules.Ruleset.ID, qt.ID
		q.RulesetID = &rulesetID
		q.QuestTypeID = &questTypeID
	}

	created, err := e.quests.Create(ctx, q)
	if err != nil {
		return nil, err
	}
	e.logger.Info("quest created", "quest_id", created.ID, "community_id", created.CommunityID, "difficulty", created.Difficulty)
	e.broadcast(created, "created")
	return created, nil
}
