package design

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/mutualaid/internal/apperr"
	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/guardrail"
	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/saga"
)

// DraftLifetimeYears is how far out a new draft's sunset is set.
const DraftLifetimeYears = 1

// validateTemplateRows runs every seeded row through the same guardrails as
// a manual edit. Messages name the offending row.
func validateTemplateRows(c model.RulesetChildren) []string {
	var errs []string
	for i, qt := range c.QuestTypes {
		if vs := guardrail.ValidateQuestType(qt); len(vs) > 0 {
			errs = append(errs, fmt.Sprintf("Quest type %d (%s): %s", i, qt.Slug, vs[0].Message))
		}
	}
	for i, sd := range c.SkillDomains {
		if vs := guardrail.ValidateSkillDomain(sd); len(vs) > 0 {
			errs = append(errs, fmt.Sprintf("Skill domain %d (%s): %s", i, sd.Slug, vs[0].Message))
		}
	}
	for i, rt := range c.RecognitionTiers {
		if vs := guardrail.ValidateRecognitionTier(rt); len(vs) > 0 {
			errs = append(errs, fmt.Sprintf("Recognition tier %d (%s): %s", i, rt.Name, vs[0].Message))
		}
	}
	for i, rs := range c.RecognitionSources {
		if vs := guardrail.ValidateRecognitionSource(rs); len(vs) > 0 {
			errs = append(errs, fmt.Sprintf("Recognition source %d: %s", i, vs[0].Message))
		}
	}
	return errs
}

// CreateFromTemplate seeds a new draft from a template. A template that
// fails the guardrails, or any failed insert, removes the draft again.
func (s *Service) CreateFromTemplate(ctx context.Context, actor auth.AuthContext, templateID string) (*model.Ruleset, error) {
	tmpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, ErrTemplateNotFound
	}
	rows := tmpl.Config.Rows()

	var draft *model.Ruleset
	err = saga.Run(ctx,
		saga.Step{
			Name: "create draft",
			Do: func(ctx context.Context) (err error) {
				tid := tmpl.ID
				draft, err = s.rulesets.Create(ctx, &model.Ruleset{
					CommunityID:     actor.CommunityID,
					Name:            tmpl.Name + " (Draft)",
					Description:     tmpl.Description,
					ValueStatement:  tmpl.ValueStatement,
					DesignRationale: "Based on the " + tmpl.Name + " template. Edit this to describe why your community chose these rules.",
					Version:         1,
					SunsetAt:        s.now().AddDate(DraftLifetimeYears, 0, 0),
					TemplateID:      &tid,
					CreatedBy:       actor.UserID,
				})
				return err
			},
			Undo: func(ctx context.Context) error {
				return s.rulesets.Delete(ctx, draft.ID)
			},
		},
		saga.Step{
			Name: "seed",
			Do: func(ctx context.Context) error {
				if errs := validateTemplateRows(rows); len(errs) > 0 {
					return apperr.Invalid("Template seeding failed: " + errs[0])
				}
				return s.rulesets.InsertChildren(ctx, draft.ID, rows)
			},
		},
	)
	if err != nil {
		if rej, ok := apperr.As(err); ok {
			s.logger.Warn("template seeding rejected", "template_id", tmpl.ID, "error", err)
			return nil, rej
		}
		return nil, fmt.Errorf("create draft from template: %w", err)
	}

	s.logger.Info("draft created from template", "ruleset_id", draft.ID, "template_id", tmpl.ID, "community_id", actor.CommunityID)
	return draft, nil
}

// Fork copies the community's active ruleset and all of its rows into a new
// draft one version higher.
func (s *Service) Fork(ctx context.Context, actor auth.AuthContext) (*model.Ruleset, error) {
	active, err := s.rulesets.GetActive(ctx, actor.CommunityID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActiveDesign
	}
	children, err := s.rulesets.Children(ctx, active.ID)
	if err != nil {
		return nil, err
	}

	var draft *model.Ruleset
	err = saga.Run(ctx,
		saga.Step{
			Name: "create draft",
			Do: func(ctx context.Context) (err error) {
				previous := active.ID
				draft, err = s.rulesets.Create(ctx, &model.Ruleset{
					CommunityID:       actor.CommunityID,
					Name:              active.Name + " (Fork)",
					Description:       active.Description,
					ValueStatement:    active.ValueStatement,
					DesignRationale:   active.DesignRationale,
					Version:           active.Version + 1,
					SunsetAt:          s.now().AddDate(DraftLifetimeYears, 0, 0),
					PreviousVersionID: &previous,
					TemplateID:        active.TemplateID,
					CreatedBy:         actor.UserID,
				})
				return err
			},
			Undo: func(ctx context.Context) error {
				return s.rulesets.Delete(ctx, draft.ID)
			},
		},
		saga.Step{
			Name: "copy rows",
			Do: func(ctx context.Context) error {
				return s.rulesets.InsertChildren(ctx, draft.ID, *children)
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("fork failed: %w", err)
	}

	s.logger.Info("active ruleset forked", "ruleset_id", draft.ID, "previous_id", active.ID, "version", draft.Version)
	return draft, nil
}

// DraftPatch holds the editable top-level fields. Nil fields are unchanged.
type DraftPatch struct {
	Name            *string    `json:"name"`
	Description     *string    `json:"description"`
	ValueStatement  *string    `json:"value_statement"`
	DesignRationale *string    `json:"design_rationale"`
	SunsetAt        *time.Time `json:"sunset_at"`
}

func (s *Service) UpdateDraft(ctx context.Context, actor auth.AuthContext, id string, p DraftPatch) (*model.Ruleset, error) {
	r, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		r.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.ValueStatement != nil {
		r.ValueStatement = *p.ValueStatement
	}
	if p.DesignRationale != nil {
		r.DesignRationale = *p.DesignRationale
	}

	vs := guardrail.ValidateDraftFields(r.Name, r.Description, r.ValueStatement, r.DesignRationale)
	if p.SunsetAt != nil {
		r.SunsetAt = *p.SunsetAt
		for _, v := range guardrail.ValidateRuleset(guardrail.Candidate{SunsetAt: r.SunsetAt, TierCount: guardrail.MinRecognitionTiers}, s.now()) {
			if v.Field == "sunset_at" {
				vs = append(vs, v)
			}
		}
	}
	if len(vs) > 0 {
		return nil, apperr.Invalid(guardrail.Join(vs))
	}

	ok, err := s.rulesets.UpdateFields(ctx, r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return s.rulesets.GetByID(ctx, r.ID)
}
