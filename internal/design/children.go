package design

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/mutualaid/internal/apperr"
	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/guardrail"
	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/store"
)

func invalid(vs []guardrail.Violation) error {
	return apperr.Invalid(vs[0].Message)
}

// mapDup turns a unique violation into the given rejection.
func mapDup(err error, rej *apperr.Error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return rej
	}
	return err
}

// --- Quest types ---

// AddQuestType appends a quest type to a draft. Count bounds are checked
// before the insert.
func (s *Service) AddQuestType(ctx context.Context, actor auth.AuthContext, draftID string, qt model.QuestType) (*model.QuestType, error) {
	r, err := s.editable(ctx, actor, draftID)
	if err != nil {
		return nil, err
	}
	qt.Slug = guardrail.DeriveSlug(qt.Slug, qt.Label)
	if qt.RecognitionType == "" {
		qt.RecognitionType = model.RecognitionXP
	}
	if qt.MaxPartySize == 0 {
		qt.MaxPartySize = 1
	}
	if vs := guardrail.ValidateQuestType(qt); len(vs) > 0 {
		return nil, invalid(vs)
	}
	counts, err := s.rulesets.Counts(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if counts.QuestTypes >= guardrail.MaxQuestTypes {
		return nil, ErrTooManyQuestTypes
	}
	qt.RulesetID = r.ID
	created, err := s.rulesets.AddQuestType(ctx, qt)
	return created, mapDup(err, ErrDuplicateQuestType)
}

// UpdateQuestType replaces a quest type's fields and revalidates the row.
func (s *Service) UpdateQuestType(ctx context.Context, actor auth.AuthContext, id string, qt model.QuestType) (*model.QuestType, error) {
	existing, err := s.rulesets.GetQuestType(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrQuestTypeNotFound
	}
	if _, err := s.editable(ctx, actor, existing.RulesetID); err != nil {
		return nil, err
	}
	qt.ID, qt.RulesetID = existing.ID, existing.RulesetID
	qt.Slug = guardrail.DeriveSlug(qt.Slug, qt.Label)
	if vs := guardrail.ValidateQuestType(qt); len(vs) > 0 {
		return nil, invalid(vs)
	}
	updated, err := s.rulesets.UpdateQuestType(ctx, qt)
	return updated, mapDup(err, ErrDuplicateQuestType)
}

func (s *Service) RemoveQuestType(ctx context.Context, actor auth.AuthContext, id string) error {
	existing, err := s.rulesets.GetQuestType(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrQuestTypeNotFound
	}
	if _, err := s.editable(ctx, actor, existing.RulesetID); err != nil {
		return err
	}
	return s.rulesets.DeleteQuestType(ctx, id)
}

// --- Skill domains ---

func (s *Service) AddSkillDomain(ctx context.Context, actor auth.AuthContext, draftID string, sd model.SkillDomain) (*model.SkillDomain, error) {
	r, err := s.editable(ctx, actor, draftID)
	if err != nil {
		return nil, err
	}
	sd.Slug = guardrail.DeriveSlug(sd.Slug, sd.Label)
	if sd.VisibilityDefault == "" {
		sd.VisibilityDefault = model.VisibilityPrivate
	}
	if vs := guardrail.ValidateSkillDomain(sd); len(vs) > 0 {
		return nil, invalid(vs)
	}
	counts, err := s.rulesets.Counts(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if counts.SkillDomains >= guardrail.MaxSkillDomains {
		return nil, ErrTooManySkillDomains
	}
	sd.RulesetID = r.ID
	created, err := s.rulesets.AddSkillDomain(ctx, sd)
	return created, mapDup(err, ErrDuplicateDomain)
}

func (s *Service) UpdateSkillDomain(ctx context.Context, actor auth.AuthContext, id string, sd model.SkillDomain) (*model.SkillDomain, error) {
	existing, err := s.rulesets.GetSkillDomain(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrSkillDomainNotFound
	}
	if _, err := s.editable(ctx, actor, existing.RulesetID); err != nil {
		return nil, err
	}
	sd.ID, sd.RulesetID = existing.ID, existing.RulesetID
	sd.Slug = guardrail.DeriveSlug(sd.Slug, sd.Label)
	if sd.VisibilityDefault == "" {
		sd.VisibilityDefault = existing.VisibilityDefault
	}
	if vs := guardrail.ValidateSkillDomain(sd); len(vs) > 0 {
		return nil, invalid(vs)
	}
	updated, err := s.rulesets.UpdateSkillDomain(ctx, sd)
	return updated, mapDup(err, ErrDuplicateDomain)
}

func (s *Service) RemoveSkillDomain(ctx context.Context, actor auth.AuthContext, id string) error {
	existing, err := s.rulesets.GetSkillDomain(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrSkillDomainNotFound
	}
	if _, err := s.editable(ctx, actor, existing.RulesetID); err != nil {
		return err
	}
	return s.rulesets.DeleteSkillDomain(ctx, id)
}

// --- Recognition tiers ---

func (s *Service) AddRecognitionTier(ctx context.Context, actor auth.AuthContext, draftID string, rt model.RecognitionTier) (*model.RecognitionTier, error) {
	r, err := s.editable(ctx, actor, draftID)
	if err != nil {
		return nil, err
	}
	if rt.ThresholdType == "" {
		rt.ThresholdType = model.ThresholdPoints
	}
	if vs := guardrail.ValidateRecognitionTier(rt); len(vs) > 0 {
		return nil, invalid(vs)
	}
	counts, err := s.rulesets.Counts(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if counts.RecognitionTiers >= guardrail.MaxRecognitionTiers {
		return nil, ErrTooManyTiers
	}
	rt.RulesetID = r.ID
	created, err := s.rulesets.AddRecognitionTier(ctx, rt)
	return created, mapDup(err, ErrDuplicateTier)
}

func (s *Service) UpdateRecognitionTier(ctx context.Context, actor auth.AuthContext, id string, rt model.RecognitionTier) (*model.RecognitionTier, error) {
	existing, err := s.rulesets.GetRecognitionTier(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrTierNotFound
	}
	if _, err := s.editable(ctx, actor, existing.RulesetID); err != nil {
		return nil, err
	}
	rt.ID, rt.RulesetID = existing.ID, existing.RulesetID
	if rt.ThresholdType == "" {
		rt.ThresholdType = existing.ThresholdType
	}
	if vs := guardrail.ValidateRecognitionTier(rt); len(vs) > 0 {
		return nil, invalid(vs)
	}
	updated, err := s.rulesets.UpdateRecognitionTier(ctx, rt)
	return updated, mapDup(err, ErrDuplicateTier)
}

// RemoveRecognitionTier refuses to leave a draft with fewer than the
// minimum number of tiers.
func (s *Service) RemoveRecognitionTier(ctx context.Context, actor auth.AuthContext, id string) error {
	existing, err := s.rulesets.GetRecognitionTier(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrTierNotFound
	}
	if _, err := s.editable(ctx, actor, existing.RulesetID); err != nil {
		return err
	}
	counts, err := s.rulesets.Counts(ctx, existing.RulesetID)
	if err != nil {
		return err
	}
	if counts.RecognitionTiers <= guardrail.MinRecognitionTiers {
		return ErrTooFewTiers
	}
	return s.rulesets.DeleteRecognitionTier(ctx, id)
}

// --- Recognition sources ---

// ReplaceRecognitionSources validates every source, then swaps the whole set.
func (s *Service) ReplaceRecognitionSources(ctx context.Context, actor auth.AuthContext, draftID string, sources []model.RecognitionSource) ([]model.RecognitionSource, error) {
	r, err := s.editable(ctx, actor, draftID)
	if err != nil {
		return nil, err
	}
	seen := make(map[model.SourceType]bool, len(sources))
	for i, rs := range sources {
		if vs := guardrail.ValidateRecognitionSource(rs); len(vs) > 0 {
			return nil, apperr.Invalid(fmt.Sprintf("Source %d: %s", i+1, vs[0].Message))
		}
		if seen[rs.SourceType] {
			return nil, ErrDuplicateSource
		}
		seen[rs.SourceType] = true
	}
	if err := s.rulesets.ReplaceRecognitionSources(ctx, r.ID, sources); err != nil {
		return nil, err
	}
	return s.rulesets.RecognitionSources(ctx, r.ID)
}
