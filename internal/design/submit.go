package design

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/mutualaid/internal/apperr"
	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/governance"
	"github.com/dukerupert/mutualaid/internal/guardrail"
	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/saga"
)

// ProposalCategory tags governance proposals raised by this package.
const ProposalCategory = "game_design"

// checkSubmittable runs the full guardrail set against the draft's live rows.
func (s *Service) checkSubmittable(ctx context.Context, r *model.Ruleset) error {
	var c model.RulesetChildren
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c.QuestTypes, err = s.rulesets.QuestTypes(gctx, r.ID)
		return err
	})
	g.Go(func() (err error) {
		c.SkillDomains, err = s.rulesets.SkillDomains(gctx, r.ID)
		return err
	})
	g.Go(func() (err error) {
		c.RecognitionTiers, err = s.rulesets.RecognitionTiers(gctx, r.ID)
		return err
	})
	g.Go(func() (err error) {
		c.RecognitionSources, err = s.rulesets.RecognitionSources(gctx, r.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load draft rows: %w", err)
	}

	vs := guardrail.ValidateRuleset(guardrail.Candidate{
		SunsetAt:         r.SunsetAt,
		QuestTypeCount:   len(c.QuestTypes),
		SkillDomainCount: len(c.SkillDomains),
		TierCount:        len(c.RecognitionTiers),
	}, s.now())
	vs = append(vs, guardrail.ValidateDraftFields(r.Name, r.Description, r.ValueStatement, r.DesignRationale)...)
	if len(vs) > 0 {
		return apperr.Invalid("Guardrail violations: " + guardrail.Join(vs))
	}
	if errs := validateTemplateRows(c); len(errs) > 0 {
		return apperr.Invalid("Guardrail violations: " + strings.Join(errs, "; "))
	}
	return nil
}

func proposalFor(r *model.Ruleset) governance.Proposal {
	return governance.Proposal{
		CommunityID: r.CommunityID,
		Title:       "Game Design: " + r.Name,
		Description: fmt.Sprintf("Proposal to adopt a new game design: %q\n\nValue Statement: %s\n\nRationale: %s",
			r.Name, r.ValueStatement, r.DesignRationale),
		Category: ProposalCategory,
	}
}

// Submit opens a governance proposal for the draft and locks it. If the
// lock cannot be written the proposal is withdrawn again.
func (s *Service) Submit(ctx context.Context, actor auth.AuthContext, draftID string) (string, error) {
	r, err := s.rulesets.GetByID(ctx, draftID)
	if err != nil {
		return "", err
	}
	if r == nil || r.CommunityID != actor.CommunityID {
		return "", ErrDesignNotFound
	}
	if r.CreatedBy != actor.UserID {
		return "", ErrNotSubmitter
	}
	if r.Status != model.RulesetDraft {
		return "", ErrSubmitNotDraft
	}
	if r.Locked() {
		return "", ErrAlreadySubmitted
	}
	if err := s.checkSubmittable(ctx, r); err != nil {
		return "", err
	}

	var proposalID string
	err = saga.Run(ctx,
		saga.Step{
			Name: "create proposal",
			Do: func(ctx context.Context) (err error) {
				proposalID, err = s.gov.CreateProposal(ctx, proposalFor(r))
				return err
			},
			Undo: func(ctx context.Context) error {
				return s.gov.DeleteProposal(ctx, proposalID)
			},
		},
		saga.Step{
			Name: "lock draft",
			Do: func(ctx context.Context) error {
				ok, err := s.rulesets.Lock(ctx, r.ID, proposalID)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("draft no longer lockable")
				}
				return nil
			},
		},
	)
	if err != nil {
		var se *saga.StepError
		if errors.As(err, &se) && se.Step == "lock draft" {
			s.logger.Error("lock draft after proposal", "ruleset_id", r.ID, "proposal_id", proposalID, "error", err)
			return "", apperr.Wrap(ErrLockFailed.Kind, ErrLockFailed.Message, err)
		}
		return "", fmt.Errorf("create governance proposal: %w", err)
	}

	s.logger.Info("draft submitted for governance", "ruleset_id", r.ID, "proposal_id", proposalID)
	return proposalID, nil
}

// Activate promotes the draft linked to a passed proposal.
func (s *Service) Activate(ctx context.Context, actor auth.AuthContext, proposalID string) (*model.Ruleset, error) {
	p, err := s.gov.GetProposal(ctx, proposalID)
	if errors.Is(err, governance.ErrProposalNotFound) {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Status != governance.StatusPassed {
		return nil, ErrProposalNotPassed
	}
	if p.CommunityID != actor.CommunityID {
		return nil, ErrProposalCommunity
	}

	draft, err := s.rulesets.GetBySubmittedProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.Status != model.RulesetDraft {
		return nil, ErrNoLinkedDraft
	}
	if err := s.activate(ctx, draft, proposalID); err != nil {
		return nil, err
	}
	return s.rulesets.GetByID(ctx, draft.ID)
}

// activate swaps the community's active ruleset and drops its cached rules.
func (s *Service) activate(ctx context.Context, draft *model.Ruleset, proposalID string) error {
	ok, err := s.rulesets.Activate(ctx, draft.ID, proposalID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoLinkedDraft
	}
	if s.resolver != nil {
		s.resolver.Invalidate(draft.CommunityID)
	}
	s.logger.Info("ruleset activated", "ruleset_id", draft.ID, "community_id", draft.CommunityID, "proposal_id", proposalID)
	return nil
}

// Reopen clears the lock on a draft whose proposal was rejected or expired.
func (s *Service) Reopen(ctx context.Context, actor auth.AuthContext, draftID string) (*model.Ruleset, error) {
	r, err := s.rulesets.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if r == nil || r.CommunityID != actor.CommunityID {
		return nil, ErrDesignNotFound
	}
	if r.CreatedBy != actor.UserID {
		return nil, ErrNotCreator
	}
	if r.Status != model.RulesetDraft {
		return nil, ErrNotDraft
	}
	if !r.Locked() {
		return nil, ErrNotSubmitted
	}

	proposalID := *r.SubmittedProposalID
	p, err := s.gov.GetProposal(ctx, proposalID)
	switch {
	case errors.Is(err, governance.ErrProposalNotFound):
		// A withdrawn proposal can no longer pass.
	case err != nil:
		return nil, err
	case p.Status == governance.StatusPassed:
		return nil, ErrProposalPassed
	case p.Status != governance.StatusRejected && p.Status != governance.StatusExpired:
		return nil, ErrProposalOpen
	}

	ok, err := s.rulesets.Unlock(ctx, r.ID, proposalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotSubmitted
	}
	s.logger.Info("draft reopened", "ruleset_id", r.ID, "proposal_id", proposalID)
	return s.rulesets.GetByID(ctx, r.ID)
}

// ActivationSweep activates every locked draft whose proposal has passed.
// Failures for one draft are logged and do not stop the sweep.
func (s *Service) ActivationSweep(ctx context.Context) (int, error) {
	locked, err := s.rulesets.ListLocked(ctx)
	if err != nil {
		return 0, err
	}
	activated := 0
	for i := range locked {
		draft := &locked[i]
		proposalID := *draft.SubmittedProposalID
		p, err := s.gov.GetProposal(ctx, proposalID)
		if err != nil {
			s.logger.Warn("check proposal status", "ruleset_id", draft.ID, "proposal_id", proposalID, "error", err)
			continue
		}
		if p.Status != governance.StatusPassed {
			continue
		}
		if err := s.activate(ctx, draft, proposalID); err != nil {
			s.logger.Error("activate passed draft", "ruleset_id", draft.ID, "proposal_id", proposalID, "error", err)
			continue
		}
		activated++
	}
	return activated, nil
}

// SunsetSweep retires active rulesets past their sunset time. Affected
// communities fall back to the built-in rules.
func (s *Service) SunsetSweep(ctx context.Context) ([]string, error) {
	communities, err := s.rulesets.SunsetExpired(ctx, s.now())
	if err != nil {
		return nil, err
	}
	for _, id := range communities {
		if s.resolver != nil {
			s.resolver.Invalidate(id)
		}
		s.logger.Info("ruleset sunset", "community_id", id)
	}
	return communities, nil
}
