// Package design runs the community game design lifecycle: drafting from a
// template or the active ruleset, editing, submitting to a governance vote
// and activating once the vote passes.
package design

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/governance"
	"github.com/dukerupert/mutualaid/internal/model"
)

// Store is the ruleset persistence the service needs.
type Store interface {
	Create(ctx context.Context, r *model.Ruleset) (*model.Ruleset, error)
	GetByID(ctx context.Context, id string) (*model.Ruleset, error)
	GetActive(ctx context.Context, communityID string) (*model.Ruleset, error)
	GetBySubmittedProposal(ctx context.Context, proposalID string) (*model.Ruleset, error)
	ListDrafts(ctx context.Context, communityID string) ([]model.Ruleset, error)
	ListLocked(ctx context.Context) ([]model.Ruleset, error)
	UpdateFields(ctx context.Context, r *model.Ruleset) (bool, error)
	Lock(ctx context.Context, id, proposalID string) (bool, error)
	Unlock(ctx context.Context, id, proposalID string) (bool, error)
	Activate(ctx context.Context, draftID, proposalID string) (bool, error)
	SunsetExpired(ctx context.Context, at time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context, id string) (model.RulesetCounts, error)

	QuestTypes(ctx context.Context, rulesetID string) ([]model.QuestType, error)
	GetQuestType(ctx context.Context, id string) (*model.QuestType, error)
	AddQuestType(ctx context.Context, qt model.QuestType) (*model.QuestType, error)
	UpdateQuestType(ctx context.Context, qt model.QuestType) (*model.QuestType, error)
	DeleteQuestType(ctx context.Context, id string) error

	SkillDomains(ctx context.Context, rulesetID string) ([]model.SkillDomain, error)
	GetSkillDomain(ctx context.Context, id string) (*model.SkillDomain, error)
	AddSkillDomain(ctx context.Context, sd model.SkillDomain) (*model.SkillDomain, error)
	UpdateSkillDomain(ctx context.Context, sd model.SkillDomain) (*model.SkillDomain, error)
	DeleteSkillDomain(ctx context.Context, id string) error

	RecognitionTiers(ctx context.Context, rulesetID string) ([]model.RecognitionTier, error)
	GetRecognitionTier(ctx context.Context, id string) (*model.RecognitionTier, error)
	AddRecognitionTier(ctx context.Context, rt model.RecognitionTier) (*model.RecognitionTier, error)
	UpdateRecognitionTier(ctx context.Context, rt model.RecognitionTier) (*model.RecognitionTier, error)
	DeleteRecognitionTier(ctx context.Context, id string) error

	RecognitionSources(ctx context.Context, rulesetID string) ([]model.RecognitionSource, error)
	ReplaceRecognitionSources(ctx context.Context, rulesetID string, sources []model.RecognitionSource) error

	Children(ctx context.Context, rulesetID string) (*model.RulesetChildren, error)
	InsertChildren(ctx context.Context, rulesetID string, c model.RulesetChildren) error
}

type Templates interface {
	List(ctx context.Context) ([]model.Template, error)
	GetByID(ctx context.Context, id string) (*model.Template, error)
}

// Governance is the external proposal service.
type Governance interface {
	CreateProposal(ctx context.Context, p governance.Proposal) (string, error)
	GetProposal(ctx context.Context, id string) (*governance.ProposalInfo, error)
	DeleteProposal(ctx context.Context, id string) error
}

// Invalidator drops cached rules for a community.
type Invalidator interface {
	Invalidate(communityID string)
}

type Deps struct {
	Rulesets   Store
	Templates  Templates
	Governance Governance
	Resolver   Invalidator
	Logger     *slog.Logger
	Now        func() time.Time
}

type Service struct {
	rulesets  Store
	templates Templates
	gov       Governance
	resolver  Invalidator
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		rulesets:  d.Rulesets,
		templates: d.Templates,
		gov:       d.Governance,
		resolver:  d.Resolver,
		logger:    d.Logger,
		now:       d.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Draft is a ruleset with its four child collections.
type Draft struct {
	*model.Ruleset
	model.RulesetChildren
}

func (s *Service) ListTemplates(ctx context.Context) ([]model.Template, error) {
	return s.templates.List(ctx)
}

func (s *Service) ListCommunityDrafts(ctx context.Context, actor auth.AuthContext) ([]model.Ruleset, error) {
	return s.rulesets.ListDrafts(ctx, actor.CommunityID)
}

// GetDraft returns any ruleset of the actor's community with its children.
func (s *Service) GetDraft(ctx context.Context, actor auth.AuthContext, id string) (*Draft, error) {
	r, err := s.rulesets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrDesignNotFound
	}
	if r.CommunityID != actor.CommunityID {
		return nil, ErrNotYourCommunity
	}
	children, err := s.rulesets.Children(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return &Draft{Ruleset: r, RulesetChildren: *children}, nil
}

// editable loads a draft the actor may change.
func (s *Service) editable(ctx context.Context, actor auth.AuthContext, id string) (*model.Ruleset, error) {
	r, err := s.rulesets.GetByID(ctx, id)
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
	if r.Locked() {
		return nil, ErrLocked
	}
	return r, nil
}
