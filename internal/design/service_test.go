package design

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/mutualaid/internal/apperr"
	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/database"
	"github.com/dukerupert/mutualaid/internal/governance"
	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/store"
)

type fakeGov struct {
	mu        sync.Mutex
	next      int
	proposals map[string]*governance.ProposalInfo
	created   []governance.Proposal
	deleted   []string
}

func newFakeGov() *fakeGov {
	return &fakeGov{proposals: map[string]*governance.ProposalInfo{}}
}

func (f *fakeGov) CreateProposal(_ context.Context, p governance.Proposal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("prop-%d", f.next)
	f.proposals[id] = &governance.ProposalInfo{ID: id, CommunityID: p.CommunityID, Status: governance.StatusOpen}
	f.created = append(f.created, p)
	return id, nil
}

func (f *fakeGov) GetProposal(_ context.Context, id string) (*governance.ProposalInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[id]
	if !ok {
		return nil, governance.ErrProposalNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeGov) DeleteProposal(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.proposals, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeGov) setStatus(id string, status governance.ProposalStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposals[id].Status = status
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) Invalidate(communityID string) {
	r.mu.Lock()
	r.ids = append(r.ids, communityID)
	r.mu.Unlock()
}

type harness struct {
	svc       *Service
	rulesets  *store.RulesetStore
	templates *store.TemplateStore
	gov       *fakeGov
	inv       *recordingInvalidator
	now       time.Time
}

func newHarness(t *testing.T, wrap func(Store) Store) *harness {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{
		rulesets:  store.NewRulesetStore(db),
		templates: store.NewTemplateStore(db),
		gov:       newFakeGov(),
		inv:       &recordingInvalidator{},
		now:       time.Now(),
	}
	var rs Store = h.rulesets
	if wrap != nil {
		rs = wrap(rs)
	}
	h.svc = NewService(Deps{
		Rulesets:   rs,
		Templates:  h.templates,
		Governance: h.gov,
		Resolver:   h.inv,
		Now:        func() time.Time { return h.now },
	})
	return h
}

var author = auth.AuthContext{UserID: "author", CommunityID: "c1"}

func (h *harness) draft(t *testing.T, templateID string) *model.Ruleset {
	t.Helper()
	d, err := h.svc.CreateFromTemplate(context.Background(), author, templateID)
	require.NoError(t, err)
	return d
}

func TestCreateFromTemplate(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	d := h.draft(t, "tmpl-classic")
	assert.Equal(t, "Classic (Draft)", d.Name)
	assert.Equal(t, model.RulesetDraft, d.Status)
	assert.Equal(t, 1, d.Version)
	require.NotNil(t, d.TemplateID)
	assert.Equal(t, "tmpl-classic", *d.TemplateID)
	assert.WithinDuration(t, h.now.AddDate(1, 0, 0), d.SunsetAt, time.Second)

	full, err := h.svc.GetDraft(ctx, author, d.ID)
	require.NoError(t, err)
	assert.Len(t, full.QuestTypes, 5)
	assert.Len(t, full.SkillDomains, 7)
	assert.Len(t, full.RecognitionTiers, 5)
	assert.Len(t, full.RecognitionSources, 3)

	_, err = h.svc.GetDraft(ctx, auth.AuthContext{UserID: "x", CommunityID: "c2"}, d.ID)
	assert.ErrorIs(t, err, ErrNotYourCommunity)

	drafts, err := h.svc.ListCommunityDrafts(ctx, author)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	templates, err := h.svc.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestCreateFromTemplateNotFound(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.CreateFromTemplate(context.Background(), author, "tmpl-missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

type corruptTemplates struct {
	Templates
}

func (corruptTemplates) GetByID(context.Context, string) (*model.Template, error) {
	return &model.Template{
		ID:             "tmpl-classic",
		Name:           "Broken",
		ValueStatement: "A template with a bad row in it.",
		Config: model.TemplateConfig{
			QuestTypes: []model.TemplateQuestType{
				{Slug: "bad", Label: "Bad", ValidationMethod: "honor_system", BaseRecognition: 5},
			},
		},
	}, nil
}

func TestCreateFromCorruptTemplateRollsBack(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.svc.templates = corruptTemplates{h.templates}

	_, err := h.svc.CreateFromTemplate(ctx, author, "tmpl-classic")
	require.Error(t, err)
	rej, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalid, rej.Kind)
	assert.Equal(t, "Template seeding failed: Quest type 0 (bad): Invalid validation method", rej.Message)

	drafts, err := h.rulesets.ListDrafts(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, drafts, "no orphaned draft survives a failed seed")
}

func TestUpdateDraft(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	d := h.draft(t, "tmpl-cooperative")

	name := "Our Rules"
	updated, err := h.svc.UpdateDraft(ctx, author, d.ID, DraftPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Our Rules", updated.Name)

	_, err = h.svc.UpdateDraft(ctx, auth.AuthContext{UserID: "other", CommunityID: "c1"}, d.ID, DraftPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotCreator)

	short := "ab"
	_, err = h.svc.UpdateDraft(ctx, author, d.ID, DraftPatch{Name: &short})
	rej, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalid, rej.Kind)

	tooSoon := h.now.AddDate(0, 1, 0)
	_, err = h.svc.UpdateDraft(ctx, author, d.ID, DraftPatch{SunsetAt: &tooSoon})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3 months")

	_, err = h.svc.UpdateDraft(ctx, author, "missing", DraftPatch{Name: &name})
	assert.ErrorIs(t, err, ErrDesignNotFound)
}

func TestQuestTypeCountGuardrail(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	d := h.draft(t, "tmpl-classic")

	for i := 0; i < 15; i++ {
		qt, err := h.svc.AddQuestType(ctx, author, d.ID, model.QuestType{
			Label:               fmt.Sprintf("Extra %d", i),
			ValidationMethod:    model.ValidationPeerConfirm,
			ValidationThreshold: 1,
			BaseRecognition:     10,
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("extra-%d", i), qt.Slug, "slug derived from label")
	}

	_, err := h.svc.AddQuestType(ctx, author, d.ID, model.QuestType{
		Label: "One Too Many", ValidationMethod: model.ValidationSelfReport, BaseRecognition: 5,
	})
	assert.ErrorIs(t, err, ErrTooManyQuestTypes)

	counts, err := h.rulesets.Counts(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, counts.QuestTypes)
}

func TestQuestTypeEdits(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	d := h.draft(t, "tmpl-cooperative")

	_, err := h.svc.AddQuestType(ctx, author, d.ID, model.QuestType{
		Slug: "hand", Label: "Hand", ValidationMethod: model.ValidationSelfReport, BaseRecognition: 5,
	})
	assert.ErrorIs(t, err, ErrDuplicateQuestType)

	_, err = h.svc.AddQuestType(ctx, author, d.ID, model.QuestType{
		Slug: "Not_A_Slug", Label: "Bad", ValidationMethod: model.ValidationSelfReport,
	})
	rej, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalid, rej.Kind)

	qts, err := h.rulesets.QuestTypes(ctx, d.ID)
	require.NoError(t, err)
	target := qts[0]
	target.BaseRecognition = 40
	updated, err := h.svc.UpdateQuestType(ctx, author, target.ID, target)
	require.NoError(t, err)
	assert.Equal(t, 40, updated.BaseRecognition)

	target.ValidationThreshold = 101
	_, err = h.svc.UpdateQuestType(ctx, author, target.ID, target)
	require.Error(t, err)

	require.NoError(t, h.svc.RemoveQuestType(ctx, author, target.ID))
	assert.ErrorIs(t, h.svc.RemoveQuestType(ctx, author, target.ID), ErrQuestTypeNotFound)
}

func TestSkillDomainEdits(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	d := h.draft(t, "tmpl-cooperative")

	sd, err := h.svc.AddSkillDomain(ctx, author, d.ID, model.SkillDomain{Label: "Bike Repair"})
	require.NoError(t, err)
	assert.Equal(t, "bike-repair", sd.Slug)
	assert.Equal(t, model.VisibilityPrivate, sd.VisibilityDefault)

	_, err = h.svc.AddSkillDomain(ctx, author, d.ID, model.SkillDomain{Label: "Bike Repair"})
	assert.ErrorIs(t, err, ErrDuplicateDomain)

	sd.VisibilityDefault = "public"
	_, err = h.svc.UpdateSkillDomain(ctx, author, sd.ID, *sd)
	require.Error(t, err)

	require.NoError(t, h.svc.RemoveSkillDomain(ctx, author, sd.ID))
}

func TestRecognitionTierMinimum(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	d := h.draft(t, "tmpl-cooperative")

	tiers, err := h.rulesets.RecognitionTiers(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, tiers, 3)

	require.NoError(t, h.svc.RemoveRecognitionTier(ctx, author, tiers[2].ID))
	assert.ErrorIs(t, h.svc.RemoveRecognitionTier(ctx, author, tiers[1].ID), ErrTooFewTiers)

	_, err = h.svc.AddRecognitionTier(ctx, author, d.ID, model.RecognitionTier{TierNumber: 1, Name: "Again"})
	assert.ErrorIs(t, err, ErrDuplicateTier)

	added, err := h.svc.AddRecognitionTier(ctx, author, d.ID, model.RecognitionTier{TierNumber: 3, Name: "Elder", ThresholdValue: 100})
	require.NoError(t, err)
	assert.Equal(t, model.ThresholdPoints, added.ThresholdType)
}

func TestReplaceRecognitionSources(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	d := h.draft(t, "tmpl-classic")

	tooMany := 501
	_, err := h.svc.ReplaceRecognitionSources(ctx, author, d.ID, []model.RecognitionSource{
		{SourceType: model.SourceQuestCompletion, Amount: 1},
		{SourceType: model.SourceMentoring, Amount: 1, MaxPerDay: &tooMany},
	})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Source 2: "), err.Error())

	_, err = h.svc.ReplaceRecognitionSources(ctx, author, d.ID, []model.RecognitionSource{
		{SourceType: model.SourceQuestCompletion, Amount: 1},
		{SourceType: model.SourceQuestCompletion, Amount: 2},
	})
	assert.ErrorIs(t, err, ErrDuplicateSource)

	limit := 5
	got, err := h.svc.ReplaceRecognitionSources(ctx, author, d.ID, []model.RecognitionSource{
		{SourceType: model.SourceQuestCompletion, Amount: 2, MaxPerDay: &limit},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].Amount)
}

func TestSubmitLocksDraft(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	d := h.draft(t, "tmpl-classic")

	proposalID, err := h.svc.Submit(ctx, author, d.ID)
	require.NoError(t, err)
	require.Len(t, h.gov.created, 1)
	assert.Equal(t, "Game Design: Classic (Draft)", h.gov.created[0].Title)
	assert.Equal(t, ProposalCategory, h.gov.created[0].Category)
	assert.Contains(t, h.gov.created[0].Description, d.ValueStatement)

	locked, err := h.rulesets.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, locked.SubmittedProposalID)
	assert.Equal(t, proposalID, *locked.SubmittedProposalID)

	name := "Changed"
	_, err = h.svc.UpdateDraft(ctx, author, d.ID, DraftPatch{Name: &name})
	assert.ErrorIs(t, err, ErrLocked)
	_, err = h.svc.AddSkillDomain(ctx, author, d.ID, model.SkillDomain{Label: "Late Addition"})
	assert.ErrorIs(t, err, ErrLocked)

	_, err = h.svc.Submit(ctx, author, d.ID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestSubmitRequiresCreator(t *testing.T) {
	h := newHarness(t, nil)
	d := h.draft(t, "tmpl-classic")
	_, err := h.svc.Submit(context.Background(), auth.AuthContext{UserID: "other", CommunityID: "c1"}, d.ID)
	assert.ErrorIs(t, err, ErrNotSubmitter)
	assert.Empty(t, h.gov.created)
}

func TestSubmitGuardrailViolations(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	d := h.draft(t, "tmpl-cooperative")

	tiers, err := h.rulesets.RecognitionTiers(ctx, d.ID)
	require.NoError(t, err)
	for _, rt := range tiers[1:] {
		require.NoError(t, h.rulesets.DeleteRecognitionTier(ctx, rt.ID))
	}

	_, err = h.svc.Submit(ctx, author, d.ID)
	require.Error(t, err)
	assert.Equal(t, "Guardrail violations: At least 2 recognition tiers required", err.Error())
	assert.Empty(t, h.gov.created, "no proposal for an invalid draft")
}

// fillQuestTypes tops the draft up to n quest types through the store,
// bypassing the service's add guard.
func (h *harness) fillQuestTypes(t *testing.T, draftID string, n int) {
	t.Helper()
	ctx := context.Background()
	counts, err := h.rulesets.Counts(ctx, draftID)
	require.NoError(t, err)
	for i := counts.QuestTypes; i < n; i++ {
		_, err := h.rulesets.AddQuestType(ctx, model.QuestType{
			RulesetID:        draftID,
			Slug:             fmt.Sprintf("filler-%d", i),
			Label:            fmt.Sprintf("Filler %d", i),
			ValidationMethod: model.ValidationSelfReport,
			RecognitionType:  model.RecognitionXP,
			BaseRecognition:  10,
			MaxPartySize:     1,
			SortOrder:        i,
		})
		require.NoError(t, err)
	}
}

func TestSubmitQuestTypeLimit(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t, nil)
	d := h.draft(t, "tmpl-classic")
	h.fillQuestTypes(t, d.ID, 20)
	_, err := h.svc.Submit(ctx, author, d.ID)
	require.NoError(t, err, "exactly 20 quest types is allowed")

	h = newHarness(t, nil)
	d = h.draft(t, "tmpl-classic")
	h.fillQuestTypes(t, d.ID, 21)
	_, err = h.svc.Submit(ctx, author, d.ID)
	require.Error(t, err)
	assert.Equal(t, "Guardrail violations: Maximum 20 quest types allowed", err.Error())
	assert.Empty(t, h.gov.created)

	stored, err := h.rulesets.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SubmittedProposalID)
}

type lockLost struct {
	Store
}

func (lockLost) Lock(context.Context, string, string) (bool, error) {
	return false, nil
}

func TestSubmitLockFailureWithdrawsProposal(t *testing.T) {
	h := newHarness(t, func(s Store) Store { return lockLost{s} })
	ctx := context.Background()
	d := h.draft(t, "tmpl-classic")

	_, err := h.svc.Submit(ctx, author, d.ID)
	assert.ErrorIs(t, err, ErrLockFailed)
	require.Len(t, h.gov.created, 1)
	assert.Equal(t, []string{"prop-1"}, h.gov.deleted)
	assert.Empty(t, h.gov.proposals)
}

func TestActivate(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first := h.draft(t, "tmpl-classic")
	p1, err := h.svc.Submit(ctx, author, first.ID)
	require.NoError(t, err)

	_, err = h.svc.Activate(ctx, author, p1)
	assert.ErrorIs(t, err, ErrProposalNotPassed)

	h.gov.setStatus(p1, governance.StatusPassed)
	_, err = h.svc.Activate(ctx, auth.AuthContext{UserID: "author", CommunityID: "c2"}, p1)
	assert.ErrorIs(t, err, ErrProposalCommunity)

	active, err := h.svc.Activate(ctx, author, p1)
	require.NoError(t, err)
	assert.Equal(t, model.RulesetActive, active.Status)
	assert.Equal(t, []string{"c1"}, h.inv.ids)

	_, err = h.svc.Activate(ctx, author, p1)
	assert.ErrorIs(t, err, ErrNoLinkedDraft)

	_, err = h.svc.Activate(ctx, author, "prop-missing")
	assert.ErrorIs(t, err, ErrProposalNotFound)

	second := h.draft(t, "tmpl-cooperative")
	p2, err := h.svc.Submit(ctx, author, second.ID)
	require.NoError(t, err)
	h.gov.setStatus(p2, governance.StatusPassed)
	_, err = h.svc.Activate(ctx, author, p2)
	require.NoError(t, err)

	old, err := h.rulesets.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RulesetSunset, old.Status)
	current, err := h.rulesets.GetActive(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
}

func TestFork(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.Fork(ctx, author)
	assert.ErrorIs(t, err, ErrNoActiveDesign)

	d := h.draft(t, "tmpl-cooperative")
	pid, err := h.svc.Submit(ctx, author, d.ID)
	require.NoError(t, err)
	h.gov.setStatus(pid, governance.StatusPassed)
	_, err = h.svc.Activate(ctx, author, pid)
	require.NoError(t, err)

	fork, err := h.svc.Fork(ctx, auth.AuthContext{UserID: "second-author", CommunityID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "Cooperative (Draft) (Fork)", fork.Name)
	assert.Equal(t, 2, fork.Version)
	require.NotNil(t, fork.PreviousVersionID)
	assert.Equal(t, d.ID, *fork.PreviousVersionID)
	require.NotNil(t, fork.TemplateID)
	assert.Equal(t, "tmpl-cooperative", *fork.TemplateID)

	counts, err := h.rulesets.Counts(ctx, fork.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RulesetCounts{QuestTypes: 3, SkillDomains: 4, RecognitionTiers: 3}, counts)
}

func TestReopen(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	d := h.draft(t, "tmpl-classic")

	_, err := h.svc.Reopen(ctx, author, d.ID)
	assert.ErrorIs(t, err, ErrNotSubmitted)

	pid, err := h.svc.Submit(ctx, author, d.ID)
	require.NoError(t, err)

	_, err = h.svc.Reopen(ctx, author, d.ID)
	assert.ErrorIs(t, err, ErrProposalOpen)

	h.gov.setStatus(pid, governance.StatusRejected)
	reopened, err := h.svc.Reopen(ctx, author, d.ID)
	require.NoError(t, err)
	assert.Nil(t, reopened.SubmittedProposalID)

	name := "Second Try"
	_, err = h.svc.UpdateDraft(ctx, author, d.ID, DraftPatch{Name: &name})
	require.NoError(t, err)
}

func TestActivationSweep(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	other := auth.AuthContext{UserID: "someone", CommunityID: "c2"}

	d1 := h.draft(t, "tmpl-classic")
	p1, err := h.svc.Submit(ctx, author, d1.ID)
	require.NoError(t, err)

	d2, err := h.svc.CreateFromTemplate(ctx, other, "tmpl-cooperative")
	require.NoError(t, err)
	_, err = h.svc.Submit(ctx, other, d2.ID)
	require.NoError(t, err)

	h.gov.setStatus(p1, governance.StatusPassed)

	n, err := h.svc.ActivationSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	active, err := h.rulesets.GetActive(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, d1.ID, active.ID)

	none, err := h.rulesets.GetActive(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSunsetSweep(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	d := h.draft(t, "tmpl-classic")
	pid, err := h.svc.Submit(ctx, author, d.ID)
	require.NoError(t, err)
	h.gov.setStatus(pid, governance.StatusPassed)
	_, err = h.svc.Activate(ctx, author, pid)
	require.NoError(t, err)

	communities, err := h.svc.SunsetSweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, communities)

	h.now = h.now.AddDate(1, 0, 1)
	communities, err = h.svc.SunsetSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, communities)
	assert.Equal(t, []string{"c1", "c1"}, h.inv.ids)

	active, err := h.rulesets.GetActive(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, active)
}
