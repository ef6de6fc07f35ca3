package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/design"
	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/resolver"
)

// DesignService is the draft lifecycle surface the handler drives.
type DesignService interface {
	ListTemplates(ctx context.Context) ([]model.Template, error)
	ListCommunityDrafts(ctx context.Context, actor auth.AuthContext) ([]model.Ruleset, error)
	GetDraft(ctx context.Context, actor auth.AuthContext, id string) (*design.Draft, error)
	CreateFromTemplate(ctx context.Context, actor auth.AuthContext, templateID string) (*model.Ruleset, error)
	Fork(ctx context.Context, actor auth.AuthContext) (*model.Ruleset, error)
	UpdateDraft(ctx context.Context, actor auth.AuthContext, id string, p design.DraftPatch) (*model.Ruleset, error)

	AddQuestType(ctx context.Context, actor auth.AuthContext, draftID string, qt model.QuestType) (*model.QuestType, error)
	UpdateQuestType(ctx context.Context, actor auth.AuthContext, id string, qt model.QuestType) (*model.QuestType, error)
	RemoveQuestType(ctx context.Context, actor auth.AuthContext, id string) error
	AddSkillDomain(ctx context.Context, actor auth.AuthContext, draftID string, sd model.SkillDomain) (*model.SkillDomain, error)
	UpdateSkillDomain(ctx context.Context, actor auth.AuthContext, id string, sd model.SkillDomain) (*model.SkillDomain, error)
	RemoveSkillDomain(ctx context.Context, actor auth.AuthContext, id string) error
	AddRecognitionTier(ctx context.Context, actor auth.AuthContext, draftID string, rt model.RecognitionTier) (*model.RecognitionTier, error)
	UpdateRecognitionTier(ctx context.Context, actor auth.AuthContext, id string, rt model.RecognitionTier) (*model.RecognitionTier, error)
	RemoveRecognitionTier(ctx context.Context, actor auth.AuthContext, id string) error
	ReplaceRecognitionSources(ctx context.Context, actor auth.AuthContext, draftID string, sources []model.RecognitionSource) ([]model.RecognitionSource, error)

	Submit(ctx context.Context, actor auth.AuthContext, draftID string) (string, error)
	Reopen(ctx context.Context, actor auth.AuthContext, draftID string) (*model.Ruleset, error)
	Activate(ctx context.Context, actor auth.AuthContext, proposalID string) (*model.Ruleset, error)
}

// RuleSource resolves the rules in force for a community.
type RuleSource interface {
	Resolve(ctx context.Context, communityID string) (*resolver.Resolved, error)
}

type RulesetHandler struct {
	design DesignService
	rules  RuleSource
	logger *slog.Logger
}

func NewRulesetHandler(design DesignService, rules RuleSource, logger *slog.Logger) *RulesetHandler {
	return &RulesetHandler{design: design, rules: rules, logger: logger}
}

func (h *RulesetHandler) Active(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	resolved, err := h.rules.Resolve(r.Context(), actor.CommunityID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, resolved)
}

func (h *RulesetHandler) Templates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.design.ListTemplates(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, emptyIfNil(templates))
}

func (h *RulesetHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	drafts, err := h.design.ListCommunityDrafts(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, emptyIfNil(drafts))
}

type createDraftRequest struct {
	TemplateID string `json:"template_id"`
}

func (h *RulesetHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req createDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TemplateID = strings.TrimSpace(req.TemplateID)
	if req.TemplateID == "" {
		writeFail(w, http.StatusBadRequest, "template_id is required")
		return
	}
	draft, err := h.design.CreateFromTemplate(r.Context(), actor, req.TemplateID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, draft)
}

func (h *RulesetHandler) Fork(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	draft, err := h.design.Fork(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, draft)
}

func (h *RulesetHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid design ID")
		return
	}
	draft, err := h.design.GetDraft(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, draft)
}

func (h *RulesetHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid design ID")
		return
	}
	var patch design.DraftPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	draft, err := h.design.UpdateDraft(r.Context(), actor, id, patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, draft)
}

// withBody decodes a T from the request and hands it to fn with the path id.
// Add routes pass the draft id, update routes pass the child row id.
func withBody[T any](h *RulesetHandler, status int, fn func(context.Context, auth.AuthContext, string, T) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, err := parseIDParam(r)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "Invalid ID")
			return
		}
		var v T
		if !decodeJSON(w, r, &v) {
			return
		}
		out, err := fn(r.Context(), actor, id, v)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeData(w, status, out)
	}
}

func (h *RulesetHandler) remove(fn func(context.Context, auth.AuthContext, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, err := parseIDParam(r)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "Invalid ID")
			return
		}
		if err := fn(r.Context(), actor, id); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"id": id})
	}
}

func (h *RulesetHandler) AddQuestType(w http.ResponseWriter, r *http.Request) {
	withBody(h, http.StatusCreated, h.design.AddQuestType)(w, r)
}

func (h *RulesetHandler) UpdateQuestType(w http.ResponseWriter, r *http.Request) {
	withBody(h, http.StatusOK, h.design.UpdateQuestType)(w, r)
}

func (h *RulesetHandler) RemoveQuestType(w http.ResponseWriter, r *http.Request) {
	h.remove(h.design.RemoveQuestType)(w, r)
}

func (h *RulesetHandler) AddSkillDomain(w http.ResponseWriter, r *http.Request) {
	withBody(h, http.StatusCreated, h.design.AddSkillDomain)(w, r)
}

func (h *RulesetHandler) UpdateSkillDomain(w http.ResponseWriter, r *http.Request) {
	withBody(h, http.StatusOK, h.design.UpdateSkillDomain)(w, r)
}

func (h *RulesetHandler) RemoveSkillDomain(w http.ResponseWriter, r *http.Request) {
	h.remove(h.design.RemoveSkillDomain)(w, r)
}

func (h *RulesetHandler) AddTier(w http.ResponseWriter, r *http.Request) {
	withBody(h, http.StatusCreated, h.design.AddRecognitionTier)(w, r)
}

func (h *RulesetHandler) UpdateTier(w http.ResponseWriter, r *http.Request) {
	withBody(h, http.StatusOK, h.design.UpdateRecognitionTier)(w, r)
}

func (h *RulesetHandler) RemoveTier(w http.ResponseWriter, r *http.Request) {
	h.remove(h.design.RemoveRecognitionTier)(w, r)
}

type sourcesRequest struct {
	Sources []model.RecognitionSource `json:"sources"`
}

func (h *RulesetHandler) ReplaceSources(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid design ID")
		return
	}
	var req sourcesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sources, err := h.design.ReplaceRecognitionSources(r.Context(), actor, id, req.Sources)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, emptyIfNil(sources))
}

func (h *RulesetHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid design ID")
		return
	}
	proposalID, err := h.design.Submit(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"proposal_id": proposalID})
}

func (h *RulesetHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid design ID")
		return
	}
	draft, err := h.design.Reopen(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, draft)
}

type activateRequest struct {
	ProposalID string `json:"proposal_id"`
}

func (h *RulesetHandler) Activate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req activateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ProposalID = strings.TrimSpace(req.ProposalID)
	if req.ProposalID == "" {
		writeFail(w, http.StatusBadRequest, "proposal_id is required")
		return
	}
	ruleset, err := h.design.Activate(r.Context(), actor, req.ProposalID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, ruleset)
}
