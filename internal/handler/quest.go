package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/quest"
)

// QuestEngine is the quest lifecycle surface the handler drives.
type QuestEngine interface {
	Create(ctx context.Context, actor auth.AuthContext, in quest.CreateInput) (*model.Quest, error)
	CreateFromPost(ctx context.Context, actor auth.AuthContext, post quest.Post) (*model.Quest, error)
	Get(ctx context.Context, actor auth.AuthContext, id string) (*quest.QuestDetail, error)
	ListBoard(ctx context.Context, actor auth.AuthContext) ([]model.Quest, error)
	Claim(ctx context.Context, actor auth.AuthContext, id string) (*model.Quest, error)
	Join(ctx context.Context, actor auth.AuthContext, id string) (*model.Quest, error)
	Complete(ctx context.Context, actor auth.AuthContext, id string) (*model.Quest, error)
	Validate(ctx context.Context, actor auth.AuthContext, id string, approved bool, message string) (*model.Quest, error)
}

type QuestHandler struct {
	engine QuestEngine
	logger *slog.Logger
}

func NewQuestHandler(engine QuestEngine, logger *slog.Logger) *QuestHandler {
	return &QuestHandler{engine: engine, logger: logger}
}

func (h *QuestHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	quests, err := h.engine.ListBoard(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, emptyIfNil(quests))
}

func (h *QuestHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in quest.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	q, err := h.engine.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, q)
}

func (h *QuestHandler) CreateFromPost(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var post quest.Post
	if !decodeJSON(w, r, &post) {
		return
	}
	q, err := h.engine.CreateFromPost(r.Context(), actor, post)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, q)
}

func (h *QuestHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid quest ID")
		return
	}
	detail, err := h.engine.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, detail)
}

// transition adapts a single-quest lifecycle call to a handler.
func (h *QuestHandler) transition(fn func(context.Context, auth.AuthContext, string) (*model.Quest, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		id, err := parseIDParam(r)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "Invalid quest ID")
			return
		}
		q, err := fn(r.Context(), actor, id)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeData(w, http.StatusOK, q)
	}
}

func (h *QuestHandler) Claim(w http.ResponseWriter, r *http.Request) {
	h.transition(h.engine.Claim)(w, r)
}

func (h *QuestHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.transition(h.engine.Join)(w, r)
}

func (h *QuestHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(h.engine.Complete)(w, r)
}

type validateRequest struct {
	Approved *bool  `json:"approved"`
	Message  string `json:"message"`
}

func (h *QuestHandler) Validate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid quest ID")
		return
	}
	var req validateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Approved == nil {
		writeFail(w, http.StatusBadRequest, "approved is required")
		return
	}
	q, err := h.engine.Validate(r.Context(), actor, id, *req.Approved, req.Message)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, q)
}
