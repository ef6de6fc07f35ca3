package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/progression"
)

type SkillReader interface {
	ListByUser(ctx context.Context, userID string) ([]model.SkillProgress, error)
}

type RenownReader interface {
	Get(ctx context.Context, userID string) (*model.Renown, error)
}

type SkillHandler struct {
	skills SkillReader
	renown RenownReader
	logger *slog.Logger
}

func NewSkillHandler(skills SkillReader, renown RenownReader, logger *slog.Logger) *SkillHandler {
	return &SkillHandler{skills: skills, renown: renown, logger: logger}
}

type skillView struct {
	model.SkillProgress
	XPIntoLevel   int `json:"xp_into_level"`
	XPToNextLevel int `json:"xp_to_next_level"`
}

type mySkillsResponse struct {
	Skills []skillView `json:"skills"`
	Renown float64     `json:"renown"`
}

// Mine returns the caller's skill rows with next-level progress and renown.
func (h *SkillHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	rows, err := h.skills.ListByUser(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp := mySkillsResponse{Skills: make([]skillView, 0, len(rows))}
	for _, sp := range rows {
		p := progression.Snapshot(sp.TotalXP)
		sp.Level = p.Level
		resp.Skills = append(resp.Skills, skillView{SkillProgress: sp, XPIntoLevel: p.XPIntoLevel, XPToNextLevel: p.XPToNextLevel})
	}
	renown, err := h.renown.Get(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if renown != nil {
		resp.Renown = renown.Total
	}
	writeData(w, http.StatusOK, resp)
}
