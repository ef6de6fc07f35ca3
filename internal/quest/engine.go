// Package quest runs the quest lifecycle: creation priced from the resolved
// ruleset, claiming, party formation, completion and consensus validation.
//
// Every state change is a conditional write against the store. A caller
// that loses a race sees the same rejection as one that arrived late.
package quest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/resolver"
	"github.com/dukerupert/mutualaid/internal/store"
	"github.com/dukerupert/mutualaid/internal/websocket"
)

// BoardLimit caps ListBoard results.
const BoardLimit = 50

// FallbackRenown is awarded per completion when the ruleset cannot be read.
const FallbackRenown = 1.0

type Store interface {
	Create(ctx context.Context, q *model.Quest) (*model.Quest, error)
	GetByID(ctx context.Context, id string) (*model.Quest, error)
	ListBoard(ctx context.Context, communityID string, limit int) ([]model.Quest, error)
	TryTransition(ctx context.Context, id string, to model.QuestStatus, from ...model.QuestStatus) (bool, error)
	EnsureParty(ctx context.Context, questID, createdBy string) (*model.Party, bool, error)
	GetParty(ctx context.Context, questID string) (*model.Party, error)
	DeleteParty(ctx context.Context, id string) error
	AddMember(ctx context.Context, partyID, userID string) error
	JoinIfOpen(ctx context.Context, questID, partyID, userID string) (bool, error)
	Members(ctx context.Context, questID string) ([]model.PartyMember, error)
	Participants(ctx context.Context, questID string) ([]string, error)
	IsParticipant(ctx context.Context, questID, userID string) (bool, error)
	RecordValidation(ctx context.Context, v model.QuestValidation) (store.ValidationResult, error)
	Validations(ctx context.Context, questID string) ([]model.QuestValidation, error)
}

type Resolver interface {
	Resolve(ctx context.Context, communityID string) (*resolver.Resolved, error)
}

type SkillAwarder interface {
	Award(ctx context.Context, userID, domain string, xp int) (*model.SkillProgress, error)
}

type RenownAwarder interface {
	Award(ctx context.Context, a store.RenownAward) (float64, error)
}

type Notifier interface {
	Notify(n model.Notification)
}

type Broadcaster interface {
	Broadcast(communityID string, msg websocket.Message)
}

// Deps are the engine's collaborators. Notifier and Broadcaster may be nil.
type Deps struct {
	Quests      Store
	Skills      SkillAwarder
	Renown      RenownAwarder
	Resolver    Resolver
	Notifier    Notifier
	Broadcaster Broadcaster
	Logger      *slog.Logger
	Now         func() time.Time
}

type Engine struct {
	quests   Store
	skills   SkillAwarder
	renown   RenownAwarder
	resolver Resolver
	notifier Notifier
	hub      Broadcaster
	logger   *slog.Logger
	now      func() time.Time
}

func NewEngine(d Deps) *Engine {
	e := &Engine{
		quests:   d.Quests,
		skills:   d.Skills,
		renown:   d.Renown,
		resolver: d.Resolver,
		notifier: d.Notifier,
		hub:      d.Broadcaster,
		logger:   d.Logger,
		now:      d.Now,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// QuestDetail is a quest with its party and validations.
type QuestDetail struct {
	Quest       *model.Quest            `json:"quest"`
	Members     []model.PartyMember     `json:"members"`
	Validations []model.QuestValidation `json:"validations"`
}

// load fetches a quest the actor is allowed to see.
func (e *Engine) load(ctx context.Context, actor auth.AuthContext, id string) (*model.Quest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}
	q, err := e.quests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrNotFound
	}
	if q.CommunityID != actor.CommunityID {
		return nil, ErrWrongCommunity
	}
	return q, nil
}

func (e *Engine) Get(ctx context.Context, actor auth.AuthContext, id string) (*QuestDetail, error) {
	q, err := e.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	members, err := e.quests.Members(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	validations, err := e.quests.Validations(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return &QuestDetail{Quest: q, Members: members, Validations: validations}, nil
}

func (e *Engine) ListBoard(ctx context.Context, actor auth.AuthContext) ([]model.Quest, error) {
	return e.quests.ListBoard(ctx, actor.CommunityID, BoardLimit)
}

// reload returns the quest's current row after a transition.
func (e *Engine) reload(ctx context.Context, id string) (*model.Quest, error) {
	q, err := e.quests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("reload quest %s: row vanished", id)
	}
	return q, nil
}

func (e *Engine) notify(n model.Notification) {
	if e.notifier == nil {
		return
	}
	n.ResourceType = "quest"
	e.notifier.Notify(n)
}

func (e *Engine) broadcast(q *model.Quest, action string) {
	if e.hub == nil {
		return
	}
	e.hub.Broadcast(q.CommunityID, websocket.NewMessage("quest", action, q.ID, map[string]any{
		"status": string(q.Status),
	}))
}
