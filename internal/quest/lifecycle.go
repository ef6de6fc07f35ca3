package quest

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/dukerupert/mutualaid/internal/apperr"
	"github.com/dukerupert/mutualaid/internal/auth"
	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/saga"
	"github.com/dukerupert/mutualaid/internal/store"
)

// Claim takes an open quest. Solo quests go straight to in_progress; the
// rest become claimed and recruit a party. The party is created on first
// claim with the claimer as its first member. If any step fails the status
// change is reversed so no claimed quest is left without a party.
func (e *Engine) Claim(ctx context.Context, actor auth.AuthContext, id string) (*model.Quest, error) {
	q, err := e.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if q.Status != model.QuestOpen {
		return nil, ErrNotAvailable
	}
	if q.CreatedBy == actor.UserID {
		return nil, ErrOwnQuestClaim
	}

	next := model.QuestClaimed
	if q.MaxPartySize <= 1 {
		next = model.QuestInProgress
	}

	var party *model.Party
	var partyCreated bool
	err = saga.Run(ctx,
		saga.Step{
			Name: "transition",
			Do: func(ctx context.Context) error {
				ok, err := e.quests.TryTransition(ctx, q.ID, next, model.QuestOpen)
				if err != nil {
					return err
				}
				if !ok {
					return ErrNotAvailable
				}
				return nil
			},
			Undo: func(ctx context.Context) error {
				_, err := e.quests.TryTransition(ctx, q.ID, model.QuestOpen, next)
				return err
			},
		},
		saga.Step{
			Name: "party",
			Do: func(ctx context.Context) (err error) {
				party, partyCreated, err = e.quests.EnsureParty(ctx, q.ID, actor.UserID)
				return err
			},
			Undo: func(ctx context.Context) error {
				if !partyCreated {
					return nil
				}
				return e.quests.DeleteParty(ctx, party.ID)
			},
		},
		saga.Step{
			Name: "member",
			Do: func(ctx context.Context) error {
				return e.quests.AddMember(ctx, party.ID, actor.UserID)
			},
		},
	)
	if err != nil {
		if rej, ok := apperr.As(err); ok {
			return nil, rej
		}
		e.logger.Error("claim quest", "quest_id", q.ID, "user_id", actor.UserID, "error", err)
		return nil, err
	}

	claimed, err := e.reload(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	e.logger.Info("quest claimed", "quest_id", q.ID, "user_id", actor.UserID, "status", claimed.Status)
	e.notify(model.Notification{
		RecipientID: q.CreatedBy,
		CommunityID: q.CommunityID,
		Type:        model.NotifyQuestClaimed,
		Title:       "Your quest was claimed",
		Body:        q.Title,
		ResourceID:  q.ID,
		ActorID:     actor.UserID,
	})
	e.broadcast(claimed, "claimed")
	return claimed, nil
}

// Join adds the actor to a claimed quest's party while there is room.
func (e *Engine) Join(ctx context.Context, actor auth.AuthContext, id string) (*model.Quest, error) {
	q, err := e.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if q.Status != model.QuestClaimed {
		return nil, ErrNotRecruiting
	}
	if q.CreatedBy == actor.UserID {
		return nil, ErrOwnQuestJoin
	}
	party, err := e.quests.GetParty(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	if party == nil {
		return nil, ErrNotRecruiting
	}

	ok, err := e.quests.JoinIfOpen(ctx, q.ID, party.ID, actor.UserID)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrAlreadyMember
	}
	if err != nil {
		return nil, err
	}

	current, err := e.reload(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A full party rejects the insert before the unique index sees a
		// repeat join.
		member, err := e.quests.IsParticipant(ctx, q.ID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if member {
			return nil, ErrAlreadyMember
		}
		if current.Status != model.QuestClaimed {
			return nil, ErrNotRecruiting
		}
		return nil, ErrPartyFull
	}

	e.logger.Info("party joined", "quest_id", q.ID, "user_id", actor.UserID)
	e.notify(model.Notification{
		RecipientID: party.CreatedBy,
		CommunityID: q.CommunityID,
		Type:        model.NotifyPartyJoined,
		Title:       "Someone joined your party",
		Body:        q.Title,
		ResourceID:  q.ID,
		ActorID:     actor.UserID,
	})
	e.broadcast(current, "joined")
	return current, nil
}

// Complete marks the party's work done. Self-reported quests complete and
// award recognition immediately; every other method waits for validators.
func (e *Engine) Complete(ctx context.Context, actor auth.AuthContext, id string) (*model.Quest, error) {
	q, err := e.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if q.Status != model.QuestClaimed && q.Status != model.QuestInProgress {
		return nil, ErrNotInProgress
	}
	member, err := e.quests.IsParticipant(ctx, q.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotPartyMember
	}

	next := model.QuestPendingValidation
	if q.ValidationMethod == model.ValidationSelfReport {
		next = model.QuestCompleted
	}
	ok, err := e.quests.TryTransition(ctx, q.ID, next, model.QuestClaimed, model.QuestInProgress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInProgress
	}

	current, err := e.reload(ctx, q.ID)
	if err != nil {
		return nil, err
	}

	if next == model.QuestCompleted {
		e.logger.Info("quest completed", "quest_id", q.ID, "method", q.ValidationMethod)
		e.distribute(ctx, current, actor.UserID)
		e.broadcast(current, "completed")
		return current, nil
	}

	e.logger.Info("quest pending validation", "quest_id", q.ID, "threshold", q.ValidationThreshold)
	e.notify(model.Notification{
		RecipientID: q.CreatedBy,
		CommunityID: q.CommunityID,
		Type:        model.NotifyQuestPendingValidation,
		Title:       "A quest is ready for validation",
		Body:        q.Title,
		ResourceID:  q.ID,
		ActorID:     actor.UserID,
	})
	e.broadcast(current, "pending_validation")
	return current, nil
}

// Validate records the actor's vote. The approval that brings the atomic
// counter to the threshold attempts the final transition; only the caller
// that wins it distributes recognition.
func (e *Engine) Validate(ctx context.Context, actor auth.AuthContext, id string, approved bool, message string) (*model.Quest, error) {
	if utf8.RuneCountInString(message) > 500 {
		return nil, apperr.Invalid("Message must be at most 500 characters")
	}
	q, err := e.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if q.Status != model.QuestPendingValidation {
		return nil, ErrNotPending
	}
	if q.CreatedBy == actor.UserID {
		return nil, ErrOwnQuestValidate
	}
	member, err := e.quests.IsParticipant(ctx, q.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, ErrMemberValidate
	}

	res, err := e.quests.RecordValidation(ctx, model.QuestValidation{
		QuestID:     q.ID,
		ValidatorID: actor.UserID,
		Approved:    approved,
		Message:     message,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrAlreadyValidated
	}
	if err != nil {
		return nil, err
	}
	if !res.Recorded {
		return nil, ErrNotPending
	}

	participants, err := e.quests.Participants(ctx, q.ID)
	if err != nil {
		e.logger.Warn("list participants for notification", "quest_id", q.ID, "error", err)
	}
	title := "Your quest received a validation"
	if !approved {
		title = "Your quest validation was declined"
	}
	for _, p := range participants {
		e.notify(model.Notification{
			RecipientID: p,
			CommunityID: q.CommunityID,
			Type:        model.NotifyQuestValidated,
			Title:       title,
			Body:        message,
			ResourceID:  q.ID,
			ActorID:     actor.UserID,
		})
	}

	if approved && res.Count >= res.Threshold {
		won, err := e.quests.TryTransition(ctx, q.ID, model.QuestCompleted, model.QuestPendingValidation)
		if err != nil {
			return nil, err
		}
		if won {
			completed, err := e.reload(ctx, q.ID)
			if err != nil {
				return nil, err
			}
			e.logger.Info("quest completed", "quest_id", q.ID, "validations", res.Count)
			e.distribute(ctx, completed, actor.UserID)
			e.broadcast(completed, "completed")
			return completed, nil
		}
	}

	return e.reload(ctx, q.ID)
}
