package quest

import (
	"context"
	"math"

	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/store"
)

// XPPerDomain splits a reward evenly across domains, rounding each share.
func XPPerDomain(reward, domains int) int {
	if domains <= 0 {
		return 0
	}
	return int(math.Round(float64(reward) / float64(domains)))
}

// distribute awards XP and renown to every distinct participant exactly
// once. It never fails the completion; errors are logged.
func (e *Engine) distribute(ctx context.Context, q *model.Quest, actorID string) {
	ctx = context.WithoutCancel(ctx)

	participants, err := e.quests.Participants(ctx, q.ID)
	if err != nil {
		e.logger.Error("list participants for recognition", "quest_id", q.ID, "error", err)
		return
	}

	amount, maxPerDay := e.renownFor(ctx, q.CommunityID)
	xp := XPPerDomain(q.XPReward, len(q.SkillDomains))
	at := e.now()

	for _, userID := range participants {
		for _, domain := range q.SkillDomains {
			if _, err := e.skills.Award(ctx, userID, domain, xp); err != nil {
				e.logger.Error("award skill xp", "quest_id", q.ID, "user_id", userID, "domain", domain, "error", err)
			}
		}
		if amount > 0 {
			if _, err := e.renown.Award(ctx, store.RenownAward{
				UserID:     userID,
				SourceType: model.SourceQuestCompletion,
				Amount:     amount,
				MaxPerDay:  maxPerDay,
				QuestID:    q.ID,
				At:         at,
			}); err != nil {
				e.logger.Error("award renown", "quest_id", q.ID, "user_id", userID, "error", err)
			}
		}
		e.notify(model.Notification{
			RecipientID: userID,
			CommunityID: q.CommunityID,
			Type:        model.NotifyQuestCompleted,
			Title:       "Quest completed",
			Body:        q.Title,
			ResourceID:  q.ID,
			ActorID:     actorID,
		})
	}
}

// renownFor reads the quest_completion source from the community's rules.
// A failed lookup degrades to FallbackRenown with no daily cap.
func (e *Engine) renownFor(ctx context.Context, communityID string) (float64, *int) {
	rules, err := e.resolver.Resolve(ctx, communityID)
	if err != nil {
		e.logger.Warn("resolve recognition source, using default", "community_id", communityID, "error", err)
		return FallbackRenown, nil
	}
	src, ok := rules.Source(model.SourceQuestCompletion)
	if !ok {
		return 0, nil
	}
	return src.Amount, src.MaxPerDay
}
