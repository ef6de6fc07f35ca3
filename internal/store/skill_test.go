package store

import (
	"context"
	"errors"
	"testing"
	"time"

	msqlite "modernc.org/sqlite"

	"github.com/dukerupert/mutualaid/internal/model"
	"github.com/dukerupert/mutualaid/internal/progression"
)

func TestSkillAward(t *testing.T) {
	ss := NewSkillStore(setupTestDB(t), progression.LevelFromXP)
	ctx := context.Background()

	sp, err := ss.Award(ctx, "u1", "craft", 50)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if sp.TotalXP != 50 || sp.Level != 0 || sp.QuestsCompleted != 1 {
		t.Errorf("progress = %+v, want 50 xp level 0 one quest", sp)
	}

	sp, err = ss.Award(ctx, "u1", "craft", 30)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if sp.TotalXP != 80 || sp.Level != 1 || sp.QuestsCompleted != 2 {
		t.Errorf("progress = %+v, want 80 xp level 1 two quests", sp)
	}

	if _, err := ss.Award(ctx, "u1", "care", 5); err != nil {
		t.Fatalf("award: %v", err)
	}
	list, err := ss.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Domain != "craft" {
		t.Errorf("list = %+v, want craft first", list)
	}

	none, err := ss.Get(ctx, "u2", "craft")
	if err != nil || none != nil {
		t.Errorf("get missing = %v, %v; want nil, nil", none, err)
	}
}

func TestRenownDailyCap(t *testing.T) {
	rs := NewRenownStore(setupTestDB(t))
	ctx := context.Background()
	day := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	limit := 3

	award := func(at time.Time) float64 {
		t.Helper()
		got, err := rs.Award(ctx, RenownAward{
			UserID: "u1", SourceType: model.SourceQuestCompletion, Amount: 2, MaxPerDay: &limit, QuestID: "q", At: at,
		})
		if err != nil {
			t.Fatalf("award: %v", err)
		}
		return got
	}

	if got := award(day); got != 2 {
		t.Errorf("first award = %v, want 2", got)
	}
	if got := award(day.Add(time.Hour)); got != 1 {
		t.Errorf("clipped award = %v, want 1", got)
	}
	if got := award(day.Add(2 * time.Hour)); got != 0 {
		t.Errorf("award over cap = %v, want 0", got)
	}
	if got := award(day.AddDate(0, 0, 1)); got != 2 {
		t.Errorf("next day award = %v, want 2", got)
	}

	r, err := rs.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.Total != 5 {
		t.Errorf("total = %v, want 5", r.Total)
	}
}

func TestRenownUncapped(t *testing.T) {
	rs := NewRenownStore(setupTestDB(t))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := rs.Award(ctx, RenownAward{UserID: "u1", SourceType: model.SourceQuestCompletion, Amount: 0.5, At: time.Now()}); err != nil {
			t.Fatalf("award: %v", err)
		}
	}
	r, _ := rs.Get(ctx, "u1")
	if r.Total != 1.5 {
		t.Errorf("total = %v, want 1.5", r.Total)
	}
}

func TestNotificationStore(t *testing.T) {
	ns := NewNotificationStore(setupTestDB(t))
	ctx := context.Background()

	n, err := ns.Create(ctx, model.Notification{
		RecipientID: "u1", CommunityID: "c1", Type: model.NotifyQuestClaimed,
		Title: "Your quest was claimed", ResourceType: "quest", ResourceID: "q1", ActorID: "u2",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.ID == "" {
		t.Error("expected id")
	}

	list, err := ns.ListByRecipient(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Type != model.NotifyQuestClaimed {
		t.Errorf("list = %+v", list)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if isUniqueViolation(nil) {
		t.Error("nil is not a violation")
	}
	if !isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: parties.quest_id (2067)")) {
		t.Error("message fallback should match")
	}
	var sqliteErr *msqlite.Error
	if errors.As(errors.New("plain"), &sqliteErr) {
		t.Error("plain error should not be a sqlite error")
	}
}
