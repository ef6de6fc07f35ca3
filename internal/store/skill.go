package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/mutualaid/internal/model"
)

// LevelFunc derives a level from a total XP value.
type LevelFunc func(totalXP int) int

type SkillStore struct {
	db    *sql.DB
	level LevelFunc
}

func NewSkillStore(db *sql.DB, level LevelFunc) *SkillStore {
	return &SkillStore{db: db, level: level}
}

func scanSkill(scanner interface{ Scan(...any) error }) (*model.SkillProgress, error) {
	var sp model.SkillProgress
	err := scanner.Scan(&sp.ID, &sp.UserID, &sp.Domain, &sp.TotalXP, &sp.Level, &sp.QuestsCompleted, &sp.LastActivityAt)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

const skillCols = `id, user_id, domain, total_xp, level, quests_completed, last_activity_at`

// Award adds xp to the user's progress in domain, creating the row on first
// award, and recomputes the level from the new total.
func (s *SkillStore) Award(ctx context.Context, userID, domain string, xp int) (*model.SkillProgress, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	var total int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO skill_progress (id, user_id, domain, total_xp, level, quests_completed, last_activity_at)
		 VALUES (?, ?, ?, ?, 0, 1, ?)
		 ON CONFLICT(user_id, domain) DO UPDATE SET
			total_xp = total_xp + excluded.total_xp,
			quests_completed = quests_completed + 1,
			last_activity_at = excluded.last_activity_at
		 RETURNING total_xp`,
		uuid.NewString(), userID, domain, xp, ts,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("upsert skill progress: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE skill_progress SET level = ? WHERE user_id = ? AND domain = ?`,
		s.level(total), userID, domain,
	); err != nil {
		return nil, fmt.Errorf("update skill level: %w", err)
	}

	sp, err := scanSkill(tx.QueryRowContext(ctx,
		`SELECT `+skillCols+` FROM skill_progress WHERE user_id = ? AND domain = ?`, userID, domain))
	if err != nil {
		return nil, fmt.Errorf("get skill progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit skill progress: %w", err)
	}
	return sp, nil
}

func (s *SkillStore) Get(ctx context.Context, userID, domain string) (*model.SkillProgress, error) {
	sp, err := scanSkill(s.db.QueryRowContext(ctx,
		`SELECT `+skillCols+` FROM skill_progress WHERE user_id = ? AND domain = ?`, userID, domain))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get skill progress: %w", err)
	}
	return sp, nil
}

func (s *SkillStore) ListByUser(ctx context.Context, userID string) ([]model.SkillProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+skillCols+` FROM skill_progress WHERE user_id = ? ORDER BY total_xp DESC, domain`, userID)
	if err != nil {
		return nil, fmt.Errorf("list skill progress: %w", err)
	}
	defer rows.Close()

	var out []model.SkillProgress
	for rows.Next() {
		sp, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skill progress: %w", err)
		}
		out = append(out, *sp)
	}
	return out, rows.Err()
}
