package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/mutualaid/internal/model"
)

type RenownStore struct {
	db *sql.DB
}

func NewRenownStore(db *sql.DB) *RenownStore {
	return &RenownStore{db: db}
}

// RenownAward is a single accrual request.
type RenownAward struct {
	UserID     string
	SourceType model.SourceType
	Amount     float64
	MaxPerDay  *int
	QuestID    string
	At         time.Time
}

// Award credits renown, clipped to whatever remains of the source's daily
// cap on the award's UTC day. It returns the amount actually credited.
func (s *RenownStore) Award(ctx context.Context, a RenownAward) (float64, error) {
	if a.Amount <= 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	day := a.At.UTC().Format(time.DateOnly)
	amount := a.Amount
	if a.MaxPerDay != nil {
		var used float64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM renown_ledger WHERE user_id = ? AND source_type = ? AND day = ?`,
			a.UserID, a.SourceType, day,
		).Scan(&used)
		if err != nil {
			return 0, fmt.Errorf("sum renown ledger: %w", err)
		}
		remaining := float64(*a.MaxPerDay) - used
		if remaining <= 0 {
			return 0, nil
		}
		amount = min(amount, remaining)
	}

	ts := now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO renown_ledger (id, user_id, source_type, amount, day, quest_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), a.UserID, a.SourceType, amount, day, a.QuestID, ts,
	); err != nil {
		return 0, fmt.Errorf("insert renown ledger: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO renown (user_id, total, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET total = total + excluded.total, updated_at = excluded.updated_at`,
		a.UserID, amount, ts,
	); err != nil {
		return 0, fmt.Errorf("upsert renown: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit renown: %w", err)
	}
	return amount, nil
}

func (s *RenownStore) Get(ctx context.Context, userID string) (*model.Renown, error) {
	var r model.Renown
	err := s.db.QueryRowContext(ctx, `SELECT user_id, total, updated_at FROM renown WHERE user_id = ?`, userID).
		Scan(&r.UserID, &r.Total, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get renown: %w", err)
	}
	return &r, nil
}
