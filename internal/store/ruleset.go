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

type RulesetStore struct {
	db *sql.DB
}

func NewRulesetStore(db *sql.DB) *RulesetStore {
	return &RulesetStore{db: db}
}

func scanRuleset(scanner interface{ Scan(...any) error }) (*model.Ruleset, error) {
	var r model.Ruleset
	var prev, tmpl, submitted, activated sql.NullString

	err := scanner.Scan(
		&r.ID, &r.CommunityID, &r.Name, &r.Description, &r.ValueStatement, &r.DesignRationale,
		&r.Status, &r.Version, &r.SunsetAt, &prev, &tmpl, &submitted, &activated,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.PreviousVersionID = stringPtr(prev)
	r.TemplateID = stringPtr(tmpl)
	r.SubmittedProposalID = stringPtr(submitted)
	r.ActivatedByProposalID = stringPtr(activated)
	return &r, nil
}

const rulesetCols = `id, community_id, name, description, value_statement, design_rationale,
	status, version, sunset_at, previous_version_id, template_id, submitted_proposal_id,
	activated_by_proposal_id, created_by, created_at, updated_at`

// Create inserts a new draft. ID, status and timestamps are assigned here.
func (s *RulesetStore) Create(ctx context.Context, r *model.Ruleset) (*model.Ruleset, error) {
	id := uuid.NewString()
	ts := now()
	version := r.Version
	if version < 1 {
		version = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rulesets (id, community_id, name, description, value_statement, design_rationale,
			status, version, sunset_at, previous_version_id, template_id, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'draft', ?, ?, ?, ?, ?, ?, ?)`,
		id, r.CommunityID, r.Name, r.Description, r.ValueStatement, r.DesignRationale,
		version, r.SunsetAt.UTC(), nullString(r.PreviousVersionID), nullString(r.TemplateID),
		r.CreatedBy, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ruleset: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RulesetStore) GetByID(ctx context.Context, id string) (*model.Ruleset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rulesetCols+` FROM rulesets WHERE id = ?`, id)
	r, err := scanRuleset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ruleset: %w", err)
	}
	return r, nil
}

// GetActive returns the community's active ruleset, or nil when none is.
func (s *RulesetStore) GetActive(ctx context.Context, communityID string) (*model.Ruleset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+rulesetCols+` FROM rulesets WHERE community_id = ? AND status = 'active'`, communityID)
	r, err := scanRuleset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active ruleset: %w", err)
	}
	return r, nil
}

func (s *RulesetStore) GetBySubmittedProposal(ctx context.Context, proposalID string) (*model.Ruleset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+rulesetCols+` FROM rulesets WHERE submitted_proposal_id = ?`, proposalID)
	r, err := scanRuleset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ruleset by proposal: %w", err)
	}
	return r, nil
}

func (s *RulesetStore) ListDrafts(ctx context.Context, communityID string) ([]model.Ruleset, error) {
	return s.list(ctx,
		`SELECT `+rulesetCols+` FROM rulesets WHERE community_id = ? AND status = 'draft' ORDER BY created_at DESC`,
		communityID)
}

// ListLocked returns every draft that is waiting on a governance proposal.
func (s *RulesetStore) ListLocked(ctx context.Context) ([]model.Ruleset, error) {
	return s.list(ctx,
		`SELECT `+rulesetCols+` FROM rulesets WHERE status = 'draft' AND submitted_proposal_id IS NOT NULL ORDER BY created_at`)
}

func (s *RulesetStore) list(ctx context.Context, query string, args ...any) ([]model.Ruleset, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rulesets: %w", err)
	}
	defer rows.Close()

	var out []model.Ruleset
	for rows.Next() {
		r, err := scanRuleset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ruleset: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// UpdateFields edits an unlocked draft. It reports false when the row is no
// longer an editable draft.
func (s *RulesetStore) UpdateFields(ctx context.Context, r *model.Ruleset) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE rulesets SET name = ?, description = ?, value_statement = ?, design_rationale = ?,
			sunset_at = ?, updated_at = ?
		 WHERE id = ? AND status = 'draft' AND submitted_proposal_id IS NULL`,
		r.Name, r.Description, r.ValueStatement, r.DesignRationale, r.SunsetAt.UTC(), now(), r.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update ruleset: %w", err)
	}
	return affectedOne(result)
}

// Lock links the draft to a governance proposal.
func (s *RulesetStore) Lock(ctx context.Context, id, proposalID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE rulesets SET submitted_proposal_id = ?, updated_at = ?
		 WHERE id = ? AND status = 'draft' AND submitted_proposal_id IS NULL`,
		proposalID, now(), id,
	)
	if err != nil {
		return false, fmt.Errorf("lock ruleset: %w", err)
	}
	return affectedOne(result)
}

// Unlock clears the proposal link of a draft locked by proposalID.
func (s *RulesetStore) Unlock(ctx context.Context, id, proposalID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE rulesets SET submitted_proposal_id = NULL, updated_at = ?
		 WHERE id = ? AND status = 'draft' AND submitted_proposal_id = ?`,
		now(), id, proposalID,
	)
	if err != nil {
		return false, fmt.Errorf("unlock ruleset: %w", err)
	}
	return affectedOne(result)
}

// Activate sunsets the community's current active ruleset and promotes the
// draft in one transaction. It reports false unless the draft is still
// locked by proposalID.
func (s *RulesetStore) Activate(ctx context.Context, draftID, proposalID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var communityID string
	err = tx.QueryRowContext(ctx,
		`SELECT community_id FROM rulesets
		 WHERE id = ? AND status = 'draft' AND submitted_proposal_id = ?`,
		draftID, proposalID).Scan(&communityID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get draft community: %w", err)
	}

	ts := now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE rulesets SET status = 'sunset', updated_at = ? WHERE community_id = ? AND status = 'active'`,
		ts, communityID,
	); err != nil {
		return false, fmt.Errorf("sunset active ruleset: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE rulesets SET status = 'active', activated_by_proposal_id = ?, updated_at = ?
		 WHERE id = ? AND status = 'draft' AND submitted_proposal_id = ?`,
		proposalID, ts, draftID, proposalID,
	); err != nil {
		return false, fmt.Errorf("activate ruleset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit activation: %w", err)
	}
	return true, nil
}

// SunsetExpired moves active rulesets past their sunset time to sunset and
// returns the affected community ids.
func (s *RulesetStore) SunsetExpired(ctx context.Context, at time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE rulesets SET status = 'sunset', updated_at = ?
		 WHERE status = 'active' AND sunset_at <= ?
		 RETURNING community_id`,
		now(), at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sunset expired rulesets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan community id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *RulesetStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rulesets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ruleset: %w", err)
	}
	return nil
}

// Counts returns live child-row counts for the guardrails.
func (s *RulesetStore) Counts(ctx context.Context, id string) (model.RulesetCounts, error) {
	var c model.RulesetCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM ruleset_quest_types WHERE ruleset_id = ?),
			(SELECT COUNT(*) FROM ruleset_skill_domains WHERE ruleset_id = ?),
			(SELECT COUNT(*) FROM ruleset_recognition_tiers WHERE ruleset_id = ?)`,
		id, id, id,
	).Scan(&c.QuestTypes, &c.SkillDomains, &c.RecognitionTiers)
	if err != nil {
		return c, fmt.Errorf("count ruleset children: %w", err)
	}
	return c, nil
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
