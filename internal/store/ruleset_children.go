package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/mutualaid/internal/model"
)

// --- Quest types ---

func scanQuestType(scanner interface{ Scan(...any) error }) (*model.QuestType, error) {
	var qt model.QuestType
	err := scanner.Scan(&qt.ID, &qt.RulesetID, &qt.Slug, &qt.Label, &qt.Description,
		&qt.ValidationMethod, &qt.ValidationThreshold, &qt.RecognitionType, &qt.BaseRecognition,
		&qt.NarrativePrompt, &qt.CooldownHours, &qt.MaxPartySize, &qt.SortOrder)
	if err != nil {
		return nil, err
	}
	return &qt, nil
}

const questTypeCols = `id, ruleset_id, slug, label, description, validation_method, validation_threshold,
	recognition_type, base_recognition, narrative_prompt, cooldown_hours, max_party_size, sort_order`

func insertQuestType(ctx context.Context, q dbtx, rulesetID string, qt model.QuestType) (string, error) {
	id := uuid.NewString()
	_, err := q.ExecContext(ctx,
		`INSERT INTO ruleset_quest_types (`+questTypeCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rulesetID, qt.Slug, qt.Label, qt.Description, qt.ValidationMethod, qt.ValidationThreshold,
		qt.RecognitionType, qt.BaseRecognition, qt.NarrativePrompt, qt.CooldownHours, qt.MaxPartySize, qt.SortOrder,
	)
	if err != nil {
		return "", fmt.Errorf("insert quest type: %w", dupErr(err))
	}
	return id, nil
}

func (s *RulesetStore) QuestTypes(ctx context.Context, rulesetID string) ([]model.QuestType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questTypeCols+` FROM ruleset_quest_types WHERE ruleset_id = ? ORDER BY sort_order, slug`, rulesetID)
	if err != nil {
		return nil, fmt.Errorf("list quest types: %w", err)
	}
	defer rows.Close()

	var out []model.QuestType
	for rows.Next() {
		qt, err := scanQuestType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quest type: %w", err)
		}
		out = append(out, *qt)
	}
	return out, rows.Err()
}

func (s *RulesetStore) GetQuestType(ctx context.Context, id string) (*model.QuestType, error) {
	qt, err := scanQuestType(s.db.QueryRowContext(ctx,
		`SELECT `+questTypeCols+` FROM ruleset_quest_types WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quest type: %w", err)
	}
	return qt, nil
}

func (s *RulesetStore) AddQuestType(ctx context.Context, qt model.QuestType) (*model.QuestType, error) {
	id, err := insertQuestType(ctx, s.db, qt.RulesetID, qt)
	if err != nil {
		return nil, err
	}
	return s.GetQuestType(ctx, id)
}

func (s *RulesetStore) UpdateQuestType(ctx context.Context, qt model.QuestType) (*model.QuestType, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ruleset_quest_types SET slug = ?, label = ?, description = ?, validation_method = ?,
			validation_threshold = ?, recognition_type = ?, base_recognition = ?, narrative_prompt = ?,
			cooldown_hours = ?, max_party_size = ?, sort_order = ?
		 WHERE id = ?`,
		qt.Slug, qt.Label, qt.Description, qt.ValidationMethod, qt.ValidationThreshold, qt.RecognitionType,
		qt.BaseRecognition, qt.NarrativePrompt, qt.CooldownHours, qt.MaxPartySize, qt.SortOrder, qt.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update quest type: %w", dupErr(err))
	}
	return s.GetQuestType(ctx, qt.ID)
}

func (s *RulesetStore) DeleteQuestType(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ruleset_quest_types WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete quest type: %w", err)
	}
	return nil
}

// --- Skill domains ---

func scanSkillDomain(scanner interface{ Scan(...any) error }) (*model.SkillDomain, error) {
	var sd model.SkillDomain
	var examples string
	err := scanner.Scan(&sd.ID, &sd.RulesetID, &sd.Slug, &sd.Label, &sd.Description,
		&examples, &sd.VisibilityDefault, &sd.SortOrder)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(examples), &sd.Examples); err != nil {
		return nil, fmt.Errorf("decode examples: %w", err)
	}
	return &sd, nil
}

const skillDomainCols = `id, ruleset_id, slug, label, description, examples, visibility_default, sort_order`

func insertSkillDomain(ctx context.Context, q dbtx, rulesetID string, sd model.SkillDomain) (string, error) {
	examples, err := encodeStrings(sd.Examples)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = q.ExecContext(ctx,
		`INSERT INTO ruleset_skill_domains (`+skillDomainCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rulesetID, sd.Slug, sd.Label, sd.Description, examples, sd.VisibilityDefault, sd.SortOrder,
	)
	if err != nil {
		return "", fmt.Errorf("insert skill domain: %w", dupErr(err))
	}
	return id, nil
}

func (s *RulesetStore) SkillDomains(ctx context.Context, rulesetID string) ([]model.SkillDomain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+skillDomainCols+` FROM ruleset_skill_domains WHERE ruleset_id = ? ORDER BY sort_order, slug`, rulesetID)
	if err != nil {
		return nil, fmt.Errorf("list skill domains: %w", err)
	}
	defer rows.Close()

	var out []model.SkillDomain
	for rows.Next() {
		sd, err := scanSkillDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skill domain: %w", err)
		}
		out = append(out, *sd)
	}
	return out, rows.Err()
}

func (s *RulesetStore) GetSkillDomain(ctx context.Context, id string) (*model.SkillDomain, error) {
	sd, err := scanSkillDomain(s.db.QueryRowContext(ctx,
		`SELECT `+skillDomainCols+` FROM ruleset_skill_domains WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get skill domain: %w", err)
	}
	return sd, nil
}

func (s *RulesetStore) AddSkillDomain(ctx context.Context, sd model.SkillDomain) (*model.SkillDomain, error) {
	id, err := insertSkillDomain(ctx, s.db, sd.RulesetID, sd)
	if err != nil {
		return nil, err
	}
	return s.GetSkillDomain(ctx, id)
}

func (s *RulesetStore) UpdateSkillDomain(ctx context.Context, sd model.SkillDomain) (*model.SkillDomain, error) {
	examples, err := encodeStrings(sd.Examples)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE ruleset_skill_domains SET slug = ?, label = ?, description = ?, examples = ?,
			visibility_default = ?, sort_order = ?
		 WHERE id = ?`,
		sd.Slug, sd.Label, sd.Description, examples, sd.VisibilityDefault, sd.SortOrder, sd.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update skill domain: %w", dupErr(err))
	}
	return s.GetSkillDomain(ctx, sd.ID)
}

func (s *RulesetStore) DeleteSkillDomain(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ruleset_skill_domains WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete skill domain: %w", err)
	}
	return nil
}

// --- Recognition tiers ---

func scanRecognitionTier(scanner interface{ Scan(...any) error }) (*model.RecognitionTier, error) {
	var rt model.RecognitionTier
	var extra sql.NullString
	var unlocks string
	err := scanner.Scan(&rt.ID, &rt.RulesetID, &rt.TierNumber, &rt.Name, &rt.ThresholdType,
		&rt.ThresholdValue, &extra, &unlocks)
	if err != nil {
		return nil, err
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &rt.AdditionalRequirements); err != nil {
			return nil, fmt.Errorf("decode additional requirements: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(unlocks), &rt.Unlocks); err != nil {
		return nil, fmt.Errorf("decode unlocks: %w", err)
	}
	return &rt, nil
}

const recognitionTierCols = `id, ruleset_id, tier_number, name, threshold_type, threshold_value,
	additional_requirements, unlocks`

func encodeTier(rt model.RecognitionTier) (sql.NullString, string, error) {
	var extra sql.NullString
	if len(rt.AdditionalRequirements) > 0 {
		b, err := json.Marshal(rt.AdditionalRequirements)
		if err != nil {
			return extra, "", fmt.Errorf("encode additional requirements: %w", err)
		}
		extra = sql.NullString{String: string(b), Valid: true}
	}
	unlocks, err := encodeStrings(rt.Unlocks)
	return extra, unlocks, err
}

func insertRecognitionTier(ctx context.Context, q dbtx, rulesetID string, rt model.RecognitionTier) (string, error) {
	extra, unlocks, err := encodeTier(rt)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = q.ExecContext(ctx,
		`INSERT INTO ruleset_recognition_tiers (`+recognitionTierCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rulesetID, rt.TierNumber, rt.Name, rt.ThresholdType, rt.ThresholdValue, extra, unlocks,
	)
	if err != nil {
		return "", fmt.Errorf("insert recognition tier: %w", dupErr(err))
	}
	return id, nil
}

func (s *RulesetStore) RecognitionTiers(ctx context.Context, rulesetID string) ([]model.RecognitionTier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recognitionTierCols+` FROM ruleset_recognition_tiers WHERE ruleset_id = ? ORDER BY tier_number`, rulesetID)
	if err != nil {
		return nil, fmt.Errorf("list recognition tiers: %w", err)
	}
	defer rows.Close()

	var out []model.RecognitionTier
	for rows.Next() {
		rt, err := scanRecognitionTier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recognition tier: %w", err)
		}
		out = append(out, *rt)
	}
	return out, rows.Err()
}

func (s *RulesetStore) GetRecognitionTier(ctx context.Context, id string) (*model.RecognitionTier, error) {
	rt, err := scanRecognitionTier(s.db.QueryRowContext(ctx,
		`SELECT `+recognitionTierCols+` FROM ruleset_recognition_tiers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recognition tier: %w", err)
	}
	return rt, nil
}

func (s *RulesetStore) AddRecognitionTier(ctx context.Context, rt model.RecognitionTier) (*model.RecognitionTier, error) {
	id, err := insertRecognitionTier(ctx, s.db, rt.RulesetID, rt)
	if err != nil {
		return nil, err
	}
	return s.GetRecognitionTier(ctx, id)
}

func (s *RulesetStore) UpdateRecognitionTier(ctx context.Context, rt model.RecognitionTier) (*model.RecognitionTier, error) {
	extra, unlocks, err := encodeTier(rt)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE ruleset_recognition_tiers SET tier_number = ?, name = ?, threshold_type = ?,
			threshold_value = ?, additional_requirements = ?, unlocks = ?
		 WHERE id = ?`,
		rt.TierNumber, rt.Name, rt.ThresholdType, rt.ThresholdValue, extra, unlocks, rt.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update recognition tier: %w", dupErr(err))
	}
	return s.GetRecognitionTier(ctx, rt.ID)
}

func (s *RulesetStore) DeleteRecognitionTier(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ruleset_recognition_tiers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete recognition tier: %w", err)
	}
	return nil
}

// --- Recognition sources ---

func scanRecognitionSource(scanner interface{ Scan(...any) error }) (*model.RecognitionSource, error) {
	var rs model.RecognitionSource
	var maxPerDay sql.NullInt64
	if err := scanner.Scan(&rs.ID, &rs.RulesetID, &rs.SourceType, &rs.Amount, &maxPerDay); err != nil {
		return nil, err
	}
	rs.MaxPerDay = intPtr(maxPerDay)
	return &rs, nil
}

const recognitionSourceCols = `id, ruleset_id, source_type, amount, max_per_day`

func insertRecognitionSource(ctx context.Context, q dbtx, rulesetID string, rs model.RecognitionSource) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO ruleset_recognition_sources (`+recognitionSourceCols+`) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), rulesetID, rs.SourceType, rs.Amount, nullInt(rs.MaxPerDay),
	)
	if err != nil {
		return fmt.Errorf("insert recognition source: %w", err)
	}
	return nil
}

func (s *RulesetStore) RecognitionSources(ctx context.Context, rulesetID string) ([]model.RecognitionSource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recognitionSourceCols+` FROM ruleset_recognition_sources WHERE ruleset_id = ? ORDER BY source_type`, rulesetID)
	if err != nil {
		return nil, fmt.Errorf("list recognition sources: %w", err)
	}
	defer rows.Close()

	var out []model.RecognitionSource
	for rows.Next() {
		rs, err := scanRecognitionSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recognition source: %w", err)
		}
		out = append(out, *rs)
	}
	return out, rows.Err()
}

// ReplaceRecognitionSources swaps the ruleset's sources for the given set.
func (s *RulesetStore) ReplaceRecognitionSources(ctx context.Context, rulesetID string, sources []model.RecognitionSource) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ruleset_recognition_sources WHERE ruleset_id = ?`, rulesetID); err != nil {
		return fmt.Errorf("clear recognition sources: %w", err)
	}
	for _, rs := range sources {
		if err := insertRecognitionSource(ctx, tx, rulesetID, rs); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recognition sources: %w", err)
	}
	return nil
}

// --- Bulk ---

// Children loads all four child collections of a ruleset sequentially.
func (s *RulesetStore) Children(ctx context.Context, rulesetID string) (*model.RulesetChildren, error) {
	var c model.RulesetChildren
	var err error
	if c.QuestTypes, err = s.QuestTypes(ctx, rulesetID); err != nil {
		return nil, err
	}
	if c.SkillDomains, err = s.SkillDomains(ctx, rulesetID); err != nil {
		return nil, err
	}
	if c.RecognitionTiers, err = s.RecognitionTiers(ctx, rulesetID); err != nil {
		return nil, err
	}
	if c.RecognitionSources, err = s.RecognitionSources(ctx, rulesetID); err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertChildren copies a full child set onto a ruleset in one transaction.
func (s *RulesetStore) InsertChildren(ctx context.Context, rulesetID string, c model.RulesetChildren) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, qt := range c.QuestTypes {
		if _, err := insertQuestType(ctx, tx, rulesetID, qt); err != nil {
			return err
		}
	}
	for _, sd := range c.SkillDomains {
		if _, err := insertSkillDomain(ctx, tx, rulesetID, sd); err != nil {
			return err
		}
	}
	for _, rt := range c.RecognitionTiers {
		if _, err := insertRecognitionTier(ctx, tx, rulesetID, rt); err != nil {
			return err
		}
	}
	for _, rs := range c.RecognitionSources {
		if err := insertRecognitionSource(ctx, tx, rulesetID, rs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ruleset children: %w", err)
	}
	return nil
}

func encodeStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return "", fmt.Errorf("encode strings: %w", err)
	}
	return string(b), nil
}
