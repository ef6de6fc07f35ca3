package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/mutualaid/internal/model"
)

type QuestStore struct {
	db *sql.DB
}

func NewQuestStore(db *sql.DB) *QuestStore {
	return &QuestStore{db: db}
}

// --- Quest methods ---

func scanQuest(scanner interface{ Scan(...any) error }) (*model.Quest, error) {
	var q model.Quest
	var postID, guildID, rulesetID, questTypeID sql.NullString
	var scheduledFor, completedAt sql.NullTime
	var domains string
	var emergency int

	err := scanner.Scan(
		&q.ID, &q.CommunityID, &q.CreatedBy, &postID, &guildID, &q.Title, &q.Description,
		&q.Difficulty, &q.Status, &q.ValidationMethod, &q.ValidationThreshold, &q.ValidationCount,
		&domains, &q.XPReward, &q.MaxPartySize, &emergency, &scheduledFor, &rulesetID, &questTypeID,
		&completedAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(domains), &q.SkillDomains); err != nil {
		return nil, fmt.Errorf("decode skill domains: %w", err)
	}
	q.PostID = stringPtr(postID)
	q.GuildID = stringPtr(guildID)
	q.RulesetID = stringPtr(rulesetID)
	q.QuestTypeID = stringPtr(questTypeID)
	q.ScheduledFor = timePtr(scheduledFor)
	q.CompletedAt = timePtr(completedAt)
	q.IsEmergency = emergency != 0
	return &q, nil
}

const questCols = `id, community_id, created_by, post_id, guild_id, title, description, difficulty,
	status, validation_method, validation_threshold, validation_count, skill_domains, xp_reward,
	max_party_size, is_emergency, scheduled_for, ruleset_id, quest_type_id, completed_at,
	created_at, updated_at`

func (s *QuestStore) Create(ctx context.Context, q *model.Quest) (*model.Quest, error) {
	domains, err := encodeStrings(q.SkillDomains)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	ts := now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quests (id, community_id, created_by, post_id, guild_id, title, description,
			difficulty, status, validation_method, validation_threshold, skill_domains, xp_reward,
			max_party_size, is_emergency, scheduled_for, ruleset_id, quest_type_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'open', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, q.CommunityID, q.CreatedBy, nullString(q.PostID), nullString(q.GuildID), q.Title, q.Description,
		q.Difficulty, q.ValidationMethod, q.ValidationThreshold, domains, q.XPReward,
		q.MaxPartySize, boolInt(q.IsEmergency), nullTime(q.ScheduledFor), nullString(q.RulesetID),
		nullString(q.QuestTypeID), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert quest: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *QuestStore) GetByID(ctx context.Context, id string) (*model.Quest, error) {
	q, err := scanQuest(s.db.QueryRowContext(ctx, `SELECT `+questCols+` FROM quests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quest: %w", err)
	}
	return q, nil
}

// ListBoard returns a community's quests that are still in play, newest first.
func (s *QuestStore) ListBoard(ctx context.Context, communityID string, limit int) ([]model.Quest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questCols+` FROM quests
		 WHERE community_id = ? AND status IN ('open', 'claimed', 'in_progress', 'pending_validation')
		 ORDER BY created_at DESC, id
		 LIMIT ?`,
		communityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	var out []model.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// TryTransition moves a quest to `to` only if its status is one of `from`.
// It reports whether this call won the transition.
func (s *QuestStore) TryTransition(ctx context.Context, id string, to model.QuestStatus, from ...model.QuestStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition quest: no source status")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	args := []any{to, now()}
	completed := sql.NullTime{}
	if to == model.QuestCompleted {
		completed = sql.NullTime{Time: now(), Valid: true}
	}
	args = append(args, completed, id)
	for _, f := range from {
		args = append(args, f)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE quests SET status = ?, updated_at = ?, completed_at = COALESCE(?, completed_at)
		 WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("transition quest: %w", err)
	}
	return affectedOne(result)
}

// --- Party methods ---

func scanParty(scanner interface{ Scan(...any) error }) (*model.Party, error) {
	var p model.Party
	if err := scanner.Scan(&p.ID, &p.QuestID, &p.CreatedBy, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

const partyCols = `id, quest_id, created_by, created_at`

// EnsureParty creates the quest's party if it has none. The first writer
// wins; created reports whether this call inserted the row.
func (s *QuestStore) EnsureParty(ctx context.Context, questID, createdBy string) (party *model.Party, created bool, err error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO parties (id, quest_id, created_by, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(quest_id) DO NOTHING`,
		uuid.NewString(), questID, createdBy, now(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert party: %w", err)
	}
	created, err = affectedOne(result)
	if err != nil {
		return nil, false, err
	}
	party, err = s.GetParty(ctx, questID)
	if err != nil {
		return nil, false, err
	}
	if party == nil {
		return nil, false, fmt.Errorf("insert party: row missing after insert")
	}
	return party, created, nil
}

func (s *QuestStore) GetParty(ctx context.Context, questID string) (*model.Party, error) {
	p, err := scanParty(s.db.QueryRowContext(ctx, `SELECT `+partyCols+` FROM parties WHERE quest_id = ?`, questID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get party: %w", err)
	}
	return p, nil
}

func (s *QuestStore) DeleteParty(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM parties WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete party: %w", err)
	}
	return nil
}

// AddMember inserts a party member unconditionally.
func (s *QuestStore) AddMember(ctx context.Context, partyID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO party_members (party_id, user_id, joined_at) VALUES (?, ?, ?)`,
		partyID, userID, now(),
	)
	if err != nil {
		return fmt.Errorf("insert party member: %w", dupErr(err))
	}
	return nil
}

// RemoveMember deletes a party member.
func (s *QuestStore) RemoveMember(ctx context.Context, partyID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM party_members WHERE party_id = ? AND user_id = ?`, partyID, userID)
	if err != nil {
		return fmt.Errorf("delete party member: %w", err)
	}
	return nil
}

// JoinIfOpen inserts a member only while the quest is claimed and the party
// is below the quest's max party size. The check and the insert are a single
// statement. It reports false when either guard fails.
func (s *QuestStore) JoinIfOpen(ctx context.Context, questID, partyID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO party_members (party_id, user_id, joined_at)
		 SELECT ?, ?, ?
		 WHERE (SELECT status FROM quests WHERE id = ?) = 'claimed'
		   AND (SELECT COUNT(*) FROM party_members WHERE party_id = ?) <
		       (SELECT max_party_size FROM quests WHERE id = ?)`,
		partyID, userID, now(), questID, partyID, questID,
	)
	if err != nil {
		return false, fmt.Errorf("join party: %w", dupErr(err))
	}
	return affectedOne(result)
}

func (s *QuestStore) MemberCount(ctx context.Context, partyID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM party_members WHERE party_id = ?`, partyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count party members: %w", err)
	}
	return n, nil
}

// Members lists every membership across all of the quest's parties.
func (s *QuestStore) Members(ctx context.Context, questID string) ([]model.PartyMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pm.party_id, pm.user_id, pm.joined_at
		 FROM party_members pm JOIN parties p ON p.id = pm.party_id
		 WHERE p.quest_id = ?
		 ORDER BY pm.joined_at, pm.user_id`,
		questID,
	)
	if err != nil {
		return nil, fmt.Errorf("list party members: %w", err)
	}
	defer rows.Close()

	var out []model.PartyMember
	for rows.Next() {
		var m model.PartyMember
		if err := rows.Scan(&m.PartyID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan party member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Participants returns the distinct user ids across the quest's parties.
func (s *QuestStore) Participants(ctx context.Context, questID string) ([]string, error) {
	members, err := s.Members(ctx, questID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(members))
	var out []string
	for _, m := range members {
		if seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		out = append(out, m.UserID)
	}
	return out, nil
}

func (s *QuestStore) IsParticipant(ctx context.Context, questID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM party_members pm JOIN parties p ON p.id = pm.party_id
		 WHERE p.quest_id = ? AND pm.user_id = ?`,
		questID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return n > 0, nil
}

// --- Validation methods ---

// ValidationResult is what RecordValidation observed inside its transaction.
type ValidationResult struct {
	Recorded  bool
	Count     int
	Threshold int
}

// RecordValidation inserts a validation and, for approvals, increments the
// quest's counter server-side in the same transaction. Recorded is false
// when the quest is no longer pending validation; nothing is written then.
// A second validation by the same validator returns ErrDuplicate.
func (s *QuestStore) RecordValidation(ctx context.Context, v model.QuestValidation) (ValidationResult, error) {
	var res ValidationResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO quest_validations (id, quest_id, validator_id, approved, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), v.QuestID, v.ValidatorID, boolInt(v.Approved), v.Message, ts,
	); err != nil {
		return res, fmt.Errorf("insert validation: %w", dupErr(err))
	}

	increment := 0
	if v.Approved {
		increment = 1
	}
	err = tx.QueryRowContext(ctx,
		`UPDATE quests SET validation_count = validation_count + ?, updated_at = ?
		 WHERE id = ? AND status = 'pending_validation'
		 RETURNING validation_count, validation_threshold`,
		increment, ts, v.QuestID,
	).Scan(&res.Count, &res.Threshold)
	if errors.Is(err, sql.ErrNoRows) {
		return ValidationResult{}, nil
	}
	if err != nil {
		return res, fmt.Errorf("increment validation count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit validation: %w", err)
	}
	res.Recorded = true
	return res, nil
}

func (s *QuestStore) Validations(ctx context.Context, questID string) ([]model.QuestValidation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quest_id, validator_id, approved, message, created_at
		 FROM quest_validations WHERE quest_id = ? ORDER BY created_at, id`,
		questID,
	)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer rows.Close()

	var out []model.QuestValidation
	for rows.Next() {
		var v model.QuestValidation
		var approved int
		if err := rows.Scan(&v.ID, &v.QuestID, &v.ValidatorID, &approved, &v.Message, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation: %w", err)
		}
		v.Approved = approved != 0
		out = append(out, v)
	}
	return out, rows.Err()
}
