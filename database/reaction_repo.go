package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"discord-archiver/models"
)

// ReactionRepository persists the members who reacted with an emoji on a message.
type ReactionRepository struct {
	db *DB
}

// NewReactionRepository creates a ReactionRepository.
func NewReactionRepository(db *DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Insert upserts a reaction, replacing the member set wholesale.
func (r *ReactionRepository) Insert(ctx context.Context, re *models.Reaction) error {
	members := slices.Clone(re.MemberIDs)
	slices.Sort(members)
	members = slices.Compact(members)
	if members == nil {
		members = []string{}
	}

	membersJSON, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("failed to marshal members of reaction %s/%s: %w", re.MessageID, re.EmojiID, err)
	}

	query := `
    INSERT INTO reactions (message_id, emoji_id, member_ids, created_at)
    VALUES (?, ?, ?, ?)
    ON CONFLICT (message_id, emoji_id) DO UPDATE SET
        member_ids = excluded.member_ids
    WHERE reactions.member_ids IS DISTINCT FROM excluded.member_ids;`

	_, err = r.db.exec(ctx, query, re.MessageID, re.EmojiID, string(membersJSON), dbTime(re.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert reaction %s/%s: %w", re.MessageID, re.EmojiID, err)
	}
	return nil
}

// Find returns the reaction of emojiID on messageID.
func (r *ReactionRepository) Find(ctx context.Context, messageID, emojiID string) (*models.Reaction, error) {
	var (
		re          models.Reaction
		membersJSON string
	)
	query := `SELECT message_id, emoji_id, member_ids, created_at FROM reactions WHERE message_id = ? AND emoji_id = ?`
	err := r.db.queryRow(ctx, query, messageID, emojiID).Scan(&re.MessageID, &re.EmojiID, &membersJSON, &re.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query reaction %s/%s: %w", messageID, emojiID, err)
	}

	if err := json.Unmarshal([]byte(membersJSON), &re.MemberIDs); err != nil {
		return nil, fmt.Errorf("failed to decode members of reaction %s/%s: %w", messageID, emojiID, err)
	}
	re.CreatedAt = re.CreatedAt.UTC()
	return &re, nil
}
