package storage

import (
	"context"
	"strings"
	"time"

	"gir-antiraid/internal/permissions"
)

// RaidPhrase bans on sight anyone below BypassLevel who posts it.
type RaidPhrase struct {
	Phrase      string
	BypassLevel permissions.Level
}

func (s *Store) AddRaidPhrase(ctx context.Context, guildID, phrase string, bypass permissions.Level) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO raid_phrases (guild_id, phrase, bypass_level) VALUES (?, ?, ?)
		ON CONFLICT(guild_id, phrase) DO NOTHING
	`), guildID, normalizePhrase(phrase), int(bypass))
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *Store) RemoveRaidPhrase(ctx context.Context, guildID, phrase string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM raid_phrases WHERE guild_id = ? AND phrase = ?`), guildID, normalizePhrase(phrase))
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *Store) ListRaidPhrases(ctx context.Context, guildID string) ([]RaidPhrase, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT phrase, bypass_level FROM raid_phrases WHERE guild_id = ? ORDER BY phrase`), guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phrases []RaidPhrase
	for rows.Next() {
		var phrase RaidPhrase
		var level int
		if err := rows.Scan(&phrase.Phrase, &level); err != nil {
			return nil, err
		}
		phrase.BypassLevel = permissions.Level(level)
		phrases = append(phrases, phrase)
	}
	return phrases, rows.Err()
}

func (s *Store) AddFreezableChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO freezable_channels (guild_id, channel_id) VALUES (?, ?)
		ON CONFLICT(guild_id, channel_id) DO NOTHING
	`), guildID, channelID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *Store) RemoveFreezableChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM freezable_channels WHERE guild_id = ? AND channel_id = ?`), guildID, channelID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *Store) ListFreezableChannels(ctx context.Context, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT channel_id FROM freezable_channels WHERE guild_id = ? ORDER BY channel_id`), guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		channels = append(channels, id)
	}
	return channels, rows.Err()
}

func (s *Store) SetRaidVerified(ctx context.Context, guildID, userID, verifiedBy string, verified bool) error {
	if !verified {
		_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM raid_verified WHERE guild_id = ? AND user_id = ?`), guildID, userID)
		return err
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO raid_verified (guild_id, user_id, verified_by, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET verified_by = excluded.verified_by, created_at = excluded.created_at
	`), guildID, userID, verifiedBy, time.Now().Unix())
	return err
}

func (s *Store) IsRaidVerified(ctx context.Context, guildID, userID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM raid_verified WHERE guild_id = ? AND user_id = ?`), guildID, userID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type execResult interface {
	RowsAffected() (int64, error)
}

func affected(res execResult) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func normalizePhrase(phrase string) string {
	return strings.ToLower(strings.TrimSpace(phrase))
}
