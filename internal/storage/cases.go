package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type CaseType string

const (
	CaseBan    CaseType = "BAN"
	CaseUnban  CaseType = "UNBAN"
	CaseKick   CaseType = "KICK"
	CaseMute   CaseType = "MUTE"
	CaseUnmute CaseType = "UNMUTE"
	CaseWarn   CaseType = "WARN"
)

var (
	ErrCaseNotFound = errors.New("case not found")
	ErrCaseLifted   = errors.New("case already lifted")
)

// Case is one moderation action against a user. Ids are allocated per guild
// by NextCaseID. Only the lift fields change after insertion.
type Case struct {
	GuildID      string
	ID           int64
	UserID       string
	ModID        string
	ModTag       string
	Type         CaseType
	Reason       string
	Punishment   string
	Date         time.Time
	Until        *time.Time
	Lifted       bool
	LiftedBy     string
	LiftedReason string
	LiftedDate   *time.Time
}

// NextCaseID atomically increments and returns the guild's case counter.
func (s *Store) NextCaseID(ctx context.Context, guildID string) (int64, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO case_counters (guild_id, last_id) VALUES (?, 1)
		ON CONFLICT(guild_id) DO UPDATE SET last_id = case_counters.last_id + 1
		RETURNING last_id
	`), guildID)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) AddCase(ctx context.Context, c Case) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO cases (guild_id, case_id, user_id, mod_id, mod_tag, type, reason, punishment, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), c.GuildID, c.ID, c.UserID, c.ModID, c.ModTag, string(c.Type), c.Reason, c.Punishment, c.Date.Unix(), nullUnix(c.Until))
	return err
}

func (s *Store) GetCase(ctx context.Context, guildID string, caseID int64) (Case, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+caseColumns+` FROM cases WHERE guild_id = ? AND case_id = ?
	`), guildID, caseID)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Case{}, ErrCaseNotFound
	}
	return c, err
}

// ListCases returns a user's cases in the guild, newest first.
func (s *Store) ListCases(ctx context.Context, guildID, userID string) ([]Case, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+caseColumns+` FROM cases
		WHERE guild_id = ? AND user_id = ?
		ORDER BY case_id DESC
	`), guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// LiftCase marks a case lifted. A lifted case stays lifted.
func (s *Store) LiftCase(ctx context.Context, guildID string, caseID int64, liftedBy, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lifted int
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT lifted FROM cases WHERE guild_id = ? AND case_id = ?`), guildID, caseID).Scan(&lifted)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrCaseNotFound
		return err
	}
	if err != nil {
		return err
	}
	if lifted == 1 {
		err = ErrCaseLifted
		return err
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		UPDATE cases SET lifted = 1, lifted_by = ?, lifted_reason = ?, lifted_at = ?
		WHERE guild_id = ? AND case_id = ? AND lifted = 0
	`), liftedBy, reason, time.Now().Unix(), guildID, caseID)
	if err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

const caseColumns = `guild_id, case_id, user_id, mod_id, mod_tag, type, reason, punishment,
		created_at, expires_at, lifted, lifted_by, lifted_reason, lifted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (Case, error) {
	var c Case
	var caseType string
	var created int64
	var until, liftedAt sql.NullInt64
	var lifted int
	err := row.Scan(&c.GuildID, &c.ID, &c.UserID, &c.ModID, &c.ModTag, &caseType, &c.Reason, &c.Punishment,
		&created, &until, &lifted, &c.LiftedBy, &c.LiftedReason, &liftedAt)
	if err != nil {
		return Case{}, err
	}
	c.Type = CaseType(caseType)
	c.Date = time.Unix(created, 0)
	c.Until = timePtr(until)
	c.Lifted = lifted == 1
	c.LiftedDate = timePtr(liftedAt)
	return c, nil
}

func nullUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timePtr(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := time.Unix(value.Int64, 0)
	return &t
}
