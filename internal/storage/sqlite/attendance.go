package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/signin/internal/errdef"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/storage"
)

// Transition applies a scan, sign-in or sign-out to one (member, event) pair
// inside a single immediate transaction.
func (s *SQLiteStore) Transition(ctx context.Context, req storage.TransitionRequest) (*storage.TransitionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing := &models.Active{MemberID: req.MemberID, EventID: req.EventID}
	var startedAt int64
	err = tx.QueryRowContext(ctx,
		"SELECT id, started_at FROM active WHERE member_id = ? AND event_id = ?",
		req.MemberID, req.EventID,
	).Scan(&existing.ID, &startedAt)

	result := &storage.TransitionResult{}
	switch {
	case err == sql.ErrNoRows:
		if req.Mode == storage.Close {
			return result, nil
		}
		active := &models.Active{
			ID:       uuid.New().String(),
			MemberID: req.MemberID,
			EventID:  req.EventID,
			Start:    req.At.UTC(),
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO active (id, member_id, event_id, started_at) VALUES (?, ?, ?, ?)",
			active.ID, active.MemberID, active.EventID, toMillis(active.Start),
		)
		if isUniqueViolation(err) {
			return nil, errdef.NewConflict("member %s already has an active session at event %s", req.MemberID, req.EventID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert active: %w", err)
		}
		result.Opened = active

	case err != nil:
		return nil, fmt.Errorf("failed to get active: %w", err)

	default:
		existing.Start = fromMillis(startedAt)
		if req.Mode == storage.Open {
			result.Existing = existing
			return result, nil
		}
		stamp, err := convertToStamp(ctx, tx, existing, req.At)
		if err != nil {
			return nil, err
		}
		result.Closed = stamp
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// convertToStamp inserts the Stamp for active ending at end and deletes the Active row.
// An end before the session start is raised to the start.
func convertToStamp(ctx context.Context, tx *sql.Tx, active *models.Active, end time.Time) (*models.Stamp, error) {
	if end.Before(active.Start) {
		end = active.Start
	}
	stamp := &models.Stamp{
		ID:       uuid.New().String(),
		MemberID: active.MemberID,
		EventID:  active.EventID,
		Start:    active.Start,
		End:      end.UTC(),
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO stamps (id, member_id, event_id, started_at, ended_at) VALUES (?, ?, ?, ?, ?)",
		stamp.ID, stamp.MemberID, stamp.EventID, toMillis(stamp.Start), toMillis(stamp.End),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert stamp: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM active WHERE id = ?", active.ID); err != nil {
		return nil, fmt.Errorf("failed to delete active: %w", err)
	}
	return stamp, nil
}

// ListActive retrieves open sessions with member and event names.
func (s *SQLiteStore) ListActive(ctx context.Context, filter storage.ActiveFilter) ([]models.ActiveDetail, error) {
	query := `
		SELECT a.id, a.member_id, a.event_id, a.started_at,
		       CASE WHEN r.mentor = 1 THEN '*' ELSE '' END || COALESCE(NULLIF(m.display_name, ''), m.name),
		       COALESCE(st.name, ''), e.name, e.code
		FROM active a
		JOIN members m ON m.id = a.member_id
		JOIN roles r ON r.id = m.role_id
		LEFT JOIN subteams st ON st.id = m.subteam_id
		JOIN events e ON e.id = a.event_id`
	var where []string
	var args []any
	if filter.EventID != "" {
		where = append(where, "a.event_id = ?")
		args = append(args, filter.EventID)
	}
	if filter.EventCode != "" {
		where = append(where, "e.code = ?")
		args = append(args, filter.EventCode)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.started_at, m.name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active: %w", err)
	}
	defer rows.Close()

	var actives []models.ActiveDetail
	for rows.Next() {
		var a models.ActiveDetail
		var startedAt int64
		if err := rows.Scan(&a.ID, &a.MemberID, &a.EventID, &startedAt,
			&a.MemberName, &a.SubteamName, &a.EventName, &a.EventCode); err != nil {
			return nil, fmt.Errorf("failed to scan active: %w", err)
		}
		a.Start = fromMillis(startedAt)
		actives = append(actives, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate active: %w", err)
	}
	return actives, nil
}

// GetActive retrieves one open session by ID.
func (s *SQLiteStore) GetActive(ctx context.Context, activeID string) (*models.Active, error) {
	a := &models.Active{}
	var startedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, member_id, event_id, started_at FROM active WHERE id = ?", activeID,
	).Scan(&a.ID, &a.MemberID, &a.EventID, &startedAt)
	if err == sql.ErrNoRows {
		return nil, errdef.NewNotFound("active session not found: %s", activeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active: %w", err)
	}
	a.Start = fromMillis(startedAt)
	return a, nil
}

// CloseActive force-closes sessions in one transaction. Sessions already
// closed by a concurrent scan are skipped.
func (s *SQLiteStore) CloseActive(ctx context.Context, closures []storage.Closure) ([]storage.ClosureResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	results := make([]storage.ClosureResult, 0, len(closures))
	for _, c := range closures {
		active := &models.Active{}
		var startedAt int64
		err := tx.QueryRowContext(ctx,
			"SELECT id, member_id, event_id, started_at FROM active WHERE id = ?", c.ActiveID,
		).Scan(&active.ID, &active.MemberID, &active.EventID, &startedAt)
		if err == sql.ErrNoRows {
			results = append(results, storage.ClosureResult{ActiveID: c.ActiveID})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get active: %w", err)
		}
		active.Start = fromMillis(startedAt)

		result := storage.ClosureResult{
			ActiveID: c.ActiveID,
			Closed:   true,
			MemberID: active.MemberID,
			EventID:  active.EventID,
		}
		if c.Credit {
			stamp, err := convertToStamp(ctx, tx, active, c.End)
			if err != nil {
				return nil, err
			}
			result.Stamp = stamp
		} else if _, err := tx.ExecContext(ctx, "DELETE FROM active WHERE id = ?", active.ID); err != nil {
			return nil, fmt.Errorf("failed to delete active: %w", err)
		}
		results = append(results, result)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return results, nil
}

// ListStamps retrieves completed sessions with report attributes.
func (s *SQLiteStore) ListStamps(ctx context.Context, filter storage.StampFilter) ([]models.StampDetail, error) {
	query := `
		SELECT st.id, st.member_id, st.event_id, st.started_at, st.ended_at,
		       COALESCE(NULLIF(m.display_name, ''), m.name), COALESCE(sub.name, ''), e.name, r.receives_funds
		FROM stamps st
		JOIN members m ON m.id = st.member_id
		JOIN roles r ON r.id = m.role_id
		LEFT JOIN subteams sub ON sub.id = m.subteam_id
		JOIN events e ON e.id = st.event_id`
	var where []string
	var args []any
	if filter.EventID != "" {
		where = append(where, "st.event_id = ?")
		args = append(args, filter.EventID)
	}
	if filter.MemberID != "" {
		where = append(where, "st.member_id = ?")
		args = append(args, filter.MemberID)
	}
	if len(filter.EventIDs) > 0 {
		where = append(where, "st.event_id IN ("+placeholders(len(filter.EventIDs))+")")
		for _, id := range filter.EventIDs {
			args = append(args, id)
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY st.started_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stamps: %w", err)
	}
	defer rows.Close()

	var stamps []models.StampDetail
	for rows.Next() {
		var st models.StampDetail
		var start, end int64
		if err := rows.Scan(&st.ID, &st.MemberID, &st.EventID, &start, &end,
			&st.MemberName, &st.SubteamName, &st.EventName, &st.ReceivesFunds); err != nil {
			return nil, fmt.Errorf("failed to scan stamp: %w", err)
		}
		st.Start = fromMillis(start)
		st.End = fromMillis(end)
		stamps = append(stamps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stamps: %w", err)
	}
	return stamps, nil
}

// TrimStamps clamps an event's stamps into [from, to].
func (s *SQLiteStore) TrimStamps(ctx context.Context, eventID string, from, to time.Time) (int64, error) {
	lo, hi := toMillis(from), toMillis(to)
	res, err := s.db.ExecContext(ctx,
		`UPDATE stamps
		 SET started_at = MIN(MAX(started_at, ?1), ?2),
		     ended_at = MAX(MIN(ended_at, ?2), ?1)
		 WHERE event_id = ?3 AND (started_at < ?1 OR started_at > ?2 OR ended_at > ?2 OR ended_at < ?1)`,
		lo, hi, eventID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to trim stamps: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to trim stamps: %w", err)
	}
	return n, nil
}
