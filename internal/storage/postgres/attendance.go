package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mmynk/signin/internal/errdef"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/storage"
)

// lockMember takes the row lock that serializes all writes for the member.
func lockMember(tx *gorm.DB, memberID string) error {
	var member memberRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", memberID).Take(&member).Error
	if isNotFound(err) {
		return errdef.NewNotFound("member not found: %s", memberID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock member: %w", err)
	}
	return nil
}

func (s *Store) Transition(ctx context.Context, req storage.TransitionRequest) (*storage.TransitionResult, error) {
	result := &storage.TransitionResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMember(tx, req.MemberID); err != nil {
			return err
		}

		var existing activeRecord
		err := tx.Where("member_id = ? AND event_id = ?", req.MemberID, req.EventID).Take(&existing).Error
		switch {
		case isNotFound(err):
			if req.Mode == storage.Close {
				return nil
			}
			record := activeRecord{
				ID:        uuid.New().String(),
				MemberID:  req.MemberID,
				EventID:   req.EventID,
				StartedAt: req.At.UTC(),
			}
			err := tx.Create(&record).Error
			if isUniqueViolation(err) {
				return errdef.NewConflict("member %s already has an active session at event %s", req.MemberID, req.EventID)
			}
			if err != nil {
				return fmt.Errorf("failed to insert active: %w", err)
			}
			result.Opened = record.toModel()
			return nil

		case err != nil:
			return fmt.Errorf("failed to get active: %w", err)
		}

		if req.Mode == storage.Open {
			result.Existing = existing.toModel()
			return nil
		}
		stamp, err := convertToStamp(tx, existing, req.At)
		if err != nil {
			return err
		}
		result.Closed = stamp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func convertToStamp(tx *gorm.DB, active activeRecord, end time.Time) (*models.Stamp, error) {
	if end.Before(active.StartedAt) {
		end = active.StartedAt
	}
	record := stampRecord{
		ID:        uuid.New().String(),
		MemberID:  active.MemberID,
		EventID:   active.EventID,
		StartedAt: active.StartedAt.UTC(),
		EndedAt:   end.UTC(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to insert stamp: %w", err)
	}
	if err := tx.Delete(&activeRecord{}, "id = ?", active.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to delete active: %w", err)
	}
	return record.toModel(), nil
}

const activeDetailSQL = `
	SELECT a.id, a.member_id, a.event_id, a.started_at,
	       CASE WHEN r.mentor THEN '*' ELSE '' END || COALESCE(NULLIF(m.display_name, ''), m.name) AS member_name,
	       COALESCE(st.name, '') AS subteam_name, e.name AS event_name, e.code AS event_code
	FROM active a
	JOIN members m ON m.id = a.member_id
	JOIN roles r ON r.id = m.role_id
	LEFT JOIN subteams st ON st.id = m.subteam_id
	JOIN events e ON e.id = a.event_id`

type activeDetailRow struct {
	ID          string
	MemberID    string
	EventID     string
	StartedAt   time.Time
	MemberName  string
	SubteamName string
	EventName   string
	EventCode   string
}

func (s *Store) ListActive(ctx context.Context, filter storage.ActiveFilter) ([]models.ActiveDetail, error) {
	query := activeDetailSQL
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

	var rows []activeDetailRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list active: %w", err)
	}
	actives := make([]models.ActiveDetail, len(rows))
	for i, r := range rows {
		actives[i] = models.ActiveDetail{
			Active:      models.Active{ID: r.ID, MemberID: r.MemberID, EventID: r.EventID, Start: r.StartedAt.UTC()},
			MemberName:  r.MemberName,
			SubteamName: r.SubteamName,
			EventName:   r.EventName,
			EventCode:   r.EventCode,
		}
	}
	return actives, nil
}

func (s *Store) GetActive(ctx context.Context, activeID string) (*models.Active, error) {
	var record activeRecord
	err := s.db.WithContext(ctx).Where("id = ?", activeID).Take(&record).Error
	if isNotFound(err) {
		return nil, errdef.NewNotFound("active session not found: %s", activeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active: %w", err)
	}
	return record.toModel(), nil
}

func (s *Store) CloseActive(ctx context.Context, closures []storage.Closure) ([]storage.ClosureResult, error) {
	results := make([]storage.ClosureResult, 0, len(closures))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range closures {
			var active activeRecord
			err := tx.Where("id = ?", c.ActiveID).Take(&active).Error
			if isNotFound(err) {
				results = append(results, storage.ClosureResult{ActiveID: c.ActiveID})
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to get active: %w", err)
			}

			if err := lockMember(tx, active.MemberID); err != nil {
				return err
			}
			// A scan holding the lock may have closed it meanwhile.
			err = tx.Where("id = ?", c.ActiveID).Take(&active).Error
			if isNotFound(err) {
				results = append(results, storage.ClosureResult{ActiveID: c.ActiveID})
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to get active: %w", err)
			}

			result := storage.ClosureResult{
				ActiveID: c.ActiveID,
				Closed:   true,
				MemberID: active.MemberID,
				EventID:  active.EventID,
			}
			if c.Credit {
				stamp, err := convertToStamp(tx, active, c.End)
				if err != nil {
					return err
				}
				result.Stamp = stamp
			} else if err := tx.Delete(&activeRecord{}, "id = ?", active.ID).Error; err != nil {
				return fmt.Errorf("failed to delete active: %w", err)
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

type stampDetailRow struct {
	ID            string
	MemberID      string
	EventID       string
	StartedAt     time.Time
	EndedAt       time.Time
	MemberName    string
	SubteamName   string
	EventName     string
	ReceivesFunds bool
}

func (s *Store) ListStamps(ctx context.Context, filter storage.StampFilter) ([]models.StampDetail, error) {
	query := `
		SELECT st.id, st.member_id, st.event_id, st.started_at, st.ended_at,
		       COALESCE(NULLIF(m.display_name, ''), m.name) AS member_name,
		       COALESCE(sub.name, '') AS subteam_name, e.name AS event_name, r.receives_funds
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
		where = append(where, "st.event_id IN ?")
		args = append(args, filter.EventIDs)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY st.started_at"

	var rows []stampDetailRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list stamps: %w", err)
	}
	stamps := make([]models.StampDetail, len(rows))
	for i, r := range rows {
		stamps[i] = models.StampDetail{
			Stamp: models.Stamp{
				ID: r.ID, MemberID: r.MemberID, EventID: r.EventID,
				Start: r.StartedAt.UTC(), End: r.EndedAt.UTC(),
			},
			MemberName:    r.MemberName,
			SubteamName:   r.SubteamName,
			EventName:     r.EventName,
			ReceivesFunds: r.ReceivesFunds,
		}
	}
	return stamps, nil
}

func (s *Store) TrimStamps(ctx context.Context, eventID string, from, to time.Time) (int64, error) {
	lo, hi := from.UTC(), to.UTC()
	res := s.db.WithContext(ctx).Exec(`
		UPDATE stamps
		SET started_at = LEAST(GREATEST(started_at, @lo), @hi),
		    ended_at = GREATEST(LEAST(ended_at, @hi), @lo)
		WHERE event_id = @event AND (started_at < @lo OR started_at > @hi OR ended_at > @hi OR ended_at < @lo)`,
		map[string]any{"lo": lo, "hi": hi, "event": eventID},
	)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to trim stamps: %w", res.Error)
	}
	return res.RowsAffected, nil
}
