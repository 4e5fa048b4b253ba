package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/signin/internal/errdef"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/storage"
)

const eventColumns = `
	e.id, e.name, e.description, e.location, e.code, e.starts_at, e.ends_at,
	COALESCE(e.type_id, ''), e.enabled, e.pre_event_minutes, e.post_event_minutes,
	e.funds, e.cost, e.overhead,
	COALESCE(t.name, ''), COALESCE(t.description, ''), COALESCE(t.autoload, 0)
FROM events e
LEFT JOIN event_types t ON t.id = e.type_id`

// effectiveStartSQL and effectiveEndSQL translate models.Event's effective
// window for bulk filtering.
const (
	effectiveStartSQL = "(e.starts_at - e.pre_event_minutes * 60000)"
	effectiveEndSQL   = "(e.ends_at + e.post_event_minutes * 60000)"
)

// CreateEventType inserts a new event type.
func (s *SQLiteStore) CreateEventType(ctx context.Context, eventType *models.EventType) error {
	if eventType.ID == "" {
		eventType.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO event_types (id, name, description, autoload) VALUES (?, ?, ?, ?)",
		eventType.ID, eventType.Name, eventType.Description, eventType.Autoload,
	)
	if isUniqueViolation(err) {
		return errdef.NewConflict("event type %q already exists", eventType.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert event type: %w", err)
	}
	return nil
}

// CreateEvent persists a new event to the database.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *models.Event) error {
	return s.CreateEvents(ctx, []*models.Event{event})
}

// CreateEvents persists events in a single transaction.
func (s *SQLiteStore) CreateEvents(ctx context.Context, events []*models.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		if !event.Start.Before(event.End) {
			return errdef.NewBadRequest("event %q: start must be before end", event.Name)
		}
		if event.ID == "" {
			event.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, name, description, location, code, starts_at, ends_at, type_id, enabled,
			                     pre_event_minutes, post_event_minutes, funds, cost, overhead)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID, event.Name, event.Description, event.Location, event.Code,
			toMillis(event.Start), toMillis(event.End), nullable(event.TypeID), event.Enabled,
			event.PreEventMinutes, event.PostEventMinutes, event.Funds, event.Cost, event.Overhead,
		)
		if isUniqueViolation(err) {
			return errdef.NewConflict("event code %q already in use", event.Code)
		}
		if isForeignKeyViolation(err) {
			return errdef.NewNotFound("event type not found: %s", event.TypeID)
		}
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateEvent updates an existing event.
func (s *SQLiteStore) UpdateEvent(ctx context.Context, event *models.Event) error {
	if !event.Start.Before(event.End) {
		return errdef.NewBadRequest("event %q: start must be before end", event.Name)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET name = ?, description = ?, location = ?, code = ?, starts_at = ?, ends_at = ?,
		        type_id = ?, enabled = ?, pre_event_minutes = ?, post_event_minutes = ?,
		        funds = ?, cost = ?, overhead = ?
		 WHERE id = ?`,
		event.Name, event.Description, event.Location, event.Code,
		toMillis(event.Start), toMillis(event.End), nullable(event.TypeID), event.Enabled,
		event.PreEventMinutes, event.PostEventMinutes, event.Funds, event.Cost, event.Overhead,
		event.ID,
	)
	if isUniqueViolation(err) {
		return errdef.NewConflict("event code %q already in use", event.Code)
	}
	if isForeignKeyViolation(err) {
		return errdef.NewNotFound("event type not found: %s", event.TypeID)
	}
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n == 0 {
		return errdef.NewNotFound("event not found: %s", event.ID)
	}
	return nil
}

// GetEvent retrieves an event by ID.
func (s *SQLiteStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := scanEvent(s.db.QueryRowContext(ctx, "SELECT"+eventColumns+" WHERE e.id = ?", eventID))
	if err == sql.ErrNoRows {
		return nil, errdef.NewNotFound("event not found: %s", eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// GetEventByCode retrieves an event by its scan code.
func (s *SQLiteStore) GetEventByCode(ctx context.Context, code string) (*models.Event, error) {
	event, err := scanEvent(s.db.QueryRowContext(ctx, "SELECT"+eventColumns+" WHERE e.code = ?", code))
	if err == sql.ErrNoRows {
		return nil, errdef.NewNotFound("no event with code %q", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by code: %w", err)
	}
	return event, nil
}

// ListEvents retrieves events matching filter ordered by start.
func (s *SQLiteStore) ListEvents(ctx context.Context, filter storage.EventFilter) ([]*models.Event, error) {
	var where []string
	var args []any
	if !filter.StartFrom.IsZero() {
		where = append(where, "e.starts_at >= ?")
		args = append(args, toMillis(filter.StartFrom))
	}
	if !filter.StartBefore.IsZero() {
		where = append(where, "e.starts_at < ?")
		args = append(args, toMillis(filter.StartBefore))
	}
	if !filter.EndAfter.IsZero() {
		where = append(where, "e.ends_at > ?")
		args = append(args, toMillis(filter.EndAfter))
	}
	if !filter.EndBy.IsZero() {
		where = append(where, "e.ends_at <= ?")
		args = append(args, toMillis(filter.EndBy))
	}
	if !filter.OverlapsAt.IsZero() {
		at := toMillis(filter.OverlapsAt)
		where = append(where, effectiveStartSQL+" <= ?", effectiveEndSQL+" > ?")
		args = append(args, at, at)
	}
	if filter.EnabledOnly {
		where = append(where, "e.enabled = 1")
	}
	if filter.AutoloadOnly {
		where = append(where, "t.autoload = 1")
	}

	query := "SELECT" + eventColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.starts_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// DeleteEvent removes an event; foreign keys cascade to its sessions and blocks.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, eventID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", eventID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n == 0 {
		return errdef.NewNotFound("event not found: %s", eventID)
	}
	return nil
}

// CreateEventBlock inserts a block inside an existing event.
func (s *SQLiteStore) CreateEventBlock(ctx context.Context, block *models.EventBlock) error {
	if !block.Start.Before(block.End) {
		return errdef.NewBadRequest("block start must be before end")
	}
	if block.ID == "" {
		block.ID = uuid.New().String()
	}
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM events WHERE id = ?", block.EventID).Scan(&exists)
	if err == sql.ErrNoRows {
		return errdef.NewNotFound("event not found: %s", block.EventID)
	}
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO event_blocks (id, event_id, starts_at, ends_at) VALUES (?, ?, ?, ?)",
		block.ID, block.EventID, toMillis(block.Start), toMillis(block.End),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event block: %w", err)
	}
	return nil
}

// RegisterForBlock records a member's interest in a block. Registering twice is a no-op.
func (s *SQLiteStore) RegisterForBlock(ctx context.Context, blockID, memberID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM event_blocks WHERE id = ?", blockID).Scan(&exists)
	if err == sql.ErrNoRows {
		return errdef.NewNotFound("event block not found: %s", blockID)
	}
	if err != nil {
		return fmt.Errorf("failed to check event block: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO block_registrations (block_id, member_id) VALUES (?, ?)",
		blockID, memberID,
	)
	if isForeignKeyViolation(err) {
		return errdef.NewNotFound("member not found: %s", memberID)
	}
	if err != nil {
		return fmt.Errorf("failed to register for block: %w", err)
	}
	return nil
}

// ListEventBlocks returns an event's blocks with their registration counts.
func (s *SQLiteStore) ListEventBlocks(ctx context.Context, eventID string) ([]*models.EventBlock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.event_id, b.starts_at, b.ends_at, COUNT(r.member_id)
		 FROM event_blocks b
		 LEFT JOIN block_registrations r ON r.block_id = b.id
		 WHERE b.event_id = ?
		 GROUP BY b.id
		 ORDER BY b.starts_at`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list event blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*models.EventBlock
	for rows.Next() {
		block := &models.EventBlock{}
		var start, end int64
		if err := rows.Scan(&block.ID, &block.EventID, &start, &end, &block.Registrations); err != nil {
			return nil, fmt.Errorf("failed to scan event block: %w", err)
		}
		block.Start = fromMillis(start)
		block.End = fromMillis(end)
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event blocks: %w", err)
	}
	return blocks, nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	e := &models.Event{}
	var start, end int64
	var typeName, typeDescription string
	var typeAutoload bool
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Location, &e.Code, &start, &end,
		&e.TypeID, &e.Enabled, &e.PreEventMinutes, &e.PostEventMinutes,
		&e.Funds, &e.Cost, &e.Overhead,
		&typeName, &typeDescription, &typeAutoload,
	)
	if err != nil {
		return nil, err
	}
	e.Start = fromMillis(start)
	e.End = fromMillis(end)
	if e.TypeID != "" {
		e.Type = &models.EventType{ID: e.TypeID, Name: typeName, Description: typeDescription, Autoload: typeAutoload}
	}
	return e, nil
}
