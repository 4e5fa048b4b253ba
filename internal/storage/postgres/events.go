package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mmynk/signin/internal/errdef"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/storage"
)

// effectiveStartSQL and effectiveEndSQL translate models.Event's effective
// window for bulk filtering.
const (
	effectiveStartSQL = "events.starts_at - make_interval(mins => events.pre_event_minutes)"
	effectiveEndSQL   = "events.ends_at + make_interval(mins => events.post_event_minutes)"
)

func (s *Store) CreateEventType(ctx context.Context, eventType *models.EventType) error {
	if eventType.ID == "" {
		eventType.ID = uuid.New().String()
	}
	record := eventTypeRecord{
		ID: eventType.ID, Name: eventType.Name, Description: eventType.Description, Autoload: eventType.Autoload,
	}
	err := s.db.WithContext(ctx).Create(&record).Error
	if isUniqueViolation(err) {
		return errdef.NewConflict("event type %q already exists", eventType.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert event type: %w", err)
	}
	return nil
}

func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	return s.CreateEvents(ctx, []*models.Event{event})
}

func (s *Store) CreateEvents(ctx context.Context, events []*models.Event) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, event := range events {
			if !event.Start.Before(event.End) {
				return errdef.NewBadRequest("event %q: start must be before end", event.Name)
			}
			if event.ID == "" {
				event.ID = uuid.New().String()
			}
			record := toEventRecord(event)
			err := tx.Omit(clause.Associations).Create(&record).Error
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
		return nil
	})
}

func (s *Store) UpdateEvent(ctx context.Context, event *models.Event) error {
	if !event.Start.Before(event.End) {
		return errdef.NewBadRequest("event %q: start must be before end", event.Name)
	}
	record := toEventRecord(event)
	res := s.db.WithContext(ctx).Model(&eventRecord{}).Where("id = ?", event.ID).
		Select("*").Omit("id", "Type").Updates(&record)
	if isUniqueViolation(res.Error) {
		return errdef.NewConflict("event code %q already in use", event.Code)
	}
	if isForeignKeyViolation(res.Error) {
		return errdef.NewNotFound("event type not found: %s", event.TypeID)
	}
	if res.Error != nil {
		return fmt.Errorf("failed to update event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errdef.NewNotFound("event not found: %s", event.ID)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.findEvent(ctx, "id = ?", eventID)
}

func (s *Store) GetEventByCode(ctx context.Context, code string) (*models.Event, error) {
	return s.findEvent(ctx, "code = ?", code)
}

func (s *Store) findEvent(ctx context.Context, query, arg string) (*models.Event, error) {
	var record eventRecord
	err := s.db.WithContext(ctx).Preload("Type").Where(query, arg).Take(&record).Error
	if isNotFound(err) {
		return nil, errdef.NewNotFound("event not found: %s", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return record.toModel(), nil
}

func (s *Store) ListEvents(ctx context.Context, filter storage.EventFilter) ([]*models.Event, error) {
	query := s.db.WithContext(ctx).Model(&eventRecord{}).Preload("Type")
	if !filter.StartFrom.IsZero() {
		query = query.Where("events.starts_at >= ?", filter.StartFrom.UTC())
	}
	if !filter.StartBefore.IsZero() {
		query = query.Where("events.starts_at < ?", filter.StartBefore.UTC())
	}
	if !filter.EndAfter.IsZero() {
		query = query.Where("events.ends_at > ?", filter.EndAfter.UTC())
	}
	if !filter.EndBy.IsZero() {
		query = query.Where("events.ends_at <= ?", filter.EndBy.UTC())
	}
	if !filter.OverlapsAt.IsZero() {
		at := filter.OverlapsAt.UTC()
		query = query.Where(effectiveStartSQL+" <= ?", at).Where(effectiveEndSQL+" > ?", at)
	}
	if filter.EnabledOnly {
		query = query.Where("events.enabled")
	}
	if filter.AutoloadOnly {
		query = query.Joins("JOIN event_types ON event_types.id = events.type_id AND event_types.autoload")
	}

	var records []eventRecord
	if err := query.Order("events.starts_at").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]*models.Event, len(records))
	for i, r := range records {
		events[i] = r.toModel()
	}
	return events, nil
}

// DeleteEvent removes the event with its sessions, blocks and registrations.
func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blocks := tx.Model(&blockRecord{}).Select("id").Where("event_id = ?", eventID)
		if err := tx.Where("block_id IN (?)", blocks).Delete(&registrationRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete registrations: %w", err)
		}
		for _, record := range []any{&blockRecord{}, &activeRecord{}, &stampRecord{}} {
			if err := tx.Where("event_id = ?", eventID).Delete(record).Error; err != nil {
				return fmt.Errorf("failed to delete event children: %w", err)
			}
		}
		res := tx.Where("id = ?", eventID).Delete(&eventRecord{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errdef.NewNotFound("event not found: %s", eventID)
		}
		return nil
	})
}

func (s *Store) CreateEventBlock(ctx context.Context, block *models.EventBlock) error {
	if !block.Start.Before(block.End) {
		return errdef.NewBadRequest("block start must be before end")
	}
	if block.ID == "" {
		block.ID = uuid.New().String()
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&eventRecord{}).Where("id = ?", block.EventID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if count == 0 {
		return errdef.NewNotFound("event not found: %s", block.EventID)
	}
	record := blockRecord{ID: block.ID, EventID: block.EventID, StartsAt: block.Start.UTC(), EndsAt: block.End.UTC()}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert event block: %w", err)
	}
	return nil
}

func (s *Store) RegisterForBlock(ctx context.Context, blockID, memberID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&blockRecord{}).Where("id = ?", blockID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check event block: %w", err)
	}
	if count == 0 {
		return errdef.NewNotFound("event block not found: %s", blockID)
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&registrationRecord{BlockID: blockID, MemberID: memberID}).Error
	if err != nil {
		return fmt.Errorf("failed to register for block: %w", err)
	}
	return nil
}

func (s *Store) ListEventBlocks(ctx context.Context, eventID string) ([]*models.EventBlock, error) {
	var rows []struct {
		ID            string
		EventID       string
		StartsAt      time.Time
		EndsAt        time.Time
		Registrations int
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT b.id, b.event_id, b.starts_at, b.ends_at, COUNT(r.member_id) AS registrations
		FROM event_blocks b
		LEFT JOIN block_registrations r ON r.block_id = b.id
		WHERE b.event_id = ?
		GROUP BY b.id
		ORDER BY b.starts_at`, eventID).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list event blocks: %w", err)
	}
	blocks := make([]*models.EventBlock, len(rows))
	for i, r := range rows {
		blocks[i] = &models.EventBlock{
			ID: r.ID, EventID: r.EventID, Start: r.StartsAt.UTC(), End: r.EndsAt.UTC(),
			Registrations: r.Registrations,
		}
	}
	return blocks, nil
}
