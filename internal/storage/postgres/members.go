package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/mmynk/signin/internal/errdef"
	"github.com/mmynk/signin/internal/models"
)

func (s *Store) CreateRole(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	record := toRoleRecord(role)
	err := s.db.WithContext(ctx).Create(&record).Error
	if isUniqueViolation(err) {
		return errdef.NewConflict("role %q already exists", role.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert role: %w", err)
	}
	return nil
}

func (s *Store) CreateSubteam(ctx context.Context, subteam *models.Subteam) error {
	if subteam.ID == "" {
		subteam.ID = uuid.New().String()
	}
	err := s.db.WithContext(ctx).Create(&subteamRecord{ID: subteam.ID, Name: subteam.Name}).Error
	if isUniqueViolation(err) {
		return errdef.NewConflict("subteam %q already exists", subteam.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert subteam: %w", err)
	}
	return nil
}

func (s *Store) CreateMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.Code == "" {
		member.Code = models.NewPresenceCode()
	}
	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now().UTC()
	}

	record := toMemberRecord(member)
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&record).Error
	if isUniqueViolation(err) {
		return errdef.NewConflict("member %q or its code already exists", member.Name)
	}
	if isForeignKeyViolation(err) {
		return errdef.NewNotFound("role %s or subteam %q not found", member.RoleID, member.SubteamID)
	}
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

func (s *Store) ApproveMember(ctx context.Context, memberID string) error {
	res := s.db.WithContext(ctx).Model(&memberRecord{}).Where("id = ?", memberID).Update("approved", true)
	if res.Error != nil {
		return fmt.Errorf("failed to approve member: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errdef.NewNotFound("member not found: %s", memberID)
	}
	return nil
}

func (s *Store) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	return s.findMember(ctx, "id = ?", memberID)
}

func (s *Store) GetMemberByCode(ctx context.Context, code string) (*models.Member, error) {
	return s.findMember(ctx, "code = ?", code)
}

func (s *Store) findMember(ctx context.Context, query string, arg string) (*models.Member, error) {
	var record memberRecord
	err := s.db.WithContext(ctx).Preload("Role").Preload("Subteam").Where(query, arg).Take(&record).Error
	if isNotFound(err) {
		return nil, errdef.NewNotFound("member not found: %s", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return record.toModel(), nil
}

func (s *Store) ListMembers(ctx context.Context) ([]*models.Member, error) {
	var records []memberRecord
	err := s.db.WithContext(ctx).Preload("Role").Preload("Subteam").Order("name").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	members := make([]*models.Member, len(records))
	for i, r := range records {
		members[i] = r.toModel()
	}
	return members, nil
}
