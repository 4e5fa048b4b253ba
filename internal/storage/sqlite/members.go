package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/signin/internal/errdef"
	"github.com/mmynk/signin/internal/models"
)

const memberColumns = `
	m.id, m.name, m.display_name, m.code, m.approved, m.role_id,
	COALESCE(m.subteam_id, ''), m.created_at,
	r.name, r.admin, r.mentor, r.can_display, r.autoload, r.can_see_subteam,
	r.receives_funds, r.visible,
	COALESCE(s.name, '')
FROM members m
JOIN roles r ON r.id = m.role_id
LEFT JOIN subteams s ON s.id = m.subteam_id`

// CreateRole inserts a new role.
func (s *SQLiteStore) CreateRole(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	c := role.Capabilities
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, admin, mentor, can_display, autoload, can_see_subteam, receives_funds, visible)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		role.ID, role.Name, c.Admin, c.Mentor, c.CanDisplay, c.Autoload, c.CanSeeSubteam, c.ReceivesFunds, c.Visible,
	)
	if isUniqueViolation(err) {
		return errdef.NewConflict("role %q already exists", role.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert role: %w", err)
	}
	return nil
}

// CreateSubteam inserts a new subteam.
func (s *SQLiteStore) CreateSubteam(ctx context.Context, subteam *models.Subteam) error {
	if subteam.ID == "" {
		subteam.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO subteams (id, name) VALUES (?, ?)", subteam.ID, subteam.Name)
	if isUniqueViolation(err) {
		return errdef.NewConflict("subteam %q already exists", subteam.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert subteam: %w", err)
	}
	return nil
}

// CreateMember inserts a new member into the database.
func (s *SQLiteStore) CreateMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.Code == "" {
		member.Code = models.NewPresenceCode()
	}
	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, name, display_name, code, approved, role_id, subteam_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID, member.Name, member.DisplayName, member.Code, member.Approved,
		member.RoleID, nullable(member.SubteamID), toMillis(member.CreatedAt),
	)
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

// ApproveMember marks a member as approved.
func (s *SQLiteStore) ApproveMember(ctx context.Context, memberID string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE members SET approved = 1 WHERE id = ?", memberID)
	if err != nil {
		return fmt.Errorf("failed to approve member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to approve member: %w", err)
	}
	if n == 0 {
		return errdef.NewNotFound("member not found: %s", memberID)
	}
	return nil
}

// GetMember retrieves a member by ID.
func (s *SQLiteStore) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+memberColumns+" WHERE m.id = ?", memberID)
	member, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, errdef.NewNotFound("member not found: %s", memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// GetMemberByCode retrieves a member by presence code.
func (s *SQLiteStore) GetMemberByCode(ctx context.Context, code string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+memberColumns+" WHERE m.code = ?", code)
	member, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, errdef.NewNotFound("no member with code %q", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member by code: %w", err)
	}
	return member, nil
}

// ListMembers retrieves all members ordered by name.
func (s *SQLiteStore) ListMembers(ctx context.Context) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT"+memberColumns+" ORDER BY m.name")
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*models.Member, error) {
	m := &models.Member{}
	var createdAt int64
	var subteamName string
	c := &m.Role.Capabilities
	err := row.Scan(
		&m.ID, &m.Name, &m.DisplayName, &m.Code, &m.Approved, &m.RoleID,
		&m.SubteamID, &createdAt,
		&m.Role.Name, &c.Admin, &c.Mentor, &c.CanDisplay, &c.Autoload, &c.CanSeeSubteam,
		&c.ReceivesFunds, &c.Visible,
		&subteamName,
	)
	if err != nil {
		return nil, err
	}
	m.Role.ID = m.RoleID
	m.CreatedAt = fromMillis(createdAt)
	if m.SubteamID != "" {
		m.Subteam = &models.Subteam{ID: m.SubteamID, Name: subteamName}
	}
	return m, nil
}
