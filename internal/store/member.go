package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/docket-app/docket/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, firm_id, name, email, role, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.FirmMember, error) {
	var m model.FirmMember
	err := scanner.Scan(&m.ID, &m.FirmID, &m.Name, &m.Email, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MemberStore) Create(m *model.FirmMember) (*model.FirmMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO firm_members (firm_id, name, email, role) VALUES (?, ?, ?, ?)`,
		m.FirmID, m.Name, m.Email, m.Role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert firm member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) GetByID(id int64) (*model.FirmMember, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM firm_members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query firm member: %w", err)
	}
	return m, nil
}

func (s *MemberStore) List(firmID int64) ([]model.FirmMember, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM firm_members WHERE firm_id = ? ORDER BY name ASC`, firmID,
	)
	if err != nil {
		return nil, fmt.Errorf("list firm members: %w", err)
	}
	defer rows.Close()

	var members []model.FirmMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan firm member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// ListByIDs resolves a set of member ids, silently skipping unknown ids.
func (s *MemberStore) ListByIDs(ids []int64) ([]model.FirmMember, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM firm_members WHERE id IN (`+placeholders+`) ORDER BY id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list firm members by ids: %w", err)
	}
	defer rows.Close()

	var members []model.FirmMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan firm member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM firm_members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete firm member: %w", err)
	}
	return nil
}
