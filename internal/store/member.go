package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/boardcal/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `m.id, m.name, m.birthdate, m.timezone, m.is_admin, m.can_edit_any, m.can_edit_own, m.can_post,
	m.token_hash IS NOT NULL,
	(SELECT group_concat(g.group_id) FROM member_groups g WHERE g.member_id = m.id)`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	var birthdate, tz, groups sql.NullString

	err := scanner.Scan(
		&m.ID, &m.Name, &birthdate, &tz, &m.IsAdmin, &m.CanEditAny, &m.CanEditOwn, &m.CanPost,
		&m.HasToken, &groups,
	)
	if err != nil {
		return nil, err
	}

	m.Birthdate = birthdate.String
	m.Timezone = tz.String
	m.Groups = parseIDList(groups.String)
	return &m, nil
}

func (s *MemberStore) Create(m model.Member) (*model.Member, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO members (name, birthdate, timezone, is_admin, can_edit_any, can_edit_own, can_post)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Name, nullIfEmpty(m.Birthdate), nullIfEmpty(m.Timezone), m.IsAdmin, m.CanEditAny, m.CanEditOwn, m.CanPost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := replaceGroups(tx, "member_groups", "member_id", id, m.Groups); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members m WHERE m.id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// ListWithBirthdays returns members that have a birthdate on file.
func (s *MemberStore) ListWithBirthdays() ([]model.Member, error) {
	rows, err := s.db.Query(
		`SELECT ` + memberCols + ` FROM members m
		 WHERE m.birthdate IS NOT NULL AND m.birthdate != ''
		 ORDER BY m.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("query birthdays: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) SetGroups(id int64, groups []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceGroups(tx, "member_groups", "member_id", id, groups); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *MemberStore) SetTokenHash(id int64, hash string) error {
	_, err := s.db.Exec(`UPDATE members SET token_hash = ? WHERE id = ?`, nullIfEmpty(hash), id)
	if err != nil {
		return fmt.Errorf("set token hash: %w", err)
	}
	return nil
}

// TokenHash returns the stored API token hash, or "" if the member has
// none or does not exist.
func (s *MemberStore) TokenHash(id int64) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT token_hash FROM members WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get token hash: %w", err)
	}
	return hash.String, nil
}
