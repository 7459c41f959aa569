package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/boardcal/internal/model"
)

type BoardStore struct {
	db *sql.DB
}

func NewBoardStore(db *sql.DB) *BoardStore {
	return &BoardStore{db: db}
}

const boardCols = `b.id, b.name, (SELECT group_concat(g.group_id) FROM board_groups g WHERE g.board_id = b.id)`

func scanBoard(scanner interface{ Scan(...any) error }) (*model.Board, error) {
	var b model.Board
	var groups sql.NullString
	if err := scanner.Scan(&b.ID, &b.Name, &groups); err != nil {
		return nil, err
	}
	b.Groups = parseIDList(groups.String)
	return &b, nil
}

func (s *BoardStore) Create(name string, groups []int64) (*model.Board, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO boards (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert board: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := replaceGroups(tx, "board_groups", "board_id", id, groups); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *BoardStore) GetByID(id int64) (*model.Board, error) {
	row := s.db.QueryRow(`SELECT `+boardCols+` FROM boards b WHERE b.id = ?`, id)
	b, err := scanBoard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return b, nil
}

func (s *BoardStore) List() ([]model.Board, error) {
	rows, err := s.db.Query(`SELECT ` + boardCols + ` FROM boards b ORDER BY b.id`)
	if err != nil {
		return nil, fmt.Errorf("query boards: %w", err)
	}
	defer rows.Close()

	var boards []model.Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, *b)
	}
	return boards, rows.Err()
}
