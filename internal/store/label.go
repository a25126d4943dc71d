package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/chorebridge/internal/model"
)

type LabelStore struct {
	db *sql.DB
}

func NewLabelStore(db *sql.DB) *LabelStore {
	return &LabelStore{db: db}
}

func (s *LabelStore) Create(circleID int, name, color string, createdBy int) (*model.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("create label: name is required")
	}
	result, err := s.db.Exec(
		`INSERT INTO labels (circle_id, name, color, created_by) VALUES (?, ?, ?, ?)`,
		circleID, name, color, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert label: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.Label{ID: int(id), Name: name, Color: color, CreatedBy: createdBy}, nil
}

func (s *LabelStore) List(circleID int) ([]model.Label, error) {
	rows, err := s.db.Query(
		`SELECT id, name, color, created_by FROM labels WHERE circle_id = ? ORDER BY name ASC`,
		circleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var labels []model.Label
	for rows.Next() {
		var l model.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}
