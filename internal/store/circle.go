package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorebridge/internal/model"
)

type CircleStore struct {
	db *sql.DB
}

func NewCircleStore(db *sql.DB) *CircleStore {
	return &CircleStore{db: db}
}

func (s *CircleStore) Create(name string) (int, error) {
	result, err := s.db.Exec(`INSERT INTO circles (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert circle: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return int(id), nil
}

func (s *CircleStore) AddMember(circleID, userID int, role string) error {
	_, err := s.db.Exec(
		`INSERT INTO circle_members (circle_id, user_id, role) VALUES (?, ?, ?)`,
		circleID, userID, role,
	)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// CircleForUser returns the user's circle and role. The circle is 0 when the
// user belongs to none.
func (s *CircleStore) CircleForUser(userID int) (int, string, error) {
	var circleID int
	var role string
	err := s.db.QueryRow(
		`SELECT circle_id, role FROM circle_members WHERE user_id = ? AND is_active = 1 ORDER BY id LIMIT 1`,
		userID,
	).Scan(&circleID, &role)
	if err == sql.ErrNoRows {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("get circle for user: %w", err)
	}
	return circleID, role, nil
}

func (s *CircleStore) IsMember(circleID, userID int) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM circle_members WHERE circle_id = ? AND user_id = ? AND is_active = 1`,
		circleID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check member: %w", err)
	}
	return n > 0, nil
}

func (s *CircleStore) Members(circleID int) ([]model.CircleMember, error) {
	rows, err := s.db.Query(
		`SELECT cm.id, cm.user_id, cm.circle_id, u.display_name, u.username, u.email, cm.role, cm.is_active
		 FROM circle_members cm
		 JOIN users u ON u.id = cm.user_id
		 WHERE cm.circle_id = ?
		 ORDER BY cm.id ASC`,
		circleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.CircleMember
	for rows.Next() {
		var m model.CircleMember
		if err := rows.Scan(&m.ID, &m.UserID, &m.CircleID, &m.DisplayName, &m.Username, &m.Email, &m.Role, &m.IsActive); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
