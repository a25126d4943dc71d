package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/chorebridge/internal/model"
)

// ChoreStore keeps each chore as its JSON document, scoped to a circle.
type ChoreStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db, now: time.Now}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var id int
	var doc string
	if err := scanner.Scan(&id, &doc); err != nil {
		return nil, err
	}
	var c model.Chore
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("decode chore %d: %w", id, err)
	}
	c.ID = id
	return &c, nil
}

// numberSubTasks gives sub-tasks without an ID one that is unique within
// the chore.
func numberSubTasks(c *model.Chore) {
	next := 1
	for _, st := range c.SubTasks {
		if st.ID >= next {
			next = st.ID + 1
		}
	}
	for i := range c.SubTasks {
		c.SubTasks[i].ChoreID = c.ID
		if c.SubTasks[i].ID == 0 {
			c.SubTasks[i].ID = next
			next++
		}
	}
}

// Create stores c in the circle and returns it with its new ID.
func (s *ChoreStore) Create(circleID int, c model.Chore) (*model.Chore, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO chores (circle_id) VALUES (?)`, circleID)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	now := s.now().UTC()
	c.ID = int(id)
	c.CircleID = circleID
	c.CreatedAt = now
	c.UpdatedAt = now
	numberSubTasks(&c)

	doc, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode chore: %w", err)
	}
	if _, err := tx.Exec(`UPDATE chores SET doc = ? WHERE id = ?`, string(doc), id); err != nil {
		return nil, fmt.Errorf("store chore: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &c, nil
}

func (s *ChoreStore) Get(circleID, id int) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT id, doc FROM chores WHERE id = ? AND circle_id = ?`, id, circleID)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) List(circleID int) ([]model.Chore, error) {
	rows, err := s.db.Query(`SELECT id, doc FROM chores WHERE circle_id = ? ORDER BY id ASC`, circleID)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// Save replaces the stored document for c and bumps its UpdatedAt.
func (s *ChoreStore) Save(circleID int, c *model.Chore) error {
	c.UpdatedAt = s.now().UTC()
	c.CircleID = circleID
	numberSubTasks(c)
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode chore: %w", err)
	}
	result, err := s.db.Exec(
		`UPDATE chores SET doc = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND circle_id = ?`,
		string(doc), c.ID, circleID,
	)
	if err != nil {
		return fmt.Errorf("update chore: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("update chore %d: %w", c.ID, sql.ErrNoRows)
	}
	return nil
}

// Delete removes the chore and its history. It reports false if there was
// nothing to delete.
func (s *ChoreStore) Delete(circleID, id int) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM chores WHERE id = ? AND circle_id = ?`, id, circleID)
	if err != nil {
		return false, fmt.Errorf("delete chore: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// AddHistory records a completion or skip.
func (s *ChoreStore) AddHistory(rec model.CompletionRecord) (*model.CompletionRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_history (chore_id, completed_by, completed_at, due_date, skipped) VALUES (?, ?, ?, ?, ?)`,
		rec.ChoreID, rec.CompletedBy, formatTime(&rec.CompletedAt), formatTime(rec.DueDate), rec.Skipped,
	)
	if err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = int(id)
	return &rec, nil
}

func (s *ChoreStore) History(choreID int) ([]model.CompletionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, chore_id, completed_by, completed_at, due_date, skipped
		 FROM chore_history WHERE chore_id = ? ORDER BY id ASC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []model.CompletionRecord
	for rows.Next() {
		var rec model.CompletionRecord
		var completedAt string
		var due sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ChoreID, &rec.CompletedBy, &completedAt, &due, &rec.Skipped); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if rec.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt); err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		if due.Valid {
			t, err := time.Parse(time.RFC3339Nano, due.String)
			if err != nil {
				return nil, fmt.Errorf("parse due_date: %w", err)
			}
			rec.DueDate = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
