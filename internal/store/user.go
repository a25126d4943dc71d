package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/chorebridge/internal/model"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

type UserStore struct {
	db   *sql.DB
	cost int
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db, cost: bcrypt.DefaultCost}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.Plan, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, username, display_name, email, plan, created_at`

func (s *UserStore) Create(username, displayName, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("create user: username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	result, err := s.db.Exec(
		`INSERT INTO users (username, display_name, email, password_hash) VALUES (?, ?, ?, ?)`,
		username, displayName, email, string(hash),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(int(id))
}

func (s *UserStore) GetByID(id int) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByAPIToken returns the user owning token, or nil.
func (s *UserStore) GetByAPIToken(token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE api_token = ?`, token)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by api token: %w", err)
	}
	return u, nil
}

// Authenticate checks a username and password.
func (s *UserStore) Authenticate(username, password string) (*model.User, error) {
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE username = ?`, strings.TrimSpace(username)).Scan(&hash)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get password hash: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, strings.TrimSpace(username))
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) SetAPIToken(id int, token string) error {
	if _, err := s.db.Exec(`UPDATE users SET api_token = ? WHERE id = ?`, token, id); err != nil {
		return fmt.Errorf("set api token: %w", err)
	}
	return nil
}

func (s *UserStore) SetPlan(id int, plan string) error {
	if _, err := s.db.Exec(`UPDATE users SET plan = ? WHERE id = ?`, plan, id); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}
