package main

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinel store errors. Handlers map these to the external vocabulary.
var (
	ErrEmailTaken   = errors.New("email already taken")
	ErrUserNotFound = errors.New("user not found")
)

// Store is the user persistence interface. Emails are stored lowercased;
// uniqueness is enforced at this level.
type Store interface {
	CreateUser(ctx context.Context, email, username, passwordHash string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpdateUserRole(ctx context.Context, email, role string) (*User, error)
}

// Memory store, used by tests and DB_ADAPTER=memory.
type MemDB struct {
	mu      sync.Mutex
	byEmail map[string]*User
	byID    map[string]*User
}

func NewMemoryDB() *MemDB {
	return &MemDB{byEmail: map[string]*User{}, byID: map[string]*User{}}
}

func (m *MemDB) CreateUser(ctx context.Context, email, username, passwordHash string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	if _, ok := m.byEmail[email]; ok {
		return nil, ErrEmailTaken
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	m.byEmail[email] = u
	m.byID[u.ID] = u
	copied := *u
	return &copied, nil
}

func (m *MemDB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *MemDB) GetUserByID(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *MemDB) UpdateUserRole(ctx context.Context, email, role string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Role = role
	copied := *u
	return &copied, nil
}

func (m *MemDB) close() error { return nil }
func (m *MemDB) ping() bool   { return true }

// SQLite store.
type SQLiteDB struct {
	db   *sql.DB
	path string
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteDB{db: d, path: path}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDB) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteDB) CreateUser(ctx context.Context, email, username, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id,username,email,password_hash,role,created_at) VALUES(?,?,?,?,?,?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (s *SQLiteDB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,username,email,password_hash,role,created_at FROM users WHERE email = ?`,
		strings.ToLower(email))
	return scanSQLiteUser(row)
}

func (s *SQLiteDB) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,username,email,password_hash,role,created_at FROM users WHERE id = ?`, id)
	return scanSQLiteUser(row)
}

func (s *SQLiteDB) UpdateUserRole(ctx context.Context, email, role string) (*User, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE email = ?`, role, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetUserByEmail(ctx, email)
}

func scanSQLiteUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		u.CreatedAt = t
	}
	return &u, nil
}

func (s *SQLiteDB) close() error { return s.db.Close() }
func (s *SQLiteDB) ping() bool   { return s.db.Ping() == nil }
