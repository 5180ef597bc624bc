package main

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresDB struct {
	db  *sql.DB
	dsn string
}

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := &PostgresDB{db: d, dsn: dsn}
	// tables come from migrations; just verify connectivity
	if err := d.Ping(); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresDB) CreateUser(ctx context.Context, email, username, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Role:         RoleUser,
	}
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO users(id,username,email,password_hash,role,created_at)
		 VALUES($1,$2,$3,$4,$5,now()) RETURNING created_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role).Scan(&u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id,username,email,password_hash,role,created_at FROM users WHERE email = $1`,
		strings.ToLower(email))
	return scanPostgresUser(row)
}

func (p *PostgresDB) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id,username,email,password_hash,role,created_at FROM users WHERE id = $1`, id)
	return scanPostgresUser(row)
}

func (p *PostgresDB) UpdateUserRole(ctx context.Context, email, role string) (*User, error) {
	row := p.db.QueryRowContext(ctx,
		`UPDATE users SET role = $1 WHERE email = $2
		 RETURNING id,username,email,password_hash,role,created_at`,
		role, strings.ToLower(email))
	u, err := scanPostgresUser(row)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanPostgresUser(row *sql.Row) (*User, error) {
	var u User
	var created time.Time
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.CreatedAt = created
	return &u, nil
}

func (p *PostgresDB) close() error { return p.db.Close() }
func (p *PostgresDB) ping() bool   { return p.db.Ping() == nil }
