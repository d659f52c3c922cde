package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Postgres keeps principals in the principals table with bcrypt secret hashes.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Principal(ctx context.Context, id string) (*Principal, error) {
	return p.scanOne(ctx, `
    SELECT id, email, display_name, created_at
    FROM principals
    WHERE id = $1
  `, id)
}

func (p *Postgres) PrincipalByEmail(ctx context.Context, email string) (*Principal, error) {
	return p.scanOne(ctx, `
    SELECT id, email, display_name, created_at
    FROM principals
    WHERE email = $1
  `, email)
}

func (p *Postgres) scanOne(ctx context.Context, query string, arg any) (*Principal, error) {
	var principal Principal
	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&principal.ID,
		&principal.Email,
		&principal.DisplayName,
		&principal.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &principal, nil
}

func (p *Postgres) Create(ctx context.Context, email, displayName, secret string) (*Principal, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	principal := &Principal{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = p.pool.Exec(ctx, `
    INSERT INTO principals (id, email, display_name, secret_hash, created_at)
    VALUES ($1, $2, $3, $4, $5)
  `, principal.ID, principal.Email, principal.DisplayName, string(hash), principal.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return principal, nil
}

func (p *Postgres) Reverify(ctx context.Context, email, secret string) (bool, error) {
	var hash string
	err := p.pool.QueryRow(ctx, `
    SELECT secret_hash
    FROM principals
    WHERE email = $1
  `, email).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return false, nil
	}
	return true, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `
    DELETE FROM principals
    WHERE id = $1
  `, id)
	return err
}
