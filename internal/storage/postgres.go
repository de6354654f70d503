package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"babyfood-store/internal/models"
)

const (
	cartSchemaSQL = `
CREATE TABLE IF NOT EXISTS carts (
    key        TEXT PRIMARY KEY,
    state      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	cartSelectSQL = `SELECT state FROM carts WHERE key = $1;`
	cartUpsertSQL = `
INSERT INTO carts (key, state, updated_at)
VALUES ($1, $2::jsonb, NOW())
ON CONFLICT (key) DO UPDATE SET
    state = EXCLUDED.state,
    updated_at = NOW();
`
)

// pgxConn es el subconjunto de pgxpool.Pool que usa PostgresStorage
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage guarda el carrito serializado en una columna JSONB
type PostgresStorage struct {
	conn pgxConn
}

// NewPostgresStorage recibe un *pgxpool.Pool (o cualquier conexión compatible)
func NewPostgresStorage(conn pgxConn) *PostgresStorage {
	return &PostgresStorage{conn: conn}
}

// EnsureSchema crea la tabla carts si no existe
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, cartSchemaSQL); err != nil {
		return fmt.Errorf("%w: create carts table: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStorage) Load(ctx context.Context, key string) (models.CartState, bool, error) {
	var data []byte
	err := s.conn.QueryRow(ctx, cartSelectSQL, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CartState{Lines: []models.CartLine{}}, false, nil
		}
		return models.CartState{Lines: []models.CartLine{}}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Decode(data), true, nil
}

func (s *PostgresStorage) Save(ctx context.Context, key string, state models.CartState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if _, err := s.conn.Exec(ctx, cartUpsertSQL, key, string(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
