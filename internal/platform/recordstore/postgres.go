package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Firestore caps write batches at 500 mutations; the Postgres store keeps the
// same ceiling so fan-out code chunks identically against both backends.
const defaultMaxBatchSize = 500

// Postgres stores each document as one row in the documents table, with its
// fields held in a JSONB column.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Get(ctx context.Context, collection, key string) (Fields, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
    SELECT fields
    FROM documents
    WHERE collection = $1 AND key = $2
  `, collection, key).Scan(&raw)
	if err != nil {
		return nil, classify(err)
	}

	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
	}
	return fields, nil
}

func (s *Postgres) Put(ctx context.Context, collection, key string, fields Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, key, err)
	}
	_, err = s.pool.Exec(ctx, `
    INSERT INTO documents (collection, key, fields, updated_at)
    VALUES ($1, $2, $3, now())
    ON CONFLICT (collection, key) DO UPDATE
    SET fields = EXCLUDED.fields, updated_at = now()
  `, collection, key, raw)
	return classify(err)
}

func (s *Postgres) Delete(ctx context.Context, collection, key string) error {
	_, err := s.pool.Exec(ctx, `
    DELETE FROM documents
    WHERE collection = $1 AND key = $2
  `, collection, key)
	return classify(err)
}

func (s *Postgres) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
    SELECT key, fields
    FROM documents
    WHERE collection = $1
    ORDER BY key
  `, collection)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, classify(err)
		}
		var fields Fields
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
		}
		docs = append(docs, Document{Key: key, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return docs, nil
}

func (s *Postgres) NewBatch() Batch {
	return &pgBatch{store: s}
}

func (s *Postgres) MaxBatchSize() int {
	return defaultMaxBatchSize
}

type mutation struct {
	collection string
	key        string
	fields     Fields
	delete     bool
}

type pgBatch struct {
	store     *Postgres
	mutations []mutation
}

func (b *pgBatch) Update(collection, key string, fields Fields) {
	b.mutations = append(b.mutations, mutation{collection: collection, key: key, fields: Clone(fields)})
}

func (b *pgBatch) Delete(collection, key string) {
	b.mutations = append(b.mutations, mutation{collection: collection, key: key, delete: true})
}

func (b *pgBatch) Len() int {
	return len(b.mutations)
}

func (b *pgBatch) Commit(ctx context.Context) error {
	if len(b.mutations) == 0 {
		return nil
	}

	tx, err := b.store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback(ctx)

	for _, m := range b.mutations {
		if m.delete {
			if _, err := tx.Exec(ctx, `
        DELETE FROM documents
        WHERE collection = $1 AND key = $2
      `, m.collection, m.key); err != nil {
				return classify(err)
			}
			continue
		}

		raw, err := json.Marshal(m.fields)
		if err != nil {
			return fmt.Errorf("encode document %s/%s: %w", m.collection, m.key, err)
		}
		// JSONB || merges patch fields over the stored document.
		if _, err := tx.Exec(ctx, `
      INSERT INTO documents (collection, key, fields, updated_at)
      VALUES ($1, $2, $3, now())
      ON CONFLICT (collection, key) DO UPDATE
      SET fields = documents.fields || EXCLUDED.fields, updated_at = now()
    `, m.collection, m.key, raw); err != nil {
			return classify(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			// connection failures, transaction rollbacks, operator shutdown
			case "08", "40", "57":
				return &TransientError{Err: err}
			}
		}
		return err
	}
	// anything without a Postgres error code is assumed to be a network hiccup
	return &TransientError{Err: err}
}
