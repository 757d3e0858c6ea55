package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/knowledgerelay/relay/internal/service"
)

// VectorRepository implements per-collection vector persistence and
// similarity search on pgvector.
type VectorRepository struct {
	pool *pgxpool.Pool
}

func NewVectorRepository(pool *pgxpool.Pool) *VectorRepository {
	return &VectorRepository{pool: pool}
}

// Upsert writes each record into the collection, replacing any record that
// already carries the same vector id.
func (r *VectorRepository) Upsert(ctx context.Context, collection string, records []service.VectorRecord) error {
	for _, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", rec.ID, err)
		}

		_, err = r.pool.Exec(ctx,
			`INSERT INTO vector_entries (collection, vector_id, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (collection, vector_id)
			 DO UPDATE SET content = EXCLUDED.content,
			               metadata = EXCLUDED.metadata,
			               embedding = EXCLUDED.embedding`,
			collection,
			rec.ID,
			rec.Content,
			meta,
			pgvector.NewVector(rec.Embedding),
		)
		if err != nil {
			return fmt.Errorf("upsert vector %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Search returns the closest records to the query vector by cosine
// distance, best first.
func (r *VectorRepository) Search(ctx context.Context, collection string, query []float32, limit int) ([]service.VectorHit, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.pool.Query(ctx,
		`SELECT vector_id, content, metadata,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM vector_entries
		 WHERE collection = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(query), collection, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]service.VectorHit, 0, limit)
	for rows.Next() {
		var hit service.VectorHit
		var meta []byte
		if err := rows.Scan(&hit.ID, &hit.Content, &meta, &hit.Score); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &hit.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for %s: %w", hit.ID, err)
			}
		}
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// DeleteByIDs removes the given vector ids from the collection. Missing ids
// are ignored.
func (r *VectorRepository) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`DELETE FROM vector_entries WHERE collection = $1 AND vector_id = ANY($2)`,
		collection, ids,
	)
	return err
}

// SchemaDimensions reports the dimension of the embedding column. The
// column is fixed by migration, so a mismatched embedding model can be
// rejected at startup instead of failing on the first upsert.
func (r *VectorRepository) SchemaDimensions(ctx context.Context) (int, error) {
	var dims int
	err := r.pool.QueryRow(ctx,
		`SELECT atttypmod
		 FROM pg_attribute
		 WHERE attrelid = 'vector_entries'::regclass AND attname = 'embedding'`,
	).Scan(&dims)
	if err != nil {
		return 0, fmt.Errorf("read embedding column dimensions: %w", err)
	}
	return dims, nil
}

// DeleteCollection removes every record in the collection.
func (r *VectorRepository) DeleteCollection(ctx context.Context, collection string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM vector_entries WHERE collection = $1`,
		collection,
	)
	return err
}

var _ service.VectorStore = (*VectorRepository)(nil)
