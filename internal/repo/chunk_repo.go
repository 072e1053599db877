package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/compbot/internal/model"
	"github.com/xxxsen/compbot/internal/pkg/dbutil"
)

const chunkTable = "doc_chunks"

// ChunkRepo persists chunk embeddings in Postgres/pgvector. Inserting with
// a colliding id overwrites the prior row (last write wins) — that is the
// contract, not an accident; see SaveBatch.
type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// SaveBatch upserts all entries inside one transaction: either the whole
// batch lands or the table is untouched.
func (r *ChunkRepo) SaveBatch(ctx context.Context, entries []*model.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	const query = `
		INSERT INTO doc_chunks (id, document_name, ordinal, content, embedding, metadata, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			document_name = EXCLUDED.document_name,
			ordinal = EXCLUDED.ordinal,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			ctime = EXCLUDED.ctime
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, entry := range entries {
		meta, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			entry.ID,
			entry.DocumentName,
			entry.Ordinal,
			entry.Text,
			pgvector.NewVector(entry.Embedding),
			meta,
			entry.Ctime,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search returns the topK nearest chunks by cosine distance, closest first.
// An empty table yields an empty slice.
func (r *ChunkRepo) Search(ctx context.Context, vec []float32, topK int) ([]*model.RetrievalResult, error) {
	const query = `
		SELECT content, document_name, metadata, (embedding <=> $1)::float8 AS distance
		FROM doc_chunks
		ORDER BY embedding <=> $1 ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(vec), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []*model.RetrievalResult
	for rows.Next() {
		var item model.RetrievalResult
		var meta []byte
		if err := rows.Scan(&item.Text, &item.DocumentName, &meta, &item.Distance); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &item.Metadata); err != nil {
				return nil, err
			}
		}
		results = append(results, &item)
	}
	return results, rows.Err()
}

func (r *ChunkRepo) Count(ctx context.Context) (int64, error) {
	sqlStr, args, err := builder.BuildSelect(chunkTable, nil, []string{"count(*)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ChunkRepo) SourceCount(ctx context.Context) (int64, error) {
	sqlStr, args, err := builder.BuildSelect(chunkTable, nil, []string{"count(distinct document_name)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentName string) (int64, error) {
	where := map[string]interface{}{
		"document_name": documentName,
	}
	sqlStr, args, err := builder.BuildDelete(chunkTable, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Clear drops every entry, resetting the index for a full reingest.
func (r *ChunkRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `TRUNCATE TABLE doc_chunks`)
	return err
}
