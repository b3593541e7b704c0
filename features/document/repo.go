package document

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PageSize is the fixed page size for document listings.
const PageSize = 100

// Summary is the listing projection: no section bodies, just identity.
type Summary struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

type Repository interface {
	Insert(ctx context.Context, doc *Document) (string, error)
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, page int) ([]Summary, error)
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Insert persists the document and returns the store-assigned id. The id is
// also written back onto the document.
func (r *PostgresRepo) Insert(ctx context.Context, doc *Document) (string, error) {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return "", err
	}
	query := `INSERT INTO documents (url, data) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, doc.URL, data).Scan(&doc.ID); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	doc := &Document{}
	var data []byte
	query := `SELECT id, url, data FROM documents WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&doc.ID, &doc.URL, &data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &doc.Data); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *PostgresRepo) List(ctx context.Context, page int) ([]Summary, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * PageSize

	query := `SELECT id, url, COALESCE(data->>'title', '') FROM documents ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, PageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Summary
	for rows.Next() {
		var d Summary
		if err := rows.Scan(&d.ID, &d.URL, &d.Title); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM documents`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
