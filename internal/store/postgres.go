package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const documentsTable = "documents"

// Postgres stores every collection in the documents table as jsonb.
type Postgres struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type documentRow struct {
	ID        string    `db:"id"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
}

func (p *Postgres) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	if collection == "" {
		return "", ErrInvalidCollection
	}
	data, err := json.Marshal(dataFields(doc))
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", collection, err)
	}
	id := uuid.NewString()
	query, args, err := p.builder.
		Insert(documentsTable).
		Columns("id", "collection", "data", "created_at").
		Values(id, collection, string(data), createdAt(doc, utcNow)).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

func (p *Postgres) Query(ctx context.Context, collection string, filter Filter, limit int) ([]Document, error) {
	query, args, err := p.selectQuery(collection, filter, limit)
	if err != nil {
		return nil, err
	}
	rows := []documentRow{}
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	items := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc := Document{}
		if err := json.Unmarshal(row.Data, &doc); err != nil {
			return nil, fmt.Errorf("decode %s document %s: %w", collection, row.ID, err)
		}
		doc[FieldID] = row.ID
		doc[FieldCreatedAt] = row.CreatedAt.UTC()
		items = append(items, doc)
	}
	return items, nil
}

func (p *Postgres) selectQuery(collection string, filter Filter, limit int) (string, []interface{}, error) {
	if collection == "" {
		return "", nil, ErrInvalidCollection
	}
	q := p.builder.
		Select("id", "data", "created_at").
		From(documentsTable).
		Where(sq.Eq{"collection": collection})
	if len(filter) > 0 {
		raw, err := json.Marshal(filter)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter: %w", err)
		}
		q = q.Where("data @> ?::jsonb", string(raw))
	}
	q = q.OrderBy("created_at DESC", "seq DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q.ToSql()
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
