package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"go-live-feed/internal/domain/change"
	"go-live-feed/internal/infrastructure/feed"
)

// ErrDocumentNotFound is returned when the row is gone by the time it is read.
var ErrDocumentNotFound = errors.New("document not found")

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DocumentReader reads current rows as JSON documents, keyed by entity name.
type DocumentReader struct {
	db     rowQuerier
	tables map[string]string
}

var _ feed.DocumentReader = (*DocumentReader)(nil)

// NewDocumentReader maps each table to its entity name ("plants" serves
// "plant"). db is normally a *pgxpool.Pool.
func NewDocumentReader(db rowQuerier, tables []string) *DocumentReader {
	m := make(map[string]string, len(tables))
	for _, t := range tables {
		m[change.EntityName(t)] = t
	}
	return &DocumentReader{db: db, tables: m}
}

func (r *DocumentReader) FindDocument(ctx context.Context, entity string, id any) (change.Document, error) {
	table, ok := r.tables[entity]
	if !ok {
		return nil, fmt.Errorf("no table watched for entity %q", entity)
	}

	var doc change.Document
	err := r.db.QueryRow(ctx, selectDocumentSQL(table), idText(id)).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %v: %w", entity, id, err)
	}
	return doc, nil
}

// idText renders a document id the way postgres prints it as text. JSON
// numbers arrive as float64, which fmt would print in exponent form.
func idText(id any) string {
	switch v := id.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func selectDocumentSQL(table string) string {
	return "SELECT to_jsonb(t) FROM " + pgx.Identifier{table}.Sanitize() + " AS t WHERE t.id::text = $1"
}
