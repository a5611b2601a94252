// Package document_repo implements the document service's persistence.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"landregistry/internal/domain/document"
	"landregistry/internal/infrastructure/storage/postgres"
)

const documentTable = "documents"

var qb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// DocumentRepo implements document.Repository.
type DocumentRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewDocumentRepo creates the document repository.
func NewDocumentRepo(txManager *postgres.TxManager) *DocumentRepo {
	return &DocumentRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[document.Document](),
	}
}

// InsertBatch writes all document rows in one statement.
func (r *DocumentRepo) InsertBatch(ctx context.Context, docs []*document.Document) error {
	if len(docs) == 0 {
		return nil
	}

	q := qb.Insert(documentTable).Columns(r.columns...)
	for _, d := range docs {
		m := postgres.StructToMap(d)
		vals := make([]any, 0, len(r.columns))
		for _, col := range r.columns {
			vals = append(vals, m[col])
		}
		q = q.Values(vals...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert documents: %w", err)
	}
	return nil
}

// FindByTransactionID returns every document written by one saga transaction.
func (r *DocumentRepo) FindByTransactionID(ctx context.Context, transactionID string) ([]*document.Document, error) {
	q := qb.Select(r.columns...).
		From(documentTable).
		Where(squirrel.Eq{"transaction_id": transactionID}).
		OrderBy("created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var docs []*document.Document
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("find by transaction id: %w", err)
	}
	return docs, nil
}

// DeleteByLandTitle removes every document of a rolled-back title.
func (r *DocumentRepo) DeleteByLandTitle(ctx context.Context, landTitleID string) (int64, error) {
	q := qb.Delete(documentTable).Where(squirrel.Eq{"land_title_id": landTitleID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete by land title: %w", err)
	}
	return tag.RowsAffected(), nil
}
