package registry_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"landregistry/internal/core/apperror"
	"landregistry/internal/domain/transfer"
	"landregistry/internal/infrastructure/storage/postgres"
)

const transferTable = "transfers"

// TransferRepo implements transfer.Repository.
type TransferRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewTransferRepo creates the transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[transfer.Transfer](),
	}
}

// Insert writes a new transfer row.
func (r *TransferRepo) Insert(ctx context.Context, t *transfer.Transfer) error {
	q := qb.Insert(transferTable).SetMap(postgres.StructToMap(t))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("transfer", "transfer_id", t.TransferID)
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// FindByTransferID retrieves one transfer by its token.
func (r *TransferRepo) FindByTransferID(ctx context.Context, transferID string) (*transfer.Transfer, error) {
	q := qb.Select(r.columns...).
		From(transferTable).
		Where(squirrel.Eq{"transfer_id": transferID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t transfer.Transfer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transfer", transferID)
		}
		return nil, fmt.Errorf("find by transfer id: %w", err)
	}
	return &t, nil
}

// FindPendingByTitle returns the open transfer for a title, newest first in
// case historical rows ever violate the one-open-transfer rule.
func (r *TransferRepo) FindPendingByTitle(ctx context.Context, titleNumber string) (*transfer.Transfer, error) {
	q := qb.Select(r.columns...).
		From(transferTable).
		Where(squirrel.Eq{"title_number": titleNumber, "status": transfer.StatusPending}).
		OrderBy("created_at DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t transfer.Transfer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("pending transfer", titleNumber)
		}
		return nil, fmt.Errorf("find pending by title: %w", err)
	}
	return &t, nil
}

// Complete transitions PENDING to COMPLETED conditionally and reports whether
// this call won the transition.
func (r *TransferRepo) Complete(ctx context.Context, transferID string, at time.Time) (bool, error) {
	q := qb.Update(transferTable).
		Set("status", transfer.StatusCompleted).
		Set("completed_at", at).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"transfer_id": transferID, "status": transfer.StatusPending})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("complete transfer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetBlockchainHash stores the joined pair of ledger hashes.
func (r *TransferRepo) SetBlockchainHash(ctx context.Context, transferID, hash string) error {
	q := qb.Update(transferTable).
		Set("blockchain_hash", hash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"transfer_id": transferID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("set blockchain hash: %w", err)
	}
	return nil
}
