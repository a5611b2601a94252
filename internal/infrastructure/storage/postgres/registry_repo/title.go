// Package registry_repo implements the registry service's persistence:
// land titles and transfers.
package registry_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"landregistry/internal/core/apperror"
	"landregistry/internal/core/id"
	"landregistry/internal/domain/title"
	"landregistry/internal/infrastructure/storage/postgres"
)

const titleTable = "land_titles"

var qb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// TitleRepo implements title.Repository.
type TitleRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewTitleRepo creates the land-title repository.
func NewTitleRepo(txManager *postgres.TxManager) *TitleRepo {
	return &TitleRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[title.LandTitle](),
	}
}

// Insert writes a new title row.
func (r *TitleRepo) Insert(ctx context.Context, t *title.LandTitle) error {
	q := qb.Insert(titleTable).SetMap(postgres.StructToMap(t))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("land title", "title_number", t.TitleNumber)
		}
		return fmt.Errorf("insert land title: %w", err)
	}
	return nil
}

// FindByTitleNumber retrieves one title by its business key.
func (r *TitleRepo) FindByTitleNumber(ctx context.Context, titleNumber string) (*title.LandTitle, error) {
	q := qb.Select(r.columns...).
		From(titleTable).
		Where(squirrel.Eq{"title_number": titleNumber}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t title.LandTitle
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("land title", titleNumber)
		}
		return nil, fmt.Errorf("find by title number: %w", err)
	}
	return &t, nil
}

// List returns a page of titles ordered by creation time, newest first.
func (r *TitleRepo) List(ctx context.Context, limit, offset int) ([]*title.LandTitle, error) {
	q := qb.Select(r.columns...).
		From(titleTable).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var titles []*title.LandTitle
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &titles, sql, args...); err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	return titles, nil
}

// UpdateStatus applies the transition only when the row still holds the
// expected prior status. The affected-rows count tells the caller whether it
// won or lost the race against a concurrent message.
func (r *TitleRepo) UpdateStatus(ctx context.Context, titleNumber string, from, to title.Status) (bool, error) {
	q := qb.Update(titleTable).
		Set("status", to).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"title_number": titleNumber, "status": from})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetStatus overwrites the status unconditionally. Used only for the
// compensating revert after a ledger failure.
func (r *TitleRepo) SetStatus(ctx context.Context, titleNumber string, to title.Status) error {
	q := qb.Update(titleTable).
		Set("status", to).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"title_number": titleNumber})

	return r.exec(ctx, q, "set status")
}

// SetBlockchainHash stores the first-activation ledger hash.
func (r *TitleRepo) SetBlockchainHash(ctx context.Context, titleNumber, hash string) error {
	q := qb.Update(titleTable).
		Set("blockchain_hash", hash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"title_number": titleNumber})

	return r.exec(ctx, q, "set blockchain hash")
}

// SetCancellation stores the cancellation hash and timestamp.
func (r *TitleRepo) SetCancellation(ctx context.Context, titleNumber, hash string, at time.Time) error {
	q := qb.Update(titleTable).
		Set("cancellation_hash", hash).
		Set("cancelled_at", at).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"title_number": titleNumber})

	return r.exec(ctx, q, "set cancellation")
}

// SetReactivationHash stores the reactivation ledger hash.
func (r *TitleRepo) SetReactivationHash(ctx context.Context, titleNumber, hash string) error {
	q := qb.Update(titleTable).
		Set("reactivation_hash", hash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"title_number": titleNumber})

	return r.exec(ctx, q, "set reactivation hash")
}

// SetOwner replaces the owner fields on transfer completion.
func (r *TitleRepo) SetOwner(ctx context.Context, titleNumber, name, address, contact string) error {
	q := qb.Update(titleTable).
		Set("owner_name", name).
		Set("owner_address", address).
		Set("owner_contact", contact).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"title_number": titleNumber})

	return r.exec(ctx, q, "set owner")
}

// DeleteByID removes a title row and reports whether one existed.
func (r *TitleRepo) DeleteByID(ctx context.Context, titleID id.ID) (bool, error) {
	q := qb.Delete(titleTable).Where(squirrel.Eq{"id": titleID})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("delete title: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TitleRepo) exec(ctx context.Context, q squirrel.UpdateBuilder, op string) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
