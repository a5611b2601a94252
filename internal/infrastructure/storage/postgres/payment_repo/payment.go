// Package payment_repo implements the payment service's persistence.
package payment_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"landregistry/internal/core/apperror"
	"landregistry/internal/domain/payment"
	"landregistry/internal/infrastructure/storage/postgres"
)

const paymentTable = "payments"

var qb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PaymentRepo implements payment.Repository.
type PaymentRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewPaymentRepo creates the payment repository.
func NewPaymentRepo(txManager *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[payment.Payment](),
	}
}

// Insert writes a new payment row.
func (r *PaymentRepo) Insert(ctx context.Context, p *payment.Payment) error {
	q := qb.Insert(paymentTable).SetMap(postgres.StructToMap(p))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("payment", "payment_id", p.PaymentID)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// FindByPaymentID retrieves one payment by its token.
func (r *PaymentRepo) FindByPaymentID(ctx context.Context, paymentID string) (*payment.Payment, error) {
	return r.findOne(ctx, squirrel.Eq{"payment_id": paymentID}, paymentID, "")
}

// FindPendingByReference returns the PENDING payment for a reference.
func (r *PaymentRepo) FindPendingByReference(ctx context.Context, referenceID, referenceType string) (*payment.Payment, error) {
	return r.findOne(ctx, squirrel.Eq{
		"reference_id":   referenceID,
		"reference_type": referenceType,
		"status":         payment.StatusPending,
	}, referenceID, "pending ")
}

// FindPaidByReference returns the PAID payment for a reference.
func (r *PaymentRepo) FindPaidByReference(ctx context.Context, referenceID, referenceType string) (*payment.Payment, error) {
	return r.findOne(ctx, squirrel.Eq{
		"reference_id":   referenceID,
		"reference_type": referenceType,
		"status":         payment.StatusPaid,
	}, referenceID, "paid ")
}

func (r *PaymentRepo) findOne(ctx context.Context, where squirrel.Eq, key, qualifier string) (*payment.Payment, error) {
	q := qb.Select(r.columns...).
		From(paymentTable).
		Where(where).
		OrderBy("created_at DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p payment.Payment
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(qualifier+"payment", key)
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &p, nil
}

// MarkPaid stamps the confirmation audit fields and clears any failure reason
// left by an earlier rollback.
func (r *PaymentRepo) MarkPaid(ctx context.Context, paymentID, confirmedBy string, at time.Time) error {
	q := qb.Update(paymentTable).
		Set("status", payment.StatusPaid).
		Set("confirmed_by", confirmedBy).
		Set("confirmed_at", at).
		Set("failure_reason", nil).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"payment_id": paymentID})

	return r.exec(ctx, q, "mark paid")
}

// MarkCancelled stamps the cancellation audit fields.
func (r *PaymentRepo) MarkCancelled(ctx context.Context, paymentID, cancelledBy string, at time.Time) error {
	q := qb.Update(paymentTable).
		Set("status", payment.StatusCancelled).
		Set("cancelled_by", cancelledBy).
		Set("cancelled_at", at).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"payment_id": paymentID})

	return r.exec(ctx, q, "mark cancelled")
}

// RevertToPending moves the payment back to PENDING with the failure reason.
// The confirmation stamp is deliberately left in place.
func (r *PaymentRepo) RevertToPending(ctx context.Context, paymentID, reason string) error {
	q := qb.Update(paymentTable).
		Set("status", payment.StatusPending).
		Set("failure_reason", reason).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"payment_id": paymentID})

	return r.exec(ctx, q, "revert to pending")
}

func (r *PaymentRepo) exec(ctx context.Context, q squirrel.UpdateBuilder, op string) error {
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
