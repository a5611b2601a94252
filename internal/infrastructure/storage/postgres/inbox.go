package postgres

import (
	"context"
	"fmt"
	"time"
)

// InboxStore deduplicates consumed messages for handlers whose effects are not
// naturally idempotent. A row in sys_inbox means the (consumer, transaction,
// event) combination has already been fully processed; redeliveries check
// Seen before acting and Mark inside the same transaction as their writes.
type InboxStore struct {
	txManager *TxManager
	ttl       time.Duration
}

// NewInboxStore creates an inbox store. Records expire after ttl.
func NewInboxStore(txManager *TxManager, ttl time.Duration) *InboxStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &InboxStore{txManager: txManager, ttl: ttl}
}

// Seen reports whether the message was already processed.
func (s *InboxStore) Seen(ctx context.Context, consumer, transactionID, eventType string) (bool, error) {
	var exists bool
	err := s.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sys_inbox
			WHERE consumer = $1 AND transaction_id = $2 AND event_type = $3
		)
	`, consumer, transactionID, eventType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check inbox: %w", err)
	}
	return exists, nil
}

// Mark records the message as processed. Call inside the transaction that
// applies the message's effects so the mark commits atomically with them.
func (s *InboxStore) Mark(ctx context.Context, consumer, transactionID, eventType string) error {
	now := time.Now().UTC()
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_inbox (consumer, transaction_id, event_type, processed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (consumer, transaction_id, event_type) DO NOTHING
	`, consumer, transactionID, eventType, now, now.Add(s.ttl))
	if err != nil {
		return fmt.Errorf("mark inbox: %w", err)
	}
	return nil
}

// CleanupExpired removes expired inbox records.
func (s *InboxStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_inbox WHERE expires_at < $1
	`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
