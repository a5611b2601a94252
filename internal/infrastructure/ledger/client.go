// Package ledger implements the HTTP adapter to the append-only ledger
// service. The ledger is an opaque recorder: each call submits a record and
// returns a durable hash, or fails.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"landregistry/internal/core/apperror"
	coreledger "landregistry/internal/core/ledger"
	"landregistry/pkg/logger"
)

// Compile-time check that Client implements the domain contract.
var _ coreledger.Recorder = (*Client)(nil)

// Config holds ledger client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns production defaults for the given base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// Client is the synchronous call boundary to the ledger service.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a ledger client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.WithComponent("ledger"),
	}
}

// response is the ledger's reply to every record call.
type response struct {
	Success        bool   `json:"success"`
	BlockchainHash string `json:"blockchain_hash"`
	TransactionID  string `json:"transaction_id"`
	BlockNumber    int64  `json:"block_number"`
	Message        string `json:"message,omitempty"`
}

// RecordLandTitle records a first activation and returns the ledger hash.
func (c *Client) RecordLandTitle(ctx context.Context, rec coreledger.TitleRecord) (string, error) {
	return c.post(ctx, "/api/v1/records/land-title", map[string]any{
		"title_number":   rec.TitleNumber,
		"owner":          rec.Owner,
		"location":       rec.Location,
		"status":         rec.Status,
		"reference_id":   rec.ReferenceID,
		"timestamp":      rec.Timestamp.UTC().Format(time.RFC3339),
		"transaction_id": rec.TransactionID,
	})
}

// RecordCancellation records a cancellation chained onto the prior hash.
func (c *Client) RecordCancellation(ctx context.Context, rec coreledger.CancellationRecord) (string, error) {
	return c.post(ctx, "/api/v1/records/cancellation", map[string]any{
		"title_number":   rec.TitleNumber,
		"prior_hash":     rec.PriorHash,
		"reason":         rec.Reason,
		"transaction_id": rec.TransactionID,
	})
}

// RecordReactivation records a reactivation chained onto both prior hashes.
func (c *Client) RecordReactivation(ctx context.Context, rec coreledger.ReactivationRecord) (string, error) {
	return c.post(ctx, "/api/v1/records/reactivation", map[string]any{
		"title_number":      rec.TitleNumber,
		"original_hash":     rec.OriginalHash,
		"cancellation_hash": rec.CancellationHash,
		"reason":            rec.Reason,
		"transaction_id":    rec.TransactionID,
	})
}

// RecordTransfer records one party's side of an ownership transfer.
func (c *Client) RecordTransfer(ctx context.Context, rec coreledger.TransferRecord) (string, error) {
	return c.post(ctx, "/api/v1/records/transfer", map[string]any{
		"title_number":   rec.TitleNumber,
		"transfer_id":    rec.TransferID,
		"party":          rec.Party,
		"owner":          rec.Owner,
		"transaction_id": rec.TransactionID,
	})
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal ledger request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperror.NewLedgerUnavailable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperror.NewLedgerUnavailable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperror.NewLedgerUnavailable(
			fmt.Errorf("ledger returned %d: %s", resp.StatusCode, string(raw)))
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", apperror.NewLedgerUnavailable(fmt.Errorf("decode ledger response: %w", err))
	}

	if !out.Success || out.BlockchainHash == "" {
		msg := out.Message
		if msg == "" {
			msg = "ledger refused the record"
		}
		return "", apperror.NewLedgerRejected(msg)
	}

	c.log.Debugw("ledger record accepted",
		"path", path,
		"block_number", out.BlockNumber,
		"transaction_id", out.TransactionID)

	return out.BlockchainHash, nil
}
