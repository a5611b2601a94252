// Package token generates time-ordered public identifiers.
// Unlike internal/core/id (row identity), tokens are the externally visible
// numbers printed on receipts and referenced in queue messages.
package token

import (
	"fmt"
	"strings"

	"github.com/cloudresty/ulid"
)

// NewPayment generates a payment token: PAY-<ULID>.
// ULIDs are time-ordered, so payment tokens sort by creation time.
func NewPayment() (string, error) {
	u, err := ulid.New()
	if err != nil {
		return "", fmt.Errorf("generate payment token: %w", err)
	}
	return "PAY-" + u, nil
}

// NewTransfer generates a transfer token: TRF-<ULID>.
func NewTransfer() (string, error) {
	u, err := ulid.New()
	if err != nil {
		return "", fmt.Errorf("generate transfer token: %w", err)
	}
	return "TRF-" + u, nil
}

// IsPayment reports whether s looks like a payment token.
func IsPayment(s string) bool {
	return strings.HasPrefix(s, "PAY-") && len(s) > 4
}
