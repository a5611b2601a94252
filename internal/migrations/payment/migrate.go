// Package payment holds the payment database schema migrations.
package payment

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"

	"landregistry/internal/migrations"
)

//go:embed *.sql
var files embed.FS

// Apply runs the payment migrations in filename order.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	return migrations.Apply(ctx, pool, files, 730002)
}
