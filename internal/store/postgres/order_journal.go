package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/seedliq/makerbot/internal/domain"
)

// OrderJournal implements domain.OrderJournal using PostgreSQL.
type OrderJournal struct {
	pool *pgxpool.Pool
}

// NewOrderJournal creates an OrderJournal backed by the given connection pool.
func NewOrderJournal(pool *pgxpool.Pool) *OrderJournal {
	return &OrderJournal{pool: pool}
}

// Record inserts one seed order row.
func (j *OrderJournal) Record(ctx context.Context, o domain.SeedOrder) error {
	const query = `
		INSERT INTO seed_orders (
			id, run_id, market, side, price, quantity,
			expires_at, tx_id, status, error, submitted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)`

	_, err := j.pool.Exec(ctx, query,
		o.ID, o.RunID, o.Market, string(o.Side),
		o.Price.String(), o.Quantity.String(),
		o.ExpiresAt, o.TxID, string(o.Status), o.Error, o.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record seed order %s: %w", o.ID, err)
	}
	return nil
}

// ListByRun returns every order recorded under the given run id in
// submission order.
func (j *OrderJournal) ListByRun(ctx context.Context, runID string) ([]domain.SeedOrder, error) {
	const query = `
		SELECT id, run_id, market, side, price, quantity,
			expires_at, tx_id, status, error, submitted_at
		FROM seed_orders
		WHERE run_id = $1
		ORDER BY submitted_at ASC`

	rows, err := j.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list seed orders for run %s: %w", runID, err)
	}
	defer rows.Close()

	var orders []domain.SeedOrder
	for rows.Next() {
		var o domain.SeedOrder
		var side, status, price, quantity string

		err := rows.Scan(
			&o.ID, &o.RunID, &o.Market, &side, &price, &quantity,
			&o.ExpiresAt, &o.TxID, &status, &o.Error, &o.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan seed order: %w", err)
		}

		o.Side = domain.Side(side)
		o.Status = domain.SeedOrderStatus(status)
		if o.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("postgres: parse price %q: %w", price, err)
		}
		if o.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("postgres: parse quantity %q: %w", quantity, err)
		}

		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate seed orders: %w", err)
	}
	return orders, nil
}

var _ domain.OrderJournal = (*OrderJournal)(nil)
