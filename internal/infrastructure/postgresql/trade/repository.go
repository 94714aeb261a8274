package trade

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/errors"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/postgresql"
)

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates a new trade archive repository.
func NewRepository(db postgresql.PostgreSQLClient, logger logger.Interface) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

// Store archives a single trade.
func (r *repository) Store(ctx context.Context, row *Row) error {
	query := `INSERT INTO trades (id, pair, maker_order_id, taker_order_id, maker_account, taker_account, taker_side, asset, amount, price, fee, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`

	cmd, err := r.db.Exec(ctx, query,
		row.ID,
		row.Pair,
		row.MakerOrderID,
		row.TakerOrderID,
		row.MakerAccount,
		row.TakerAccount,
		row.TakerSide,
		row.Asset,
		row.Amount,
		row.Price,
		row.Fee,
		row.ExecutedAt,
	)
	if err != nil {
		return errors.TracerFromError(err)
	}

	r.logger.Info("Archived trade", logger.Field{
		Key:   "commandTag",
		Value: cmd.String(),
	})

	return nil
}

// StoreBatch archives a batch of trades.
func (r *repository) StoreBatch(ctx context.Context, rows []*Row) error {
	copyCount, err := r.db.CopyFrom(ctx, pgx.Identifier{"trades"}, []string{
		"id",
		"pair",
		"maker_order_id",
		"taker_order_id",
		"maker_account",
		"taker_account",
		"taker_side",
		"asset",
		"amount",
		"price",
		"fee",
		"executed_at",
	}, pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		row := rows[i]
		return []any{
			row.ID,
			row.Pair,
			row.MakerOrderID,
			row.TakerOrderID,
			row.MakerAccount,
			row.TakerAccount,
			row.TakerSide,
			row.Asset,
			row.Amount,
			row.Price,
			row.Fee,
			row.ExecutedAt,
		}, nil
	}))

	if err != nil {
		return errors.TracerFromError(err)
	}

	r.logger.Info("Archived batch of trades", logger.Field{
		Key:   "copyCount",
		Value: copyCount,
	})

	return nil
}

// GetByID fetches one archived trade.
func (r *repository) GetByID(ctx context.Context, id string) (*Row, error) {
	query := `SELECT id, pair, maker_order_id, taker_order_id, maker_account, taker_account, taker_side, asset, amount, price, fee, executed_at
		FROM trades WHERE id = $1`

	row := &Row{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&row.ID,
		&row.Pair,
		&row.MakerOrderID,
		&row.TakerOrderID,
		&row.MakerAccount,
		&row.TakerAccount,
		&row.TakerSide,
		&row.Asset,
		&row.Amount,
		&row.Price,
		&row.Fee,
		&row.ExecutedAt,
	)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}

	return row, nil
}

// ListByAccount returns the account's archived trades, newest first.
func (r *repository) ListByAccount(ctx context.Context, account string, limit int) ([]*Row, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, pair, maker_order_id, taker_order_id, maker_account, taker_account, taker_side, asset, amount, price, fee, executed_at
		FROM trades
		WHERE maker_account = $1 OR taker_account = $1
		ORDER BY executed_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, account, limit)
	if err != nil {
		return nil, errors.TracerFromError(err)
	}
	defer rows.Close()

	var result []*Row
	for rows.Next() {
		row := &Row{}
		if err := rows.Scan(
			&row.ID,
			&row.Pair,
			&row.MakerOrderID,
			&row.TakerOrderID,
			&row.MakerAccount,
			&row.TakerAccount,
			&row.TakerSide,
			&row.Asset,
			&row.Amount,
			&row.Price,
			&row.Fee,
			&row.ExecutedAt,
		); err != nil {
			return nil, errors.TracerFromError(err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.TracerFromError(err)
	}

	return result, nil
}
