package db

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

const coinCols = `symbol, name, current_price, change_24h, market_cap, is_available, updated_at`

func scanCoin(row interface{ Scan(...any) error }) (*model.Coin, error) {
	c := &model.Coin{}
	err := row.Scan(&c.Symbol, &c.Name, &c.CurrentPrice, &c.Change24h,
		&c.MarketCap, &c.IsAvailable, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *Store) ListCoins(ctx context.Context, limit, offset int) ([]model.Coin, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+coinCols+` FROM coins
		 WHERE is_available = TRUE
		 ORDER BY market_cap DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Coin
	for rows.Next() {
		var c model.Coin
		if err := rows.Scan(&c.Symbol, &c.Name, &c.CurrentPrice, &c.Change24h,
			&c.MarketCap, &c.IsAvailable, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCoin(ctx context.Context, symbol string) (*model.Coin, error) {
	return scanCoin(s.q.QueryRowContext(ctx,
		`SELECT `+coinCols+` FROM coins WHERE symbol=$1`, symbol))
}

func (s *Store) UpsertCoin(ctx context.Context, c *model.Coin) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO coins (symbol, name, current_price, change_24h, market_cap, is_available)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (symbol) DO UPDATE SET
		   name          = EXCLUDED.name,
		   current_price = EXCLUDED.current_price,
		   change_24h    = EXCLUDED.change_24h,
		   market_cap    = EXCLUDED.market_cap,
		   is_available  = EXCLUDED.is_available,
		   updated_at    = now()`,
		c.Symbol, c.Name, c.CurrentPrice, c.Change24h, c.MarketCap, c.IsAvailable)
	return err
}

// RefreshPrices applies a random walk to every available coin, standing in
// for the external price feed. jitter yields a fraction in [-0.05, 0.05).
func (s *Store) RefreshPrices(ctx context.Context, jitter func() float64) (int, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT symbol FROM coins WHERE is_available = TRUE`)
	if err != nil {
		return 0, err
	}
	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			rows.Close()
			return 0, err
		}
		symbols = append(symbols, sym)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	updated := 0
	for _, sym := range symbols {
		change := decimal.NewFromFloat(jitter())
		if _, err := s.q.ExecContext(ctx,
			`UPDATE coins
			 SET current_price = current_price * (1 + $1),
			     change_24h    = $2,
			     updated_at    = now()
			 WHERE symbol = $3`,
			change, change.Mul(decimal.NewFromInt(100)), sym); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
