package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polymarketbot/internal/domain"
)

// Store implements domain.Store over PostgreSQL via pgx, grounded on the
// teacher's store/postgres audit_store.go query-building conventions,
// generalized to the five persisted tables this system needs (spec.md
// §4.12).
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordTrade implements domain.TradeStore.
func (s *Store) RecordTrade(ctx context.Context, t domain.TradeRecord) (int64, error) {
	const query = `
		INSERT INTO trades
			(poly_leg, kalshi_leg, kalshi_strike, poly_cost, kalshi_cost,
			 total_cost, fee_adjusted_cost, net_margin, size_contracts,
			 status, error_message, dry_run)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		string(t.PolyLeg), string(t.KalshiLeg), float64(t.KalshiStrike),
		t.PolyCost, t.KalshiCost, t.TotalCost, t.FeeAdjustedCost, t.NetMargin,
		t.SizeContracts, string(t.Status), t.ErrorMessage, t.DryRun,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: record trade: %w", err)
	}
	return id, nil
}

// UpdateTradeStatus implements domain.TradeStore.
func (s *Store) UpdateTradeStatus(ctx context.Context, id int64, status domain.ExecutionStatus, errMsg string) error {
	const query = `UPDATE trades SET status = $1, error_message = $2 WHERE id = $3`
	tag, err := s.pool.Exec(ctx, query, string(status), errMsg, id)
	if err != nil {
		return fmt.Errorf("postgres: update trade status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update trade status: %w", domain.ErrNotFound)
	}
	return nil
}

// GetTradesToday implements domain.TradeStore.
func (s *Store) GetTradesToday(ctx context.Context) ([]domain.TradeRecord, error) {
	const query = `
		SELECT id, ts, poly_leg, kalshi_leg, kalshi_strike, poly_cost, kalshi_cost,
		       total_cost, fee_adjusted_cost, net_margin, size_contracts, status,
		       error_message, dry_run
		FROM trades
		WHERE ts >= date_trunc('day', NOW())
		ORDER BY ts DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: get trades today: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var polyLeg, kalshiLeg, status string
		if err := rows.Scan(&t.ID, &t.Timestamp, &polyLeg, &kalshiLeg, &t.KalshiStrike,
			&t.PolyCost, &t.KalshiCost, &t.TotalCost, &t.FeeAdjustedCost, &t.NetMargin,
			&t.SizeContracts, &status, &t.ErrorMessage, &t.DryRun); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.PolyLeg = domain.PolySide(polyLeg)
		t.KalshiLeg = domain.KalshiSide(kalshiLeg)
		t.Status = domain.ExecutionStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecordPosition implements domain.PositionStore.
func (s *Store) RecordPosition(ctx context.Context, p domain.Position, arbID string) error {
	const query = `
		INSERT INTO positions
			(id, arb_id, venue, side, ticker, entry_price, size, cost_usd, opened_at, closed_at, linked_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			closed_at = EXCLUDED.closed_at`

	_, err := s.pool.Exec(ctx, query,
		p.ID, arbID, string(p.Venue), string(p.Side), p.Ticker, p.EntryPrice,
		p.Size, p.CostUSD, p.OpenedAt, p.ClosedAt, p.LinkedID,
	)
	if err != nil {
		return fmt.Errorf("postgres: record position: %w", err)
	}
	return nil
}

// ClosePosition implements domain.PositionStore.
func (s *Store) ClosePosition(ctx context.Context, id string) error {
	const query = `UPDATE positions SET closed_at = NOW() WHERE id = $1 AND closed_at IS NULL`
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: close position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: close position: %w", domain.ErrNotFound)
	}
	return nil
}

// GetOpenPositions implements domain.PositionStore.
func (s *Store) GetOpenPositions(ctx context.Context) ([]domain.Position, error) {
	const query = `
		SELECT id, venue, side, ticker, entry_price, size, cost_usd, opened_at, closed_at, linked_id
		FROM positions
		WHERE closed_at IS NULL
		ORDER BY opened_at ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: get open positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var venue, side string
		if err := rows.Scan(&p.ID, &venue, &side, &p.Ticker, &p.EntryPrice, &p.Size,
			&p.CostUSD, &p.OpenedAt, &p.ClosedAt, &p.LinkedID); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		p.Venue = domain.Venue(venue)
		p.Side = domain.PositionSide(side)
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordOpportunity implements domain.OpportunityStore.
func (s *Store) RecordOpportunity(ctx context.Context, o domain.OpportunityRecord) (int64, error) {
	const query = `
		INSERT INTO opportunities
			(kalshi_strike, kalshi_leg, poly_leg, poly_cost, kalshi_cost, total_cost,
			 fee_adjusted, net_margin, is_arbitrage, was_executed, skip_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id`

	c := o.Check
	var id int64
	err := s.pool.QueryRow(ctx, query,
		float64(c.KalshiStrike), string(c.KalshiLeg), string(c.PolyLeg), c.PolyCost,
		c.KalshiCost, c.TotalCost, c.FeeAdjustedCost, c.NetMargin, c.IsArbitrage,
		o.WasExecuted, o.SkipReason,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: record opportunity: %w", err)
	}
	return id, nil
}

// LogEvent implements domain.EventStore.
func (s *Store) LogEvent(ctx context.Context, eventType string, severity domain.EventSeverity, details map[string]any) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("postgres: marshal event details: %w", err)
	}

	const query = `INSERT INTO events (event_type, severity, details) VALUES ($1,$2,$3)`
	if _, err := s.pool.Exec(ctx, query, eventType, string(severity), detailsJSON); err != nil {
		return fmt.Errorf("postgres: log event %s: %w", eventType, err)
	}
	return nil
}

// GetRecentEvents implements domain.EventStore.
func (s *Store) GetRecentEvents(ctx context.Context, limit int) ([]domain.EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, ts, event_type, severity, details
		FROM events
		ORDER BY ts DESC
		LIMIT $1`
	return s.queryEvents(ctx, query, limit)
}

// GetEvents implements domain.EventStore.
func (s *Store) GetEvents(ctx context.Context, eventType string, sinceDays int) ([]domain.EventRecord, error) {
	const query = `
		SELECT id, ts, event_type, severity, details
		FROM events
		WHERE event_type = $1 AND ts >= NOW() - ($2 || ' days')::interval
		ORDER BY ts DESC`
	return s.queryEvents(ctx, query, eventType, sinceDays)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]domain.EventRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query events: %w", err)
	}
	defer rows.Close()

	var out []domain.EventRecord
	for rows.Next() {
		var e domain.EventRecord
		var severity string
		var detailsJSON []byte
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &severity, &detailsJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Severity = domain.EventSeverity(severity)
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal event details: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DailyPnL implements domain.AggregateStore: realized PnL from settled
// arbitrage trades is not modeled at the trades table level, so this sums
// the opportunity-adjacent trades table's fee-adjusted margin times size
// for trades executed today, which is the closest authoritative proxy the
// schema supports.
func (s *Store) DailyPnL(ctx context.Context) (float64, error) {
	const query = `
		SELECT COALESCE(SUM((1 - fee_adjusted_cost) * size_contracts), 0)
		FROM trades
		WHERE ts >= date_trunc('day', NOW()) AND status = 'Success'`

	var pnl float64
	if err := s.pool.QueryRow(ctx, query).Scan(&pnl); err != nil {
		return 0, fmt.Errorf("postgres: daily pnl: %w", err)
	}
	return pnl, nil
}

// TotalOpenExposure implements domain.AggregateStore.
func (s *Store) TotalOpenExposure(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(cost_usd), 0) FROM positions WHERE closed_at IS NULL`

	var exposure float64
	if err := s.pool.QueryRow(ctx, query).Scan(&exposure); err != nil {
		return 0, fmt.Errorf("postgres: total open exposure: %w", err)
	}
	return exposure, nil
}

// Compile-time interface check.
var _ domain.Store = (*Store)(nil)
