// Package bets stores externally placed bets so they can be watched for
// hedge opportunities and settled later.
package bets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"sports-arb-engine/internal/hedge"
	"sports-arb-engine/internal/odds"
)

var (
	ErrNotFound       = errors.New("bet not found")
	ErrInvalidBet     = errors.New("invalid bet")
	ErrInvalidStatus  = errors.New("invalid bet status")
	ErrAlreadySettled = errors.New("bet already settled")
)

// Status is the lifecycle state of a tracked bet.
type Status string

const (
	StatusPending   Status = "pending"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusVoid      Status = "void"
	StatusCashedOut Status = "cashed_out"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusWon, StatusLost, StatusVoid, StatusCashedOut:
		return true
	}
	return false
}

// Bet is a tracked bet.
type Bet struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	MarketType   string     `json:"market_type"`
	Outcome      string     `json:"outcome"`
	ProviderID   string     `json:"provider_id"`
	ProviderName string     `json:"provider_name"`
	Stake        float64    `json:"stake"`
	OddsDecimal  float64    `json:"odds_decimal"`
	Status       Status     `json:"status"`
	ProfitLoss   float64    `json:"profit_loss"`
	Notes        string     `json:"notes,omitempty"`
	PlacedAt     time.Time  `json:"placed_at"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
}

// Position returns the bet in the form the hedge calculator takes.
func (b Bet) Position() hedge.Bet {
	return hedge.Bet{
		ID:           b.ID,
		EventID:      b.EventID,
		MarketType:   b.MarketType,
		Outcome:      b.Outcome,
		ProviderID:   b.ProviderID,
		ProviderName: b.ProviderName,
		Stake:        b.Stake,
		OddsDecimal:  b.OddsDecimal,
		PlacedAt:     b.PlacedAt,
	}
}

// Store handles bet storage
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the sqlite database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bets (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		market_type TEXT NOT NULL,
		outcome TEXT NOT NULL,
		provider_id TEXT NOT NULL,
		provider_name TEXT NOT NULL DEFAULT '',
		stake REAL NOT NULL,
		odds_decimal REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		profit_loss REAL NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		placed_at DATETIME NOT NULL,
		settled_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_bets_event ON bets(event_id, status);
	CREATE INDEX IF NOT EXISTS idx_bets_placed ON bets(placed_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Add validates and stores a new pending bet and returns it with its
// generated id. PlacedAt defaults to now.
func (s *Store) Add(ctx context.Context, b Bet) (Bet, error) {
	if b.Stake <= 0 {
		return Bet{}, fmt.Errorf("%w: stake must be positive, got %v", odds.ErrInvalidStake, b.Stake)
	}
	if err := odds.CheckDecimal(b.OddsDecimal); err != nil {
		return Bet{}, err
	}
	if b.EventID == "" || b.MarketType == "" || b.Outcome == "" {
		return Bet{}, fmt.Errorf("%w: event, market and outcome are required", ErrInvalidBet)
	}

	b.ID = uuid.NewString()
	b.Status = StatusPending
	b.ProfitLoss = 0
	b.SettledAt = nil
	if b.PlacedAt.IsZero() {
		b.PlacedAt = s.now()
	}
	b.PlacedAt = b.PlacedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bets (id, event_id, market_type, outcome, provider_id, provider_name, stake, odds_decimal, status, notes, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.EventID, b.MarketType, b.Outcome, b.ProviderID, b.ProviderName, b.Stake, b.OddsDecimal, b.Status, b.Notes, b.PlacedAt)
	if err != nil {
		return Bet{}, fmt.Errorf("inserting bet: %w", err)
	}

	return b, nil
}

const selectBets = `
	SELECT id, event_id, market_type, outcome, provider_id, provider_name, stake, odds_decimal,
		status, profit_loss, notes, placed_at, settled_at
	FROM bets`

type scanner interface {
	Scan(dest ...any) error
}

func scanBet(row scanner) (Bet, error) {
	var (
		b       Bet
		settled sql.NullTime
	)
	err := row.Scan(&b.ID, &b.EventID, &b.MarketType, &b.Outcome, &b.ProviderID, &b.ProviderName,
		&b.Stake, &b.OddsDecimal, &b.Status, &b.ProfitLoss, &b.Notes, &b.PlacedAt, &settled)
	if err != nil {
		return Bet{}, err
	}
	if settled.Valid {
		t := settled.Time
		b.SettledAt = &t
	}
	return b, nil
}

// Get retrieves a bet by id.
func (s *Store) Get(ctx context.Context, id string) (Bet, error) {
	b, err := scanBet(s.db.QueryRowContext(ctx, selectBets+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Bet{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Bet{}, fmt.Errorf("scanning bet: %w", err)
	}
	return b, nil
}

// List returns bets newest first, optionally restricted to one status.
func (s *Store) List(ctx context.Context, status Status) ([]Bet, error) {
	query := selectBets
	var args []any
	if status != "" {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY placed_at DESC, rowid DESC`

	return s.query(ctx, query, args...)
}

// OpenByEvent returns the pending bets on an event, oldest first.
func (s *Store) OpenByEvent(ctx context.Context, eventID string) ([]Bet, error) {
	return s.query(ctx, selectBets+` WHERE event_id = ? AND status = ? ORDER BY placed_at, rowid`,
		eventID, StatusPending)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Bet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bets: %w", err)
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bet row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Settle closes a pending bet. Profit or loss follows from the status:
// won pays stake*(odds-1), lost forfeits the stake, void returns it, and a
// cash out books cashOut minus the stake.
func (s *Store) Settle(ctx context.Context, id string, status Status, cashOut float64) (Bet, error) {
	if !status.Valid() || status == StatusPending {
		return Bet{}, fmt.Errorf("%w: cannot settle as %q", ErrInvalidStatus, status)
	}
	if status == StatusCashedOut && cashOut < 0 {
		return Bet{}, fmt.Errorf("%w: cash out amount %v", odds.ErrInvalidStake, cashOut)
	}

	b, err := s.Get(ctx, id)
	if err != nil {
		return Bet{}, err
	}
	if b.Status != StatusPending {
		return Bet{}, fmt.Errorf("%w: %s is %s", ErrAlreadySettled, id, b.Status)
	}

	switch status {
	case StatusWon:
		b.ProfitLoss = b.Stake * (b.OddsDecimal - 1)
	case StatusLost:
		b.ProfitLoss = -b.Stake
	case StatusVoid:
		b.ProfitLoss = 0
	case StatusCashedOut:
		b.ProfitLoss = cashOut - b.Stake
	}
	settledAt := s.now().UTC()
	b.Status = status
	b.SettledAt = &settledAt

	res, err := s.db.ExecContext(ctx,
		`UPDATE bets SET status = ?, profit_loss = ?, settled_at = ? WHERE id = ? AND status = ?`,
		b.Status, b.ProfitLoss, settledAt, id, StatusPending)
	if err != nil {
		return Bet{}, fmt.Errorf("settling bet: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Bet{}, fmt.Errorf("%w: %s", ErrAlreadySettled, id)
	}

	return b, nil
}

// Delete removes a bet.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting bet: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
