package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/privfl/fedshard/protocol"
)

// ErrResultNotFound indicates the archive holds no result for the round.
var ErrResultNotFound = errors.New("round result not found")

// RoundArchive persists reconstructed round results to PostgreSQL so that
// reporting collaborators can read them after the aggregator restarts.
type RoundArchive struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewRoundArchive connects to PostgreSQL and prepares the results table.
func NewRoundArchive(config *PostgresConfig) (*RoundArchive, error) {
	return NewRoundArchiveDSN(config.ConnectionString())
}

// NewRoundArchiveDSN is NewRoundArchive for a raw connection string, as
// passed on the aggregator's command line.
func NewRoundArchiveDSN(dsn string) (*RoundArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	archive := &RoundArchive{db: db}
	if err := archive.migrate(ctx); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return archive, nil
}

func (a *RoundArchive) migrate(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS round_results (
			round_number INTEGER PRIMARY KEY,
			result       JSONB NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

// SaveResult upserts the result of a round. A recomputed round replaces
// the stored result wholesale.
func (a *RoundArchive) SaveResult(ctx context.Context, result *protocol.RoundResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO round_results (round_number, result)
		VALUES ($1, $2)
		ON CONFLICT (round_number) DO UPDATE SET result = EXCLUDED.result, created_at = now()`,
		result.RoundNumber, payload)
	return err
}

// Result loads the stored result of a round.
func (a *RoundArchive) Result(ctx context.Context, round int) (*protocol.RoundResult, error) {
	var payload []byte
	err := a.db.QueryRowContext(ctx,
		`SELECT result FROM round_results WHERE round_number = $1`, round).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: round %d", ErrResultNotFound, round)
	}
	if err != nil {
		return nil, err
	}

	return protocol.UnmarshalMessage[protocol.RoundResult](payload)
}

// LatestRound returns the highest archived round number.
func (a *RoundArchive) LatestRound(ctx context.Context) (int, error) {
	var round sql.NullInt64
	err := a.db.QueryRowContext(ctx, `SELECT max(round_number) FROM round_results`).Scan(&round)
	if err != nil {
		return 0, err
	}
	if !round.Valid {
		return 0, ErrResultNotFound
	}
	return int(round.Int64), nil
}

// Close releases the database connection pool.
func (a *RoundArchive) Close() error {
	return a.db.Close()
}
