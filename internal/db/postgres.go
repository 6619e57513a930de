package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/recon-engine/internal/recon"
)

// schemaSQL is compiled into the binary at build time.
// This ensures schema init works inside the Docker runtime image which
// does not copy internal/db/schema.sql into the final stage.
//
//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for run archive")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql DDL statements.
func (s *PostgresStore) InitSchema() error {
	_, err := s.pool.Exec(context.Background(), schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Reconciliation archive schema initialized")
	return nil
}

// SaveRun persists one pipeline run: the run row plus every match in
// emission order, inside a single transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, result *recon.RunResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %v", err)
	}
	unmatchedT, err := json.Marshal(result.UnmatchedTrader)
	if err != nil {
		return fmt.Errorf("failed to marshal trader residue: %v", err)
	}
	unmatchedE, err := json.Marshal(result.UnmatchedExchange)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange residue: %v", err)
	}

	insertRunSQL := `
		INSERT INTO recon_runs
			(run_id, exchange_group, trader_input, exchange_input,
			 trader_matched, exchange_matched, summary, unmatched_trader, unmatched_exchange)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = tx.Exec(ctx, insertRunSQL,
		result.RunID,
		result.Group,
		result.Summary.TraderInput,
		result.Summary.ExchangeInput,
		result.Summary.TraderMatched,
		result.Summary.ExchangeMatched,
		summary,
		unmatchedT,
		unmatchedE,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recon_runs: %v", err)
	}

	insertMatchSQL := `
		INSERT INTO recon_matches
			(match_id, run_id, seq, rule_id, confidence, trader_ids, exchange_ids, matched_fields, audit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	for seq, m := range result.Matches {
		audit, err := json.Marshal(m.Audit)
		if err != nil {
			return fmt.Errorf("failed to marshal match audit: %v", err)
		}
		_, err = tx.Exec(ctx, insertMatchSQL,
			m.MatchID,
			result.RunID,
			seq,
			m.RuleID,
			m.Confidence,
			m.TraderIDs,
			m.ExchangeIDs,
			m.MatchedFields,
			audit,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recon match: %v", err)
		}
	}

	return tx.Commit(ctx)
}

// RunInfo is the archive listing row: the summary without the match log.
type RunInfo struct {
	RunID           string        `json:"runId"`
	Group           string        `json:"group"`
	TraderInput     int           `json:"traderInput"`
	ExchangeInput   int           `json:"exchangeInput"`
	TraderMatched   int           `json:"traderMatched"`
	ExchangeMatched int           `json:"exchangeMatched"`
	Summary         recon.Summary `json:"summary"`
	CreatedAt       string        `json:"createdAt"`
}

// ListRuns returns the most recent runs, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	sql := `
		SELECT run_id, exchange_group, trader_input, exchange_input,
		       trader_matched, exchange_matched, summary, created_at::text
		FROM recon_runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunInfo, 0)
	for rows.Next() {
		var info RunInfo
		var summary []byte
		err := rows.Scan(&info.RunID, &info.Group, &info.TraderInput, &info.ExchangeInput,
			&info.TraderMatched, &info.ExchangeMatched, &summary, &info.CreatedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(summary, &info.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode run summary: %v", err)
		}
		runs = append(runs, info)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// ArchivedRun is one fully rehydrated run: the listing row plus the match
// log in emission order and both residues.
type ArchivedRun struct {
	RunInfo
	Matches           []ArchivedMatch `json:"matches"`
	UnmatchedTrader   json.RawMessage `json:"unmatchedTrader"`
	UnmatchedExchange json.RawMessage `json:"unmatchedExchange"`
}

type ArchivedMatch struct {
	MatchID       string            `json:"matchId"`
	RuleID        string            `json:"ruleId"`
	Confidence    int               `json:"confidence"`
	TraderIDs     []string          `json:"traderIds"`
	ExchangeIDs   []string          `json:"exchangeIds"`
	MatchedFields []string          `json:"matchedFields"`
	Audit         map[string]string `json:"audit"`
}

// GetRun loads one archived run by id. Returns (nil, nil) when the run
// does not exist.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*ArchivedRun, error) {
	runSQL := `
		SELECT run_id, exchange_group, trader_input, exchange_input,
		       trader_matched, exchange_matched, summary,
		       unmatched_trader, unmatched_exchange, created_at::text
		FROM recon_runs
		WHERE run_id = $1
	`
	var run ArchivedRun
	var summary []byte
	err := s.pool.QueryRow(ctx, runSQL, runID).Scan(
		&run.RunID, &run.Group, &run.TraderInput, &run.ExchangeInput,
		&run.TraderMatched, &run.ExchangeMatched, &summary,
		&run.UnmatchedTrader, &run.UnmatchedExchange, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(summary, &run.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode run summary: %v", err)
	}

	matchSQL := `
		SELECT match_id, rule_id, confidence, trader_ids, exchange_ids, matched_fields, audit
		FROM recon_matches
		WHERE run_id = $1
		ORDER BY seq
	`
	rows, err := s.pool.Query(ctx, matchSQL, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	run.Matches = make([]ArchivedMatch, 0)
	for rows.Next() {
		var m ArchivedMatch
		var audit []byte
		err := rows.Scan(&m.MatchID, &m.RuleID, &m.Confidence,
			&m.TraderIDs, &m.ExchangeIDs, &m.MatchedFields, &audit)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(audit, &m.Audit); err != nil {
			return nil, fmt.Errorf("failed to decode match audit: %v", err)
		}
		run.Matches = append(run.Matches, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return &run, nil
}

// GetPool exposes the connection pool for other subsystems
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
