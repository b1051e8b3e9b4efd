// Package store owns the durable submission records. It is the only writer
// of the submissions table.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/z00rs/learn2earn-herman-test/internal/models"
)

var (
	ErrNotFound            = errors.New("submission not found")
	ErrDuplicateSubmission = errors.New("submission already exists for this wallet address")
)

const submissionColumns = `id, wallet_address, name, proof_link, submitted_at,
	approved, approved_at, moderator_notes, claimed, claimed_at,
	transaction_hash, claim_attempted_at`

type Store struct {
	db *pgxpool.Pool
}

func New(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{db: pool}, nil
}

func (s *Store) Close() {
	s.db.Close()
}

// Init creates the schema. Column additions are additive and idempotent so a
// newer binary can start against an older table without failing.
func (s *Store) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
			id BIGSERIAL PRIMARY KEY,
			wallet_address TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			proof_link TEXT NOT NULL,
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			approved BOOLEAN NOT NULL DEFAULT false,
			approved_at TIMESTAMPTZ,
			moderator_notes TEXT
		)`,
		`ALTER TABLE submissions ADD COLUMN IF NOT EXISTS claimed BOOLEAN NOT NULL DEFAULT false`,
		`ALTER TABLE submissions ADD COLUMN IF NOT EXISTS claimed_at TIMESTAMPTZ`,
		`ALTER TABLE submissions ADD COLUMN IF NOT EXISTS transaction_hash TEXT`,
		`ALTER TABLE submissions ADD COLUMN IF NOT EXISTS claim_attempted_at TIMESTAMPTZ`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
	}
	return nil
}

// Get retrieves a submission by canonical address.
func (s *Store) Get(ctx context.Context, address string) (*models.Submission, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE wallet_address = $1`, address)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

// List returns all submissions, newest first.
func (s *Store) List(ctx context.Context) ([]models.Submission, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY submitted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// ListApproved returns the public approved roster.
func (s *Store) ListApproved(ctx context.Context) ([]models.ApprovedSubmission, error) {
	rows, err := s.db.Query(ctx,
		`SELECT wallet_address, name FROM submissions WHERE approved ORDER BY approved_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.ApprovedSubmission
	for rows.Next() {
		var sub models.ApprovedSubmission
		if err := rows.Scan(&sub.WalletAddress, &sub.Name); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpsertProof creates the row, or replaces a sync placeholder with the real
// proof. A row that already carries a real proof is left untouched and the
// call fails with ErrDuplicateSubmission. One conditional statement keeps the
// check-then-write atomic per address.
func (s *Store) UpsertProof(ctx context.Context, address, name, proofLink string) (created bool, err error) {
	var inserted bool
	err = s.db.QueryRow(ctx,
		`INSERT INTO submissions (wallet_address, name, proof_link)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (wallet_address) DO UPDATE
		 SET name = EXCLUDED.name, proof_link = EXCLUDED.proof_link, submitted_at = now()
		 WHERE submissions.proof_link = $4 OR submissions.proof_link = ''
		 RETURNING (xmax = 0)`,
		address, name, proofLink, models.PlaceholderProof,
	).Scan(&inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// conflict hit a row with a real proof; the DO UPDATE guard
			// filtered it out and nothing was returned
			return false, ErrDuplicateSubmission
		}
		return false, fmt.Errorf("proof upsert failed: %w", err)
	}
	return inserted, nil
}

// CreatePlaceholder inserts a "registered, not yet submitted" row. It is a
// no-op when a row already exists.
func (s *Store) CreatePlaceholder(ctx context.Context, address, name string) (created bool, err error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO submissions (wallet_address, name, proof_link)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (wallet_address) DO NOTHING`,
		address, name, models.PlaceholderProof)
	if err != nil {
		return false, fmt.Errorf("placeholder insert failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetApproval records the moderator's decision.
func (s *Store) SetApproval(ctx context.Context, address string, approved bool, notes string) error {
	var notesParam *string
	if notes != "" {
		notesParam = &notes
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE submissions
		 SET approved = $1, approved_at = now(), moderator_notes = $2
		 WHERE wallet_address = $3`,
		approved, notesParam, address)
	if err != nil {
		return fmt.Errorf("approval update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordClaimAttempt stores the broadcast reference and attempt time. It
// deliberately does not touch the claimed flag: an accepted broadcast can
// still revert, and only the ledger's rewarded fact is trusted as final.
func (s *Store) RecordClaimAttempt(ctx context.Context, address, txHash string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE submissions
		 SET transaction_hash = $1, claim_attempted_at = now()
		 WHERE wallet_address = $2`,
		txHash, address)
	if err != nil {
		return fmt.Errorf("claim attempt update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var sub models.Submission
	err := row.Scan(
		&sub.ID, &sub.WalletAddress, &sub.Name, &sub.ProofLink, &sub.SubmittedAt,
		&sub.Approved, &sub.ApprovedAt, &sub.ModeratorNotes, &sub.Claimed,
		&sub.ClaimedAt, &sub.TransactionHash, &sub.ClaimAttemptedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
