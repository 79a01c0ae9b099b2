package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS employees (
			employee_id TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			store       TEXT NOT NULL,
			position    TEXT NOT NULL,
			active      BOOLEAN NOT NULL DEFAULT TRUE,
			hired_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS employees_store_idx ON employees (store)`,

		`CREATE TABLE IF NOT EXISTS promotion_votes (
			vote_id              TEXT PRIMARY KEY,
			applicant_id         TEXT NOT NULL REFERENCES employees (employee_id),
			applicant_name       TEXT NOT NULL,
			store                TEXT NOT NULL,
			current_position     TEXT NOT NULL,
			target_position      TEXT NOT NULL,
			initiated_at         TIMESTAMPTZ NOT NULL,
			deadline             TIMESTAMPTZ NOT NULL,
			agree_count          INTEGER NOT NULL DEFAULT 0 CHECK (agree_count >= 0),
			disagree_count       INTEGER NOT NULL DEFAULT 0 CHECK (disagree_count >= 0),
			eligible_voter_count INTEGER NOT NULL CHECK (eligible_voter_count >= 0),
			status               TEXT NOT NULL DEFAULT 'open',
			reason               TEXT NOT NULL DEFAULT '',
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (agree_count + disagree_count <= eligible_voter_count),
			CHECK (status IN ('open', 'approved', 'rejected'))
		)`,
		// One open round per applicant, enforced at the storage layer.
		`CREATE UNIQUE INDEX IF NOT EXISTS promotion_votes_open_applicant_idx
			ON promotion_votes (applicant_id) WHERE status = 'open'`,
		`CREATE INDEX IF NOT EXISTS promotion_votes_store_idx ON promotion_votes (store)`,
		`CREATE INDEX IF NOT EXISTS promotion_votes_created_at_idx ON promotion_votes (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS promotion_votes_deadline_idx
			ON promotion_votes (deadline) WHERE status = 'open'`,

		`CREATE TABLE IF NOT EXISTS vote_eligible_voters (
			vote_id     TEXT NOT NULL REFERENCES promotion_votes (vote_id),
			employee_id TEXT NOT NULL,
			name        TEXT NOT NULL,
			position    TEXT NOT NULL,
			ordinal     INTEGER NOT NULL,
			PRIMARY KEY (vote_id, employee_id)
		)`,

		`CREATE TABLE IF NOT EXISTS ballots (
			ballot_id      TEXT PRIMARY KEY,
			vote_id        TEXT NOT NULL REFERENCES promotion_votes (vote_id),
			voter_id       TEXT NOT NULL,
			voter_name     TEXT NOT NULL,
			choice         TEXT NOT NULL CHECK (choice IN ('agree', 'disagree')),
			submitted_at   TIMESTAMPTZ NOT NULL,
			comment        TEXT NOT NULL DEFAULT '',
			voter_position TEXT NOT NULL,
			voter_store    TEXT NOT NULL,
			UNIQUE (vote_id, voter_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
	}

	return nil
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	statements := []string{
		`DROP TABLE IF EXISTS ballots`,
		`DROP TABLE IF EXISTS vote_eligible_voters`,
		`DROP TABLE IF EXISTS promotion_votes`,
		`DROP TABLE IF EXISTS employees`,
	}

	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO employees (employee_id, name, store, position) VALUES
			('E01', 'Mallory Quinn', 'central', 'GeneralManager'),
			('E02', 'Devon Park', 'central', 'Manager'),
			('E03', 'Sasha Lindqvist', 'central', 'Supervisor'),
			('E04', 'Timo Vered', 'central', 'Staff'),
			('E05', 'Ira Chen', 'central', 'Staff'),
			('E06', 'Noor Haddad', 'riverside', 'Manager'),
			('E07', 'Felix Aranda', 'riverside', 'Supervisor'),
			('E08', 'Greta Moss', 'riverside', 'Staff')
		ON CONFLICT (employee_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to seed employees: %w", err)
	}

	return nil
}
