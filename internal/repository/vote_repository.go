package repository

import (
	"context"
	"fmt"
	"strings"

	"promovote/internal/domain"
	"promovote/pkg/database"

	"github.com/jackc/pgx/v5"
)

// VoteRepository is the pgx-backed VoteLedger. The eligible-voter snapshot
// lives in its own child table keyed by vote_id rather than a serialized
// column.
type VoteRepository struct {
	db *database.PostgresDB
}

func NewVoteRepository(db *database.PostgresDB) *VoteRepository {
	return &VoteRepository{db: db}
}

const voteColumns = `vote_id, applicant_id, applicant_name, store, current_position,
	       target_position, initiated_at, deadline, agree_count, disagree_count,
	       eligible_voter_count, status, reason, created_at`

// CreateVote persists a new round and its frozen voter snapshot transactionally
func (r *VoteRepository) CreateVote(ctx context.Context, vote *domain.VoteRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO promotion_votes (
			vote_id, applicant_id, applicant_name, store, current_position,
			target_position, initiated_at, deadline, agree_count, disagree_count,
			eligible_voter_count, status, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	err = tx.QueryRow(ctx, query,
		vote.VoteID,
		vote.ApplicantID,
		vote.ApplicantName,
		vote.Store,
		vote.CurrentPosition,
		vote.TargetPosition,
		vote.InitiatedAt,
		vote.Deadline,
		vote.AgreeCount,
		vote.DisagreeCount,
		vote.EligibleVoterCount,
		vote.Status,
		vote.Reason,
	).Scan(&vote.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}

	for i, voter := range vote.EligibleVoters {
		_, err = tx.Exec(ctx, `
			INSERT INTO vote_eligible_voters (vote_id, employee_id, name, position, ordinal)
			VALUES ($1, $2, $3, $4, $5)
		`, vote.VoteID, voter.EmployeeID, voter.Name, voter.Position, i)
		if err != nil {
			return fmt.Errorf("failed to store eligible voter: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit vote creation: %w", err)
	}

	return nil
}

// GetVoteByID retrieves a round with its voter snapshot
func (r *VoteRepository) GetVoteByID(ctx context.Context, voteID string) (*domain.VoteRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM promotion_votes WHERE vote_id = $1`, voteColumns)

	vote, err := r.scanVote(r.db.Pool.QueryRow(ctx, query, voteID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	if err := r.loadEligibleVoters(ctx, vote); err != nil {
		return nil, err
	}

	return vote, nil
}

// GetOpenVoteByApplicant retrieves the applicant's open round, or nil
func (r *VoteRepository) GetOpenVoteByApplicant(ctx context.Context, applicantID string) (*domain.VoteRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM promotion_votes
		WHERE applicant_id = $1 AND status = $2
	`, voteColumns)

	vote, err := r.scanVote(r.db.Pool.QueryRow(ctx, query, applicantID, domain.StatusOpen))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open vote: %w", err)
	}

	if err := r.loadEligibleVoters(ctx, vote); err != nil {
		return nil, err
	}

	return vote, nil
}

// ListVotes returns rounds matching the filter, newest first. The voter
// snapshot is not loaded for listings.
func (r *VoteRepository) ListVotes(ctx context.Context, filter domain.VoteHistoryFilter) ([]*domain.VoteRecord, error) {
	var conditions []string
	var args []interface{}

	addCondition := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.EmployeeID != "" {
		addCondition("applicant_id", filter.EmployeeID)
	}
	if filter.Store != "" {
		addCondition("store", filter.Store)
	}
	if filter.Status != "" {
		addCondition("status", filter.Status)
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("initiated_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("initiated_at <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM promotion_votes`, voteColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []*domain.VoteRecord
	for rows.Next() {
		vote, err := r.scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, vote)
	}

	return votes, rows.Err()
}

// ListExpiredOpenVoteIDs returns IDs of open rounds past their deadline
func (r *VoteRepository) ListExpiredOpenVoteIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT vote_id FROM promotion_votes
		WHERE status = $1 AND deadline < NOW()
		ORDER BY deadline ASC
	`, domain.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired votes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan vote id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// RecordBallot persists a ballot and bumps the tally in one transaction
func (r *VoteRepository) RecordBallot(ctx context.Context, ballot *domain.Ballot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO ballots (
			ballot_id, vote_id, voter_id, voter_name, choice,
			submitted_at, comment, voter_position, voter_store
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		ballot.BallotID,
		ballot.VoteID,
		ballot.VoterID,
		ballot.VoterName,
		ballot.Choice,
		ballot.SubmittedAt,
		ballot.Comment,
		ballot.VoterPosition,
		ballot.VoterStore,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ballot: %w", err)
	}

	tallyColumn := "agree_count"
	if ballot.Choice == domain.ChoiceDisagree {
		tallyColumn = "disagree_count"
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE promotion_votes
		SET %s = %s + 1
		WHERE vote_id = $1 AND status = $2
	`, tallyColumn, tallyColumn), ballot.VoteID, domain.StatusOpen)
	if err != nil {
		return fmt.Errorf("failed to update tally: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update tally: vote %s is not open", ballot.VoteID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit ballot: %w", err)
	}

	return nil
}

// GetBallot retrieves a voter's ballot on a round, or nil
func (r *VoteRepository) GetBallot(ctx context.Context, voteID, voterID string) (*domain.Ballot, error) {
	var ballot domain.Ballot
	err := r.db.Pool.QueryRow(ctx, `
		SELECT ballot_id, vote_id, voter_id, voter_name, choice,
		       submitted_at, comment, voter_position, voter_store
		FROM ballots
		WHERE vote_id = $1 AND voter_id = $2
	`, voteID, voterID).Scan(
		&ballot.BallotID,
		&ballot.VoteID,
		&ballot.VoterID,
		&ballot.VoterName,
		&ballot.Choice,
		&ballot.SubmittedAt,
		&ballot.Comment,
		&ballot.VoterPosition,
		&ballot.VoterStore,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ballot: %w", err)
	}

	return &ballot, nil
}

// ListBallots returns all ballots of a round in submission order
func (r *VoteRepository) ListBallots(ctx context.Context, voteID string) ([]*domain.Ballot, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT ballot_id, vote_id, voter_id, voter_name, choice,
		       submitted_at, comment, voter_position, voter_store
		FROM ballots
		WHERE vote_id = $1
		ORDER BY submitted_at ASC
	`, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ballots: %w", err)
	}
	defer rows.Close()

	var ballots []*domain.Ballot
	for rows.Next() {
		var ballot domain.Ballot
		err := rows.Scan(
			&ballot.BallotID,
			&ballot.VoteID,
			&ballot.VoterID,
			&ballot.VoterName,
			&ballot.Choice,
			&ballot.SubmittedAt,
			&ballot.Comment,
			&ballot.VoterPosition,
			&ballot.VoterStore,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		ballots = append(ballots, &ballot)
	}

	return ballots, rows.Err()
}

// CloseVote transitions a round out of open. The status = 'open' predicate
// makes the transition idempotent at the storage layer.
func (r *VoteRepository) CloseVote(ctx context.Context, voteID string, status domain.VoteStatus) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE promotion_votes
		SET status = $2
		WHERE vote_id = $1 AND status = $3
	`, voteID, status, domain.StatusOpen)
	if err != nil {
		return false, fmt.Errorf("failed to close vote: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *VoteRepository) scanVote(row rowScanner) (*domain.VoteRecord, error) {
	var vote domain.VoteRecord
	err := row.Scan(
		&vote.VoteID,
		&vote.ApplicantID,
		&vote.ApplicantName,
		&vote.Store,
		&vote.CurrentPosition,
		&vote.TargetPosition,
		&vote.InitiatedAt,
		&vote.Deadline,
		&vote.AgreeCount,
		&vote.DisagreeCount,
		&vote.EligibleVoterCount,
		&vote.Status,
		&vote.Reason,
		&vote.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *VoteRepository) loadEligibleVoters(ctx context.Context, vote *domain.VoteRecord) error {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT employee_id, name, position
		FROM vote_eligible_voters
		WHERE vote_id = $1
		ORDER BY ordinal ASC
	`, vote.VoteID)
	if err != nil {
		return fmt.Errorf("failed to load eligible voters: %w", err)
	}
	defer rows.Close()

	voters := make([]domain.EligibleVoter, 0, vote.EligibleVoterCount)
	for rows.Next() {
		var voter domain.EligibleVoter
		if err := rows.Scan(&voter.EmployeeID, &voter.Name, &voter.Position); err != nil {
			return fmt.Errorf("failed to scan eligible voter: %w", err)
		}
		voters = append(voters, voter)
	}

	vote.EligibleVoters = voters
	return rows.Err()
}
