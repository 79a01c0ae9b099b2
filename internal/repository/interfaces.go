package repository

import (
	"context"

	"promovote/internal/domain"
)

// VoteLedger owns the persisted VoteRecord and Ballot entities. All mutations
// of the voting tables pass through it; callers serialize mutating calls per
// round through the service-level lock.
type VoteLedger interface {
	// CreateVote persists a new round together with its frozen eligible-voter
	// snapshot.
	CreateVote(ctx context.Context, vote *domain.VoteRecord) error

	// GetVoteByID retrieves a round with its snapshot, or nil if unknown.
	GetVoteByID(ctx context.Context, voteID string) (*domain.VoteRecord, error)

	// GetOpenVoteByApplicant retrieves the applicant's open round, or nil.
	GetOpenVoteByApplicant(ctx context.Context, applicantID string) (*domain.VoteRecord, error)

	// ListVotes returns rounds matching the filter, newest first.
	ListVotes(ctx context.Context, filter domain.VoteHistoryFilter) ([]*domain.VoteRecord, error)

	// ListExpiredOpenVoteIDs returns the IDs of open rounds whose deadline has
	// passed, for the sweep.
	ListExpiredOpenVoteIDs(ctx context.Context) ([]string, error)

	// RecordBallot persists a ballot and bumps the matching tally counter in
	// one transaction.
	RecordBallot(ctx context.Context, ballot *domain.Ballot) error

	// GetBallot retrieves a voter's ballot on a round, or nil.
	GetBallot(ctx context.Context, voteID, voterID string) (*domain.Ballot, error)

	// ListBallots returns all ballots of a round in submission order.
	ListBallots(ctx context.Context, voteID string) ([]*domain.Ballot, error)

	// CloseVote transitions a round out of open. It reports false when the
	// round was already terminal, which callers use as the idempotency guard.
	CloseVote(ctx context.Context, voteID string, status domain.VoteStatus) (bool, error)
}

// EmployeeDirectory is the source of truth for employee identity, position,
// store and employment status.
type EmployeeDirectory interface {
	// GetByID retrieves an employee, or nil if unknown.
	GetByID(ctx context.Context, employeeID string) (*domain.Employee, error)

	// ListByStore returns all employees of a store, active or not.
	ListByStore(ctx context.Context, store string) ([]*domain.Employee, error)

	// UpdatePosition sets an employee's position.
	UpdatePosition(ctx context.Context, employeeID, newPosition string) error
}
