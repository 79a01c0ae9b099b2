package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"promovote/internal/domain"
	"promovote/internal/repository"
	apperrors "promovote/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// VotingService drives the promotion-voting state machine: it opens rounds,
// records ballots, detects completion and applies approved outcomes to the
// employee directory. Every mutation of a round runs under a per-key advisory
// lock with a bounded wait; read queries bypass the lock and may observe a
// stale snapshot.
type VotingService struct {
	ledger       repository.VoteLedger
	directory    repository.EmployeeDirectory
	eligibility  *EligibilityResolver
	notifier     Notifier
	cache        *CacheService
	locks        *keyedLock
	lockWait     time.Duration
	votingPeriod time.Duration
	logger       *zap.Logger
}

func NewVotingService(
	ledger repository.VoteLedger,
	directory repository.EmployeeDirectory,
	notifier Notifier,
	cache *CacheService,
	votingPeriod time.Duration,
	lockWait time.Duration,
	logger *zap.Logger,
) *VotingService {
	return &VotingService{
		ledger:       ledger,
		directory:    directory,
		eligibility:  NewEligibilityResolver(directory, logger),
		notifier:     notifier,
		cache:        cache,
		locks:        newKeyedLock(),
		lockWait:     lockWait,
		votingPeriod: votingPeriod,
		logger:       logger,
	}
}

func lockKeyApplicant(applicantID string) string { return "applicant:" + applicantID }
func lockKeyVote(voteID string) string           { return "vote:" + voteID }

// Initiate opens a new promotion round for the applicant: it validates
// preconditions under the applicant lock, freezes the eligible-voter snapshot
// and persists the open record.
func (s *VotingService) Initiate(ctx context.Context, req *domain.InitiateVoteRequest) (*domain.InitiateVoteResponse, error) {
	if req.ApplicantID == "" {
		return nil, apperrors.NewValidationError("applicant_id is required", nil)
	}
	if req.TargetPosition == "" {
		return nil, apperrors.NewValidationError("target_position is required", nil)
	}

	release, err := s.locks.acquire(ctx, lockKeyApplicant(req.ApplicantID), s.lockWait)
	if err != nil {
		s.logger.Error("failed to acquire applicant lock",
			zap.String("applicant_id", req.ApplicantID),
			zap.Error(err))
		return nil, err
	}
	defer release()

	applicant, err := s.directory.GetByID(ctx, req.ApplicantID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up applicant", err)
	}
	if applicant == nil {
		return nil, apperrors.NewNotFoundError("applicant not found")
	}
	if !applicant.Active {
		return nil, apperrors.NewValidationError("applicant is not an active employee", nil)
	}

	open, err := s.ledger.GetOpenVoteByApplicant(ctx, req.ApplicantID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check for open vote", err)
	}
	if open != nil {
		if !open.Expired(time.Now()) {
			return nil, apperrors.NewConflictError("an open promotion vote already exists for this applicant")
		}
		// A stale round past its deadline blocks the applicant; close it
		// before opening the new one.
		if err := s.CompleteIfDue(ctx, open.VoteID); err != nil {
			return nil, err
		}
		// Closing the stale round may have promoted the applicant, which
		// moves the eligibility threshold. Reload before snapshotting.
		applicant, err = s.directory.GetByID(ctx, req.ApplicantID)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to reload applicant", err)
		}
		if applicant == nil {
			return nil, apperrors.NewNotFoundError("applicant not found")
		}
	}

	voters, err := s.eligibility.Resolve(ctx, applicant.Store, applicant.Position)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to resolve eligible voters", err)
	}

	now := time.Now().UTC()
	vote := &domain.VoteRecord{
		VoteID:             s.generateVoteID(),
		ApplicantID:        applicant.EmployeeID,
		ApplicantName:      applicant.Name,
		Store:              applicant.Store,
		CurrentPosition:    applicant.Position,
		TargetPosition:     req.TargetPosition,
		InitiatedAt:        now,
		Deadline:           now.Add(s.votingPeriod),
		EligibleVoterCount: len(voters),
		EligibleVoters:     voters,
		Status:             domain.StatusOpen,
		Reason:             req.Reason,
		CreatedAt:          now,
	}

	if err := s.ledger.CreateVote(ctx, vote); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("an open promotion vote already exists for this applicant")
		}
		return nil, apperrors.NewInternalError("failed to persist vote", err)
	}

	s.cache.InvalidateVote(ctx, vote.VoteID, vote.ApplicantID)

	s.notifier.Notify(ctx, EventVoteInitiated, map[string]interface{}{
		"vote_id":              vote.VoteID,
		"applicant_id":         vote.ApplicantID,
		"applicant_name":       vote.ApplicantName,
		"store":                vote.Store,
		"target_position":      vote.TargetPosition,
		"deadline":             vote.Deadline,
		"eligible_voter_count": vote.EligibleVoterCount,
	})

	s.logger.Info("promotion vote initiated",
		zap.String("vote_id", vote.VoteID),
		zap.String("applicant_id", vote.ApplicantID),
		zap.String("target_position", vote.TargetPosition),
		zap.Int("eligible_voters", vote.EligibleVoterCount))

	return &domain.InitiateVoteResponse{
		VoteID:             vote.VoteID,
		Deadline:           vote.Deadline,
		EligibleVoterCount: vote.EligibleVoterCount,
		Message:            "Promotion vote initiated successfully",
	}, nil
}

// SubmitBallot validates and records one voter's ballot. All checks and the
// tally mutation run under the round's lock so no two ballots observe the
// same pre-increment counts.
func (s *VotingService) SubmitBallot(ctx context.Context, voteID string, req *domain.SubmitBallotRequest) error {
	if voteID == "" {
		return apperrors.NewValidationError("vote_id is required", nil)
	}
	if req.VoterID == "" {
		return apperrors.NewValidationError("voter_id is required", nil)
	}
	choice := domain.BallotChoice(req.Choice)
	if !choice.Valid() {
		return apperrors.NewValidationError("choice must be agree or disagree", nil)
	}

	release, err := s.locks.acquire(ctx, lockKeyVote(voteID), s.lockWait)
	if err != nil {
		s.logger.Error("failed to acquire vote lock",
			zap.String("vote_id", voteID),
			zap.Error(err))
		return err
	}
	defer release()

	vote, err := s.ledger.GetVoteByID(ctx, voteID)
	if err != nil {
		return apperrors.NewInternalError("failed to load vote", err)
	}
	if vote == nil {
		return apperrors.NewNotFoundError("promotion vote not found")
	}
	if vote.Status != domain.StatusOpen {
		return apperrors.NewConflictError("this promotion vote is already closed")
	}

	now := time.Now().UTC()
	if vote.Expired(now) {
		// The deadline elapsed without further ballots; close the round so it
		// does not remain silently open, then reject the late ballot.
		if err := s.finalizeLocked(ctx, vote); err != nil {
			return err
		}
		return apperrors.NewExpiredError("the voting deadline has passed")
	}

	voter, ok := vote.VoterEligible(req.VoterID)
	if !ok {
		return apperrors.NewIneligibleError("voter is not eligible for this promotion vote")
	}

	existing, err := s.ledger.GetBallot(ctx, voteID, req.VoterID)
	if err != nil {
		return apperrors.NewInternalError("failed to check for prior ballot", err)
	}
	if existing != nil {
		return apperrors.NewConflictError("voter has already voted on this promotion")
	}

	// The audit columns record the voter's position and store as of this
	// submission; a voter promoted or transferred mid-round is captured with
	// their current standing, not the snapshot's.
	voterPosition := voter.Position
	voterStore := vote.Store
	if emp, lookupErr := s.directory.GetByID(ctx, req.VoterID); lookupErr == nil && emp != nil {
		voterPosition = emp.Position
		voterStore = emp.Store
	}

	ballot := &domain.Ballot{
		BallotID:      uuid.NewString(),
		VoteID:        voteID,
		VoterID:       voter.EmployeeID,
		VoterName:     voter.Name,
		Choice:        choice,
		SubmittedAt:   now,
		Comment:       req.Comment,
		VoterPosition: voterPosition,
		VoterStore:    voterStore,
	}

	if err := s.ledger.RecordBallot(ctx, ballot); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("voter has already voted on this promotion")
		}
		return apperrors.NewInternalError("failed to record ballot", err)
	}

	if choice == domain.ChoiceAgree {
		vote.AgreeCount++
	} else {
		vote.DisagreeCount++
	}

	s.cache.InvalidateVote(ctx, voteID, vote.ApplicantID)

	s.notifier.Notify(ctx, EventVoteProgress, map[string]interface{}{
		"vote_id":              voteID,
		"applicant_id":         vote.ApplicantID,
		"agree_count":          vote.AgreeCount,
		"disagree_count":       vote.DisagreeCount,
		"eligible_voter_count": vote.EligibleVoterCount,
	})

	s.logger.Info("ballot recorded",
		zap.String("vote_id", voteID),
		zap.String("voter_id", voter.EmployeeID),
		zap.String("choice", string(choice)),
		zap.Int("total_cast", vote.TotalCast()))

	if vote.QuorumReached() {
		return s.finalizeLocked(ctx, vote)
	}

	return nil
}

// CompleteIfDue closes the round when full quorum is reached or the deadline
// has passed. It is a no-op on terminal rounds, so repeated invocations never
// re-fire the outcome application or notifications.
func (s *VotingService) CompleteIfDue(ctx context.Context, voteID string) error {
	release, err := s.locks.acquire(ctx, lockKeyVote(voteID), s.lockWait)
	if err != nil {
		return err
	}
	defer release()

	vote, err := s.ledger.GetVoteByID(ctx, voteID)
	if err != nil {
		return apperrors.NewInternalError("failed to load vote", err)
	}
	if vote == nil {
		return apperrors.NewNotFoundError("promotion vote not found")
	}
	if vote.Status != domain.StatusOpen {
		return nil
	}

	if !vote.QuorumReached() && !vote.Expired(time.Now()) {
		return nil
	}

	return s.finalizeLocked(ctx, vote)
}

// finalizeLocked transitions an open round to its terminal status, applies an
// approved outcome to the directory and emits the completion event. The
// caller must hold the round's lock; the directory update happens inside that
// critical section so two concurrent completions cannot double-apply a
// promotion.
func (s *VotingService) finalizeLocked(ctx context.Context, vote *domain.VoteRecord) error {
	if vote.Status != domain.StatusOpen {
		return nil
	}

	outcome := vote.Outcome()

	changed, err := s.ledger.CloseVote(ctx, vote.VoteID, outcome)
	if err != nil {
		return apperrors.NewInternalError("failed to close vote", err)
	}
	if !changed {
		// Another completion path already closed the round.
		return nil
	}
	vote.Status = outcome

	if outcome == domain.StatusApproved {
		if err := s.directory.UpdatePosition(ctx, vote.ApplicantID, vote.TargetPosition); err != nil {
			s.logger.Error("failed to apply promotion outcome",
				zap.String("vote_id", vote.VoteID),
				zap.String("applicant_id", vote.ApplicantID),
				zap.String("target_position", vote.TargetPosition),
				zap.Error(err))
			return apperrors.NewInternalError("failed to apply promotion outcome", err)
		}
	}

	s.cache.InvalidateVote(ctx, vote.VoteID, vote.ApplicantID)

	s.notifier.Notify(ctx, EventVoteCompleted, map[string]interface{}{
		"vote_id":         vote.VoteID,
		"applicant_id":    vote.ApplicantID,
		"applicant_name":  vote.ApplicantName,
		"status":          vote.Status,
		"agree_count":     vote.AgreeCount,
		"disagree_count":  vote.DisagreeCount,
		"target_position": vote.TargetPosition,
	})

	s.logger.Info("promotion vote closed",
		zap.String("vote_id", vote.VoteID),
		zap.String("status", string(vote.Status)),
		zap.Int("agree", vote.AgreeCount),
		zap.Int("disagree", vote.DisagreeCount),
		zap.Int("eligible", vote.EligibleVoterCount))

	return nil
}

// GetVote returns a round by ID. An open round found past its deadline is
// closed opportunistically before being returned.
func (s *VotingService) GetVote(ctx context.Context, voteID string) (*domain.VoteRecord, error) {
	vote, err := s.cache.GetVoteWithCache(ctx, voteID, s.ledger.GetVoteByID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load vote", err)
	}
	if vote == nil {
		return nil, apperrors.NewNotFoundError("promotion vote not found")
	}

	if vote.Status == domain.StatusOpen && vote.Expired(time.Now()) {
		if err := s.CompleteIfDue(ctx, voteID); err != nil {
			return nil, err
		}
		vote, err = s.ledger.GetVoteByID(ctx, voteID)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to reload vote", err)
		}
	}

	return vote, nil
}

// GetActiveVote returns the employee's open round, or nil when there is none.
// An expired open round is closed opportunistically and reported as absent.
func (s *VotingService) GetActiveVote(ctx context.Context, employeeID string) (*domain.VoteRecord, error) {
	if employeeID == "" {
		return nil, apperrors.NewValidationError("employee_id is required", nil)
	}

	vote, err := s.cache.GetActiveVoteWithCache(ctx, employeeID, s.ledger.GetOpenVoteByApplicant)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load active vote", err)
	}
	if vote == nil {
		return nil, nil
	}

	if vote.Expired(time.Now()) {
		if err := s.CompleteIfDue(ctx, vote.VoteID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return vote, nil
}

// GetBallots returns the recorded ballots of a round in submission order, for
// audit of a closed or running round.
func (s *VotingService) GetBallots(ctx context.Context, voteID string) ([]*domain.Ballot, error) {
	vote, err := s.ledger.GetVoteByID(ctx, voteID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load vote", err)
	}
	if vote == nil {
		return nil, apperrors.NewNotFoundError("promotion vote not found")
	}

	ballots, err := s.ledger.ListBallots(ctx, voteID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list ballots", err)
	}
	return ballots, nil
}

// GetHistory lists rounds matching the filter, newest first.
func (s *VotingService) GetHistory(ctx context.Context, filter domain.VoteHistoryFilter) ([]*domain.VoteRecord, error) {
	votes, err := s.ledger.ListVotes(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list votes", err)
	}
	return votes, nil
}

// SweepExpired closes every open round past its deadline and returns the
// number of rounds closed. Intended for the external scheduler.
func (s *VotingService) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.ledger.ListExpiredOpenVoteIDs(ctx)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to list expired votes", err)
	}

	closed := 0
	for _, id := range ids {
		if err := s.CompleteIfDue(ctx, id); err != nil {
			s.logger.Error("failed to close expired vote",
				zap.String("vote_id", id),
				zap.Error(err))
			continue
		}
		closed++
	}

	if closed > 0 {
		s.logger.Info("expired votes swept", zap.Int("closed", closed))
	}

	return closed, nil
}

// HealthCheck verifies the service's cache dependency
func (s *VotingService) HealthCheck(ctx context.Context) error {
	if err := s.cache.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

// generateVoteID generates a unique, human-scannable vote ID
func (s *VotingService) generateVoteID() string {
	year := time.Now().Year()
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return fmt.Sprintf("PV%d%s", year, hex.EncodeToString(bytes))
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (duplicate open round or duplicate ballot).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
