package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"promovote/internal/domain"
	apperrors "promovote/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func centralStoreDirectory() *fakeDirectory {
	return newFakeDirectory(
		&domain.Employee{EmployeeID: "E42", Name: "Timo Vered", Store: "central", Position: domain.PositionStaff, Active: true},
		&domain.Employee{EmployeeID: "E10", Name: "Ira Chen", Store: "central", Position: domain.PositionStaff, Active: true},
		&domain.Employee{EmployeeID: "E11", Name: "Sasha Lindqvist", Store: "central", Position: domain.PositionSupervisor, Active: true},
		&domain.Employee{EmployeeID: "E12", Name: "Devon Park", Store: "central", Position: domain.PositionManager, Active: true},
		&domain.Employee{EmployeeID: "E13", Name: "Lena Ortiz", Store: "central", Position: domain.PositionStaff, Active: false},
		&domain.Employee{EmployeeID: "E20", Name: "Noor Haddad", Store: "riverside", Position: domain.PositionManager, Active: true},
	)
}

func newTestService(ledger *fakeLedger, directory *fakeDirectory, notifier Notifier) *VotingService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return NewVotingService(
		ledger,
		directory,
		notifier,
		NewCacheService(nil, zap.NewNop()),
		7*24*time.Hour,
		2*time.Second,
		zap.NewNop(),
	)
}

func mustInitiate(t *testing.T, svc *VotingService, applicantID, targetPosition string) *domain.InitiateVoteResponse {
	t.Helper()
	resp, err := svc.Initiate(context.Background(), &domain.InitiateVoteRequest{
		ApplicantID:    applicantID,
		TargetPosition: targetPosition,
	})
	require.NoError(t, err)
	return resp
}

func TestInitiate(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots eligible voters and opens the round", func(t *testing.T) {
		ledger := newFakeLedger()
		svc := newTestService(ledger, centralStoreDirectory(), nil)

		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)

		// E42, E10, E11, E12 qualify; the inactive E13 and the other-store
		// E20 do not.
		assert.Equal(t, 4, resp.EligibleVoterCount)
		assert.NotEmpty(t, resp.VoteID)

		vote, err := ledger.GetVoteByID(ctx, resp.VoteID)
		require.NoError(t, err)
		require.NotNil(t, vote)
		assert.Equal(t, domain.StatusOpen, vote.Status)
		assert.Equal(t, "E42", vote.ApplicantID)
		assert.Equal(t, domain.PositionStaff, vote.CurrentPosition)
		assert.Equal(t, domain.PositionSupervisor, vote.TargetPosition)
		assert.Equal(t, 0, vote.AgreeCount)
		assert.Equal(t, 0, vote.DisagreeCount)
		assert.Len(t, vote.EligibleVoters, 4)
		assert.WithinDuration(t, vote.InitiatedAt.Add(7*24*time.Hour), vote.Deadline, time.Second)

		_, inactiveEligible := vote.VoterEligible("E13")
		assert.False(t, inactiveEligible)
	})

	t.Run("emits an initiation event", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), notifier)

		mustInitiate(t, svc, "E42", domain.PositionSupervisor)

		assert.Equal(t, 1, notifier.count(EventVoteInitiated))
	})

	t.Run("rejects a second open round for the same applicant", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), nil)

		mustInitiate(t, svc, "E42", domain.PositionSupervisor)

		_, err := svc.Initiate(ctx, &domain.InitiateVoteRequest{
			ApplicantID:    "E42",
			TargetPosition: domain.PositionManager,
		})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("unknown applicant", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), nil)

		_, err := svc.Initiate(ctx, &domain.InitiateVoteRequest{
			ApplicantID:    "E99",
			TargetPosition: domain.PositionSupervisor,
		})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("missing target position", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), nil)

		_, err := svc.Initiate(ctx, &domain.InitiateVoteRequest{ApplicantID: "E42"})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("inactive applicant", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), nil)

		_, err := svc.Initiate(ctx, &domain.InitiateVoteRequest{
			ApplicantID:    "E13",
			TargetPosition: domain.PositionSupervisor,
		})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("closes a stale expired round before opening a new one", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.putVote(&domain.VoteRecord{
			VoteID:             "PVstale",
			ApplicantID:        "E42",
			Store:              "central",
			CurrentPosition:    domain.PositionStaff,
			TargetPosition:     domain.PositionSupervisor,
			InitiatedAt:        time.Now().Add(-8 * 24 * time.Hour),
			Deadline:           time.Now().Add(-24 * time.Hour),
			EligibleVoterCount: 4,
			Status:             domain.StatusOpen,
		})
		svc := newTestService(ledger, centralStoreDirectory(), nil)

		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)

		assert.Equal(t, domain.StatusRejected, ledger.voteStatus("PVstale"))
		assert.Equal(t, domain.StatusOpen, ledger.voteStatus(resp.VoteID))
	})

	t.Run("stale approved round raises the threshold for the new snapshot", func(t *testing.T) {
		ledger := newFakeLedger()
		directory := centralStoreDirectory()
		svc := newTestService(ledger, directory, nil)

		// An expired round with a clear majority closes Approved during the
		// new initiation, promoting E42 to Supervisor first.
		ledger.putVote(&domain.VoteRecord{
			VoteID:             "PVcarried",
			ApplicantID:        "E42",
			Store:              "central",
			CurrentPosition:    domain.PositionStaff,
			TargetPosition:     domain.PositionSupervisor,
			InitiatedAt:        time.Now().Add(-8 * 24 * time.Hour),
			Deadline:           time.Now().Add(-24 * time.Hour),
			AgreeCount:         3,
			EligibleVoterCount: 4,
			Status:             domain.StatusOpen,
		})

		resp := mustInitiate(t, svc, "E42", domain.PositionManager)

		assert.Equal(t, domain.StatusApproved, ledger.voteStatus("PVcarried"))
		assert.Equal(t, []string{"E42:" + domain.PositionSupervisor}, directory.updates())

		vote, err := ledger.GetVoteByID(ctx, resp.VoteID)
		require.NoError(t, err)
		assert.Equal(t, domain.PositionSupervisor, vote.CurrentPosition)
		// The Staff peer E10 no longer meets the raised threshold.
		_, ok := vote.VoterEligible("E10")
		assert.False(t, ok)
		assert.Equal(t, 3, vote.EligibleVoterCount)
	})
}

func TestSubmitBallot(t *testing.T) {
	ctx := context.Background()

	t.Run("majority approval applies the promotion exactly once", func(t *testing.T) {
		ledger := newFakeLedger()
		directory := centralStoreDirectory()
		notifier := &recordingNotifier{}
		svc := newTestService(ledger, directory, notifier)

		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)
		require.Equal(t, 4, resp.EligibleVoterCount)

		ballots := []struct {
			voterID string
			choice  string
		}{
			{"E10", "agree"},
			{"E11", "agree"},
			{"E12", "agree"},
			{"E42", "disagree"},
		}
		for _, b := range ballots {
			err := svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
				VoterID: b.voterID,
				Choice:  b.choice,
			})
			require.NoError(t, err)
		}

		vote, err := ledger.GetVoteByID(ctx, resp.VoteID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, vote.Status)
		assert.Equal(t, 3, vote.AgreeCount)
		assert.Equal(t, 1, vote.DisagreeCount)

		// The directory was updated exactly once, with the target position.
		assert.Equal(t, []string{"E42:" + domain.PositionSupervisor}, directory.updates())

		assert.Equal(t, 4, notifier.count(EventVoteProgress))
		assert.Equal(t, 1, notifier.count(EventVoteCompleted))
	})

	t.Run("majority disagreement closes as rejected without a directory update", func(t *testing.T) {
		ledger := newFakeLedger()
		directory := centralStoreDirectory()
		svc := newTestService(ledger, directory, nil)

		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)

		for i, choice := range []string{"disagree", "disagree", "disagree", "agree"} {
			voterID := []string{"E10", "E11", "E12", "E42"}[i]
			require.NoError(t, svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
				VoterID: voterID,
				Choice:  choice,
			}))
		}

		assert.Equal(t, domain.StatusRejected, ledger.voteStatus(resp.VoteID))
		assert.Empty(t, directory.updates())
	})

	t.Run("ineligible voter is refused", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), nil)
		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)

		err := svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
			VoterID: "E20", // other store, not in the snapshot
			Choice:  "agree",
		})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeIneligible))
	})

	t.Run("repeat ballot by the same voter is refused", func(t *testing.T) {
		ledger := newFakeLedger()
		svc := newTestService(ledger, centralStoreDirectory(), nil)
		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)

		require.NoError(t, svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
			VoterID: "E10",
			Choice:  "agree",
		}))

		err := svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
			VoterID: "E10",
			Choice:  "disagree",
		})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

		vote, _ := ledger.GetVoteByID(ctx, resp.VoteID)
		assert.Equal(t, 1, vote.TotalCast())
	})

	t.Run("ballot on a closed round is refused", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), nil)
		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)

		for _, voterID := range []string{"E10", "E11", "E12", "E42"} {
			require.NoError(t, svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
				VoterID: voterID,
				Choice:  "agree",
			}))
		}

		err := svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
			VoterID: "E10",
			Choice:  "agree",
		})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("late ballot is refused and closes the round", func(t *testing.T) {
		ledger := newFakeLedger()
		directory := centralStoreDirectory()
		notifier := &recordingNotifier{}
		svc := newTestService(ledger, directory, notifier)

		ledger.putVote(&domain.VoteRecord{
			VoteID:             "PVlate",
			ApplicantID:        "E42",
			Store:              "central",
			TargetPosition:     domain.PositionSupervisor,
			InitiatedAt:        time.Now().Add(-8 * 24 * time.Hour),
			Deadline:           time.Now().Add(-time.Hour),
			AgreeCount:         1,
			DisagreeCount:      1,
			EligibleVoterCount: 10,
			EligibleVoters: []domain.EligibleVoter{
				{EmployeeID: "E10", Name: "Ira Chen", Position: domain.PositionStaff},
			},
			Status: domain.StatusOpen,
		})

		err := svc.SubmitBallot(ctx, "PVlate", &domain.SubmitBallotRequest{
			VoterID: "E10",
			Choice:  "agree",
		})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExpired))

		// Tie at the deadline resolves to rejected: 1/2 is not > 0.5.
		assert.Equal(t, domain.StatusRejected, ledger.voteStatus("PVlate"))
		assert.Empty(t, directory.updates())
		assert.Equal(t, 1, notifier.count(EventVoteCompleted))
	})

	t.Run("ballot audit captures the voter's standing at submission", func(t *testing.T) {
		ledger := newFakeLedger()
		directory := centralStoreDirectory()
		svc := newTestService(ledger, directory, nil)

		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)

		// E10 is promoted mid-round: the frozen snapshot keeps them eligible,
		// but the recorded ballot carries their standing as of submission.
		require.NoError(t, directory.UpdatePosition(ctx, "E10", domain.PositionSupervisor))

		require.NoError(t, svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
			VoterID: "E10",
			Choice:  "agree",
		}))

		ballot, err := ledger.GetBallot(ctx, resp.VoteID, "E10")
		require.NoError(t, err)
		require.NotNil(t, ballot)
		assert.Equal(t, domain.PositionSupervisor, ballot.VoterPosition)
		assert.Equal(t, "central", ballot.VoterStore)
	})

	t.Run("unknown vote", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), nil)

		err := svc.SubmitBallot(ctx, "PVmissing", &domain.SubmitBallotRequest{
			VoterID: "E10",
			Choice:  "agree",
		})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("invalid choice", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), nil)

		err := svc.SubmitBallot(ctx, "PVany", &domain.SubmitBallotRequest{
			VoterID: "E10",
			Choice:  "abstain",
		})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}

func TestEligibilitySnapshotIsFrozen(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	directory := centralStoreDirectory()
	svc := newTestService(ledger, directory, nil)

	resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)
	require.Equal(t, 4, resp.EligibleVoterCount)

	// A manager hired into the store after initiation must not join the
	// electorate or change the denominator.
	directory.add(&domain.Employee{
		EmployeeID: "E30",
		Name:       "Greta Moss",
		Store:      "central",
		Position:   domain.PositionManager,
		Active:     true,
	})

	err := svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
		VoterID: "E30",
		Choice:  "agree",
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeIneligible))

	vote, err := ledger.GetVoteByID(ctx, resp.VoteID)
	require.NoError(t, err)
	assert.Equal(t, 4, vote.EligibleVoterCount)
	assert.Equal(t, 0, vote.TotalCast())
}

func TestCompleteIfDue(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent on terminal rounds", func(t *testing.T) {
		ledger := newFakeLedger()
		directory := centralStoreDirectory()
		notifier := &recordingNotifier{}
		svc := newTestService(ledger, directory, notifier)

		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)
		for _, voterID := range []string{"E10", "E11", "E12", "E42"} {
			require.NoError(t, svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
				VoterID: voterID,
				Choice:  "agree",
			}))
		}
		require.Equal(t, domain.StatusApproved, ledger.voteStatus(resp.VoteID))

		require.NoError(t, svc.CompleteIfDue(ctx, resp.VoteID))
		require.NoError(t, svc.CompleteIfDue(ctx, resp.VoteID))

		assert.Len(t, directory.updates(), 1)
		assert.Equal(t, 1, notifier.count(EventVoteCompleted))
	})

	t.Run("no-op before quorum and deadline", func(t *testing.T) {
		ledger := newFakeLedger()
		svc := newTestService(ledger, centralStoreDirectory(), nil)

		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)
		require.NoError(t, svc.CompleteIfDue(ctx, resp.VoteID))

		assert.Equal(t, domain.StatusOpen, ledger.voteStatus(resp.VoteID))
	})
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	directory := centralStoreDirectory()
	notifier := &recordingNotifier{}
	svc := newTestService(ledger, directory, notifier)

	// Expired with zero ballots: rejected.
	ledger.putVote(&domain.VoteRecord{
		VoteID:             "PVzero",
		ApplicantID:        "E42",
		Store:              "central",
		TargetPosition:     domain.PositionSupervisor,
		Deadline:           time.Now().Add(-time.Hour),
		EligibleVoterCount: 10,
		Status:             domain.StatusOpen,
	})
	// Expired with a clear majority: approved on sweep.
	ledger.putVote(&domain.VoteRecord{
		VoteID:             "PVmajority",
		ApplicantID:        "E10",
		Store:              "central",
		TargetPosition:     domain.PositionSupervisor,
		Deadline:           time.Now().Add(-time.Hour),
		AgreeCount:         3,
		DisagreeCount:      1,
		EligibleVoterCount: 10,
		Status:             domain.StatusOpen,
	})
	// Still running: untouched.
	ledger.putVote(&domain.VoteRecord{
		VoteID:             "PVrunning",
		ApplicantID:        "E11",
		Store:              "central",
		TargetPosition:     domain.PositionManager,
		Deadline:           time.Now().Add(time.Hour),
		EligibleVoterCount: 10,
		Status:             domain.StatusOpen,
	})

	closed, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, closed)

	assert.Equal(t, domain.StatusRejected, ledger.voteStatus("PVzero"))
	assert.Equal(t, domain.StatusApproved, ledger.voteStatus("PVmajority"))
	assert.Equal(t, domain.StatusOpen, ledger.voteStatus("PVrunning"))

	assert.Equal(t, []string{"E10:" + domain.PositionSupervisor}, directory.updates())
	assert.Equal(t, 2, notifier.count(EventVoteCompleted))
}

func TestQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("get vote closes an expired round on read", func(t *testing.T) {
		ledger := newFakeLedger()
		svc := newTestService(ledger, centralStoreDirectory(), nil)

		ledger.putVote(&domain.VoteRecord{
			VoteID:             "PVread",
			ApplicantID:        "E42",
			Store:              "central",
			TargetPosition:     domain.PositionSupervisor,
			Deadline:           time.Now().Add(-time.Hour),
			EligibleVoterCount: 4,
			Status:             domain.StatusOpen,
		})

		vote, err := svc.GetVote(ctx, "PVread")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, vote.Status)
	})

	t.Run("get vote unknown id", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), nil)

		_, err := svc.GetVote(ctx, "PVmissing")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("active vote round-trips", func(t *testing.T) {
		svc := newTestService(newFakeLedger(), centralStoreDirectory(), nil)

		vote, err := svc.GetActiveVote(ctx, "E42")
		require.NoError(t, err)
		assert.Nil(t, vote)

		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)

		vote, err = svc.GetActiveVote(ctx, "E42")
		require.NoError(t, err)
		require.NotNil(t, vote)
		assert.Equal(t, resp.VoteID, vote.VoteID)
	})

	t.Run("ballots are listed in submission order", func(t *testing.T) {
		ledger := newFakeLedger()
		svc := newTestService(ledger, centralStoreDirectory(), nil)

		resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)
		for _, b := range []struct{ voterID, choice string }{
			{"E10", "agree"},
			{"E11", "disagree"},
		} {
			require.NoError(t, svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
				VoterID: b.voterID,
				Choice:  b.choice,
			}))
		}

		ballots, err := svc.GetBallots(ctx, resp.VoteID)
		require.NoError(t, err)
		require.Len(t, ballots, 2)
		assert.Equal(t, "E10", ballots[0].VoterID)
		assert.Equal(t, domain.ChoiceAgree, ballots[0].Choice)
		assert.Equal(t, "E11", ballots[1].VoterID)
		assert.NotEmpty(t, ballots[0].BallotID)

		_, err = svc.GetBallots(ctx, "PVmissing")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("history is newest first and filterable", func(t *testing.T) {
		ledger := newFakeLedger()
		svc := newTestService(ledger, centralStoreDirectory(), nil)

		base := time.Now().Add(-48 * time.Hour)
		for i, status := range []domain.VoteStatus{domain.StatusRejected, domain.StatusApproved, domain.StatusOpen} {
			ledger.putVote(&domain.VoteRecord{
				VoteID:             fmt.Sprintf("PVh%d", i),
				ApplicantID:        "E42",
				Store:              "central",
				TargetPosition:     domain.PositionSupervisor,
				InitiatedAt:        base.Add(time.Duration(i) * time.Hour),
				Deadline:           time.Now().Add(time.Hour),
				EligibleVoterCount: 4,
				Status:             status,
				CreatedAt:          base.Add(time.Duration(i) * time.Hour),
			})
		}

		votes, err := svc.GetHistory(ctx, domain.VoteHistoryFilter{EmployeeID: "E42"})
		require.NoError(t, err)
		require.Len(t, votes, 3)
		assert.Equal(t, "PVh2", votes[0].VoteID)
		assert.Equal(t, "PVh0", votes[2].VoteID)

		approved, err := svc.GetHistory(ctx, domain.VoteHistoryFilter{Status: domain.StatusApproved})
		require.NoError(t, err)
		require.Len(t, approved, 1)
		assert.Equal(t, "PVh1", approved[0].VoteID)
	})
}

func TestConcurrentBallots(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()

	employees := []*domain.Employee{
		{EmployeeID: "E42", Name: "Timo Vered", Store: "central", Position: domain.PositionStaff, Active: true},
	}
	voterIDs := make([]string, 0, 8)
	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("V%02d", i)
		employees = append(employees, &domain.Employee{
			EmployeeID: id,
			Name:       "Voter " + id,
			Store:      "central",
			Position:   domain.PositionSupervisor,
			Active:     true,
		})
		voterIDs = append(voterIDs, id)
	}
	voterIDs = append(voterIDs, "E42")

	directory := newFakeDirectory(employees...)
	svc := newTestService(ledger, directory, nil)

	resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)
	require.Equal(t, 8, resp.EligibleVoterCount)

	// 5 agree / 3 disagree, submitted concurrently.
	var wg sync.WaitGroup
	errs := make([]error, len(voterIDs))
	for i, voterID := range voterIDs {
		wg.Add(1)
		go func(i int, voterID string) {
			defer wg.Done()
			choice := "agree"
			if i >= 5 {
				choice = "disagree"
			}
			errs[i] = svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
				VoterID: voterID,
				Choice:  choice,
			})
		}(i, voterID)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "ballot %d", i)
	}

	vote, err := ledger.GetVoteByID(ctx, resp.VoteID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, vote.Status)
	assert.Equal(t, 5, vote.AgreeCount)
	assert.Equal(t, 3, vote.DisagreeCount)
	assert.LessOrEqual(t, vote.TotalCast(), vote.EligibleVoterCount)
	assert.Len(t, directory.updates(), 1)
}

func TestSubmitBallotLockTimeout(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	svc := newTestService(ledger, centralStoreDirectory(), nil)
	svc.lockWait = 50 * time.Millisecond

	resp := mustInitiate(t, svc, "E42", domain.PositionSupervisor)

	// Hold the round's lock so the submission cannot acquire it in time.
	release, err := svc.locks.acquire(ctx, lockKeyVote(resp.VoteID), time.Second)
	require.NoError(t, err)
	defer release()

	err = svc.SubmitBallot(ctx, resp.VoteID, &domain.SubmitBallotRequest{
		VoterID: "E10",
		Choice:  "agree",
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLockTimeout))
}
