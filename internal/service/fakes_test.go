package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"promovote/internal/domain"
)

// fakeLedger is an in-memory VoteLedger for service tests.
type fakeLedger struct {
	mu        sync.Mutex
	votes     map[string]*domain.VoteRecord
	ballots   map[string]map[string]*domain.Ballot
	ballotSeq map[string]int // voteID:voterID -> insertion order
	seq       int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		votes:     make(map[string]*domain.VoteRecord),
		ballots:   make(map[string]map[string]*domain.Ballot),
		ballotSeq: make(map[string]int),
	}
}

func cloneVote(v *domain.VoteRecord) *domain.VoteRecord {
	cp := *v
	cp.EligibleVoters = append([]domain.EligibleVoter(nil), v.EligibleVoters...)
	return &cp
}

func (l *fakeLedger) CreateVote(_ context.Context, vote *domain.VoteRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.votes {
		if existing.ApplicantID == vote.ApplicantID && existing.Status == domain.StatusOpen {
			return fmt.Errorf("duplicate open vote for applicant %s", vote.ApplicantID)
		}
	}

	l.votes[vote.VoteID] = cloneVote(vote)
	return nil
}

func (l *fakeLedger) GetVoteByID(_ context.Context, voteID string) (*domain.VoteRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	vote, ok := l.votes[voteID]
	if !ok {
		return nil, nil
	}
	return cloneVote(vote), nil
}

func (l *fakeLedger) GetOpenVoteByApplicant(_ context.Context, applicantID string) (*domain.VoteRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, vote := range l.votes {
		if vote.ApplicantID == applicantID && vote.Status == domain.StatusOpen {
			return cloneVote(vote), nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) ListVotes(_ context.Context, filter domain.VoteHistoryFilter) ([]*domain.VoteRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var votes []*domain.VoteRecord
	for _, vote := range l.votes {
		if filter.EmployeeID != "" && vote.ApplicantID != filter.EmployeeID {
			continue
		}
		if filter.Store != "" && vote.Store != filter.Store {
			continue
		}
		if filter.Status != "" && vote.Status != filter.Status {
			continue
		}
		if filter.StartDate != nil && vote.InitiatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && vote.InitiatedAt.After(*filter.EndDate) {
			continue
		}
		votes = append(votes, cloneVote(vote))
	}

	sort.Slice(votes, func(i, j int) bool {
		return votes[i].CreatedAt.After(votes[j].CreatedAt)
	})

	return votes, nil
}

func (l *fakeLedger) ListExpiredOpenVoteIDs(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var ids []string
	for id, vote := range l.votes {
		if vote.Status == domain.StatusOpen && now.After(vote.Deadline) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids, nil
}

func (l *fakeLedger) RecordBallot(_ context.Context, ballot *domain.Ballot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	vote, ok := l.votes[ballot.VoteID]
	if !ok {
		return fmt.Errorf("vote %s not found", ballot.VoteID)
	}
	if vote.Status != domain.StatusOpen {
		return fmt.Errorf("vote %s is not open", ballot.VoteID)
	}

	byVoter, ok := l.ballots[ballot.VoteID]
	if !ok {
		byVoter = make(map[string]*domain.Ballot)
		l.ballots[ballot.VoteID] = byVoter
	}
	if _, exists := byVoter[ballot.VoterID]; exists {
		return fmt.Errorf("duplicate ballot for voter %s", ballot.VoterID)
	}

	cp := *ballot
	byVoter[ballot.VoterID] = &cp
	l.seq++
	l.ballotSeq[ballot.VoteID+":"+ballot.VoterID] = l.seq

	if ballot.Choice == domain.ChoiceAgree {
		vote.AgreeCount++
	} else {
		vote.DisagreeCount++
	}

	return nil
}

func (l *fakeLedger) GetBallot(_ context.Context, voteID, voterID string) (*domain.Ballot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ballot, ok := l.ballots[voteID][voterID]
	if !ok {
		return nil, nil
	}
	cp := *ballot
	return &cp, nil
}

func (l *fakeLedger) ListBallots(_ context.Context, voteID string) ([]*domain.Ballot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ballots []*domain.Ballot
	for _, ballot := range l.ballots[voteID] {
		cp := *ballot
		ballots = append(ballots, &cp)
	}
	sort.Slice(ballots, func(i, j int) bool {
		return l.ballotSeq[voteID+":"+ballots[i].VoterID] < l.ballotSeq[voteID+":"+ballots[j].VoterID]
	})

	return ballots, nil
}

func (l *fakeLedger) CloseVote(_ context.Context, voteID string, status domain.VoteStatus) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	vote, ok := l.votes[voteID]
	if !ok {
		return false, fmt.Errorf("vote %s not found", voteID)
	}
	if vote.Status != domain.StatusOpen {
		return false, nil
	}

	vote.Status = status
	return true, nil
}

// putVote installs a record directly, bypassing initiation. Used to stage
// rounds with past deadlines.
func (l *fakeLedger) putVote(vote *domain.VoteRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.votes[vote.VoteID] = cloneVote(vote)
}

func (l *fakeLedger) voteStatus(voteID string) domain.VoteStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.votes[voteID].Status
}

// fakeDirectory is an in-memory EmployeeDirectory for service tests.
type fakeDirectory struct {
	mu              sync.Mutex
	employees       map[string]*domain.Employee
	positionUpdates []string // "employeeID:newPosition" in call order
}

func newFakeDirectory(employees ...*domain.Employee) *fakeDirectory {
	d := &fakeDirectory{employees: make(map[string]*domain.Employee)}
	for _, emp := range employees {
		cp := *emp
		d.employees[emp.EmployeeID] = &cp
	}
	return d
}

func (d *fakeDirectory) GetByID(_ context.Context, employeeID string) (*domain.Employee, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	emp, ok := d.employees[employeeID]
	if !ok {
		return nil, nil
	}
	cp := *emp
	return &cp, nil
}

func (d *fakeDirectory) ListByStore(_ context.Context, store string) ([]*domain.Employee, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var result []*domain.Employee
	for _, emp := range d.employees {
		if emp.Store == store {
			cp := *emp
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EmployeeID < result[j].EmployeeID
	})

	return result, nil
}

func (d *fakeDirectory) UpdatePosition(_ context.Context, employeeID, newPosition string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	emp, ok := d.employees[employeeID]
	if !ok {
		return fmt.Errorf("employee %s not found", employeeID)
	}
	emp.Position = newPosition
	d.positionUpdates = append(d.positionUpdates, employeeID+":"+newPosition)

	return nil
}

func (d *fakeDirectory) add(emp *domain.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *emp
	d.employees[emp.EmployeeID] = &cp
}

func (d *fakeDirectory) updates() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.positionUpdates...)
}

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []EventKind
}

func (n *recordingNotifier) Notify(_ context.Context, kind EventKind, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind)
}

func (n *recordingNotifier) count(kind EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, k := range n.events {
		if k == kind {
			total++
		}
	}
	return total
}
