package domain

import (
	"time"
)

// VoteStatus is the lifecycle state of a promotion round. Open is the only
// non-terminal state; no transition leaves Approved or Rejected.
type VoteStatus string

const (
	StatusOpen     VoteStatus = "open"
	StatusApproved VoteStatus = "approved"
	StatusRejected VoteStatus = "rejected"
)

// Terminal reports whether the status permits no further transitions.
func (s VoteStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is one of the known statuses.
func (s VoteStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// BallotChoice is a voter's decision on a promotion round.
type BallotChoice string

const (
	ChoiceAgree    BallotChoice = "agree"
	ChoiceDisagree BallotChoice = "disagree"
)

// Valid reports whether c is one of the known choices.
func (c BallotChoice) Valid() bool {
	return c == ChoiceAgree || c == ChoiceDisagree
}

// EligibleVoter is one entry of the voter snapshot frozen at initiation.
type EligibleVoter struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Position   string `json:"position"`
}

// VoteRecord represents one promotion request and its tally
type VoteRecord struct {
	VoteID             string          `json:"vote_id"`
	ApplicantID        string          `json:"applicant_id"`
	ApplicantName      string          `json:"applicant_name"`
	Store              string          `json:"store"`
	CurrentPosition    string          `json:"current_position"`
	TargetPosition     string          `json:"target_position"`
	InitiatedAt        time.Time       `json:"initiated_at"`
	Deadline           time.Time       `json:"deadline"`
	AgreeCount         int             `json:"agree_count"`
	DisagreeCount      int             `json:"disagree_count"`
	EligibleVoterCount int             `json:"eligible_voter_count"`
	EligibleVoters     []EligibleVoter `json:"eligible_voters"`
	Status             VoteStatus      `json:"status"`
	Reason             string          `json:"reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// TotalCast returns the number of ballots recorded so far.
func (v *VoteRecord) TotalCast() int {
	return v.AgreeCount + v.DisagreeCount
}

// QuorumReached reports whether every eligible voter has cast a ballot.
func (v *VoteRecord) QuorumReached() bool {
	return v.TotalCast() >= v.EligibleVoterCount
}

// Expired reports whether the round's deadline has passed at the given time.
func (v *VoteRecord) Expired(now time.Time) bool {
	return now.After(v.Deadline)
}

// Outcome resolves the terminal status for a closing round: approved when a
// strict majority of cast ballots agree. A round closing with zero ballots is
// rejected.
func (v *VoteRecord) Outcome() VoteStatus {
	total := v.TotalCast()
	if total > 0 && float64(v.AgreeCount)/float64(total) > 0.5 {
		return StatusApproved
	}
	return StatusRejected
}

// VoterEligible looks up voterID in the frozen snapshot.
func (v *VoteRecord) VoterEligible(voterID string) (EligibleVoter, bool) {
	for _, ev := range v.EligibleVoters {
		if ev.EmployeeID == voterID {
			return ev, true
		}
	}
	return EligibleVoter{}, false
}

// Ballot represents one voter's recorded decision on one VoteRecord. The
// voter's position and store are denormalized at submission time for audit.
type Ballot struct {
	BallotID      string       `json:"ballot_id"`
	VoteID        string       `json:"vote_id"`
	VoterID       string       `json:"voter_id"`
	VoterName     string       `json:"voter_name"`
	Choice        BallotChoice `json:"choice"`
	SubmittedAt   time.Time    `json:"submitted_at"`
	Comment       string       `json:"comment,omitempty"`
	VoterPosition string       `json:"voter_position"`
	VoterStore    string       `json:"voter_store"`
}

// InitiateVoteRequest starts a new promotion round
type InitiateVoteRequest struct {
	ApplicantID    string `json:"applicant_id"`
	TargetPosition string `json:"target_position"`
	Reason         string `json:"reason,omitempty"`
}

// InitiateVoteResponse is returned after a round is opened
type InitiateVoteResponse struct {
	VoteID             string    `json:"vote_id"`
	Deadline           time.Time `json:"deadline"`
	EligibleVoterCount int       `json:"eligible_voter_count"`
	Message            string    `json:"message"`
}

// SubmitBallotRequest records one voter's choice
type SubmitBallotRequest struct {
	VoterID string `json:"voter_id"`
	Choice  string `json:"choice"`
	Comment string `json:"comment,omitempty"`
}

// VoteHistoryFilter narrows a history listing; zero values mean "any".
type VoteHistoryFilter struct {
	EmployeeID string
	Store      string
	Status     VoteStatus
	StartDate  *time.Time
	EndDate    *time.Time
}
