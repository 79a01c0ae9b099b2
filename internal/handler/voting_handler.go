package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"promovote/internal/domain"
	"promovote/internal/service"
	apperrors "promovote/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type VotingHandler struct {
	votingService *service.VotingService
	logger        *zap.Logger
}

func NewVotingHandler(votingService *service.VotingService, logger *zap.Logger) *VotingHandler {
	return &VotingHandler{
		votingService: votingService,
		logger:        logger,
	}
}

// Initiate handles POST /api/v1/promotions
func (h *VotingHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req domain.InitiateVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperrors.NewValidationError("invalid request body", nil))
		return
	}

	if err := h.validateInitiateRequest(&req); err != nil {
		h.respondError(w, err)
		return
	}

	resp, err := h.votingService.Initiate(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondSuccess(w, http.StatusCreated, map[string]interface{}{
		"vote_id":              resp.VoteID,
		"deadline":             resp.Deadline,
		"eligible_voter_count": resp.EligibleVoterCount,
		"message":              resp.Message,
	})
}

// SubmitBallot handles POST /api/v1/promotions/{voteID}/ballots
func (h *VotingHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	voteID := chi.URLParam(r, "voteID")
	if voteID == "" {
		h.respondError(w, apperrors.NewValidationError("vote ID is required", nil))
		return
	}

	var req domain.SubmitBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperrors.NewValidationError("invalid request body", nil))
		return
	}

	if err := h.validateBallotRequest(&req); err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.votingService.SubmitBallot(r.Context(), voteID, &req); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"message": "Vote recorded successfully",
	})
}

// GetVote handles GET /api/v1/promotions/{voteID}
func (h *VotingHandler) GetVote(w http.ResponseWriter, r *http.Request) {
	voteID := chi.URLParam(r, "voteID")
	if voteID == "" {
		h.respondError(w, apperrors.NewValidationError("vote ID is required", nil))
		return
	}

	vote, err := h.votingService.GetVote(r.Context(), voteID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"vote": vote,
	})
}

// GetBallots handles GET /api/v1/promotions/{voteID}/ballots
func (h *VotingHandler) GetBallots(w http.ResponseWriter, r *http.Request) {
	voteID := chi.URLParam(r, "voteID")
	if voteID == "" {
		h.respondError(w, apperrors.NewValidationError("vote ID is required", nil))
		return
	}

	ballots, err := h.votingService.GetBallots(r.Context(), voteID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if ballots == nil {
		ballots = []*domain.Ballot{}
	}

	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"ballots": ballots,
		"count":   len(ballots),
	})
}

// GetActiveVote handles GET /api/v1/employees/{employeeID}/promotions/active
func (h *VotingHandler) GetActiveVote(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		h.respondError(w, apperrors.NewValidationError("employee ID is required", nil))
		return
	}

	vote, err := h.votingService.GetActiveVote(r.Context(), employeeID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"vote": vote,
	})
}

// GetHistory handles GET /api/v1/promotions
func (h *VotingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseHistoryFilter(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	votes, err := h.votingService.GetHistory(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if votes == nil {
		votes = []*domain.VoteRecord{}
	}

	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"votes": votes,
		"count": len(votes),
	})
}

// Sweep handles POST /api/v1/promotions/sweep, invoked by the external
// scheduler to close expired rounds in bounded time.
func (h *VotingHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	closed, err := h.votingService.SweepExpired(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"closed": closed,
	})
}

func (h *VotingHandler) validateInitiateRequest(req *domain.InitiateVoteRequest) error {
	if req.ApplicantID == "" {
		return apperrors.NewValidationError("applicant_id is required", nil)
	}
	if req.TargetPosition == "" {
		return apperrors.NewValidationError("target_position is required", nil)
	}
	return nil
}

func (h *VotingHandler) validateBallotRequest(req *domain.SubmitBallotRequest) error {
	if req.VoterID == "" {
		return apperrors.NewValidationError("voter_id is required", nil)
	}
	if !domain.BallotChoice(req.Choice).Valid() {
		return apperrors.NewValidationError("choice must be agree or disagree", nil)
	}
	return nil
}

func (h *VotingHandler) parseHistoryFilter(r *http.Request) (domain.VoteHistoryFilter, error) {
	q := r.URL.Query()

	filter := domain.VoteHistoryFilter{
		EmployeeID: q.Get("employee_id"),
		Store:      q.Get("store"),
	}

	if status := q.Get("status"); status != "" {
		vs := domain.VoteStatus(status)
		if !vs.Valid() {
			return filter, apperrors.NewValidationError("status must be open, approved or rejected", nil)
		}
		filter.Status = vs
	}

	if start := q.Get("start_date"); start != "" {
		t, err := parseDate(start)
		if err != nil {
			return filter, apperrors.NewValidationError("start_date must be an RFC3339 timestamp or YYYY-MM-DD date", nil)
		}
		filter.StartDate = &t
	}

	if end := q.Get("end_date"); end != "" {
		t, err := parseDate(end)
		if err != nil {
			return filter, apperrors.NewValidationError("end_date must be an RFC3339 timestamp or YYYY-MM-DD date", nil)
		}
		filter.EndDate = &t
	}

	return filter, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// respondSuccess writes a {success: true, ...} envelope
func (h *VotingHandler) respondSuccess(w http.ResponseWriter, status int, payload map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	for k, v := range payload {
		body[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondError writes a {success: false, errors: [...]} envelope. Internal
// and lock-timeout failures are logged in full but surfaced generically.
func (h *VotingHandler) respondError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.NewInternalError("unexpected error", err)
	}

	switch appErr.Type {
	case apperrors.ErrorTypeInternal, apperrors.ErrorTypeLockTimeout:
		h.logger.Error("request failed",
			zap.String("error_type", string(appErr.Type)),
			zap.Error(appErr))
	default:
		h.logger.Debug("request rejected",
			zap.String("error_type", string(appErr.Type)),
			zap.String("message", appErr.Message))
	}

	body := map[string]interface{}{
		"success": false,
		"errors": []map[string]interface{}{
			{
				"type":    appErr.Type,
				"message": appErr.PublicMessage(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		h.logger.Error("failed to encode error response", zap.Error(encodeErr))
		fmt.Fprint(w, `{"success":false}`)
	}
}
