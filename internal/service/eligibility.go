package service

import (
	"context"
	"fmt"

	"promovote/internal/domain"
	"promovote/internal/repository"

	"go.uber.org/zap"
)

// EligibilityResolver computes the set of employees permitted to vote on a
// promotion request: same store, currently active, and ranked at or above the
// applicant's current position. The result is frozen into the round at
// initiation; later hires, transfers or terminations do not touch an
// in-flight electorate.
type EligibilityResolver struct {
	directory repository.EmployeeDirectory
	logger    *zap.Logger
}

func NewEligibilityResolver(directory repository.EmployeeDirectory, logger *zap.Logger) *EligibilityResolver {
	return &EligibilityResolver{directory: directory, logger: logger}
}

// Resolve returns the eligible-voter snapshot for an applicant's store and
// current position, in directory order.
func (r *EligibilityResolver) Resolve(ctx context.Context, store, currentPosition string) ([]domain.EligibleVoter, error) {
	employees, err := r.directory.ListByStore(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("failed to list store employees: %w", err)
	}

	threshold := domain.LevelOf(currentPosition)

	voters := make([]domain.EligibleVoter, 0, len(employees))
	for _, emp := range employees {
		if !emp.Active {
			continue
		}
		if domain.LevelOf(emp.Position) < threshold {
			continue
		}
		voters = append(voters, domain.EligibleVoter{
			EmployeeID: emp.EmployeeID,
			Name:       emp.Name,
			Position:   emp.Position,
		})
	}

	r.logger.Debug("resolved eligible voters",
		zap.String("store", store),
		zap.String("current_position", currentPosition),
		zap.Int("store_size", len(employees)),
		zap.Int("eligible", len(voters)))

	return voters, nil
}
