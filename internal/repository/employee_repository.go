package repository

import (
	"context"
	"fmt"

	"promovote/internal/domain"
	"promovote/pkg/database"

	"github.com/jackc/pgx/v5"
)

// EmployeeRepository is the pgx-backed EmployeeDirectory.
type EmployeeRepository struct {
	db *database.PostgresDB
}

func NewEmployeeRepository(db *database.PostgresDB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// GetByID retrieves an employee by ID
func (r *EmployeeRepository) GetByID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.Pool.QueryRow(ctx, `
		SELECT employee_id, name, store, position, active, hired_at, updated_at
		FROM employees
		WHERE employee_id = $1
	`, employeeID).Scan(
		&emp.EmployeeID,
		&emp.Name,
		&emp.Store,
		&emp.Position,
		&emp.Active,
		&emp.HiredAt,
		&emp.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return &emp, nil
}

// ListByStore returns all employees of a store
func (r *EmployeeRepository) ListByStore(ctx context.Context, store string) ([]*domain.Employee, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT employee_id, name, store, position, active, hired_at, updated_at
		FROM employees
		WHERE store = $1
		ORDER BY employee_id ASC
	`, store)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []*domain.Employee
	for rows.Next() {
		var emp domain.Employee
		err := rows.Scan(
			&emp.EmployeeID,
			&emp.Name,
			&emp.Store,
			&emp.Position,
			&emp.Active,
			&emp.HiredAt,
			&emp.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, &emp)
	}

	return employees, rows.Err()
}

// UpdatePosition sets an employee's position
func (r *EmployeeRepository) UpdatePosition(ctx context.Context, employeeID, newPosition string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE employees
		SET position = $2, updated_at = NOW()
		WHERE employee_id = $1
	`, employeeID, newPosition)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update position: employee %s not found", employeeID)
	}

	return nil
}
