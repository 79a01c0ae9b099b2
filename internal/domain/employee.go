package domain

import "time"

// Employee is one entry of the employee directory.
type Employee struct {
	EmployeeID string    `json:"employee_id"`
	Name       string    `json:"name"`
	Store      string    `json:"store"`
	Position   string    `json:"position"`
	Active     bool      `json:"active"`
	HiredAt    time.Time `json:"hired_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Position hierarchy names
const (
	PositionStaff           = "Staff"
	PositionSupervisor      = "Supervisor"
	PositionManager         = "Manager"
	PositionRegionalManager = "RegionalManager"
	PositionGeneralManager  = "GeneralManager"
)

// PositionLevel ranks positions for eligibility comparisons.
type PositionLevel int

var positionLevels = map[string]PositionLevel{
	PositionStaff:           1,
	PositionSupervisor:      2,
	PositionManager:         3,
	PositionRegionalManager: 4,
	PositionGeneralManager:  5,
}

// LevelOf returns the hierarchy rank of a position. Unknown position strings
// rank below Staff.
func LevelOf(position string) PositionLevel {
	return positionLevels[position]
}
